// Distribution HTTP handlers.
//
//   - GET  /distributions               (list across channels, paginated)
//   - POST /distributions               (trigger a send; honors Idempotency-Key)
//   - GET  /distributions/export        (CSV)
//   - GET  /distributions/performance   (per-channel performance view)
//   - GET  /distributions/by-channel    (chart data)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CachoMX/vhlabs/internal/domain"
	"github.com/CachoMX/vhlabs/internal/export"
	"github.com/CachoMX/vhlabs/internal/filters"
	"github.com/CachoMX/vhlabs/internal/http/middleware"
	"github.com/CachoMX/vhlabs/internal/services"
)

// HeaderIdempotentReplay is set to "true" on a response served from a
// stored result.
const HeaderIdempotentReplay = "Idempotent-Replayed"

// ListDistributions godoc
// @ID          listDistributions
// @Summary     List distributions (paginated)
// @Description Returns email, SMS, social and voice outreach, newest first, each with its contact. A search term filters the returned page and total reports the filtered count.
// @Tags        Distributions
// @Produce     json
// @Security    BearerAuth
//
// @Param       channel    query  string  false  "email, sms, social or voice"
// @Param       date_from  query  string  false  "YYYY-MM-DD or RFC 3339"
// @Param       date_to    query  string  false  "YYYY-MM-DD (inclusive) or RFC 3339"
// @Param       search     query  string  false  "Contact name, email or phone"
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(100) default(10)
//
// @Success     200  {object}  handlers.ListResponse[domain.DistributionWithContact]
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /distributions [get]
func (h *Handlers) ListDistributions(c *gin.Context) {
	var f filters.DistributionFilters
	if !bindFilters(c, &f) {
		return
	}
	page, pageSize := pageParams(c)

	items, total, err := h.distributions.ListPage(c.Request.Context(), f, page, pageSize)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	listPage(c, items, page, pageSize, total)
}

// CreateDistributions godoc
// @ID          createDistributions
// @Summary     Send content to contacts
// @Description Records one distribution per contact and notifies the send workflow. Rows are "scheduled" when scheduled_for is set, otherwise "sent". Retrying with the same Idempotency-Key returns the original rows with 200.
// @Tags        Distributions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string                 false  "Client-chosen key that makes retries safe"  example(send-2024-05-01-abc)
// @Param       body             body    services.SendRequest   true   "Send payload"
//
// @Success     201  {object}  services.SendResult
// @Success     200  {object}  services.SendResult  "Replayed result"
// @Header      200  {string}  Idempotent-Replayed  "true"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Content not found"
// @Failure     429  {object}  handlers.ErrorResponse  "Too many requests"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /distributions [post]
func (h *Handlers) CreateDistributions(c *gin.Context) {
	var req services.SendRequest
	if !bindJSON(c, &req) {
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)
	idem := services.IdempotencyRef{
		UserID: middleware.UserID(c),
		Scope:  middleware.IdempotencyScope(c),
		Key:    key,
	}

	res, err := h.distributions.Create(c.Request.Context(), req, idem)
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}
	if res.Replayed {
		c.Header(HeaderIdempotentReplay, "true")
		ok(c, http.StatusOK, res)
		return
	}
	ok(c, http.StatusCreated, res)
}

// ExportDistributions godoc
// @ID          exportDistributions
// @Summary     Export distributions as CSV
// @Tags        Distributions
// @Produce     text/csv
// @Security    BearerAuth
// @Param       channel  query  string  false  "Same filters as the list endpoint"
// @Success     200  {file}    file
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /distributions/export [get]
func (h *Handlers) ExportDistributions(c *gin.Context) {
	var f filters.DistributionFilters
	if !bindFilters(c, &f) {
		return
	}
	rows, err := h.distributions.Export(c.Request.Context(), f)
	if err != nil {
		failService(c, err, ErrCodeExportFailed)
		return
	}
	writeCSV(c, "distributions", export.DistributionColumns, rows, h.now())
}

// DistributionPerformance godoc
// @ID          distributionPerformance
// @Summary     Per-channel performance
// @Tags        Distributions
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.DataResponse[domain.DistributionPerformance]
// @Router      /distributions/performance [get]
func (h *Handlers) DistributionPerformance(c *gin.Context) {
	rows, err := h.distributions.Performance(c.Request.Context())
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	if rows == nil {
		rows = []domain.DistributionPerformance{}
	}
	ok(c, http.StatusOK, DataResponse[domain.DistributionPerformance]{Data: rows})
}

// DistributionsByChannel godoc
// @ID          distributionsByChannel
// @Summary     Distribution counts per channel
// @Tags        Distributions
// @Produce     json
// @Security    BearerAuth
// @Param       preset      query  string  false  "today, yesterday, last7days, last30days, thisMonth, lastMonth or custom"
// @Param       start_date  query  string  false  "YYYY-MM-DD"
// @Param       end_date    query  string  false  "YYYY-MM-DD"
// @Param       channel     query  string  false  "Restrict to one channel"
// @Param       status      query  string  false  "Restrict to one status"
// @Success     200  {object}  handlers.DataResponse[domain.ChannelCount]
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /distributions/by-channel [get]
func (h *Handlers) DistributionsByChannel(c *gin.Context) {
	var f services.ChannelChartFilters
	if !bindFilters(c, &f) {
		return
	}
	rows, err := h.distributions.ChartByChannel(c.Request.Context(), f)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	if rows == nil {
		rows = []domain.ChannelCount{}
	}
	ok(c, http.StatusOK, DataResponse[domain.ChannelCount]{Data: rows})
}
