// Contact HTTP handlers.
//
//   - GET /contacts             (list, paginated)
//   - GET /contacts/export      (CSV)
//   - GET /contacts/{id}        (detail with outreach history)
//   - GET /segments             (lookup)
//   - GET /investor-statuses    (lookup)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CachoMX/vhlabs/internal/domain"
	"github.com/CachoMX/vhlabs/internal/export"
	"github.com/CachoMX/vhlabs/internal/filters"
)

// ListContacts godoc
// @ID          listContacts
// @Summary     List contacts (paginated)
// @Description Returns a page of CRM contacts. Include and exclude filters combine with AND.
// @Tags        Contacts
// @Produce     json
// @Security    BearerAuth
//
// @Param       search             query  string    false  "Matches first name, last name, email or phone"
// @Param       segment            query  string    false  "Segment id"
// @Param       investor_status    query  string    false  "Investor status id"
// @Param       score_min          query  int       false  "Minimum engagement score"
// @Param       score_max          query  int       false  "Maximum engagement score"
// @Param       exclude_segments   query  []string  false  "Segments to exclude (repeat or comma-separate)"
// @Param       exclude_statuses   query  []string  false  "Investor statuses to exclude"
// @Param       exclude_score_min  query  int       false  "Exclude scores from"
// @Param       exclude_score_max  query  int       false  "Exclude scores up to"
// @Param       page               query  int       false  "Page number"     minimum(1) default(1)
// @Param       page_size          query  int       false  "Items per page"  minimum(1) maximum(100) default(10)
//
// @Success     200  {object}  handlers.ListResponse[domain.ContactOverview]
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contacts [get]
func (h *Handlers) ListContacts(c *gin.Context) {
	var f filters.ContactFilters
	if !bindFilters(c, &f) {
		return
	}
	page, pageSize := pageParams(c)

	items, total, err := h.contacts.ListPage(c.Request.Context(), f, page, pageSize)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	listPage(c, items, page, pageSize, total)
}

// ExportContacts godoc
// @ID          exportContacts
// @Summary     Export contacts as CSV
// @Description Streams every contact matching the list filters, up to the configured row cap.
// @Tags        Contacts
// @Produce     text/csv
// @Security    BearerAuth
// @Param       search   query  string  false  "Same filters as the list endpoint"
// @Success     200  {file}    file
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contacts/export [get]
func (h *Handlers) ExportContacts(c *gin.Context) {
	var f filters.ContactFilters
	if !bindFilters(c, &f) {
		return
	}
	rows, err := h.contacts.Export(c.Request.Context(), f)
	if err != nil {
		failService(c, err, ErrCodeExportFailed)
		return
	}
	writeCSV(c, "contacts", export.ContactColumns, rows, h.now())
}

// GetContact godoc
// @ID          getContact
// @Summary     Get a contact
// @Description Returns the contact with its latest distributions and voice calls.
// @Tags        Contacts
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string  true  "Contact id"
// @Success     200  {object}  services.ContactDetail
// @Failure     404  {object}  handlers.ErrorResponse  "Contact not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /contacts/{id} [get]
func (h *Handlers) GetContact(c *gin.Context) {
	d, err := h.contacts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, d)
}

// ListSegments godoc
// @ID          listSegments
// @Summary     List segments
// @Tags        Lookups
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.DataResponse[domain.Segment]
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /segments [get]
func (h *Handlers) ListSegments(c *gin.Context) {
	segs, err := h.contacts.Segments(c.Request.Context())
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	if segs == nil {
		segs = []domain.Segment{}
	}
	ok(c, http.StatusOK, DataResponse[domain.Segment]{Data: segs})
}

// ListInvestorStatuses godoc
// @ID          listInvestorStatuses
// @Summary     List investor statuses
// @Tags        Lookups
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.DataResponse[domain.InvestorStatus]
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /investor-statuses [get]
func (h *Handlers) ListInvestorStatuses(c *gin.Context) {
	st, err := h.contacts.InvestorStatuses(c.Request.Context())
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	if st == nil {
		st = []domain.InvestorStatus{}
	}
	ok(c, http.StatusOK, DataResponse[domain.InvestorStatus]{Data: st})
}
