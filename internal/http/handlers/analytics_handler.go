package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/CachoMX/vhlabs/internal/export"
	"github.com/CachoMX/vhlabs/internal/filters"
)

// ListAnalyticsEvents godoc
// @ID          listAnalyticsEvents
// @Summary     List analytics events (paginated)
// @Tags        Analytics
// @Produce     json
// @Security    BearerAuth
//
// @Param       event_type      query  string  false  "Event type"
// @Param       event_category  query  string  false  "Event category"
// @Param       start_date      query  string  false  "YYYY-MM-DD"
// @Param       end_date        query  string  false  "YYYY-MM-DD (inclusive)"
// @Param       page            query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size       query  int     false  "Items per page"  minimum(1) maximum(100) default(10)
//
// @Success     200  {object}  handlers.ListResponse[domain.AnalyticsEvent]
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /analytics/events [get]
func (h *Handlers) ListAnalyticsEvents(c *gin.Context) {
	var f filters.AnalyticsFilters
	if !bindFilters(c, &f) {
		return
	}
	page, pageSize := pageParams(c)

	items, total, err := h.analytics.Events(c.Request.Context(), f, page, pageSize)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	listPage(c, items, page, pageSize, total)
}

// ExportAnalyticsEvents godoc
// @ID          exportAnalyticsEvents
// @Summary     Export analytics events as CSV
// @Tags        Analytics
// @Produce     text/csv
// @Security    BearerAuth
// @Param       event_type  query  string  false  "Same filters as the list endpoint"
// @Success     200  {file}    file
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /analytics/events/export [get]
func (h *Handlers) ExportAnalyticsEvents(c *gin.Context) {
	var f filters.AnalyticsFilters
	if !bindFilters(c, &f) {
		return
	}
	rows, err := h.analytics.Export(c.Request.Context(), f)
	if err != nil {
		failService(c, err, ErrCodeExportFailed)
		return
	}
	writeCSV(c, "analytics-events", export.EventColumns, rows, h.now())
}

// ListWorkflowLogs godoc
// @ID          listWorkflowLogs
// @Summary     List workflow executions (paginated)
// @Tags        Analytics
// @Produce     json
// @Security    BearerAuth
//
// @Param       workflow_name  query  string  false  "n8n workflow name"
// @Param       status         query  string  false  "success, error or running"
// @Param       start_date     query  string  false  "YYYY-MM-DD"
// @Param       end_date       query  string  false  "YYYY-MM-DD (inclusive)"
// @Param       page           query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query  int     false  "Items per page"  minimum(1) maximum(100) default(10)
//
// @Success     200  {object}  handlers.ListResponse[domain.WorkflowLog]
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /analytics/workflows [get]
func (h *Handlers) ListWorkflowLogs(c *gin.Context) {
	var f filters.AnalyticsFilters
	if !bindFilters(c, &f) {
		return
	}
	page, pageSize := pageParams(c)

	items, total, err := h.analytics.Workflows(c.Request.Context(), f, page, pageSize)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	listPage(c, items, page, pageSize, total)
}
