package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CachoMX/vhlabs/internal/domain"
	"github.com/CachoMX/vhlabs/internal/filters"
	"github.com/CachoMX/vhlabs/internal/services"
)

// DashboardKPIs godoc
// @ID          dashboardKPIs
// @Summary     Headline numbers
// @Description Total content, distributions sent today (UTC) and average open and response rates.
// @Tags        Dashboard
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  services.KPIs
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /dashboard/kpis [get]
func (h *Handlers) DashboardKPIs(c *gin.Context) {
	k, err := h.dashboard.KPIs(c.Request.Context())
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, k)
}

// DashboardContactBreakdown godoc
// @ID          dashboardContactBreakdown
// @Summary     Contacts by segment and investor status
// @Tags        Dashboard
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  services.ContactBreakdown
// @Router      /dashboard/contact-breakdown [get]
func (h *Handlers) DashboardContactBreakdown(c *gin.Context) {
	b, err := h.dashboard.ContactBreakdown(c.Request.Context())
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, b)
}

// DashboardEngagement godoc
// @ID          dashboardEngagement
// @Summary     Daily engagement trend
// @Tags        Dashboard
// @Produce     json
// @Security    BearerAuth
// @Param       preset      query  string  false  "today, yesterday, last7days, last30days, thisMonth, lastMonth or custom"
// @Param       start_date  query  string  false  "YYYY-MM-DD, with preset=custom"
// @Param       end_date    query  string  false  "YYYY-MM-DD, with preset=custom"
// @Success     200  {object}  handlers.DataResponse[services.TrendPoint]
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /dashboard/engagement [get]
func (h *Handlers) DashboardEngagement(c *gin.Context) {
	var f filters.DashboardFilters
	if !bindFilters(c, &f) {
		return
	}
	pts, err := h.dashboard.EngagementTrends(c.Request.Context(), f)
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	if pts == nil {
		pts = []services.TrendPoint{}
	}
	ok(c, http.StatusOK, DataResponse[services.TrendPoint]{Data: pts})
}

// DashboardRecentActivity godoc
// @ID          dashboardRecentActivity
// @Summary     Latest analytics events
// @Tags        Dashboard
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.DataResponse[domain.AnalyticsEvent]
// @Router      /dashboard/recent-activity [get]
func (h *Handlers) DashboardRecentActivity(c *gin.Context) {
	ev, err := h.dashboard.RecentActivity(c.Request.Context())
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	if ev == nil {
		ev = []domain.AnalyticsEvent{}
	}
	ok(c, http.StatusOK, DataResponse[domain.AnalyticsEvent]{Data: ev})
}

// DashboardSystemHealth godoc
// @ID          dashboardSystemHealth
// @Summary     Recent workflow failures
// @Tags        Dashboard
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  services.SystemHealth
// @Router      /dashboard/system-health [get]
func (h *Handlers) DashboardSystemHealth(c *gin.Context) {
	sh, err := h.dashboard.SystemHealth(c.Request.Context())
	if err != nil {
		failService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, sh)
}
