package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())

	var inflightDuring float64
	r.GET("/contents/:id", func(c *gin.Context) {
		inflightDuring = testutil.ToFloat64(httpInflight)
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	r.POST("/contents/:id/archive", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	byID := func() float64 { return testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/contents/:id", "200")) }
	archived := func() float64 {
		return testutil.ToFloat64(httpReqs.WithLabelValues("POST", "/contents/:id/archive", "204"))
	}
	unmatched := func() float64 { return testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedRoute, "404")) }
	baseByID, baseArchived, baseUnmatched := byID(), archived(), unmatched()

	for _, target := range []string{"/contents/c-1", "/contents/c-2", "/wp-login.php"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/contents/c-1/archive", nil))

	assert.Equal(t, baseByID+2, byID(), "both ids share one series")
	assert.Equal(t, baseArchived+1, archived())
	assert.Equal(t, baseUnmatched+1, unmatched(), "unknown paths collapse into one label")

	assert.GreaterOrEqual(t, inflightDuring, 1.0)
	assert.Equal(t, 0.0, testutil.ToFloat64(httpInflight))

	assert.Positive(t, testutil.CollectAndCount(httpLat))
	assert.Positive(t, testutil.CollectAndCount(httpRespSize))
}
