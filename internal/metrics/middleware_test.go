package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(PrometheusMiddleware())
	router.GET("/things/:id", func(ctx *gin.Context) {
		ctx.Status(http.StatusTeapot)
	})

	matched := HttpRequestsTotal.WithLabelValues("/things/:id", http.MethodGet, "418")
	unmatched := HttpRequestsTotal.WithLabelValues(unmatchedPath, http.MethodGet, "404")
	beforeMatched := testutil.ToFloat64(matched)
	beforeUnmatched := testutil.ToFloat64(unmatched)

	for _, path := range []string{"/things/1", "/things/2", "/nowhere"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, beforeMatched+2, testutil.ToFloat64(matched), "route template keeps label cardinality low")
	assert.Equal(t, beforeUnmatched+1, testutil.ToFloat64(unmatched))
}
