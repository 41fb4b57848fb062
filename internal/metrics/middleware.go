package metrics

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedPath labels requests that did not hit a registered route so
// arbitrary URLs cannot blow up label cardinality.
const unmatchedPath = "unmatched"

// PrometheusMiddleware is a Gin middleware that counts requests and
// observes their latency labelled by the matched route.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		path := ctx.FullPath()
		if path == "" {
			path = unmatchedPath
		}

		timer := prometheus.NewTimer(HttpRequestDuration.WithLabelValues(path))

		ctx.Next()

		timer.ObserveDuration()
		HttpRequestsTotal.WithLabelValues(path, ctx.Request.Method, strconv.Itoa(ctx.Writer.Status())).Inc()
	}
}
