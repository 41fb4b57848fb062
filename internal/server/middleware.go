package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/segmentio/ksuid"
)

const (
	// CtxGUIDKey holds the request id in the gin context
	CtxGUIDKey = "guid"

	// HeaderRequestID echoes the request id to the client
	HeaderRequestID = "X-Request-ID"
)

// RequestLogger assigns every request a ksuid and logs it when done.
// Successful requests are logged at debug level since the load generator
// produces them at a high rate.
func RequestLogger(logger log.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		guid := ksuid.New().String()
		ctx.Set(CtxGUIDKey, guid)
		ctx.Header(HeaderRequestID, guid)

		start := time.Now()

		ctx.Next()

		logWrapper := level.Debug
		msg := "HTTP request"

		if err := ctx.Errors.Last(); err != nil {
			logWrapper = level.Error
			msg = err.Error()
		} else if ctx.Writer.Status() >= 500 {
			logWrapper = level.Warn
		}

		logWrapper(logger).Log(
			"guid", guid,
			"client_ip", ctx.ClientIP(),
			"method", ctx.Request.Method,
			"path", ctx.Request.URL.Path,
			"status", ctx.Writer.Status(),
			"latency", time.Since(start),
			"msg", msg,
		)
	}
}
