package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
)

// OtelTracing traces /api requests. Websocket upgrades are skipped since
// their span would last for the whole connection.
func OtelTracing(serviceName string) gin.HandlerFunc {
	traced := otelgin.Middleware(serviceName)

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !strings.HasPrefix(path, "/api/") || strings.HasSuffix(path, "/ws") {
			c.Next()
			return
		}
		traced(c)
	}
}

// TraceID exposes the current trace id as X-Trace-Id and in the gin context
// for log correlation.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		sc := trace.SpanFromContext(c.Request.Context()).SpanContext()
		if sc.IsValid() {
			id := sc.TraceID().String()
			c.Set("trace_id", id)
			c.Header("X-Trace-Id", id)
		}
		c.Next()
	}
}
