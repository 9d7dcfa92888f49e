package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/estatehub/backend/internal/infrastructure/logger"
)

var attrRequestID = attribute.Key("http.request_id")

// Tracing returns otelgin followed by a marker that, while the request span
// is still open, tags it with the request ID and flags 5xx responses as
// errors. When disabled the chain is empty.
func Tracing(serviceName string, enabled bool) gin.HandlersChain {
	if !enabled {
		return nil
	}
	return gin.HandlersChain{otelgin.Middleware(serviceName), spanMarker}
}

func spanMarker(c *gin.Context) {
	c.Next()

	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}
	if id := c.Writer.Header().Get(logger.RequestIDHeader); id != "" {
		span.SetAttributes(attrRequestID.String(id))
	}
	if status := c.Writer.Status(); status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}
