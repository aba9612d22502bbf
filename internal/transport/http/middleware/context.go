package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/infra/telemetry"
)

const (
	// TraceIDHeader is the HTTP header name for trace ID
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the gin context key for trace ID
	TraceIDKey = "trace_id"

	identityKey = "identity"
)

// EnrichContext assigns a trace ID to each request. An incoming X-Trace-ID wins,
// then the active span, then a fresh UUID.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = telemetry.TraceIDFromContext(c.Request.Context())
		}
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Next()
	}
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(c *gin.Context) string {
	if traceID, exists := c.Get(TraceIDKey); exists {
		if id, ok := traceID.(string); ok {
			return id
		}
	}
	return ""
}

// SetIdentity attaches the authenticated principal to the request.
func SetIdentity(c *gin.Context, identity domain.Identity) {
	c.Set(identityKey, &identity)
}

// CurrentIdentity returns the principal resolved by Authenticate, or nil for anonymous requests.
func CurrentIdentity(c *gin.Context) *domain.Identity {
	if val, exists := c.Get(identityKey); exists {
		if identity, ok := val.(*domain.Identity); ok {
			return identity
		}
	}
	return nil
}
