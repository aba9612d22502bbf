package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/usecase"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// TokenResolver maps an opaque token key to its owner.
type TokenResolver interface {
	Resolve(ctx context.Context, key string) (domain.Identity, error)
}

// CapabilityPolicy decides whether an identity may use a capability.
type CapabilityPolicy interface {
	Evaluate(identity *domain.Identity, required domain.Capability) error
}

// Authenticate resolves the Authorization header into an identity. Requests without the
// header continue anonymously; a malformed header or an unknown key is rejected with 401.
func Authenticate(tokens TokenResolver, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			c.Next()
			return
		}

		scheme, key, ok := strings.Cut(header, " ")
		if !ok || !(strings.EqualFold(scheme, "Token") || strings.EqualFold(scheme, "Bearer")) {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "Invalid token header. Expected 'Token <key>'."))
			return
		}

		key = strings.TrimSpace(key)
		if key == "" || strings.ContainsAny(key, " \t") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "Invalid token header. Token string should not contain spaces."))
			return
		}

		identity, err := tokens.Resolve(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, usecase.ErrNoSuchToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "Invalid token."))
				return
			}
			log.Error("token lookup failed", zap.String("trace_id", GetTraceID(c)), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, newErrorResponse(c, "authentication failed"))
			return
		}

		SetIdentity(c, identity)
		c.Next()
	}
}

// RequireCapability rejects the request unless the current identity holds the capability.
// Missing credentials always produce 401 before any 403.
func RequireCapability(policy CapabilityPolicy, required domain.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch err := policy.Evaluate(CurrentIdentity(c), required); {
		case err == nil:
			c.Next()
		case errors.Is(err, usecase.ErrUnauthenticated):
			c.Header("WWW-Authenticate", "Token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "Authentication credentials were not provided."))
		case errors.Is(err, usecase.ErrForbidden):
			c.AbortWithStatusJSON(http.StatusForbidden, newErrorResponse(c, "You do not have permission to perform this action."))
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, newErrorResponse(c, "authorization failed"))
		}
	}
}
