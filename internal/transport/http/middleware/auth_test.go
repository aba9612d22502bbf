package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/usecase"
)

type stubResolver map[string]domain.Identity

func (s stubResolver) Resolve(_ context.Context, key string) (domain.Identity, error) {
	if key == "broken" {
		return domain.Identity{}, errors.New("db down")
	}
	identity, ok := s[key]
	if !ok {
		return domain.Identity{}, usecase.ErrNoSuchToken
	}
	return identity, nil
}

func newGuardedRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	resolver := stubResolver{
		"member-key": {UserID: "u-1", Role: domain.RoleMember},
		"staff-key":  {UserID: "u-2", Role: domain.RoleStaff},
	}
	policy := usecase.AccessPolicy{}

	router := gin.New()
	router.Use(EnrichContext(), Authenticate(resolver, zaptest.NewLogger(t)))
	router.GET("/public", RequireCapability(policy, domain.CapabilityPublic), func(c *gin.Context) {
		if identity := CurrentIdentity(c); identity != nil {
			c.String(http.StatusOK, identity.UserID)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	router.GET("/private", RequireCapability(policy, domain.CapabilityAuthenticated), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentIdentity(c).UserID)
	})
	router.GET("/admin", RequireCapability(policy, domain.CapabilityAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestAuthenticateAndRequireCapability(t *testing.T) {
	router := newGuardedRouter(t)

	cases := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{name: "anonymous public", path: "/public", status: http.StatusOK, body: "anonymous"},
		{name: "token scheme", path: "/private", header: "Token member-key", status: http.StatusOK, body: "u-1"},
		{name: "bearer scheme", path: "/private", header: "Bearer member-key", status: http.StatusOK, body: "u-1"},
		{name: "lowercase scheme", path: "/private", header: "token member-key", status: http.StatusOK, body: "u-1"},
		{name: "anonymous private", path: "/private", status: http.StatusUnauthorized},
		{name: "anonymous admin is 401 not 403", path: "/admin", status: http.StatusUnauthorized},
		{name: "member admin", path: "/admin", header: "Token member-key", status: http.StatusForbidden},
		{name: "staff admin", path: "/admin", header: "Token staff-key", status: http.StatusOK},
		{name: "unknown key", path: "/private", header: "Token nope", status: http.StatusUnauthorized},
		{name: "unknown key on public", path: "/public", header: "Token nope", status: http.StatusUnauthorized},
		{name: "wrong scheme", path: "/private", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "missing key", path: "/private", header: "Token", status: http.StatusUnauthorized},
		{name: "key with spaces", path: "/private", header: "Token a b", status: http.StatusUnauthorized},
		{name: "lookup failure", path: "/private", header: "Token broken", status: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			require.Equal(t, tc.status, rr.Code, rr.Body.String())
			if tc.body != "" {
				assert.Equal(t, tc.body, rr.Body.String())
			}
		})
	}
}

func TestRequireCapabilityAdvertisesTokenScheme(t *testing.T) {
	router := newGuardedRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/private", nil))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Token", rr.Header().Get("WWW-Authenticate"))
	assert.NotEmpty(t, rr.Header().Get(TraceIDHeader))
	assert.Contains(t, rr.Body.String(), "Authentication credentials were not provided.")
}

func TestEnrichContextKeepsIncomingTraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(EnrichContext())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetTraceID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceIDHeader, "trace-123")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, "trace-123", rr.Body.String())
	assert.Equal(t, "trace-123", rr.Header().Get(TraceIDHeader))
}
