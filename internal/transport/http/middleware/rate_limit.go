package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	rateLimitProblemType  = "https://taskboard.example.com/errors/rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"
)

// AttemptWindow is the sliding-window storage behind a Throttle.
type AttemptWindow interface {
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}

// KeyFunc extracts the value a limit is scoped to. Returning false skips the limit.
type KeyFunc func(*gin.Context) (string, bool)

// ThrottleRule allows Limit requests per Window for each key.
type ThrottleRule struct {
	Name   string
	Limit  int
	Window time.Duration
	Key    KeyFunc
}

func (r ThrottleRule) enabled() bool {
	return r.Key != nil && r.Limit > 0 && r.Window > 0
}

// ProblemDetails represents an RFC 9457 compatible error payload for rate limits.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retry_after"`
	TraceID    string `json:"trace_id,omitempty"`
}

// Throttle enforces sliding-window limits. Storage errors fail open.
type Throttle struct {
	store  AttemptWindow
	logger *zap.Logger
	now    func() time.Time
}

type verdict struct {
	allowed    bool
	remaining  int
	reset      time.Time
	retryAfter time.Duration
}

// NewThrottle builds a Throttle over store. A nil store disables limiting.
func NewThrottle(store AttemptWindow, logger *zap.Logger) *Throttle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Throttle{store: store, logger: logger, now: time.Now}
}

// WithClock replaces the clock, for tests.
func (t *Throttle) WithClock(now func() time.Time) *Throttle {
	if now != nil {
		t.now = now
	}
	return t
}

// ClientIP scopes a rule to the request's client IP.
func ClientIP() KeyFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// Limit returns a middleware enforcing rule.
func (t *Throttle) Limit(rule ThrottleRule) gin.HandlerFunc {
	if rule.Name == "" {
		rule.Name = "default"
	}

	return func(c *gin.Context) {
		if t.store == nil || !rule.enabled() {
			c.Next()
			return
		}

		id, ok := rule.Key(c)
		if !ok || id == "" {
			c.Next()
			return
		}

		now := t.now()
		v, err := t.decide(c.Request.Context(), rule, rule.Name+":"+id, now)
		if err != nil {
			t.logger.Warn("rate limit check failed", zap.String("rule", rule.Name), zap.Error(err))
			c.Next()
			return
		}

		header := c.Writer.Header()
		header.Set("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		header.Set("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
		header.Set("X-RateLimit-Reset", strconv.FormatInt(v.reset.Unix(), 10))

		if v.allowed {
			c.Next()
			return
		}

		seconds := int(math.Ceil(v.retryAfter.Seconds()))
		header.Set("Retry-After", strconv.Itoa(seconds))

		instance := c.FullPath()
		if instance == "" {
			instance = c.Request.URL.Path
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
			Type:       rateLimitProblemType,
			Title:      rateLimitProblemTitle,
			Status:     http.StatusTooManyRequests,
			Detail:     fmt.Sprintf("Too many requests. Try again in %d seconds.", seconds),
			Instance:   instance,
			RetryAfter: seconds,
			TraceID:    GetTraceID(c),
		})
	}
}

// decide counts the attempts inside the window and records this one when it is allowed.
func (t *Throttle) decide(ctx context.Context, rule ThrottleRule, key string, now time.Time) (verdict, error) {
	if err := t.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
		return verdict{}, err
	}

	count, err := t.store.CountAttempts(ctx, key, rule.Window, now)
	if err != nil {
		return verdict{}, err
	}

	oldest, found, err := t.store.OldestAttempt(ctx, key, rule.Window, now)
	if err != nil {
		return verdict{}, err
	}

	v := verdict{reset: now.Add(rule.Window)}
	if found {
		v.reset = oldest.Add(rule.Window)
	}
	v.retryAfter = max(v.reset.Sub(now), 0)

	if count >= rule.Limit {
		return v, nil
	}

	if err := t.store.RecordAttempt(ctx, key, now); err != nil {
		return verdict{}, err
	}

	v.allowed = true
	v.remaining = max(rule.Limit-count-1, 0)
	return v, nil
}
