package routes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mhmdrz22/enginner/internal/core/domain"
	"github.com/mhmdrz22/enginner/internal/infra/config"
	"github.com/mhmdrz22/enginner/internal/transport/http/handlers"
	"github.com/mhmdrz22/enginner/internal/transport/http/middleware"
	"github.com/mhmdrz22/enginner/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth          *usecase.AuthService
	Tokens        *usecase.TokenService
	Registration  *usecase.RegistrationService
	Users         *usecase.UserService
	Tasks         *usecase.TaskService
	Admin         *usecase.AdminService
	Notifications *usecase.NotificationService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Throttle *middleware.Throttle
	Metrics  *middleware.HTTPMetrics
	Gatherer prometheus.Gatherer
	Services ServiceSet
	Database DatabaseChecker
	Cache    CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) (*gin.Engine, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("routes: config is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Config.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handlers.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}

	r := gin.New()
	r.RedirectTrailingSlash = false
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(deps.Metrics.Handler())
	r.Use(middleware.CORS(corsOrigins(deps.Config)))

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("postgres", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(metricsHandler(deps.Gatherer)))

	svc := deps.Services
	policy := usecase.AccessPolicy{}
	public := middleware.RequireCapability(policy, domain.CapabilityPublic)
	authenticated := middleware.RequireCapability(policy, domain.CapabilityAuthenticated)
	admin := middleware.RequireCapability(policy, domain.CapabilityAdmin)

	api := r.Group("/api/v1")
	api.Use(middleware.Authenticate(svc.Tokens, deps.Logger))
	{
		accountHandler := handlers.NewAccountHandler(svc.Registration, svc.Auth, svc.Tokens, svc.Users, deps.Logger)
		adminHandler := handlers.NewAdminHandler(svc.Admin, svc.Notifications)

		accounts := api.Group("/accounts")
		handle(accounts, http.MethodPost, "/register", public, accountHandler.Register)
		handle(accounts, http.MethodPost, "/login", append(buildLoginMiddlewares(deps), public, accountHandler.Login)...)
		handle(accounts, http.MethodPost, "/logout", authenticated, accountHandler.Logout)
		handle(accounts, http.MethodGet, "/profile", authenticated, accountHandler.Profile)
		handle(accounts, http.MethodPut, "/profile", authenticated, accountHandler.UpdateProfile)
		handle(accounts, http.MethodPatch, "/profile", authenticated, accountHandler.UpdateProfile)
		handle(accounts, http.MethodGet, "/admin/overview", admin, adminHandler.Overview)
		handle(accounts, http.MethodPost, "/admin/notify", admin, adminHandler.Notify)

		taskHandler := handlers.NewTaskHandler(svc.Tasks)

		tasks := api.Group("/tasks", authenticated)
		handle(tasks, http.MethodGet, "", taskHandler.List)
		handle(tasks, http.MethodPost, "", taskHandler.Create)
		handle(tasks, http.MethodGet, "/:id", taskHandler.Get)
		handle(tasks, http.MethodPut, "/:id", taskHandler.Update)
		handle(tasks, http.MethodPatch, "/:id", taskHandler.Update)
		handle(tasks, http.MethodDelete, "/:id", taskHandler.Delete)
	}

	return r, nil
}

// handle registers path both with and without a trailing slash.
func handle(r gin.IRoutes, method, path string, chain ...gin.HandlerFunc) {
	r.Handle(method, path, chain...)
	r.Handle(method, path+"/", chain...)
}

func metricsHandler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// corsOrigins allows every origin outside production.
func corsOrigins(cfg *config.AppConfig) []string {
	if !cfg.App.IsProduction() {
		return nil
	}
	return cfg.CORS.AllowedOrigins
}

func buildLoginMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.Throttle == nil {
		return nil
	}

	limit := deps.Config.RateLimit.LoginMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	return []gin.HandlerFunc{deps.Throttle.Limit(middleware.ThrottleRule{
		Name:   "auth_login_ip",
		Limit:  limit,
		Window: window,
		Key:    middleware.ClientIP(),
	})}
}
