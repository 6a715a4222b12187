package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/avelar/studio-identity/internal/core/domain"
	"github.com/avelar/studio-identity/internal/infra/config"
	"github.com/avelar/studio-identity/internal/transport/http/handlers"
	"github.com/avelar/studio-identity/internal/transport/http/middleware"
	"github.com/avelar/studio-identity/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth          *usecase.AuthService
	Registration  *usecase.RegistrationService
	PasswordReset *usecase.PasswordResetService
	Accounts      *usecase.AccountService
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Services ServiceSet
	Database DatabaseChecker
	Metrics  *middleware.HTTPMetrics
	// TokenTTL is the effective token lifetime as reported by the codec,
	// which applies its own default when the configured TTL is zero.
	TokenTTL time.Duration
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.CORS.AllowedOrigins))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	authMiddleware := middleware.RequireAuth(deps.Services.Auth)
	adminOnly := middleware.RequireRole(domain.RoleAdmin)

	healthHandler := handlers.NewHealthHandler(deps.Database)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Ready)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	tokenTTL := deps.TokenTTL
	if tokenTTL <= 0 {
		tokenTTL = deps.Config.JWT.AccessTokenTTL
	}
	tokenTTLSeconds := int(tokenTTL.Seconds())

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")

		registrationHandler := handlers.NewRegistrationHandler(deps.Services.Registration, tokenTTLSeconds)
		registrationHandler.RegisterRoutes(authGroup)

		authHandler := handlers.NewAuthHandler(deps.Services.Auth, tokenTTLSeconds)
		authHandler.RegisterRoutes(authGroup)

		passwordHandler := handlers.NewPasswordHandler(deps.Services.PasswordReset)
		passwordHandler.RegisterRoutes(authGroup)

		authenticated := api.Group("")
		authenticated.Use(authMiddleware)

		passwordHandler.RegisterAuthenticatedRoutes(authenticated)

		profileHandler := handlers.NewProfileHandler(deps.Services.Accounts)
		profileHandler.RegisterRoutes(authenticated)

		adminGroup := api.Group("/admin")
		adminGroup.Use(authMiddleware, adminOnly)

		adminHandler := handlers.NewAdminAccountsHandler(deps.Services.Accounts)
		adminHandler.RegisterRoutes(adminGroup)
	}

	return r
}
