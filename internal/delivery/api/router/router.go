// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"eventos/config"
	"eventos/internal/delivery/api/middleware"
	"eventos/internal/delivery/api/router/handler"
	"eventos/internal/domain/entity"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	SessionHandler *handler.SessionHandler
	UserHandler    *handler.UserHandler
	EventHandler   *handler.EventHandler
	HealthHandler  *handler.HealthHandler
	AccessGuard    *middleware.AccessGuard
	Authorizer     *middleware.Authorizer
	RateLimiter    *middleware.RateLimiter
	Metrics        *middleware.HTTPMetrics `optional:"true"`
	Config         *config.Config
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler    *handler.AuthHandler
	sessionHandler *handler.SessionHandler
	userHandler    *handler.UserHandler
	eventHandler   *handler.EventHandler
	healthHandler  *handler.HealthHandler
	accessGuard    *middleware.AccessGuard
	authorizer     *middleware.Authorizer
	rateLimiter    *middleware.RateLimiter
	metrics        *middleware.HTTPMetrics
	config         *config.Config
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:    params.AuthHandler,
		sessionHandler: params.SessionHandler,
		userHandler:    params.UserHandler,
		eventHandler:   params.EventHandler,
		healthHandler:  params.HealthHandler,
		accessGuard:    params.AccessGuard,
		authorizer:     params.Authorizer,
		rateLimiter:    params.RateLimiter,
		metrics:        params.Metrics,
		config:         params.Config,
	}
}

var (
	anyRole      = entity.Roles{entity.RoleAdmin, entity.RoleModerator, entity.RoleUser}
	elevatedRole = entity.Roles{entity.RoleAdmin, entity.RoleModerator}

	userSelfPolicy = middleware.Policy{
		Roles: anyRole,
		Ownership: &middleware.OwnershipRule{
			Resource:                middleware.ResourceUser,
			Param:                   "id",
			OwnerField:              middleware.OwnerFieldSelf,
			PreventModeratorOnAdmin: true,
		},
	}
	eventOwnerPolicy = middleware.Policy{
		Roles: anyRole,
		Ownership: &middleware.OwnershipRule{
			Resource:   middleware.ResourceEvent,
			Param:      "id",
			OwnerField: "userId",
		},
	}
)

// RegisterRoutes sets up all the API routes for the application. It fails
// when a route policy cannot be built.
func (r *router) RegisterRoutes(e *echo.Echo) error {
	elevated, err := r.authorizer.Authorize(middleware.Policy{Roles: elevatedRole})
	if err != nil {
		return err
	}
	authenticated, err := r.authorizer.Authorize(middleware.Policy{Roles: anyRole})
	if err != nil {
		return err
	}
	userSelf, err := r.authorizer.Authorize(userSelfPolicy)
	if err != nil {
		return err
	}
	eventOwner, err := r.authorizer.Authorize(eventOwnerPolicy)
	if err != nil {
		return err
	}

	// Health check endpoint
	e.GET("/health", r.healthHandler.Check)

	if r.metrics != nil {
		e.GET(r.config.Metrics.Path, r.metrics.Handler())
	}

	// Auth routes
	authGroup := e.Group("/auth")
	{
		authGroup.POST("/login", r.authHandler.Login, r.rateLimiter.Limit(config.RateLimitLogin))
		authGroup.POST("/register", r.authHandler.Register, r.rateLimiter.Limit(config.RateLimitRegister))
		authGroup.POST("/verify-email", r.authHandler.VerifyEmail)
		authGroup.POST("/resend-verification", r.authHandler.ResendVerification, r.rateLimiter.Limit(config.RateLimitResendVerification))
		authGroup.POST("/forgot-password", r.authHandler.ForgotPassword, r.rateLimiter.Limit(config.RateLimitForgotPassword))
		authGroup.POST("/reset-password", r.authHandler.ResetPassword)
		authGroup.POST("/refresh", r.authHandler.Refresh)
		authGroup.POST("/logout", r.authHandler.Logout)
	}

	// Session management for the caller
	sessionsGroup := authGroup.Group("/sessions", r.accessGuard.Required, authenticated)
	{
		sessionsGroup.GET("", r.sessionHandler.ListSessions)
		sessionsGroup.DELETE("", r.sessionHandler.RevokeAllSessions)
		sessionsGroup.DELETE("/:id", r.sessionHandler.RevokeSession)
	}

	usersGroup := e.Group("/users", r.accessGuard.Required)
	{
		usersGroup.GET("/me", r.userHandler.GetMe, authenticated)
		usersGroup.PATCH("/me", r.userHandler.UpdateMe, authenticated)
		usersGroup.GET("/:id", r.userHandler.GetUser, elevated)
		usersGroup.PATCH("/:id", r.userHandler.UpdateUser, userSelf)
		usersGroup.DELETE("/:id", r.userHandler.DeleteUser, userSelf)
	}

	// Events are public to read; writes need an account.
	eventsGroup := e.Group("/events")
	{
		eventsGroup.GET("", r.eventHandler.ListEvents, r.accessGuard.Optional)
		eventsGroup.GET("/:id", r.eventHandler.GetEvent, r.accessGuard.Optional)
		eventsGroup.POST("", r.eventHandler.CreateEvent, r.accessGuard.Required, authenticated)
		eventsGroup.PATCH("/:id", r.eventHandler.UpdateEvent, r.accessGuard.Required, eventOwner)
		eventsGroup.DELETE("/:id", r.eventHandler.DeleteEvent, r.accessGuard.Required, eventOwner)
		eventsGroup.PATCH("/:id/publish", r.eventHandler.PublishEvent, r.accessGuard.Required, elevated)
	}

	return nil
}
