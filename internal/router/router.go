package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hobbyist/hobbyist-api/internal/apperror"
	"github.com/hobbyist/hobbyist-api/internal/config"
	"github.com/hobbyist/hobbyist-api/internal/handler"
	"github.com/hobbyist/hobbyist-api/internal/middleware"
	"github.com/hobbyist/hobbyist-api/internal/model"
	"github.com/hobbyist/hobbyist-api/internal/response"
	"github.com/hobbyist/hobbyist-api/internal/service"
)

// catalogueMaxAge is the public cache lifetime of class listings, in seconds.
const catalogueMaxAge = 30

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth         *handler.AuthHandler
	Class        *handler.ClassHandler
	Instructor   *handler.InstructorHandler
	Booking      *handler.BookingHandler
	Rule         *handler.RuleHandler
	Notification *handler.NotificationHandler
	System       *handler.SystemHandler
	WS           *handler.WSHandler
}

// Deps carries the shared middleware collaborators.
type Deps struct {
	Auth    *service.AuthService
	Tracker *apperror.Tracker
	Limiter *middleware.RateLimiter
	Log     zerolog.Logger
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(deps Deps, handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", response.HeaderRequestID}
	corsConfig.ExposeHeaders = []string{
		response.HeaderRequestID,
		"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After",
	}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ids first so every envelope and log line carries one. Brotli
	// wraps the error renderer so rendered errors are compressed too.
	router.Use(
		response.RequestIDMiddleware(),
		middleware.Brotli(),
		middleware.ErrorRenderer(deps.Tracker),
		middleware.Recovery(deps.Log),
	)

	router.NoRoute(func(c *gin.Context) {
		middleware.Abort(c, apperror.NotFound("route", c.Request.URL.Path))
	})

	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := middleware.RequireAuth(deps.Auth)

	// ─── API (optional auth feeds the rate limit identity) ─────────────
	api := router.Group("/api/v1")
	api.Use(middleware.OptionalAuth(deps.Auth), deps.Limiter.Middleware())

	auth := api.Group("/auth")
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
		auth.GET("/me", requireAuth, handlers.Auth.Me)
	}

	catalogue := api.Group("/classes")
	catalogue.Use(middleware.CacheControl(catalogueMaxAge))
	{
		catalogue.GET("", handlers.Class.ListClasses)
		catalogue.GET("/:id", handlers.Class.GetClass)
	}

	authed := api.Group("")
	authed.Use(requireAuth)
	{
		authed.POST("/validate/:category", handlers.Rule.Validate)
		authed.GET("/notifications", handlers.Notification.ListNotifications)

		authed.POST("/instructors", handlers.Instructor.Become)
		authed.PUT("/instructors/me/payout",
			middleware.RequireRole(model.RoleInstructor),
			handlers.Instructor.UpdatePayout,
		)

		bookings := authed.Group("/bookings")
		{
			bookings.GET("", handlers.Booking.ListBookings)
			bookings.POST("", handlers.Booking.CreateBooking)
			bookings.GET("/:id", handlers.Booking.GetBooking)
			bookings.POST("/:id/confirm", handlers.Booking.ConfirmBooking)
			bookings.POST("/:id/cancel", handlers.Booking.CancelBooking)
		}
	}

	// ─── Instructor Group ──────────────────────────────────────────────
	instructor := api.Group("/instructor")
	instructor.Use(requireAuth, middleware.RequireRole(model.RoleInstructor))
	{
		instructor.POST("/classes", handlers.Class.CreateClass)
		instructor.POST("/classes/:id/publish", handlers.Class.PublishClass)
	}

	// ─── Admin Group ───────────────────────────────────────────────────
	admin := api.Group("/admin")
	admin.Use(requireAuth, middleware.RequireRole(model.RoleAdmin))
	{
		admin.GET("/errors/stats", handlers.System.ErrorStats)
		admin.GET("/rules", handlers.Rule.ListRules)
		admin.PATCH("/rules/:category/:name", handlers.Rule.SetRuleEnabled)
		admin.POST("/instructors/:id/verify", handlers.Instructor.Verify)
	}

	// ─── WebSocket Group (token query auth) ────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(deps.Auth))
	{
		ws.GET("/classes/:id/availability", handlers.WS.ClassAvailabilityStream)
	}

	return router
}
