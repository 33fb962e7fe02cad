package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mavericks-edu/mavericks-backend/internal/config"
	"github.com/mavericks-edu/mavericks-backend/internal/handler"
	"github.com/mavericks-edu/mavericks-backend/internal/middleware"
	"github.com/mavericks-edu/mavericks-backend/internal/response"
	"github.com/mavericks-edu/mavericks-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth        *handler.AuthHandler
	Portal      *handler.PortalHandler
	WS          *handler.WSHandler
	Challenge   *handler.ChallengeHandler
	Event       *handler.EventHandler
	Participant *handler.ParticipantHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

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
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/participant/login", handlers.Auth.ParticipantLogin)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)

		// Authenticated profile routes
		auth.POST("/participant/logout", middleware.RequireParticipantJWT(authService), handlers.Auth.ParticipantLogout)
		auth.GET("/participant/me", middleware.RequireParticipantJWT(authService), handlers.Auth.GetParticipantProfile)
		auth.GET("/admin/me", middleware.RequireAdminJWT(authService), handlers.Auth.GetAdminProfile)
	}

	// ─── 2. Portal Group (JWT + Single Device) ─────────────────────────
	portalAPI := router.Group("/api/v1/portal")
	portalAPI.Use(
		middleware.RequireParticipantJWT(authService),
		middleware.CheckSingleDeviceLogin(authService),
	)
	{
		portalAPI.GET("/events/:event_id/challenges", handlers.Portal.Lobby)
		portalAPI.GET("/events/:event_id/leaderboard", handlers.Portal.Leaderboard)
		portalAPI.GET("/events/:event_id/score", handlers.Portal.MyScore)
		portalAPI.POST("/challenges/:challenge_id/join", handlers.Portal.Join)
		portalAPI.GET("/challenges/:challenge_id/payload", handlers.Portal.Payload)
		portalAPI.GET("/challenges/:challenge_id/state", handlers.Portal.State)
		portalAPI.GET("/challenges/:challenge_id/problem", handlers.Portal.Problem)
		portalAPI.POST("/challenges/:challenge_id/run", handlers.Portal.RunCode)
	}

	// ─── 3. WebSocket Group (Participant WS Auth) ──────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireParticipantWSAuth(authService))
	{
		ws.GET("/portal/challenges/:challenge_id/stream", handlers.WS.SessionStream)
	}

	// ─── 4. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		// Event lifecycle
		adminAPI.GET("/events", handlers.Event.List)
		adminAPI.POST("/events", handlers.Event.Create)
		adminAPI.GET("/events/:event_id", handlers.Event.Get)
		adminAPI.POST("/events/:event_id/publish", handlers.Event.Publish)
		adminAPI.POST("/events/:event_id/end", handlers.Event.End)
		adminAPI.GET("/events/:event_id/challenges", handlers.Challenge.ListByEvent)

		// Challenge authoring
		adminAPI.POST("/challenges", handlers.Challenge.Create)
		adminAPI.GET("/challenges/:challenge_id", handlers.Challenge.Get)
		adminAPI.PUT("/challenges/:challenge_id", handlers.Challenge.Update)
		adminAPI.GET("/challenges/:challenge_id/questions", handlers.Challenge.ListQuestions)
		adminAPI.POST("/challenges/:challenge_id/questions", handlers.Challenge.AddQuestion)
		adminAPI.PUT("/challenges/:challenge_id/questions", handlers.Challenge.ReplaceQuestions)
		adminAPI.PUT("/challenges/:challenge_id/problem", handlers.Challenge.UpsertProblem)
		adminAPI.POST("/challenges/:challenge_id/publish", handlers.Challenge.Publish)
		adminAPI.POST("/challenges/:challenge_id/archive", handlers.Challenge.Archive)
		adminAPI.GET("/challenges/:challenge_id/results", handlers.Challenge.ListResults)

		// Participant management
		adminAPI.GET("/participants", handlers.Participant.List)
		adminAPI.POST("/participants", handlers.Participant.Create)
		adminAPI.GET("/participants/:id", handlers.Participant.Get)
		adminAPI.POST("/participants/:id/reset-login", handlers.Participant.ResetLogin)
		adminAPI.POST("/participants/:id/reset-password", handlers.Participant.ResetPassword)
		adminAPI.DELETE("/participants/:id", handlers.Participant.Delete)
	}

	return router
}
