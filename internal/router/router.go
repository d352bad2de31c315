package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/numerix/numerix-backend/internal/config"
	"github.com/numerix/numerix-backend/internal/handler"
	"github.com/numerix/numerix-backend/internal/middleware"
	"github.com/numerix/numerix-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam  *handler.ExamHandler
	Admin *handler.AdminHandler
	Clock *handler.ClockHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter on session creation (10 new sessions per minute per IP).
	createLimiter := middleware.NewRateLimiter(10, time.Minute)

	// ─── 1. Exam Group (Student-facing) ────────────────────────────────
	examAPI := router.Group("/api/v1/exam")
	{
		examAPI.POST("/sessions", createLimiter.Middleware(), handlers.Exam.InitializeSession)
		examAPI.GET("/questions/:slug", handlers.Exam.GetQuestion)
		examAPI.POST("/sessions/:id/answers", handlers.Exam.SubmitAnswer)
		examAPI.POST("/sessions/:id/complete", handlers.Exam.CompleteSession)
		examAPI.GET("/sessions/:id/results", handlers.Exam.GetResults)
		examAPI.GET("/sessions/:id/certificate", handlers.Exam.GetCertificate)
	}

	// ─── 2. WebSocket Group (Countdown Clock) ──────────────────────────
	ws := router.Group("/ws/v1/exam")
	{
		ws.GET("/sessions/:id/clock", handlers.Clock.Serve)
	}

	// ─── 3. Admin Group ────────────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	{
		// Question bank management
		adminAPI.GET("/questions", handlers.Admin.ListQuestions)
		adminAPI.POST("/questions", handlers.Admin.CreateQuestion)
		adminAPI.GET("/questions/:id", handlers.Admin.GetQuestion)
		adminAPI.PUT("/questions/:id", handlers.Admin.UpdateQuestion)
		adminAPI.DELETE("/questions/:id", handlers.Admin.DeleteQuestion)

		// Exam report
		adminAPI.GET("/sessions", handlers.Admin.ListSessions)

		// Exam settings
		settingsGroup := adminAPI.Group("/settings")
		{
			settingsGroup.GET("", handlers.Admin.GetSettings)
			settingsGroup.PUT("", handlers.Admin.UpdateSettings)
		}

		// Cache maintenance
		adminAPI.POST("/cache/refresh", handlers.Admin.RefreshCache)
	}

	return router
}
