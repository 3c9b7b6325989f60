package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/invigilo/invigilo-backend/internal/config"
	"github.com/invigilo/invigilo-backend/internal/handler"
	"github.com/invigilo/invigilo-backend/internal/middleware"
	"github.com/invigilo/invigilo-backend/internal/response"
	"github.com/invigilo/invigilo-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Attempt *handler.AttemptHandler
	Batch   *handler.BatchHandler
	Monitor *handler.MonitorHandler
	WS      *handler.WSHandler
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
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", handler.HeaderAttemptToken}
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
		auth.POST("/login", handlers.Auth.Login)
	}

	// ─── 2. Attempt Group (Attempt Token, Rate Limited) ────────────────
	// The attempt token travels in the X-Attempt-Token header; handlers
	// resolve it per call so expiry and binding are re-checked every time.
	attemptLimiter := middleware.NewRateLimiter(120, time.Minute)
	attemptAPI := router.Group("/api/v1/attempts")
	attemptAPI.Use(attemptLimiter.Middleware())
	{
		attemptAPI.POST("", handlers.Attempt.Create)
		attemptAPI.POST("/validate", handlers.Attempt.Validate)
		attemptAPI.POST("/heartbeat", handlers.Attempt.Heartbeat)
		attemptAPI.GET("/state", handlers.Attempt.GetState)
		attemptAPI.GET("/result", handlers.Attempt.GetResult)
		attemptAPI.PUT("/answers/:question_id", handlers.Attempt.SaveAnswer)
		attemptAPI.POST("/violations", handlers.Attempt.ReportViolation)
		attemptAPI.POST("/submit", handlers.Attempt.Submit)
	}

	// ─── 3. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		// Batch control
		adminAPI.GET("/exams/:exam_id/batches", handlers.Batch.List)
		adminAPI.POST("/batches/:batch_id/start", handlers.Batch.Start)
		adminAPI.POST("/batches/:batch_id/complete", handlers.Batch.Complete)
		adminAPI.POST("/batches/:batch_id/students", handlers.Batch.AddStudent)

		// Live monitoring and intervention
		adminAPI.GET("/exams/:exam_id/monitor", handlers.Monitor.GetSnapshot)
		adminAPI.GET("/sessions/:session_id/violations", handlers.Monitor.ListViolations)
		adminAPI.GET("/sessions/:session_id/audit", handlers.Monitor.GetAuditTrail)
		adminAPI.GET("/sessions/:session_id/result", handlers.Monitor.GetResult)
		adminAPI.POST("/sessions/:session_id/force-submit", handlers.Monitor.ForceSubmit)
	}

	// ─── 4. WebSocket Group (Admin WS Auth) ────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireAdminWSAuth(authService))
	{
		ws.GET("/admin/exams/:exam_id/monitor", handlers.WS.MonitorStream)
	}

	return router
}
