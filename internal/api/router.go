// internal/api/router.go
package api

import (
	"embed"
	"html/template"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/AgenticVideoStudio/internal/config"
	"github.com/Corphon/AgenticVideoStudio/internal/di"
	"github.com/Corphon/AgenticVideoStudio/internal/services"
	"github.com/Corphon/AgenticVideoStudio/internal/utils"
)

//go:embed web/*.html
var webFS embed.FS

// SetupRouter builds the router from the services registered in the container.
// The returned func releases the router's background resources.
func SetupRouter() (*gin.Engine, func(), error) {
	cfg := config.GetCurrentConfig()
	container := di.GetContainer()

	studio, err := di.Resolve[*services.StudioService](container, "studio")
	if err != nil {
		return nil, nil, err
	}
	exports, err := di.Resolve[*services.ExportService](container, "export")
	if err != nil {
		return nil, nil, err
	}
	metrics, err := di.Resolve[*utils.WorkflowMetrics](container, "metrics")
	if err != nil {
		return nil, nil, err
	}
	logger, err := di.Resolve[*utils.Logger](container, "logger")
	if err != nil {
		logger = utils.GetLogger()
	}

	r, cleanup := NewRouter(cfg, NewHandler(studio, exports, metrics, logger))
	return r, cleanup, nil
}

// NewRouter wires every route onto a fresh engine
func NewRouter(cfg *config.Config, handler *Handler) (*gin.Engine, func()) {
	r := gin.New()
	if cfg.DebugMode {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.Use(corsMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(MetricsMiddleware(handler.Metrics))

	r.SetHTMLTemplate(template.Must(template.ParseFS(webFS, "web/*.html")))

	limiter := NewRateLimiter()

	// ===============================
	// Page
	// ===============================
	r.GET("/", handler.IndexPage)
	r.GET("/health", handler.Health)

	r.GET("/ws/session/:id", handler.WebSocketHandler.SessionWebSocket)

	// ===============================
	// API
	// ===============================
	api := r.Group("/api")
	{
		api.GET("/catalog", handler.GetCatalog)
		api.GET("/metrics", handler.GetMetrics)
		api.GET("/progress/:runID", handler.SubscribeProgress)
		api.GET("/ws/status", handler.GetWebSocketStatus)

		sessions := api.Group("/sessions")
		{
			sessions.POST("", handler.CreateSession)
			sessions.GET("/:id", handler.GetSession)
			sessions.PUT("/:id/briefing", handler.UpdateBriefing)
			sessions.POST("/:id/run", RateLimitByIP(limiter, cfg.RunRateLimit, time.Minute), handler.StartRun)
			sessions.POST("/:id/reset", handler.Reset)
			sessions.GET("/:id/export", handler.Export)
		}
	}

	cleanup := func() {
		limiter.Stop()
		handler.WebSocketHandler.Shutdown()
	}
	return r, cleanup
}
