// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/AgenticVideoStudio/internal/api"
	"github.com/Corphon/AgenticVideoStudio/internal/catalog"
	"github.com/Corphon/AgenticVideoStudio/internal/config"
	"github.com/Corphon/AgenticVideoStudio/internal/di"
	"github.com/Corphon/AgenticVideoStudio/internal/services"
	"github.com/Corphon/AgenticVideoStudio/internal/utils"
)

const (
	shutdownTimeout      = 30 * time.Second
	metricsReportEvery   = 5 * time.Minute
	minimumCleanupPeriod = time.Minute
)

// server is the part of *http.Server the app drives
type server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// App ties configuration, services and the HTTP server together
type App struct {
	config        *config.Config
	router        http.Handler
	server        server
	stopChan      chan os.Signal
	routerCleanup func()
	stopTasks     context.CancelFunc
}

var (
	instance   *App
	instanceMu sync.Mutex
)

// GetApp returns the process-wide app
func GetApp() *App {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance == nil {
		instance = &App{
			stopChan: make(chan os.Signal, 1),
		}
	}
	return instance
}

// Initialize loads the configuration, the services and the router
func Initialize() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	app := GetApp()
	app.config = cfg

	if err := initLogger(cfg.LogDir); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if !cfg.DebugMode {
		utils.GetLogger().SetLogLevel(utils.INFO)
		gin.SetMode(gin.ReleaseMode)
	} else {
		utils.GetLogger().SetLogLevel(utils.DEBUG)
	}

	if err := InitServices(); err != nil {
		return fmt.Errorf("init services: %w", err)
	}

	router, cleanup, err := api.SetupRouter()
	if err != nil {
		return fmt.Errorf("setup router: %w", err)
	}
	app.router = router
	app.routerCleanup = cleanup
	return nil
}

// InitServices builds every service in dependency order and registers it in the container
func InitServices() error {
	cfg := config.GetCurrentConfig()
	container := di.GetContainer()
	logger := utils.GetLogger()

	cat, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		return err
	}

	metrics := utils.NewWorkflowMetrics()
	progress := services.NewProgressService()
	clock := services.RealClock{}

	studio := services.NewStudioService(services.StudioOptions{
		Catalog:    cat,
		Sequencer:  services.NewSequencer(clock, cfg.StepRunDelay, cfg.StepGapDelay),
		Locks:      services.NewLockManager(cfg.SessionTTL),
		Progress:   progress,
		Metrics:    metrics,
		Logger:     logger,
		Clock:      clock,
		SessionTTL: cfg.SessionTTL,
	})

	container.Register("logger", logger)
	container.Register("metrics", metrics)
	container.Register("catalog", cat)
	container.Register("progress", progress)
	container.Register("studio", studio)
	container.Register("export", services.NewExportService(studio))

	logger.Info("Services initialized", map[string]interface{}{
		"services":      container.GetNames(),
		"step_run_ms":   cfg.StepRunDelay.Milliseconds(),
		"step_gap_ms":   cfg.StepGapDelay.Milliseconds(),
		"session_ttl_m": cfg.SessionTTL.Minutes(),
	})
	return nil
}

// initLogger mirrors the global logger into a dated file under logDir
func initLogger(logDir string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}
	logFile := filepath.Join(logDir, fmt.Sprintf("studio_%s.log", time.Now().Format("2006-01-02")))
	return utils.InitLogger(logFile)
}

// Run serves HTTP until SIGINT/SIGTERM, then shuts down gracefully
func Run() error {
	app := GetApp()
	if app.config == nil {
		return errors.New("app is not initialized")
	}

	if app.server == nil {
		app.server = &http.Server{
			Addr:    ":" + app.config.Port,
			Handler: app.router,
		}
	}

	signal.Notify(app.stopChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(app.stopChan)

	ctx, cancel := context.WithCancel(context.Background())
	app.stopTasks = cancel
	app.startBackgroundTasks(ctx)

	serveErr := make(chan error, 1)
	go func() {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var runErr error
	select {
	case <-app.stopChan:
		utils.GetLogger().Info("Shutdown signal received", nil)
	case runErr = <-serveErr:
		utils.GetLogger().Error("Server stopped", map[string]interface{}{"error": runErr.Error()})
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.server.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("server shutdown: %w", err)
	}
	app.cleanup()
	return runErr
}

// startBackgroundTasks evicts idle sessions and reports metrics until ctx ends
func (a *App) startBackgroundTasks(ctx context.Context) {
	container := di.GetContainer()

	if metrics, ok := container.Get("metrics").(*utils.WorkflowMetrics); ok {
		metrics.StartMetricsReport(ctx, metricsReportEvery)
	}

	studio, ok := container.Get("studio").(*services.StudioService)
	if !ok {
		return
	}

	period := a.config.SessionTTL / 2
	if period < minimumCleanupPeriod {
		period = minimumCleanupPeriod
	}

	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				studio.CleanupIdleSessions()
			}
		}
	}()
}

// cleanup stops background work and releases every service
func (a *App) cleanup() {
	logger := utils.GetLogger()

	if a.stopTasks != nil {
		a.stopTasks()
	}
	if a.routerCleanup != nil {
		a.routerCleanup()
	}

	if studio, ok := di.GetContainer().Get("studio").(*services.StudioService); ok {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := studio.Shutdown(ctx); err != nil {
			logger.Warn("Runs did not stop in time", map[string]interface{}{"error": err.Error()})
		}
	}

	logger.Info("Application stopped", nil)
	logger.Close()
}

// GetConfig returns the app configuration
func (a *App) GetConfig() *config.Config {
	return a.config
}

// GetDIContainer returns the global service container
func GetDIContainer() *di.Container {
	return di.GetContainer()
}

// IsDebugMode reports whether the app runs in debug mode
func IsDebugMode() bool {
	instanceMu.Lock()
	app := instance
	instanceMu.Unlock()

	if app == nil || app.config == nil {
		return false
	}
	return app.config.DebugMode
}
