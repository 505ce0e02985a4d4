package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/Corphon/AgenticVideoStudio/internal/config"
	"github.com/Corphon/AgenticVideoStudio/internal/di"
	"github.com/Corphon/AgenticVideoStudio/internal/services"
)

func resetApp(t *testing.T) {
	t.Helper()
	instance = nil
	di.GetContainer().Clear()
	t.Cleanup(func() {
		instance = nil
		di.GetContainer().Clear()
	})
}

type mockServer struct {
	mu             sync.Mutex
	shutdownCalled bool
	listenErr      error
	stopped        chan struct{}
}

func newMockServer(listenErr error) *mockServer {
	return &mockServer{listenErr: listenErr, stopped: make(chan struct{})}
}

func (m *mockServer) ListenAndServe() error {
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.stopped
	return nil
}

func (m *mockServer) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.shutdownCalled {
		m.shutdownCalled = true
		close(m.stopped)
	}
	return nil
}

func (m *mockServer) wasShutdown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdownCalled
}

func TestGetApp(t *testing.T) {
	resetApp(t)

	app1 := GetApp()
	if app1 == nil || app1.stopChan == nil {
		t.Fatalf("GetApp returned an uninitialized app")
	}
	if app2 := GetApp(); app1 != app2 {
		t.Fatalf("GetApp must return the same instance")
	}
}

func TestInitLogger(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "custom_logs")

	if err := initLogger(logDir); err != nil {
		t.Fatalf("initLogger: %v", err)
	}

	files, err := os.ReadDir(logDir)
	if err != nil || len(files) == 0 {
		t.Fatalf("log file not created: %v", err)
	}
}

func TestInitServicesRegistersStudio(t *testing.T) {
	resetApp(t)
	config.SetCurrentConfig(config.Default())
	t.Cleanup(func() { config.SetCurrentConfig(nil) })

	if err := InitServices(); err != nil {
		t.Fatalf("InitServices: %v", err)
	}

	container := GetDIContainer()
	for _, name := range []string{"logger", "metrics", "catalog", "progress", "studio", "export"} {
		if !container.Has(name) {
			t.Fatalf("service %q not registered", name)
		}
	}

	studio := container.Get("studio").(*services.StudioService)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		studio.Shutdown(ctx)
	})
	if snap := studio.CreateSession(); len(snap.Steps) != 5 {
		t.Fatalf("studio not wired to the catalog: %#v", snap)
	}
}

func TestInitServicesRejectsMissingCatalog(t *testing.T) {
	resetApp(t)
	cfg := config.Default()
	cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.toml")
	config.SetCurrentConfig(cfg)
	t.Cleanup(func() { config.SetCurrentConfig(nil) })

	if err := InitServices(); err == nil {
		t.Fatalf("missing catalog accepted")
	}
}

func TestRunStopsOnSignal(t *testing.T) {
	resetApp(t)

	srv := newMockServer(nil)
	app := GetApp()
	app.config = config.Default()
	app.server = srv

	go func() {
		time.Sleep(50 * time.Millisecond)
		app.stopChan <- syscall.SIGTERM
	}()

	if err := Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !srv.wasShutdown() {
		t.Fatalf("server was not shut down")
	}
}

func TestRunReportsServeError(t *testing.T) {
	resetApp(t)

	srv := newMockServer(errors.New("address in use"))
	app := GetApp()
	app.config = config.Default()
	app.server = srv

	if err := Run(); err == nil {
		t.Fatalf("serve error swallowed")
	}
	if !srv.wasShutdown() {
		t.Fatalf("server was not shut down")
	}
}

func TestRunRequiresInitialize(t *testing.T) {
	resetApp(t)
	if err := Run(); err == nil {
		t.Fatalf("Run without config succeeded")
	}
}

func TestGetConfig(t *testing.T) {
	resetApp(t)
	cfg := &config.Config{Port: "9000", DebugMode: true}
	app := GetApp()
	app.config = cfg

	if app.GetConfig() != cfg {
		t.Fatalf("GetConfig returned a different config")
	}
}

func TestIsDebugMode(t *testing.T) {
	resetApp(t)

	if IsDebugMode() {
		t.Fatalf("no app must not be in debug mode")
	}

	app := GetApp()
	if IsDebugMode() {
		t.Fatalf("app without config must not be in debug mode")
	}

	app.config = &config.Config{DebugMode: true}
	if !IsDebugMode() {
		t.Fatalf("debug mode not reported")
	}

	app.config.DebugMode = false
	if IsDebugMode() {
		t.Fatalf("debug mode reported while off")
	}
}

func TestInitializeBuildsRouter(t *testing.T) {
	resetApp(t)
	t.Setenv("LOG_DIR", filepath.Join(t.TempDir(), "logs"))
	t.Setenv("PORT", "18080")
	t.Cleanup(func() { config.SetCurrentConfig(nil) })

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	app := GetApp()
	if app.router == nil || app.routerCleanup == nil {
		t.Fatalf("router not set up")
	}
	if app.GetConfig().Port != "18080" {
		t.Fatalf("port %q", app.GetConfig().Port)
	}
	app.cleanup()
}
