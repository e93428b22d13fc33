package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/botforge/botforge/internal/access/audit"
	"github.com/botforge/botforge/internal/access/guard"
	httpapi "github.com/botforge/botforge/internal/access/http"
	"github.com/botforge/botforge/internal/access/service"
	"github.com/botforge/botforge/internal/access/store"
	"github.com/botforge/botforge/internal/access/store/drivers/sqlite"
	"github.com/botforge/botforge/pkg/cryptox"
	"github.com/botforge/botforge/pkg/idx"
	"github.com/botforge/botforge/pkg/jwtx"
	"github.com/botforge/botforge/pkg/passwordx"
	"github.com/botforge/botforge/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the access service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db   store.Store
	keys *jwtx.EdDSAKeyPair

	// Services
	sessionService      *service.SessionService
	passwordService     *service.PasswordService
	alertService        *service.AlertService
	housekeepingService *service.HousekeepingService
	auditRecorder       *audit.Recorder
	interceptor         *guard.Interceptor

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "access-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	// Signing keys are ephemeral per process; sessions re-mint access tokens
	// through their refresh credential after a restart.
	keys, err := jwtx.NewEdDSAKeyPair(idx.New().String(), app.cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.keys = keys

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.auditRecorder.Start()
	app.housekeepingService.Start()

	app.logger.Info("access service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down access service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop background workers; the audit recorder flushes its queue.
	app.housekeepingService.Stop()
	app.auditRecorder.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("access service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.sessionService = &service.SessionService{
		Store:      app.db,
		Signer:     app.keys,
		Issuer:     app.cfg.Issuer,
		AccessTTL:  app.cfg.AccessTokenTTL,
		SessionTTL: app.cfg.SessionTTL,
	}

	app.passwordService = &service.PasswordService{
		Store:  app.db,
		Scorer: passwordx.NewScorer(passwordx.DefaultPolicy(), nil),
	}

	app.alertService = &service.AlertService{Store: app.db}

	app.auditRecorder = audit.NewRecorder(app.db, app.logger, app.cfg.AuditQueueSize)

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	app.interceptor = &guard.Interceptor{
		Maps:     guard.NewMapProvider(defaultPermissionMap()),
		Verifier: &guard.JWTVerifier{Tokens: app.keys},
		Sessions: app.sessionService,
		Checker:  guard.DefaultRoleChecker(),
		Audit:    app.auditRecorder,
	}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.interceptor,
		app.cfg.InternalToken,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.SessionService = app.sessionService
	router.PasswordService = app.passwordService
	router.AlertService = app.alertService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
