package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/tasktide/tasktide/internal/config"
	"github.com/tasktide/tasktide/internal/platform/postgres"
	"github.com/tasktide/tasktide/internal/realtime"
	"github.com/tasktide/tasktide/internal/service"
	"github.com/tasktide/tasktide/internal/service/auth"
	"github.com/tasktide/tasktide/internal/store"
)

// application holds the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	userStore    store.UserStore
	profileStore store.ProfileStore
	taskStore    store.TaskStore

	// Services
	jwtService       auth.JWTService
	passwordVerifier *auth.BcryptVerifier
	identityResolver *auth.IdentityResolver
	userService      *service.UserService
	taskService      *service.TaskService

	// Realtime broadcast
	hub       *realtime.Hub
	hubCancel context.CancelFunc
	publisher *realtime.TaskEventPublisher
}

// newApplication creates an application instance with all dependencies
// initialized. The broadcast hub starts running here; cleanup stops it.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.passwordVerifier = auth.NewBcryptVerifier()

	app.userStore = postgres.NewPostgresUserStore(db)
	app.profileStore = postgres.NewPostgresProfileStore(db)
	app.taskStore = postgres.NewPostgresTaskStore(db)

	app.identityResolver = auth.NewIdentityResolver(app.userStore, app.passwordVerifier, logger)

	app.hub = realtime.NewHub(cfg.Realtime.PublishQueueSize, logger)
	hubCtx, hubCancel := context.WithCancel(ctx)
	app.hubCancel = hubCancel
	go app.hub.Run(hubCtx)
	logger.Info("Realtime hub started",
		"publish_queue_size", cfg.Realtime.PublishQueueSize,
		"session_buffer_size", cfg.Realtime.SessionBufferSize)

	app.publisher = realtime.NewTaskEventPublisher(app.hub, logger)

	app.userService = service.NewUserService(db, app.userStore, app.profileStore, app.passwordVerifier, logger)
	app.taskService = service.NewTaskService(app.taskStore, app.userStore, app.publisher, logger)

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.hubCancel != nil {
		app.hubCancel()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
