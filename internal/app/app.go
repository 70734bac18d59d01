package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"taskassign/taskboard/internal/audit"
	"taskassign/taskboard/internal/auth"
	"taskassign/taskboard/internal/config"
	"taskassign/taskboard/internal/httpserver"
	"taskassign/taskboard/internal/migrations"
	"taskassign/taskboard/internal/observability"
	"taskassign/taskboard/internal/sqlstore"
	"taskassign/taskboard/internal/tasks"
)

const (
	defaultSessionSecret = "change-me-in-production"
	sessionPurgeInterval = 10 * time.Minute
)

type App struct {
	cfg      config.Config
	log      *slog.Logger
	db       *sqlstore.DB
	redis    *redis.Client
	sessions *sqlstore.SessionStore
	server   *httpserver.Server
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := observability.NewLogger(observability.LoggerOptions{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	a := &App{cfg: cfg, log: logger}

	if err := a.init(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.cfg

	db, err := OpenDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	a.db = db
	a.log.Info("database connected", "driver", db.Dialect().Name)

	if cfg.Database.AutoMigrate {
		if err := Migrate(ctx, db, a.log); err != nil {
			return err
		}
	}

	users, err := sqlstore.NewUserStore(db)
	if err != nil {
		return fmt.Errorf("create user store: %w", err)
	}
	sessionStore, err := a.sessionStore(ctx)
	if err != nil {
		return err
	}
	authService, err := auth.NewService(users, sessionStore, auth.ServiceConfig{SessionTTL: cfg.Auth.SessionTTL})
	if err != nil {
		return fmt.Errorf("create auth service: %w", err)
	}

	if cfg.Auth.BootstrapPassword != "" {
		created, err := authService.EnsureAdmin(ctx, cfg.Auth.BootstrapUsername, cfg.Auth.BootstrapPassword)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		if created {
			a.log.Info("bootstrap admin created", "username", cfg.Auth.BootstrapUsername)
		}
	}

	repo, err := sqlstore.NewTaskRepository(db)
	if err != nil {
		return fmt.Errorf("create task repository: %w", err)
	}
	taskService, err := tasks.NewService(repo, tasks.Options{EnforceAssignee: cfg.Tasks.EnforceAssignee}, a.log)
	if err != nil {
		return fmt.Errorf("create task service: %w", err)
	}

	if cfg.Auth.SessionSecret == defaultSessionSecret {
		a.log.Warn("SESSION_SECRET is the built-in default; set it before exposing the server")
	}
	cookies, err := auth.NewCookieCodec(cfg.Auth.SessionSecret)
	if err != nil {
		return fmt.Errorf("create cookie codec: %w", err)
	}

	server, err := httpserver.New(cfg.HTTP, httpserver.Deps{
		Auth:         authService,
		Tasks:        taskService,
		Audit:        audit.NewLogger(cfg.AuditLogFile, a.log),
		Cookies:      cookies,
		Readiness:    db,
		Logger:       a.log,
		Registry:     observability.NewRegistry(),
		StaticDir:    cfg.StaticDir,
		CookieName:   cfg.Auth.CookieName,
		CookieSecure: cfg.Auth.CookieSecure,
		RateLimit:    cfg.Auth.RateLimit,

		TrustProxyHeaders: cfg.HTTP.TrustProxy,
	})
	if err != nil {
		return fmt.Errorf("create http server: %w", err)
	}
	a.server = server
	return nil
}

func (a *App) sessionStore(ctx context.Context) (auth.SessionStore, error) {
	switch a.cfg.Auth.SessionStore {
	case config.SessionStoreSQL:
		store, err := sqlstore.NewSessionStore(a.db)
		if err != nil {
			return nil, fmt.Errorf("create sql session store: %w", err)
		}
		a.sessions = store
		return store, nil
	case config.SessionStoreRedis:
		opts, err := redis.ParseURL(a.cfg.Auth.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		a.redis = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.redis.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return auth.NewRedisSessionStore(a.redis)
	default:
		return auth.NewInMemorySessionStore(), nil
	}
}

// OpenDatabase opens the configured store.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sqlstore.DB, error) {
	db, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver:       cfg.Driver,
		URL:          cfg.URL,
		TLS:          cfg.TLS,
		MaxOpenConns: cfg.MaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// Migrate applies pending schema migrations.
func Migrate(ctx context.Context, db *sqlstore.DB, logger *slog.Logger) error {
	m, err := migrations.New(db.SQL(), db.Dialect())
	if err != nil {
		return fmt.Errorf("create migration service: %w", err)
	}
	applied, err := m.Up(ctx)
	if err != nil {
		return err
	}
	for _, name := range applied {
		logger.Info("migration applied", "name", name)
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.close()

	if a.sessions != nil {
		go a.purgeSessions(ctx)
	}

	errCh := make(chan error, 1)

	go func() {
		a.log.Info("http server starting", "addr", a.cfg.HTTP.Addr)
		errCh <- a.server.Start()
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server exited: %w", err)
	}
}

func (a *App) purgeSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := a.sessions.DeleteExpired(ctx, now)
			if err != nil {
				a.log.Warn("purge expired sessions failed", "err", err)
				continue
			}
			if n > 0 {
				a.log.Debug("expired sessions purged", "count", n)
			}
		}
	}
}

func (a *App) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
