// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bissquit/job-garden/internal/applications"
	applicationspostgres "github.com/bissquit/job-garden/internal/applications/postgres"
	"github.com/bissquit/job-garden/internal/config"
	"github.com/bissquit/job-garden/internal/domain"
	"github.com/bissquit/job-garden/internal/identity"
	"github.com/bissquit/job-garden/internal/identity/jwt"
	"github.com/bissquit/job-garden/internal/identity/password"
	identitypostgres "github.com/bissquit/job-garden/internal/identity/postgres"
	"github.com/bissquit/job-garden/internal/jobs"
	jobspostgres "github.com/bissquit/job-garden/internal/jobs/postgres"
	"github.com/bissquit/job-garden/internal/notifications"
	"github.com/bissquit/job-garden/internal/notifications/email"
	"github.com/bissquit/job-garden/internal/pkg/ctxlog"
	"github.com/bissquit/job-garden/internal/pkg/httputil"
	"github.com/bissquit/job-garden/internal/pkg/metrics"
	"github.com/bissquit/job-garden/internal/pkg/postgres"
	"github.com/bissquit/job-garden/internal/pkg/ratelimit"
	"github.com/bissquit/job-garden/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App represents the application instance.
type App struct {
	config             *config.Config
	logger             *slog.Logger
	db                 *pgxpool.Pool
	server             *http.Server
	metricsServer      *http.Server
	metricsCancel      context.CancelFunc
	notifier           *notifications.Notifier
	notificationWorker *notifications.Worker
	closeLimiter       func() error
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		metricsCancel: metricsCancel,
		closeLimiter:  func() error { return nil },
	}

	go metrics.CollectDBPool(metricsCtx, db, 15*time.Second)

	router, err := app.setupRouter(metricsCtx)
	if err != nil {
		metricsCancel()
		_ = app.closeLimiter()
		db.Close()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
		"version", version.Version,
	)

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	// No request can enqueue anymore; let workers drain what is queued.
	if a.notifier != nil {
		a.notifier.Close()
		a.drainNotifications(ctx)
	}

	a.metricsCancel()

	if err := a.closeLimiter(); err != nil {
		errs = append(errs, fmt.Errorf("close rate limiter: %w", err))
	}

	a.db.Close()

	return errors.Join(errs...)
}

func (a *App) drainNotifications(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		a.notificationWorker.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("notification queue not drained before shutdown deadline", "pending", a.notifier.Len())
		a.notificationWorker.Stop()
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// NotificationWorker returns the notification worker instance.
// Returns nil if notifications are disabled.
func (a *App) NotificationWorker() *notifications.Worker {
	return a.notificationWorker
}

// setupNotifications builds the notification pipeline and starts its workers.
func (a *App) setupNotifications(ctx context.Context, recipients notifications.RecipientResolver) error {
	cfg := a.config.Notifications

	slog.Info("notifications configured",
		"enabled", cfg.Enabled,
		"email_enabled", cfg.Email.Enabled,
		"queue_size", cfg.QueueSize,
		"workers", cfg.Workers,
	)

	if !cfg.Enabled {
		return nil
	}

	channel := notifications.ChannelLog
	senders := []notifications.Sender{notifications.NewLogSender(a.logger)}

	if cfg.Email.Enabled {
		emailSender, err := email.NewSender(email.Config{
			Enabled:      cfg.Email.Enabled,
			SMTPHost:     cfg.Email.SMTPHost,
			SMTPPort:     cfg.Email.SMTPPort,
			SMTPUser:     cfg.Email.SMTPUser,
			SMTPPassword: cfg.Email.SMTPPassword,
			FromAddress:  cfg.Email.FromAddress,
		})
		if err != nil {
			return fmt.Errorf("create email sender: %w", err)
		}
		senders = append(senders, emailSender)
		channel = notifications.ChannelEmail
	} else {
		slog.Warn("email sender is disabled: notifications will be written to the log")
	}

	renderer, err := notifications.NewRenderer()
	if err != nil {
		return fmt.Errorf("create notification renderer: %w", err)
	}

	a.notifier = notifications.NewNotifier(cfg.QueueSize, cfg.BaseURL)
	a.notificationWorker = notifications.NewWorker(notifications.WorkerConfig{
		NumWorkers:        cfg.Workers,
		MaxAttempts:       cfg.Retry.MaxAttempts,
		InitialBackoff:    cfg.Retry.InitialBackoff,
		MaxBackoff:        cfg.Retry.MaxBackoff,
		BackoffMultiplier: cfg.Retry.BackoffMultiplier,
		Channel:           channel,
	}, a.notifier.Queue(), recipients, renderer, notifications.NewDispatcher(senders...))
	a.notificationWorker.Start(ctx)

	return nil
}

func (a *App) setupLimiter(ctx context.Context) (httputil.Limiter, error) {
	cfg := a.config.RateLimit
	if !cfg.Enabled {
		slog.Info("rate limiting disabled")
		return nil, nil
	}

	limiter, closeFn, err := ratelimit.New(ctx, cfg.RedisURL, ratelimit.Config{
		Requests: cfg.Requests,
		Window:   cfg.Window,
		Prefix:   "jobgarden:ratelimit:",
	})
	if err != nil {
		return nil, fmt.Errorf("create rate limiter: %w", err)
	}
	a.closeLimiter = closeFn
	return limiter, nil
}

func (a *App) setupRouter(ctx context.Context) (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, "api/openapi/openapi.yaml")
	})

	r.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Job Garden API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: "/api/openapi.yaml",
            dom_id: '#swagger-ui',
            presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
            layout: "BaseLayout"
        });
    </script>
</body>
</html>`))
	})

	limiter, err := a.setupLimiter(ctx)
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(a.config.Auth.PasswordHasher)
	if err != nil {
		return nil, fmt.Errorf("create password hasher: %w", err)
	}

	identityRepo := identitypostgres.NewRepository(a.db)

	if err := a.setupNotifications(ctx, identityRepo); err != nil {
		return nil, err
	}

	// Interfaces stay nil when notifications are disabled.
	var (
		userCreated identity.UserCreatedHandler
		notifier    applications.Notifier
	)
	if a.notifier != nil {
		userCreated = a.notifier
		notifier = a.notifier
	}

	jwtAuth := jwt.NewAuthenticator(jwt.Config{
		SecretKey:            a.config.JWT.SecretKey,
		AccessTokenDuration:  a.config.JWT.AccessTokenDuration,
		RefreshTokenDuration: a.config.JWT.RefreshTokenDuration,
	}, identityRepo)
	identityService := identity.NewService(identityRepo, jwtAuth, hasher, userCreated)
	identityHandler := identity.NewHandler(identityService, identity.CookieSettings{
		Secure:               a.config.Cookie.Secure,
		Domain:               a.config.Cookie.Domain,
		AccessTokenDuration:  a.config.JWT.AccessTokenDuration,
		RefreshTokenDuration: a.config.JWT.RefreshTokenDuration,
	}, limiter)

	if err := a.bootstrapAdmin(ctx, identityService); err != nil {
		return nil, err
	}

	jobsService := jobs.NewService(jobspostgres.NewRepository(a.db))
	jobsHandler := jobs.NewHandler(jobsService)

	applicationsService := applications.NewService(
		applicationspostgres.NewRepository(a.db),
		jobsService,
		identityService,
		notifier,
	)
	applicationsHandler := applications.NewHandler(applicationsService, limiter)

	r.Route("/api/v1", func(r chi.Router) {
		identityHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(httputil.OptionalAuthMiddleware(identityService))
			jobsHandler.RegisterPublicRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(httputil.AuthMiddleware(identityService))

			identityHandler.RegisterProtectedRoutes(r)
			jobsHandler.RegisterProtectedRoutes(r)
			applicationsHandler.RegisterRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRole(domain.RoleAdmin))
				identityHandler.RegisterAdminRoutes(r)
			})
		})
	})

	return r, nil
}

// bootstrapAdmin ensures the configured admin account exists.
func (a *App) bootstrapAdmin(ctx context.Context, identityService *identity.Service) error {
	cfg := a.config.Bootstrap
	if cfg.AdminEmail == "" {
		return nil
	}

	user, err := identityService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	slog.Info("admin account ensured", "user_id", user.ID, "email", user.Email)
	return nil
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, version.Get())
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
