package companyusers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/magabrotheeeer/company-users/internal/cache"
	"github.com/magabrotheeeer/company-users/internal/config"
	"github.com/magabrotheeeer/company-users/internal/lib/jwt"
	"github.com/magabrotheeeer/company-users/internal/lib/metrics"
	"github.com/magabrotheeeer/company-users/internal/lib/sl"
	"github.com/magabrotheeeer/company-users/internal/migrations"
	"github.com/magabrotheeeer/company-users/internal/models"
	"github.com/magabrotheeeer/company-users/internal/ratelimit"
	"github.com/magabrotheeeer/company-users/internal/services/auth"
	"github.com/magabrotheeeer/company-users/internal/services/users"
	"github.com/magabrotheeeer/company-users/internal/storage/repository"
)

// App HTTP-приложение со всеми зависимостями.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
}

// New собирает приложение: хранилище, миграции, метрики, лимитеры, сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (app *App, err error) {
	const op = "app.New"

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = db.Close()
		}
	}()

	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	var (
		cacheRedis  *cache.Cache
		userLimiter ratelimit.Limiter
	)
	if cfg.Redis.AddressRedis != "" {
		cacheRedis, err = cache.InitServer(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		userLimiter = ratelimit.NewRedisFixedWindow(cacheRedis.Db, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		logger.Info("rate limiter uses redis", slog.String("address", cfg.Redis.AddressRedis))
	} else {
		userLimiter = ratelimit.NewFixedWindow(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		logger.Info("rate limiter uses process memory")
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := auth.NewAuthService(logger, db, jwtMaker, m)
	userService := users.NewUserService(logger, db)

	if cfg.BootstrapAdmin.Enabled() {
		if _, err = userService.EnsureAdmin(ctx, models.NewUser{
			Username:  cfg.BootstrapAdmin.Username,
			Password:  cfg.BootstrapAdmin.Password,
			CompanyID: cfg.BootstrapAdmin.CompanyID,
		}); err != nil {
			if cacheRedis != nil {
				_ = cacheRedis.Close()
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	router := chi.NewRouter()

	RegisterRoutes(router, Deps{
		Logger:       logger,
		Auth:         authService,
		Users:        userService,
		Storage:      db,
		UserLimiter:  userLimiter,
		LoginLimiter: ratelimit.NewTokenBucket(cfg.RateLimit.LoginRPS, cfg.RateLimit.LoginBurst),
		Metrics:      m,
		Gatherer:     registry,
		TrustProxy:   cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}, nil
}

// Run запускает сервер и ждёт отмены ctx, после чего корректно его останавливает.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}

	a.close()
	return err
}

func (a *App) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
}
