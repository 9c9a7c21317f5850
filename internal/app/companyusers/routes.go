// Package companyusers собирает HTTP-приложение управления пользователями компаний.
package companyusers

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/company-users/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/company-users/internal/http/handlers/health"
	"github.com/magabrotheeeer/company-users/internal/http/handlers/users/list"
	"github.com/magabrotheeeer/company-users/internal/http/handlers/users/listall"
	"github.com/magabrotheeeer/company-users/internal/http/handlers/users/register"
	"github.com/magabrotheeeer/company-users/internal/http/handlers/users/remove"
	"github.com/magabrotheeeer/company-users/internal/http/handlers/users/update"
	"github.com/magabrotheeeer/company-users/internal/http/middlewarectx"
	"github.com/magabrotheeeer/company-users/internal/lib/metrics"
	"github.com/magabrotheeeer/company-users/internal/models"
	"github.com/magabrotheeeer/company-users/internal/ratelimit"
)

// AuthService операции аутентификации, нужные маршрутам.
type AuthService interface {
	login.Service
	middlewarectx.TokenValidator
}

// UserService операции администрирования пользователей, нужные маршрутам.
type UserService interface {
	register.Service
	update.Service
	remove.Service
	list.Service
	listall.Service
}

// Deps зависимости маршрутов.
type Deps struct {
	Logger       *slog.Logger
	Auth         AuthService
	Users        UserService
	Storage      health.Pinger
	UserLimiter  ratelimit.Limiter
	LoginLimiter ratelimit.Limiter
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer
	// TrustProxy разрешает брать адрес клиента из X-Forwarded-For/X-Real-IP.
	TrustProxy bool
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, d Deps) {
	logger := d.Logger

	// Глобальные middleware
	r.Use(middleware.RequestID)
	if d.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
	)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.Route("/api/users", func(r chi.Router) {
		// Открытая конечная точка, ограничена по IP клиента
		r.With(middlewarectx.LoginRateLimitMiddleware(logger, d.LoginLimiter, d.Metrics)).
			Post("/authenticate", login.New(logger, d.Auth).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.Auth, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, d.UserLimiter, d.Metrics))

			r.Get("/", list.New(logger, d.Users).ServeHTTP)

			// Только для администраторов
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(models.RoleAdmin, logger))
				r.Post("/register", register.New(logger, d.Users).ServeHTTP)
				r.Get("/all", listall.New(logger, d.Users).ServeHTTP)
				r.Put("/{id}", update.New(logger, d.Users).ServeHTTP)
				r.Delete("/{id}", remove.New(logger, d.Users).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, d.Storage).ServeHTTP)
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
