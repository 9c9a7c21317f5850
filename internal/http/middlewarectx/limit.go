package middlewarectx

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/company-users/internal/http/response"
	"github.com/magabrotheeeer/company-users/internal/lib/metrics"
	"github.com/magabrotheeeer/company-users/internal/lib/sl"
	"github.com/magabrotheeeer/company-users/internal/ratelimit"
)

// MsgRateLimited текст ответа 429.
const MsgRateLimited = "request limit exceeded, try again later"

// RateLimitMiddleware ограничивает число запросов одного пользователя.
// Ключ берётся из личности вызывающего, поэтому middleware ставится после JWTMiddleware;
// запросы без личности пропускаются без учёта.
func RateLimitMiddleware(log *slog.Logger, limiter ratelimit.Limiter, m *metrics.Metrics) func(http.Handler) http.Handler {
	return limit(log, limiter, m, "user", func(r *http.Request) (string, bool) {
		caller, ok := CallerFromContext(r.Context())
		if !ok {
			return "", false
		}
		return "user:" + strconv.FormatInt(caller.UserID, 10), true
	})
}

// LoginRateLimitMiddleware ограничивает попытки входа с одного IP-адреса.
// Ключом служит хост из RemoteAddr: адрес сокета, либо адрес из заголовков
// прокси, если перед лимитером подключён middleware.RealIP.
func LoginRateLimitMiddleware(log *slog.Logger, limiter ratelimit.Limiter, m *metrics.Metrics) func(http.Handler) http.Handler {
	return limit(log, limiter, m, "login", func(r *http.Request) (string, bool) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		return "ip:" + host, host != ""
	})
}

func limit(log *slog.Logger, limiter ratelimit.Limiter, m *metrics.Metrics, name string,
	keyFn func(r *http.Request) (string, bool)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RateLimit"

			key, ok := keyFn(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				// Недоступный лимитер не должен блокировать сервис.
				log.Error("rate limiter failed",
					slog.String("op", op),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					sl.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				m.RateLimited(name)
				log.Warn("too many requests",
					slog.String("op", op),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("limiter", name),
					slog.String("key", key))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error(MsgRateLimited))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
