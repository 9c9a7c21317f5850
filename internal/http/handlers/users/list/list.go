// Package list реализует HTTP-обработчик выборки пользователей своей компании.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/company-users/internal/http/middlewarectx"
	"github.com/magabrotheeeer/company-users/internal/http/response"
	"github.com/magabrotheeeer/company-users/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	ListOwnCompany(ctx context.Context, caller models.Caller) ([]models.UserInfo, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Пользователи своей компании
// @Description Возвращает пользователей компании вызывающего. Обычный пользователь не видит администраторов.
// @Tags Users
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} response.Response{data=[]models.UserInfo}
// @Failure 401 {object} response.ErrorResponse "Нет токена"
// @Failure 429 {object} response.ErrorResponse "Превышен лимит запросов"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /users [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	caller, ok := middlewarectx.CallerFromContext(r.Context())
	if !ok {
		log.Error("caller identity missing")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}

	users, err := h.service.ListOwnCompany(r.Context(), caller)
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Debug("users listed", slog.Int("count", len(users)))
	render.JSON(w, r, response.StatusOKWithData(users))
}
