// Package update реализует HTTP-обработчик частичного изменения пользователя.
package update

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/company-users/internal/http/middlewarectx"
	"github.com/magabrotheeeer/company-users/internal/http/response"
	"github.com/magabrotheeeer/company-users/internal/lib/sl"
	"github.com/magabrotheeeer/company-users/internal/lib/validate"
	"github.com/magabrotheeeer/company-users/internal/models"
)

// MsgUpdated сообщение успешного ответа.
const MsgUpdated = "user updated successfully"

// Request изменяемые поля. Отсутствующее или пустое поле не меняется.
type Request struct {
	Username  *string `json:"username,omitempty" validate:"omitempty,max=100" example:"alice"`
	Password  *string `json:"password,omitempty" validate:"omitempty,max=72" example:"new-password"`
	CompanyID *int64  `json:"company_id,omitempty" validate:"omitempty,gt=0" example:"2"`
	Role      *string `json:"role,omitempty" example:"Admin"`
}

// Service описывает операцию изменения пользователя.
type Service interface {
	Update(ctx context.Context, caller models.Caller, id int64, patch models.UserPatch) error
}

// Handler обрабатывает PUT /api/users/{id}.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт обработчик изменения пользователя.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validate.New(),
	}
}

// ServeHTTP godoc
// @Summary Изменение пользователя
// @Description Меняет только переданные поля. Новый пароль хэшируется. Доступно только администратору.
// @Tags Users
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param id path int true "ID пользователя"
// @Param request body Request true "Изменяемые поля"
// @Success 200 {object} response.Response{data=response.MessageData}
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Нет токена или недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 409 {object} response.ErrorResponse "Имя уже занято в компании"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /users/{id} [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.update"

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

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Warn("invalid id format", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid id"))
		return
	}

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		if errors.Is(err, io.EOF) {
			render.JSON(w, r, response.Error("empty request body"))
			return
		}
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			render.JSON(w, r, response.ValidationError(verrs))
			return
		}
		render.JSON(w, r, response.Error("invalid data provided"))
		return
	}

	patch := models.UserPatch{
		Username:  req.Username,
		Password:  req.Password,
		CompanyID: req.CompanyID,
	}
	if req.Role != nil {
		// пустая строка означает «не менять», её отбрасывает сервис
		role, ok := models.ParseRole(*req.Role)
		if !ok && *req.Role != "" {
			log.Warn("unknown role", slog.String("role", *req.Role))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("field role must be one of: Admin User"))
			return
		}
		patch.Role = &role
	}

	if err := h.service.Update(r.Context(), caller, id, patch); err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Info("user updated", slog.Int64("id", id))
	render.JSON(w, r, response.StatusOKWithMessage(MsgUpdated))
}
