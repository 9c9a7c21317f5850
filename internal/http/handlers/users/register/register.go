// Package register реализует HTTP-обработчик регистрации пользователя администратором.
package register

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/company-users/internal/http/middlewarectx"
	"github.com/magabrotheeeer/company-users/internal/http/response"
	"github.com/magabrotheeeer/company-users/internal/lib/sl"
	"github.com/magabrotheeeer/company-users/internal/lib/validate"
	"github.com/magabrotheeeer/company-users/internal/models"
)

// MsgRegistered сообщение успешного ответа.
const MsgRegistered = "user registered successfully"

// Request входные данные для регистрации.
type Request struct {
	Username  string `json:"username" validate:"required,min=3,max=100" example:"alice"`
	Password  string `json:"password" validate:"required,min=8,max=72" example:"password123"`
	CompanyID int64  `json:"company_id" validate:"required,gt=0" example:"1"`
	Role      string `json:"role" validate:"required,oneof=Admin User" example:"User"`
}

// Service описывает операцию регистрации.
type Service interface {
	Register(ctx context.Context, caller models.Caller, in models.NewUser) (int64, error)
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validate.New(),
	}
}

// ServeHTTP godoc
// @Summary Регистрация пользователя
// @Description Создаёт пользователя в указанной компании. Доступно только администратору.
// @Tags Users
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные пользователя"
// @Success 200 {object} response.Response{data=response.MessageData}
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Нет токена или недостаточно прав"
// @Failure 409 {object} response.ErrorResponse "Имя уже занято в компании"
// @Failure 429 {object} response.ErrorResponse "Превышен лимит запросов"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /users/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.register"

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
		render.JSON(w, r, response.Error("invalid user data"))
		return
	}

	// роль уже проверена валидатором
	role, _ := models.ParseRole(req.Role)
	id, err := h.service.Register(r.Context(), caller, models.NewUser{
		Username:  req.Username,
		Password:  req.Password,
		CompanyID: req.CompanyID,
		Role:      role,
	})
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Info("user registered", slog.Int64("id", id), slog.Int64("company_id", req.CompanyID))
	render.JSON(w, r, response.StatusOKWithMessage(MsgRegistered))
}
