// Package login реализует HTTP-обработчик для запросов аутентификации пользователей.
//
// В нём определяется структура Request для входных данных, выполняется декодирование JSON,
// проверка полей и делегирование входа сервису аутентификации.
// При успешной аутентификации возвращается JSON с JWT; в случае ошибок
// формируются соответствующие HTTP-ответы.
package login

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/company-users/internal/http/response"
	"github.com/magabrotheeeer/company-users/internal/lib/sl"
	"github.com/magabrotheeeer/company-users/internal/lib/validate"
	"github.com/magabrotheeeer/company-users/internal/models"
)

// Request структура входных данных для аутентификации.
//
// CompanyID необязателен: без него имя ищется во всех компаниях и должно быть однозначным.
type Request struct {
	Username  string `json:"username" validate:"required" example:"admin"`
	Password  string `json:"password" validate:"required" example:"supersecret"`
	CompanyID *int64 `json:"company_id,omitempty" validate:"omitempty,gt=0" example:"1"`
}

// TokenData полезная нагрузка успешного ответа.
type TokenData struct {
	Token string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// Handler обрабатывает HTTP-запросы для аутентификации.
type Handler struct {
	log         *slog.Logger        // Логгер для записи операций и ошибок
	authService Service             // Сервис аутентификации
	validate    *validator.Validate // Валидатор для проверки входных данных
}

// Service описывает интерфейс бизнес-логики аутентификации.
type Service interface {
	Login(ctx context.Context, username, password string, companyID *int64) (string, *models.User, error)
}

// New создаёт новый экземпляр Handler с указанными логгером и сервисом аутентификации.
func New(log *slog.Logger, authService Service) *Handler {
	return &Handler{
		log:         log,
		authService: authService,
		validate:    validate.New(),
	}
}

// ServeHTTP godoc
// @Summary Аутентификация пользователя
// @Description Проверяет имя и пароль и возвращает JWT со сроком жизни 1 час.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Учётные данные пользователя"
// @Success 200 {object} response.Response{data=TokenData} "Успешная аутентификация"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 401 {object} response.ErrorResponse "Неверные учётные данные"
// @Failure 429 {object} response.ErrorResponse "Слишком много попыток"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /users/authenticate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			log.Warn("request body is empty")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("empty request body"))
			return
		}
		log.Warn("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
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
		render.JSON(w, r, response.Error("invalid request"))
		return
	}

	token, user, err := h.authService.Login(r.Context(), req.Username, req.Password, req.CompanyID)
	if err != nil {
		response.FromError(w, r, log, err)
		return
	}

	log.Info("login success", slog.Int64("user_id", user.ID), slog.Int64("company_id", user.CompanyID))
	render.JSON(w, r, response.StatusOKWithData(TokenData{Token: token}))
}
