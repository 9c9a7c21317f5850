// Package apperr описывает таксономию ошибок бизнес-уровня.
//
// Сервисы возвращают *Error с одним из видов Kind, а HTTP-слой
// преобразует вид в статус ответа и безопасное сообщение.
package apperr

import (
	"errors"
)

// Kind вид ошибки.
type Kind int

const (
	// KindInternal непредвиденная ошибка хранилища или системы.
	KindInternal Kind = iota
	// KindBadRequest некорректные входные данные.
	KindBadRequest
	// KindUnauthorized неверные учётные данные, невалидный токен или недостаточная роль.
	KindUnauthorized
	// KindNotFound запрошенный пользователь отсутствует.
	KindNotFound
	// KindConflict нарушение уникальности.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// InternalMessage сообщение, которое уходит клиенту при любой внутренней ошибке.
const InternalMessage = "an unexpected error occurred, please try again later"

// Error ошибка с видом, безопасным для клиента сообщением и исходной причиной.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// BadRequest создаёт ошибку вида KindBadRequest.
func BadRequest(msg string) *Error {
	return &Error{Kind: KindBadRequest, Message: msg}
}

// Unauthorized создаёт ошибку вида KindUnauthorized.
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// NotFound создаёт ошибку вида KindNotFound.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Conflict создаёт ошибку вида KindConflict.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Internal оборачивает причину во внутреннюю ошибку с общим сообщением.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: InternalMessage, Err: err}
}

// Wrap прикрепляет причину к ошибке.
func (e *Error) Wrap(err error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Err: err}
}

// KindOf возвращает вид ошибки. Всё, что не является *Error, считается внутренней ошибкой.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf возвращает сообщение, которое можно отдать клиенту.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return InternalMessage
}
