package service

import (
	"errors"
	"net/http"

	"cubcen/auth-service/internal/app/auth/validation"
)

// Kind - класс ошибки, определяется HTTP-статусом
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindAuthentication:
		return "AuthenticationError"
	case KindAuthorization:
		return "AuthorizationError"
	case KindNotFound:
		return "NotFoundError"
	case KindConflict:
		return "ConflictError"
	default:
		return "ServerError"
	}
}

// KindForStatus сопоставляет HTTP-статус классу ошибки
func KindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusUnauthorized:
		return KindAuthentication
	case http.StatusForbidden:
		return KindAuthorization
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	default:
		return KindServer
	}
}

// Коды ошибок, которые видит клиент
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInternal           = "INTERNAL_ERROR"
	CodeMissingToken       = "MISSING_TOKEN"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
	CodeUserExists         = "USER_EXISTS"
)

// AppError - единственный тип ошибки, который сервисный слой отдаёт наружу.
// cause никогда не сериализуется и нужен только для логов и errors.Is/As.
type AppError struct {
	Kind      Kind
	Code      string
	Message   string
	Status    int
	RequestID string
	Details   any
	cause     error
}

func NewAppError(status int, code, message string) *AppError {
	return &AppError{
		Kind:    KindForStatus(status),
		Code:    code,
		Message: message,
		Status:  status,
	}
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return e.Code + ": " + e.Message + ": " + e.cause.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Is сравнивает ошибки по коду, поэтому errors.Is(err, ErrInvalidToken)
// срабатывает и на копиях шаблона с деталями или причиной
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// WithDetails возвращает копию с деталями, шаблон не меняется
func (e *AppError) WithDetails(details any) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithRequestID возвращает копию с идентификатором запроса
func (e *AppError) WithRequestID(id string) *AppError {
	cp := *e
	cp.RequestID = id
	return &cp
}

// Wrap возвращает копию с причиной
func (e *AppError) Wrap(cause error) *AppError {
	cp := *e
	cp.cause = cause
	return &cp
}

var (
	ErrInvalidCredentials  = NewAppError(http.StatusUnauthorized, CodeInvalidCredentials, "Invalid email or password")
	ErrInternal            = NewAppError(http.StatusInternalServerError, CodeInternal, "Internal server error")
	ErrMissingToken        = NewAppError(http.StatusUnauthorized, CodeMissingToken, "Access token is required")
	ErrMissingRefreshToken = NewAppError(http.StatusBadRequest, CodeMissingToken, "Refresh token is required")
	ErrInvalidToken        = NewAppError(http.StatusUnauthorized, CodeInvalidToken, "Invalid token")
	ErrInvalidRefreshToken = NewAppError(http.StatusUnauthorized, CodeInvalidToken, "Invalid or expired refresh token")
	ErrTokenExpired        = NewAppError(http.StatusUnauthorized, CodeTokenExpired, "Token has expired")
	ErrUserNotFound        = NewAppError(http.StatusNotFound, CodeUserNotFound, "User not found")
	ErrForbidden           = NewAppError(http.StatusForbidden, CodeForbidden, "Insufficient permissions")
	ErrUserExists          = NewAppError(http.StatusConflict, CodeUserExists, "User with this email already exists")
	ErrValidation          = NewAppError(http.StatusBadRequest, CodeValidation, "Validation failed")
)

// AsAppError приводит любую ошибку к AppError. Всё, что не AppError,
// превращается в INTERNAL_ERROR с исходной ошибкой в cause.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternal.Wrap(err)
}

// ValidationFailed строит VALIDATION_ERROR из ошибки валидатора.
// При одном нарушении его текст становится сообщением ошибки.
func ValidationFailed(err error) *AppError {
	var verrs *validation.Errors
	if !errors.As(err, &verrs) {
		return ErrValidation.Wrap(err)
	}

	appErr := ErrValidation.WithDetails(verrs.Fields)
	if len(verrs.Fields) == 1 {
		appErr.Message = verrs.Fields[0].Message
	}
	appErr.cause = err
	return appErr
}
