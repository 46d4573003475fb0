// Package errors define el error estándar de la API y su serialización.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError es el error que ve el cliente. Err (la causa) nunca se serializa.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is compara por Code, así las copias de WithDetail/WithCause matchean
// con el error base.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// FromError convierte err en AppError. Si no lo es, devuelve un 500 que
// conserva la causa para logs.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternal.WithCause(err)
}

// WithDetail devuelve una copia con detalle; las variables base no se mutan.
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithMessage devuelve una copia con otro mensaje.
func (e *AppError) WithMessage(msg string) *AppError {
	cp := *e
	cp.Message = msg
	return &cp
}

// WithCause devuelve una copia con la causa original.
func (e *AppError) WithCause(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// 400
var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrInvalidJSON = &AppError{
		Code:       "INVALID_JSON",
		Message:    "Request body is not valid JSON",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrValidation = &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "Validation failed",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrWindowClosed = &AppError{
		Code:       "WINDOW_CLOSED",
		Message:    "Operation not allowed at this time",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrOTP = &AppError{
		Code:       "OTP_INVALID",
		Message:    "Invalid OTP",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrUnsupportedMediaType = &AppError{
		Code:       "UNSUPPORTED_MEDIA_TYPE",
		Message:    "Content-Type must be application/json",
		HTTPStatus: http.StatusUnsupportedMediaType,
	}
	ErrBodyTooLarge = &AppError{
		Code:       "BODY_TOO_LARGE",
		Message:    "Request body too large",
		HTTPStatus: http.StatusRequestEntityTooLarge,
	}
)

// 401 / 403
var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Not authenticated",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrInvalidCredentials = &AppError{
		Code:       "INVALID_CREDENTIALS",
		Message:    "Invalid credentials",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrTokenExpired = &AppError{
		Code:       "TOKEN_EXPIRED",
		Message:    "Token has expired",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrInvalidToken = &AppError{
		Code:       "INVALID_TOKEN",
		Message:    "Invalid token",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrSessionInvalid = &AppError{
		Code:       "SESSION_INVALID",
		Message:    "Session is no longer valid",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrMFARequired = &AppError{
		Code:       "MFA_REQUIRED",
		Message:    "MFA verification required",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Access denied. Insufficient permissions.",
		HTTPStatus: http.StatusForbidden,
	}
	ErrAccountDeactivated = &AppError{
		Code:       "ACCOUNT_DEACTIVATED",
		Message:    "Account is deactivated",
		HTTPStatus: http.StatusForbidden,
	}
)

// 404 / 409 / 429
var (
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		HTTPStatus: http.StatusNotFound,
	}
	ErrConflict = &AppError{
		Code:       "CONFLICT",
		Message:    "Resource already exists",
		HTTPStatus: http.StatusConflict,
	}
	ErrCourseFull = &AppError{
		Code:       "COURSE_FULL",
		Message:    "Course is full",
		HTTPStatus: http.StatusConflict,
	}
	ErrRateLimited = &AppError{
		Code:       "RATE_LIMITED",
		Message:    "Too many requests",
		HTTPStatus: http.StatusTooManyRequests,
	}
)

// 500
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
	}
	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "Service unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)
