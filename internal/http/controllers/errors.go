// Package controllers traduce HTTP <-> servicios de dominio.
package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/registrar/internal/admin"
	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/auth"
	"github.com/dropDatabas3/registrar/internal/course"
	httperrors "github.com/dropDatabas3/registrar/internal/http/errors"
	"github.com/dropDatabas3/registrar/internal/identity"
	"github.com/dropDatabas3/registrar/internal/observability/logger"
	"github.com/dropDatabas3/registrar/internal/policy"
	"github.com/dropDatabas3/registrar/internal/registration"
)

// mapError traduce errores de dominio a AppError. Lo que no reconoce sale
// como 500 sin detalle.
func mapError(err error) *httperrors.AppError {
	var appErr *httperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var weak *identity.WeakPasswordError
	if errors.As(err, &weak) {
		return httperrors.ErrValidation.
			WithMessage("Password does not meet requirements").
			WithDetail(strings.Join(weak.Reasons, ","))
	}

	switch {
	// identity / auth
	case errors.Is(err, identity.ErrInvalidInput):
		return httperrors.ErrValidation.WithDetail(err.Error())
	case errors.Is(err, identity.ErrDuplicate):
		return httperrors.ErrConflict.WithMessage("Username or email already exists")
	case errors.Is(err, identity.ErrInvalidCredentials):
		return httperrors.ErrInvalidCredentials
	case errors.Is(err, identity.ErrAccountDeactivated):
		return httperrors.ErrAccountDeactivated
	case errors.Is(err, identity.ErrOTPExpired):
		return httperrors.ErrOTP.WithMessage("OTP has expired")
	case errors.Is(err, identity.ErrOTPMismatch):
		return httperrors.ErrOTP
	case errors.Is(err, identity.ErrNoChallenge):
		return httperrors.ErrOTP.WithMessage("No valid OTP found")
	case errors.Is(err, identity.ErrNotFound), errors.Is(err, admin.ErrUserNotFound):
		return httperrors.ErrNotFound.WithMessage("User not found")
	case errors.Is(err, auth.ErrTempSessionInvalid):
		return httperrors.ErrSessionInvalid.WithMessage("Invalid or expired temporary session")
	case errors.Is(err, auth.ErrInvalidRequest):
		return httperrors.ErrBadRequest
	case errors.Is(err, auth.ErrRoleNotAllowed):
		return httperrors.ErrValidation.WithDetail("role must be student or faculty")
	case errors.Is(err, auth.ErrMFARequired):
		return httperrors.ErrMFARequired
	case errors.Is(err, auth.ErrForbidden):
		return httperrors.ErrForbidden

	// course
	case errors.Is(err, course.ErrNotFound), errors.Is(err, registration.ErrCourseNotFound):
		return httperrors.ErrNotFound.WithMessage("Course not found")
	case errors.Is(err, course.ErrDuplicateCode):
		return httperrors.ErrConflict.WithMessage("Course code already exists")
	case errors.Is(err, course.ErrInvalidInput):
		return httperrors.ErrValidation.WithDetail(err.Error())
	case errors.Is(err, course.ErrInvalidFaculty):
		return httperrors.ErrValidation.WithDetail("facultyId must reference a faculty user")
	case errors.Is(err, course.ErrSeatsBelow):
		return httperrors.ErrValidation.WithMessage("Max seats cannot be less than current enrollment")
	case errors.Is(err, course.ErrHasEnrollments):
		return httperrors.ErrConflict.WithMessage("Cannot delete course with active enrollments")

	// registration
	case errors.Is(err, registration.ErrCourseFull):
		return httperrors.ErrCourseFull
	case errors.Is(err, registration.ErrAlreadyRegistered):
		return httperrors.ErrConflict.WithMessage("Already registered for this course")
	case errors.Is(err, registration.ErrRegistrationNotFound):
		return httperrors.ErrNotFound.WithMessage("Registration not found")

	// admin / policy / audit
	case errors.Is(err, admin.ErrSelfDeactivation):
		return httperrors.ErrBadRequest.WithMessage("Cannot deactivate your own account")
	case errors.Is(err, policy.ErrInvalidKey):
		return httperrors.ErrValidation.WithMessage("Invalid policy key")
	case errors.Is(err, policy.ErrInvalidValue):
		return httperrors.ErrValidation.WithMessage("Invalid policy value").WithDetail("expected an RFC 3339 date")
	case errors.Is(err, audit.ErrNotFound):
		return httperrors.ErrNotFound.WithMessage("Log not found")
	}
	return httperrors.ErrInternal.WithCause(err)
}

// fail escribe el error; los 5xx se loguean con su causa.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	appErr := mapError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.From(r.Context()).Error("request failed",
			logger.Layer("http"), logger.Err(err))
	}
	httperrors.WriteError(w, appErr)
}

func invalid(detail string) *httperrors.AppError {
	return httperrors.ErrValidation.WithDetail(detail)
}
