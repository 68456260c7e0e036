package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/auth"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/billing"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/project"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors

	// Billing input errors carry field details when they came from request validation
	if errors.Is(err, billing.ErrInvalidArgument) {
		var details map[string]string
		if errors.As(err, &validationErrs) {
			details = validationErrs.ToMap()
		}
		BadRequest(w, err.Error(), details)
		return
	}

	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token expired")
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingClaims),
		errors.Is(err, auth.ErrInvalidTokenUse):
		Unauthorized(w, err.Error())
	case errors.Is(err, user.ErrCompanyIDRequired):
		Forbidden(w, "Company membership required")
	case errors.Is(err, user.ErrInsufficientPermissions):
		Forbidden(w, err.Error())

	// Billing domain errors
	case errors.Is(err, billing.ErrReferenceNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, billing.ErrBillingRecordNotFound):
		NotFound(w, "Billing record not found")
	case errors.Is(err, billing.ErrAlreadyFinalized):
		Conflict(w, err.Error())
	case errors.Is(err, billing.ErrInvalidBillingData),
		errors.Is(err, project.ErrInvalidBillingMode):
		Error(w, http.StatusUnprocessableEntity, CodeInvalidBillingData, err.Error(), nil)

	// Notification domain errors
	case errors.Is(err, notification.ErrNotificationNotFound):
		NotFound(w, "Notification not found")

	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
