package middleware

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/auth"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-billing-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/jwt"
)

// RequireCompany requires a caller identity that belongs to a company and has
// finished onboarding.
func RequireCompany(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := jwt.IdentityFromContext(r.Context())
		if err != nil {
			if errors.Is(err, auth.ErrMissingClaims) {
				response.HandleError(w, user.ErrCompanyIDRequired)
				return
			}
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		if identity.Role == user.RolePending {
			response.HandleError(w, user.ErrCompanyIDRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}
