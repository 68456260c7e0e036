package middleware

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/auth"
	"github.com/cmlabs-hris/hris-billing-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-billing-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// AuthRequired rejects requests without a verified access token. It must run
// after jwtauth.Verifier.
func AuthRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			if errors.Is(err, jwtauth.ErrExpired) {
				response.HandleError(w, auth.ErrTokenExpired)
				return
			}
			response.Unauthorized(w, err.Error())
			return
		}

		if token == nil {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		tokenType, ok := claims["type"].(string)
		if !ok || tokenType != jwt.TokenTypeAccess {
			response.HandleError(w, auth.ErrInvalidTokenUse)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// TokenFromQuery reads the access token from the "token" query parameter, for
// clients like EventSource that cannot set headers.
func TokenFromQuery(r *http.Request) string {
	return r.URL.Query().Get("token")
}
