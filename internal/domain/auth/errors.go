package auth

import "errors"

var (
	ErrInvalidToken    = errors.New("invalid or expired token")
	ErrTokenExpired    = errors.New("token has expired")
	ErrMissingClaims   = errors.New("required token claims are missing")
	ErrInvalidTokenUse = errors.New("token type not accepted for this endpoint")
)
