package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-billing-go/internal/domain/auth"
	"github.com/cmlabs-hris/hris-billing-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// TokenTypeAccess is the "type" claim carried by access tokens.
const TokenTypeAccess = "access"

type Service interface {
	GenerateAccessToken(identity user.Identity) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpirationTime string
	tokenAuth                 *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) Service {
	return &JWTService{
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) GenerateAccessToken(identity user.Identity) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.accessTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = time.Now().Add(expDuration).Unix()

	claims := map[string]interface{}{
		"user_id":     identity.UserID,
		"company_id":  identity.CompanyID,
		"employee_id": returnValueOrNil(identity.EmployeeID),
		"role":        string(identity.Role),
		"type":        TokenTypeAccess,
		"exp":         expiresAt,
	}

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// IdentityFromContext extracts the caller identity from verified JWT claims.
func IdentityFromContext(ctx context.Context) (user.Identity, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return user.Identity{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}
	return IdentityFromClaims(claims)
}

// IdentityFromClaims maps a claims map to an Identity, requiring user_id and company_id.
func IdentityFromClaims(claims map[string]interface{}) (user.Identity, error) {
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return user.Identity{}, fmt.Errorf("%w: user_id", auth.ErrMissingClaims)
	}

	companyID, _ := claims["company_id"].(string)
	if companyID == "" {
		return user.Identity{}, fmt.Errorf("%w: company_id", auth.ErrMissingClaims)
	}

	identity := user.Identity{
		UserID:    userID,
		CompanyID: companyID,
	}
	if role, ok := claims["role"].(string); ok {
		identity.Role = user.Role(role)
	}
	if employeeID, ok := claims["employee_id"].(string); ok && employeeID != "" {
		identity.EmployeeID = &employeeID
	}
	return identity, nil
}

func returnValueOrNil(value *string) interface{} {
	if value == nil {
		return nil
	}
	return *value
}
