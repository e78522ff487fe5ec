package auth

import (
	"commhub/pkg/apperrors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by the external identity provider's tokens. This service
// never mints user tokens, it only verifies and reads them.
type Claims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// ParseToken verifies the signature and returns the claims.
func ParseToken(tokenStr, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.New(apperrors.CodeInvalidToken, "auth", "unexpected signing method", 401)
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidToken, "auth", "Invalid token", 401)
	}
	if !token.Valid || claims.UserID == "" || claims.TenantID == "" {
		return nil, apperrors.New(apperrors.CodeInvalidToken, "auth", "Invalid token claims", 401)
	}
	return claims, nil
}
