// Package auth issues and verifies the bearer tokens that carry the acting
// principal across the HTTP boundary. The core services never see a token,
// only the principal ID resolved here.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dwianugrah/keepsake/internal/common"
)

// Claims carries the standard claims plus the principal's account ID.
type Claims struct {
	jwt.RegisteredClaims
	PrincipalID string
}

// GenerateToken signs an HS256 token binding the principal for the given
// validity window.
func GenerateToken(principalID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		PrincipalID: principalID,
	})

	return token.SignedString(secretKey)
}

// PrincipalFromToken verifies the token and extracts the principal ID.
func PrincipalFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.PrincipalID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.PrincipalID, nil
}
