package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the payload shared by access and refresh tokens. Both token
// kinds are signed with the same secret and differ only in expiry.
type TokenClaims struct {
	Email  string  `json:"email"`
	RoleID *string `json:"role_id,omitempty"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, userID string, email string, roleID *string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Email:  email,
		RoleID: roleID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func ParseToken(tokenStr string, secret string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// HashRefreshToken digests a refresh token for storage. The digest is
// deterministic so rotation can match the previous token by equality in SQL.
func HashRefreshToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}

// VerifyRefreshTokenHash compares a presented token against a stored digest
// in constant time.
func VerifyRefreshTokenHash(token string, storedHash []byte) bool {
	if len(storedHash) == 0 {
		return false
	}
	computed := HashRefreshToken(token)
	return subtle.ConstantTimeCompare(computed, storedHash) == 1
}
