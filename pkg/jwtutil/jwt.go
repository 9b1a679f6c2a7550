package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// RoleAdmin is the role claim granting access to administrative endpoints.
const RoleAdmin = "admin"

// UserClaims represents the JWT claims for authenticated callers. Tokens are
// issued by the external identity service; this package only validates them.
type UserClaims struct {
	Email  string `json:"email"`
	UserID uint   `json:"user_id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the claims carry the admin role.
func (c *UserClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// JWTUtil is a utility for JWT token operations
type JWTUtil struct {
	signingKey string
}

// NewJWTUtil creates a new JWT utility with the given signing key
func NewJWTUtil(signingKey string) *JWTUtil {
	return &JWTUtil{signingKey: signingKey}
}

// GenerateToken creates a signed token with the given claims, expiring after
// ttl. Used by tests and ops tooling; production tokens come from the
// identity service.
func (j *JWTUtil) GenerateToken(email string, userID uint, role string, ttl time.Duration) (string, error) {
	if j.signingKey == "" {
		return "", errors.New("JWT signing key not configured")
	}

	claims := UserClaims{
		Email:  email,
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.signingKey))
}

// ValidateToken validates and parses the JWT token
func (j *JWTUtil) ValidateToken(tokenString string) (*UserClaims, error) {
	if j.signingKey == "" {
		return nil, errors.New("JWT signing key not configured")
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(j.signingKey), nil
		},
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
