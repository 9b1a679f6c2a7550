package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"license-service/pkg/jwtutil"
	"license-service/pkg/logger"
)

const claimsKey = "claims"

// JWTAuthMiddleware validates bearer tokens and stores the claims in the
// Echo context for downstream ownership checks.
func JWTAuthMiddleware(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Warn("Missing authorization header")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Missing authorization header"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				log.Warn("Invalid authorization header format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid authorization header format"})
			}

			claims, err := jwtUtil.ValidateToken(parts[1])
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid or expired token"})
			}

			c.Set(claimsKey, claims)
			log.Debug("JWT token validated successfully",
				zap.Uint("user_id", claims.UserID),
				zap.String("role", claims.Role))

			return next(c)
		}
	}
}

// AdminOnly rejects callers whose claims lack the admin role. Must run after
// JWTAuthMiddleware.
func AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := ClaimsFromContext(c)
		if claims == nil || !claims.IsAdmin() {
			logger.FromContext(c).Warn("Admin access denied")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Admin access required"})
		}
		return next(c)
	}
}

// ClaimsFromContext returns the authenticated caller's claims, or nil on
// unauthenticated routes.
func ClaimsFromContext(c echo.Context) *jwtutil.UserClaims {
	claims, ok := c.Get(claimsKey).(*jwtutil.UserClaims)
	if !ok {
		return nil
	}
	return claims
}
