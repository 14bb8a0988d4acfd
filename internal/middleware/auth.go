package middleware

import (
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"

	"schoolfee_app_echo/internal/models"
)

// Context keys set by RequireAuth for downstream handlers
const (
	ContextUserUID   = "userUID"
	ContextUserEmail = "userEmail"
	ContextUserRole  = "userRole"
)

// RequireAuth verifies the Firebase ID token from the Authorization header
// and stores the caller's uid, email and role claim in the echo context.
func RequireAuth(authClient *auth.Client) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if authClient == nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "authentication is not configured")
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			decodedToken, err := authClient.VerifyIDToken(c.Request().Context(), tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			c.Set(ContextUserUID, decodedToken.UID)
			if email, ok := decodedToken.Claims["email"].(string); ok {
				c.Set(ContextUserEmail, email)
			}
			if role, ok := decodedToken.Claims["role"].(string); ok {
				c.Set(ContextUserRole, role)
			}

			return next(c)
		}
	}
}

// RequireStaff allows only callers whose role claim is admin or staff.
// Must run after RequireAuth.
func RequireStaff() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(ContextUserRole).(string)
			if role != models.RoleAdmin && role != models.RoleStaff {
				return echo.NewHTTPError(http.StatusForbidden, "staff or admin role required")
			}
			return next(c)
		}
	}
}

// RequireSelfOrStaff allows the student identified by the :id path
// parameter, or any staff/admin caller. Must run after RequireAuth.
func RequireSelfOrStaff() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, _ := c.Get(ContextUserUID).(string)
			role, _ := c.Get(ContextUserRole).(string)
			if role == models.RoleAdmin || role == models.RoleStaff {
				return next(c)
			}
			if uid != "" && uid == c.Param("id") {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden, "you can only view your own fee records")
		}
	}
}
