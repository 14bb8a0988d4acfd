package handlers

import (
	"fmt"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"

	"schoolfee_app_echo/internal/middleware"
)

// AuthHandler wraps the privileged identity-provider operations
type AuthHandler struct {
	authClient *auth.Client
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authClient *auth.Client) *AuthHandler {
	return &AuthHandler{authClient: authClient}
}

// ChangePassword updates the caller's own password in Firebase Auth.
// The credential lives in the identity provider only; it is never written
// into the student profile document.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	uid, _ := c.Get(middleware.ContextUserUID).(string)
	if uid == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.NewPassword) < 6 {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 6 characters")
	}

	update := (&auth.UserToUpdate{}).Password(req.NewPassword)
	if _, err := h.authClient.UpdateUser(c.Request().Context(), uid, update); err != nil {
		return fmt.Errorf("update password for %s: %w", uid, err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "password updated successfully"})
}
