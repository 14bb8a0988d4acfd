package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runWithRole(t *testing.T, mw echo.MiddlewareFunc, uid, role, paramID string) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if uid != "" {
		c.Set(ContextUserUID, uid)
	}
	if role != "" {
		c.Set(ContextUserRole, role)
	}
	if paramID != "" {
		c.SetParamNames("id")
		c.SetParamValues(paramID)
	}

	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	return mw(next)(c)
}

func wantHTTPCode(t *testing.T, err error, code int) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError with code %d, got %T: %v", code, err, err)
	}
	if he.Code != code {
		t.Errorf("code = %d; want %d", he.Code, code)
	}
}

func TestRequireStaff(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		wantCode int // 0 means allowed
	}{
		{"admin allowed", "admin", 0},
		{"staff allowed", "staff", 0},
		{"student denied", "student", http.StatusForbidden},
		{"no role denied", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runWithRole(t, RequireStaff(), "uid-1", tt.role, "")
			if tt.wantCode == 0 {
				if err != nil {
					t.Errorf("expected access, got %v", err)
				}
				return
			}
			wantHTTPCode(t, err, tt.wantCode)
		})
	}
}

func TestRequireSelfOrStaff(t *testing.T) {
	tests := []struct {
		name     string
		uid      string
		role     string
		paramID  string
		wantCode int
	}{
		{"own record allowed", "student-1", "student", "student-1", 0},
		{"other student denied", "student-1", "student", "student-2", http.StatusForbidden},
		{"staff can view anyone", "staff-1", "staff", "student-2", 0},
		{"admin can view anyone", "admin-1", "admin", "student-2", 0},
		{"anonymous denied", "", "", "student-1", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runWithRole(t, RequireSelfOrStaff(), tt.uid, tt.role, tt.paramID)
			if tt.wantCode == 0 {
				if err != nil {
					t.Errorf("expected access, got %v", err)
				}
				return
			}
			wantHTTPCode(t, err, tt.wantCode)
		})
	}
}
