package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runWithRoles(roles []string, mw echo.MiddlewareFunc) error {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(context.Background(), "u1", roles))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return mw(okHandler)(c)
}

func TestRequireRole_Allowed(t *testing.T) {
	if err := runWithRoles([]string{"nurse"}, RequireRole("physician", "nurse")); err != nil {
		t.Errorf("expected nurse to pass, got %v", err)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	err := runWithRoles([]string{"registrar"}, RequireRole("physician"))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestRequireRole_NoRoles(t *testing.T) {
	if err := runWithRoles(nil, RequireRole("physician")); err == nil {
		t.Error("expected anonymous request to be denied")
	}
}

func TestRequireRole_AdminBypass(t *testing.T) {
	if err := runWithRoles([]string{"admin"}, RequireRole("physician")); err != nil {
		t.Errorf("expected admin to pass, got %v", err)
	}
}

func TestUserIDFromContext(t *testing.T) {
	ctx := WithUser(context.Background(), "u42", nil)
	if got := UserIDFromContext(ctx); got != "u42" {
		t.Errorf("expected u42, got %s", got)
	}
	if got := UserIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty user id, got %s", got)
	}
}
