package db

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestPoolStats_JSON(t *testing.T) {
	stats := PoolStats{
		TotalConns:      4,
		IdleConns:       3,
		AcquiredConns:   1,
		MaxConns:        20,
		AcquireCount:    50,
		AcquireDuration: "250ms",
		Healthy:         true,
	}

	b, err := json.Marshal(stats)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"total_conns", "idle_conns", "acquired_conns", "max_conns", "acquire_count", "acquire_duration", "healthy"} {
		if _, ok := m[key]; !ok {
			t.Errorf("expected key %q in pool stats JSON", key)
		}
	}
}

func TestTenantMiddleware_RejectsInvalidTenant(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "bad tenant")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := TenantMiddleware(nil, "default")(func(c echo.Context) error {
		t.Fatal("handler must not run for an invalid tenant")
		return nil
	})
	err := h(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestSchemaVersion_NoConnection(t *testing.T) {
	if _, err := SchemaVersion(context.Background()); err == nil {
		t.Fatal("expected error without a tenant connection")
	}
}
