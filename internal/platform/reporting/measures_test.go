package reporting

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestPredefinedMeasures(t *testing.T) {
	expectedIDs := []string{
		"visit-count",
		"encounter-volume-by-type",
		"drug-order-status",
		"disposition-summary",
	}
	if len(PredefinedMeasures) != len(expectedIDs) {
		t.Fatalf("expected %d predefined measures, got %d", len(expectedIDs), len(PredefinedMeasures))
	}
	for i, expectedID := range expectedIDs {
		if PredefinedMeasures[i].ID != expectedID {
			t.Errorf("expected measure[%d].ID = %s, got %s", i, expectedID, PredefinedMeasures[i].ID)
		}
	}
}

func TestPredefinedMeasures_HaveSQL(t *testing.T) {
	for _, m := range PredefinedMeasures {
		if m.SQL == "" {
			t.Errorf("measure %s has empty SQL", m.ID)
		}
		if m.Name == "" {
			t.Errorf("measure %s has empty name", m.ID)
		}
		if m.Description == "" {
			t.Errorf("measure %s has empty description", m.ID)
		}
	}
}

func TestFindMeasure(t *testing.T) {
	m := FindMeasure("visit-count")
	if m == nil {
		t.Fatal("expected to find visit-count measure")
	}
	if m.Name != "Visit Count" {
		t.Errorf("expected 'Visit Count', got %s", m.Name)
	}
	if FindMeasure("nonexistent") != nil {
		t.Error("expected nil for nonexistent measure")
	}
}

func TestHandler_ListMeasures(t *testing.T) {
	h := NewHandler(nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/measures", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListMeasures(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []MeasureDefinition
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(got) != len(PredefinedMeasures) {
		t.Errorf("expected %d measures, got %d", len(PredefinedMeasures), len(got))
	}
}

func TestHandler_EvaluateMeasure_NotFound(t *testing.T) {
	h := NewHandler(nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("nonexistent")

	err := h.EvaluateMeasure(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_EvaluateMeasure_NoDatabase(t *testing.T) {
	h := NewHandler(nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("visit-count")

	err := h.EvaluateMeasure(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %v", err)
	}
}
