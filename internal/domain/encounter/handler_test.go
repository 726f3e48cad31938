package encounter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *mockRepo, *echo.Echo) {
	svc, repo := newTestService()
	return NewHandler(svc), repo, echo.New()
}

func TestHandler_CreateVisit(t *testing.T) {
	h, _, e := newTestHandler()

	body := `{"patient_id":"` + uuid.New().String() + `","start_datetime":"2014-02-02T09:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/visits", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateVisit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_SaveEncounter(t *testing.T) {
	h, repo, e := newTestHandler()

	conceptID := uuid.New()
	body := `{"patient_id":"` + uuid.New().String() + `","encounter_type_id":"` + uuid.New().String() +
		`","encounter_datetime":"2014-02-02T10:00:00Z","obs":[{"concept_id":"` + conceptID.String() + `"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/encounters", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.SaveEncounter(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var got struct {
		ID  uuid.UUID `json:"id"`
		Obs []struct {
			ConceptID uuid.UUID `json:"concept_id"`
		} `json:"obs"`
	}
	json.Unmarshal(rec.Body.Bytes(), &got)
	if _, ok := repo.encounters[got.ID]; !ok {
		t.Error("expected encounter to be persisted")
	}
	if len(got.Obs) != 1 || got.Obs[0].ConceptID != conceptID {
		t.Errorf("unexpected obs in response: %+v", got.Obs)
	}
}

func TestHandler_SaveEncounter_KeepsExistingOrders(t *testing.T) {
	h, repo, e := newTestHandler()

	existing := &Encounter{ID: uuid.New(), PatientID: uuid.New(), EncounterTypeID: uuid.New()}
	existing.AddOrder(&DrugOrder{ID: uuid.New(), DrugID: uuid.New()})
	repo.encounters[existing.ID] = existing

	body := `{"id":"` + existing.ID.String() + `","patient_id":"` + existing.PatientID.String() +
		`","encounter_type_id":"` + existing.EncounterTypeID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/encounters", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.SaveEncounter(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(repo.encounters[existing.ID].Orders); n != 1 {
		t.Errorf("expected existing order to survive resave, got %d orders", n)
	}
}

func TestHandler_SaveEncounter_BadRequest(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/encounters", strings.NewReader(`{"encounter_type_id":"`+uuid.New().String()+`"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.SaveEncounter(c)
	if err == nil {
		t.Fatal("expected error for missing patient_id")
	}
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_GetEncounter_NotFound(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.GetEncounter(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_GetEncounter_InvalidID(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	if err := h.GetEncounter(c); err == nil {
		t.Error("expected error for invalid id")
	}
}

func TestHandler_VoidEncounter(t *testing.T) {
	h, repo, e := newTestHandler()

	enc := &Encounter{ID: uuid.New(), PatientID: uuid.New(), EncounterTypeID: uuid.New()}
	repo.encounters[enc.ID] = enc

	req := httptest.NewRequest(http.MethodDelete, "/?reason=duplicate", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(enc.ID.String())

	if err := h.VoidEncounter(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if !enc.Voided || *enc.VoidReason != "duplicate" {
		t.Errorf("expected encounter voided with reason duplicate")
	}
}
