package order

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/emrapi/internal/domain/encounter"
)

type mockEncounters struct {
	encounters map[uuid.UUID]*encounter.Encounter
}

func (m *mockEncounters) GetEncounter(_ context.Context, id uuid.UUID) (*encounter.Encounter, error) {
	enc, ok := m.encounters[id]
	if !ok {
		return nil, encounter.ErrEncounterNotFound
	}
	return enc, nil
}

func newTestHandler() (*Handler, *mockSaver, *encounter.Encounter, *Drug, *echo.Echo) {
	mapper, drug := newTestMapper()
	saver := &mockSaver{}
	enc := encounterWithOrders(2)
	encs := &mockEncounters{encounters: map[uuid.UUID]*encounter.Encounter{enc.ID: enc}}
	h := NewHandler(NewEmrOrderService(mapper, saver, zerolog.Nop()), encs)
	return h, saver, enc, drug, echo.New()
}

func postOrders(e *echo.Echo, id, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/encounters/"+id+"/drug-orders", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c, rec
}

func TestHandler_SaveDrugOrders(t *testing.T) {
	h, saver, enc, drug, e := newTestHandler()

	body := `[{"drug_uuid":"` + drug.ID.String() + `","dose":1,"dose_units":"tablet"},{"drug_uuid":"` + drug.ID.String() + `"}]`
	c, rec := postOrders(e, enc.ID.String(), body)

	if err := h.SaveDrugOrders(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if len(enc.Orders) != 4 || saver.saves != 1 {
		t.Errorf("expected 4 orders saved once, got %d orders and %d saves", len(enc.Orders), saver.saves)
	}
}

func TestHandler_SaveDrugOrders_ValidationError(t *testing.T) {
	h, saver, enc, _, e := newTestHandler()

	c, _ := postOrders(e, enc.ID.String(), `[{"dose":1}]`)
	err := h.SaveDrugOrders(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if saver.saves != 0 {
		t.Error("expected nothing saved")
	}
}

func TestHandler_SaveDrugOrders_UnknownEncounter(t *testing.T) {
	h, _, _, drug, e := newTestHandler()

	c, _ := postOrders(e, uuid.NewString(), `[{"drug_uuid":"`+drug.ID.String()+`"}]`)
	err := h.SaveDrugOrders(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_SaveDrugOrders_EmptyBody(t *testing.T) {
	h, _, enc, _, e := newTestHandler()

	c, _ := postOrders(e, enc.ID.String(), `[]`)
	err := h.SaveDrugOrders(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_SaveDrugOrders_VoidedEncounter(t *testing.T) {
	h, _, enc, drug, e := newTestHandler()
	enc.Voided = true

	c, _ := postOrders(e, enc.ID.String(), `[{"drug_uuid":"`+drug.ID.String()+`"}]`)
	err := h.SaveDrugOrders(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}
