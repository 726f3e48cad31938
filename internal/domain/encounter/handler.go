package encounter

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/emrapi/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	readGroup.GET("/visits/:id", h.GetVisit)
	readGroup.GET("/encounters/:id", h.GetEncounter)

	writeGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	writeGroup.POST("/visits", h.CreateVisit)
	writeGroup.POST("/encounters", h.SaveEncounter)
	writeGroup.DELETE("/encounters/:id", h.VoidEncounter)
}

func (h *Handler) CreateVisit(c echo.Context) error {
	var v Visit
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateVisit(c.Request().Context(), &v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) GetVisit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.GetVisit(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrVisitNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "visit not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, v)
}

// encounterRequest is the write shape of an encounter. Orders are added
// through the drug-order endpoint, not here.
type encounterRequest struct {
	ID                uuid.UUID      `json:"id"`
	VisitID           *uuid.UUID     `json:"visit_id"`
	PatientID         uuid.UUID      `json:"patient_id"`
	EncounterTypeID   uuid.UUID      `json:"encounter_type_id"`
	EncounterDatetime time.Time      `json:"encounter_datetime"`
	LocationID        *uuid.UUID     `json:"location_id"`
	Obs               []*Observation `json:"obs"`
}

func (h *Handler) SaveEncounter(c echo.Context) error {
	var req encounterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	enc := &Encounter{
		ID:                req.ID,
		VisitID:           req.VisitID,
		PatientID:         req.PatientID,
		EncounterTypeID:   req.EncounterTypeID,
		EncounterDatetime: req.EncounterDatetime,
		LocationID:        req.LocationID,
		Obs:               req.Obs,
	}
	if enc.ID != uuid.Nil {
		existing, err := h.svc.GetEncounter(c.Request().Context(), enc.ID)
		if err == nil {
			enc.Orders = existing.Orders
		} else if !errors.Is(err, ErrEncounterNotFound) {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	if err := h.svc.SaveEncounter(c.Request().Context(), enc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, enc)
}

func (h *Handler) GetEncounter(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	enc, err := h.svc.GetEncounter(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrEncounterNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "encounter not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, enc)
}

func (h *Handler) VoidEncounter(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	reason := c.QueryParam("reason")
	if reason == "" {
		reason = "voided via api"
	}
	if err := h.svc.VoidEncounter(c.Request().Context(), id, reason); err != nil {
		if errors.Is(err, ErrEncounterNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "encounter not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
