package order

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/emrapi/internal/domain/encounter"
	"github.com/ehr/emrapi/internal/platform/auth"
)

// EncounterLoader loads the target encounter of a drug-order request.
type EncounterLoader interface {
	GetEncounter(ctx context.Context, id uuid.UUID) (*encounter.Encounter, error)
}

type Handler struct {
	svc        *EmrOrderService
	encounters EncounterLoader
}

func NewHandler(svc *EmrOrderService, encounters EncounterLoader) *Handler {
	return &Handler{svc: svc, encounters: encounters}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	writeGroup := api.Group("", auth.RequireRole("admin", "physician"))
	writeGroup.POST("/encounters/:id/drug-orders", h.SaveDrugOrders)
}

func (h *Handler) SaveDrugOrders(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var reqs []DrugOrderRequest
	if err := c.Bind(&reqs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(reqs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one drug order is required")
	}

	ctx := c.Request().Context()
	enc, err := h.encounters.GetEncounter(ctx, id)
	if err != nil {
		if errors.Is(err, encounter.ErrEncounterNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "encounter not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if enc.Voided {
		return echo.NewHTTPError(http.StatusConflict, "encounter is voided")
	}

	if err := h.svc.Save(ctx, reqs, enc); err != nil {
		var verrs validator.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			return echo.NewHTTPError(http.StatusBadRequest, FormatValidationError(err))
		case errors.Is(err, ErrDrugNotFound), errors.Is(err, ErrDrugRetired), errors.Is(err, ErrExpiresBeforeStart):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, enc.Orders)
}
