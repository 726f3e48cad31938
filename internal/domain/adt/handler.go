package adt

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/emrapi/internal/domain/disposition"
	"github.com/ehr/emrapi/internal/platform/auth"
	"github.com/ehr/emrapi/internal/platform/reporting"
	"github.com/ehr/emrapi/pkg/pagination"
)

type Handler struct {
	evaluator *Evaluator
	queries   *reporting.VisitQueryService
}

func NewHandler(evaluator *Evaluator, queries *reporting.VisitQueryService) *Handler {
	return &Handler{evaluator: evaluator, queries: queries}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("/adt", auth.RequireRole("admin", "physician", "nurse"))
	readGroup.GET("/awaiting-admission", h.AwaitingAdmission)
}

// AwaitingAdmission lists the ids of visits awaiting admission. Repeated
// patient and visit parameters restrict the result to those patients and
// visits.
func (h *Handler) AwaitingAdmission(c echo.Context) error {
	q, ectx, err := parseRequest(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.queries.Evaluate(c.Request().Context(), h.evaluator.Query(q.Location, q.ActiveOnly), ectx)
	if err != nil {
		if errors.Is(err, disposition.ErrDispositionNotConfigured) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	pg := pagination.FromContext(c)
	ids := res.MemberIDs.Slice()
	resp := pagination.NewResponse(pagination.Page(ids, pg), len(ids), pg.Limit, pg.Offset)
	resp.Links = pg.Links(c.Request().URL.Path, c.QueryParams(), len(ids))
	return c.JSON(http.StatusOK, resp)
}

func parseRequest(c echo.Context) (*AwaitingAdmissionVisitQuery, *reporting.EvaluationContext, error) {
	q := &AwaitingAdmissionVisitQuery{}
	if raw := c.QueryParam("location"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, nil, errors.New("invalid location")
		}
		q.Location = &id
	}
	if raw := c.QueryParam("active_only"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, nil, errors.New("invalid active_only")
		}
		q.ActiveOnly = v
	}

	ectx := &reporting.EvaluationContext{}
	params := c.QueryParams()
	if raw, ok := params["patient"]; ok {
		ectx.BaseCohort = reporting.NewCohort()
		for _, s := range raw {
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, nil, errors.New("invalid patient")
			}
			ectx.BaseCohort.Add(id)
		}
	}
	if raw, ok := params["visit"]; ok {
		ectx.BaseVisits = reporting.NewVisitIDSet()
		for _, s := range raw {
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, nil, errors.New("invalid visit")
			}
			ectx.BaseVisits.Add(id)
		}
	}
	return q, ectx, nil
}
