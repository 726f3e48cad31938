package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/ehr/emrapi/internal/platform/auth"
	"github.com/ehr/emrapi/internal/platform/db"
)

// MeasureDefinition defines a reporting measure with its SQL query.
type MeasureDefinition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	SQL         string   `json:"sql"`
	Parameters  []string `json:"parameters"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
	Parameters  map[string]string        `json:"parameters,omitempty"`
}

// PredefinedMeasures is the list of available reporting measures.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "visit-count",
		Name:        "Visit Count",
		Description: "Total number of non-voided visits and how many are still active",
		SQL: `SELECT COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN date_stopped IS NULL THEN 1 ELSE 0 END), 0) AS active_count
			FROM visit WHERE voided = FALSE`,
		Parameters: []string{},
	},
	{
		ID:          "encounter-volume-by-type",
		Name:        "Encounter Volume by Type",
		Description: "Number of non-voided encounters grouped by encounter type",
		SQL: `SELECT COALESCE(et.name, 'unknown') AS encounter_type, COUNT(*) AS total
			FROM encounter e LEFT JOIN encounter_type et ON et.id = e.encounter_type_id
			WHERE e.voided = FALSE
			GROUP BY et.name ORDER BY total DESC`,
		Parameters: []string{},
	},
	{
		ID:          "drug-order-status",
		Name:        "Drug Order Status",
		Description: "Count of drug orders by order action",
		SQL: `SELECT action, COUNT(*) AS total FROM orders
			WHERE order_type = 'drug' AND voided = FALSE
			GROUP BY action ORDER BY total DESC`,
		Parameters: []string{},
	},
	{
		ID:          "disposition-summary",
		Name:        "Disposition Summary",
		Description: "Count of recorded dispositions by outcome",
		SQL: `SELECT COALESCE(c.name, 'unknown') AS disposition, COUNT(*) AS total
			FROM obs o
			JOIN concept_reference_map m ON m.concept_id = o.concept_id
				AND m.source = 'org.openmrs.module.emrapi' AND m.code = 'Disposition'
			LEFT JOIN concept c ON c.id = o.value_coded
			WHERE o.voided = FALSE
			GROUP BY c.name ORDER BY total DESC`,
		Parameters: []string{},
	},
}

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	pool *pgxpool.Pool
}

// NewHandler creates a new reporting handler.
func NewHandler(pool *pgxpool.Pool) *Handler {
	return &Handler{pool: pool}
}

// RegisterRoutes registers the reporting API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	reportGroup := api.Group("/reports", auth.RequireRole("admin", "physician"))
	reportGroup.GET("/measures", h.ListMeasures)
	reportGroup.GET("/measures/:id/evaluate", h.EvaluateMeasure)
}

// ListMeasures returns all available measure definitions.
func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

// EvaluateMeasure executes a measure's SQL and returns the results.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	params := map[string]string{}
	for _, p := range measure.Parameters {
		if v := c.QueryParam(p); v != "" {
			params[p] = v
		}
	}

	results, err := h.executeSQL(c.Request().Context(), measure.SQL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}

	return c.JSON(http.StatusOK, MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: time.Now(),
		Results:     results,
		Parameters:  params,
	})
}

// executeSQL runs a SQL query on the tenant connection when one is bound to
// ctx, and returns results as a slice of maps.
func (h *Handler) executeSQL(ctx context.Context, sql string) ([]map[string]interface{}, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if conn := db.ConnFromContext(ctx); conn != nil {
		rows, err = conn.Query(ctx, sql)
	} else if h.pool != nil {
		rows, err = h.pool.Query(ctx, sql)
	} else {
		return nil, fmt.Errorf("no database connection")
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	results := []map[string]interface{}{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[fd.Name] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}
