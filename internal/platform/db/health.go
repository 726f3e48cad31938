package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats is the JSON view of pgxpool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// SchemaVersion returns the highest migration applied to the tenant schema
// bound to ctx, or 0 when nothing has been applied.
func SchemaVersion(ctx context.Context) (int, error) {
	conn := ConnFromContext(ctx)
	if conn == nil {
		return 0, errNoConn
	}
	var v int
	err := conn.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM _migrations`).Scan(&v)
	return v, err
}

// HealthHandler pings the database and, when the tenant middleware ran,
// reports the tenant's schema version. A tenant schema that cannot be read
// counts as unhealthy.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		stats := GetPoolStats(pool)
		body := map[string]interface{}{
			"tenant": TenantFromContext(ctx),
			"pool":   stats,
		}

		err := pool.Ping(ctx)
		if err == nil && ConnFromContext(ctx) != nil {
			var version int
			version, err = SchemaVersion(ctx)
			body["schema_version"] = version
		}
		if err != nil {
			stats.Healthy = false
			body["status"] = "unhealthy"
			body["error"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, body)
		}

		body["status"] = "healthy"
		return c.JSON(http.StatusOK, body)
	}
}
