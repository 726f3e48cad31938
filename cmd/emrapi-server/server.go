package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ehr/emrapi/internal/config"
	"github.com/ehr/emrapi/internal/domain/adt"
	"github.com/ehr/emrapi/internal/domain/concept"
	"github.com/ehr/emrapi/internal/domain/disposition"
	"github.com/ehr/emrapi/internal/domain/encounter"
	"github.com/ehr/emrapi/internal/domain/location"
	"github.com/ehr/emrapi/internal/domain/order"
	"github.com/ehr/emrapi/internal/platform/auth"
	"github.com/ehr/emrapi/internal/platform/db"
	"github.com/ehr/emrapi/internal/platform/middleware"
	"github.com/ehr/emrapi/internal/platform/reporting"
)

const version = "0.1.0"

// app holds the services shared by the HTTP server and the query command.
type app struct {
	concepts   *concept.Service
	locations  *location.Service
	encounters *encounter.Service
	orders     *order.EmrOrderService
	evaluator  *adt.Evaluator
	queries    *reporting.VisitQueryService
	redis      *redis.Client
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// newApp wires the domain services. The disposition descriptor is read once
// from the default tenant's concept dictionary.
func newApp(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*app, error) {
	a := &app{}

	var conceptRepo concept.Repository = concept.NewRepo(pool)
	if cfg.RedisURL != "" {
		client, err := concept.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, concept cache disabled")
		} else {
			a.redis = client
			conceptRepo = concept.NewCachedRepository(conceptRepo, client, cfg.ConceptCacheTTL, logger)
			logger.Info().Dur("ttl", cfg.ConceptCacheTTL).Msg("concept cache enabled")
		}
	}
	a.concepts = concept.NewService(conceptRepo)
	a.locations = location.NewService(location.NewRepo(pool))

	var descriptor *disposition.Descriptor
	dispositions := disposition.NewService(a.concepts)
	err := db.WithTenantConn(ctx, pool, cfg.DefaultTenant, func(ctx context.Context) error {
		var err error
		descriptor, err = dispositions.GetDispositionDescriptor(ctx)
		return err
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("load disposition descriptor: %w", err)
	}

	consult, admission, err := cfg.EncounterTypes()
	if err != nil {
		a.close()
		return nil, err
	}
	a.evaluator, err = adt.NewEvaluator(adt.NewRepo(pool), descriptor, a.concepts, a.locations,
		adt.EncounterTypes{Consult: consult, Admission: admission}, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("build awaiting-admission evaluator: %w", err)
	}
	a.queries = reporting.NewVisitQueryService(logger)

	a.encounters = encounter.NewService(encounter.NewRepo(pool), logger)
	mapper := order.NewDrugOrderMapper(order.NewDrugRepo(pool))
	a.orders = order.NewEmrOrderService(mapper, a.encounters, logger)
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		logger := newLogger(nil, os.Stdout)
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	a, err := newApp(ctx, cfg, pool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise services")
	}
	defer a.close()

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Tenant-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		}))
	}

	// Tenant middleware
	e.Use(db.TenantMiddleware(pool, cfg.DefaultTenant))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}))

	encounter.NewHandler(a.encounters).RegisterRoutes(apiV1)
	order.NewHandler(a.orders, a.encounters).RegisterRoutes(apiV1)
	adt.NewHandler(a.evaluator, a.queries).RegisterRoutes(apiV1)
	reporting.NewHandler(pool).RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
		return err
	}
	return nil
}
