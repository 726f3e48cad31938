package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/emrapi/internal/config"
	"github.com/ehr/emrapi/internal/platform/db"
	"github.com/ehr/emrapi/internal/platform/reporting"
)

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Evaluate reporting queries",
	}

	awaitingCmd := &cobra.Command{
		Use:   "awaiting-admission",
		Short: "List visits whose latest consult disposition is awaiting admission",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := awaitingOptionsFromFlags(cmd)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg, os.Stderr).Level(levelFromFlags(cmd))

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			a, err := newApp(ctx, cfg, pool, logger)
			if err != nil {
				return err
			}
			defer a.close()

			tenant := opts.tenant
			if tenant == "" {
				tenant = cfg.DefaultTenant
			}

			var result *reporting.VisitQueryResult
			err = db.WithTenantConn(ctx, pool, tenant, func(ctx context.Context) error {
				q := a.evaluator.Query(opts.location, opts.activeOnly)
				var err error
				result, err = a.queries.Evaluate(ctx, q, opts.evaluationContext())
				return err
			})
			if err != nil {
				return err
			}
			return writeResult(os.Stdout, result)
		},
	}
	awaitingCmd.Flags().String("location", "", "Restrict to visits at this location (uuid)")
	awaitingCmd.Flags().StringSlice("patient", nil, "Restrict to these patients (uuid, repeatable)")
	awaitingCmd.Flags().StringSlice("visit", nil, "Restrict to these visits (uuid, repeatable)")
	awaitingCmd.Flags().Bool("active-only", false, "Exclude stopped visits")
	awaitingCmd.Flags().String("tenant", "", "Tenant identifier (default: DEFAULT_TENANT)")
	awaitingCmd.Flags().String("date", "", "Evaluation date, RFC 3339 (default: now)")
	awaitingCmd.Flags().Bool("verbose", false, "Log query evaluation")

	cmd.AddCommand(awaitingCmd)
	return cmd
}

// levelFromFlags keeps command output clean unless --verbose is set.
func levelFromFlags(cmd *cobra.Command) zerolog.Level {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		return zerolog.DebugLevel
	}
	return zerolog.WarnLevel
}

type awaitingOptions struct {
	location   *uuid.UUID
	patients   *reporting.Cohort
	visits     *reporting.VisitIDSet
	activeOnly bool
	tenant     string
	date       time.Time
}

func (o awaitingOptions) evaluationContext() *reporting.EvaluationContext {
	return &reporting.EvaluationContext{
		BaseCohort:     o.patients,
		BaseVisits:     o.visits,
		EvaluationDate: o.date,
	}
}

func awaitingOptionsFromFlags(cmd *cobra.Command) (awaitingOptions, error) {
	var opts awaitingOptions

	if raw, _ := cmd.Flags().GetString("location"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return opts, fmt.Errorf("--location: %w", err)
		}
		opts.location = &id
	}

	if cmd.Flags().Changed("patient") {
		raw, _ := cmd.Flags().GetStringSlice("patient")
		ids, err := parseUUIDs("--patient", raw)
		if err != nil {
			return opts, err
		}
		opts.patients = reporting.NewCohort(ids...)
	}

	if cmd.Flags().Changed("visit") {
		raw, _ := cmd.Flags().GetStringSlice("visit")
		ids, err := parseUUIDs("--visit", raw)
		if err != nil {
			return opts, err
		}
		opts.visits = reporting.NewVisitIDSet(ids...)
	}

	if raw, _ := cmd.Flags().GetString("date"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return opts, fmt.Errorf("--date: %w", err)
		}
		opts.date = t
	}

	opts.activeOnly, _ = cmd.Flags().GetBool("active-only")
	opts.tenant, _ = cmd.Flags().GetString("tenant")
	return opts, nil
}

func parseUUIDs(flag string, raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", flag, s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type queryOutput struct {
	Query          string      `json:"query"`
	EvaluationDate time.Time   `json:"evaluation_date"`
	Count          int         `json:"count"`
	VisitIDs       []uuid.UUID `json:"visit_ids"`
}

func writeResult(w io.Writer, result *reporting.VisitQueryResult) error {
	out := queryOutput{
		Query:    result.QueryName,
		Count:    result.MemberIDs.Len(),
		VisitIDs: result.MemberIDs.Slice(),
	}
	if result.Context != nil {
		out.EvaluationDate = result.Context.EvaluationDate
	}
	if out.VisitIDs == nil {
		out.VisitIDs = []uuid.UUID{}
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
