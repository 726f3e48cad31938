package reporting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type idSet map[uuid.UUID]struct{}

func newIDSet(ids []uuid.UUID) idSet {
	s := make(idSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s idSet) sorted() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

func (s idSet) intersect(other idSet) idSet {
	out := make(idSet)
	for id := range s {
		if _, ok := other[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// VisitIDSet is an unordered set of visit ids.
type VisitIDSet struct {
	ids idSet
}

func NewVisitIDSet(ids ...uuid.UUID) *VisitIDSet {
	return &VisitIDSet{ids: newIDSet(ids)}
}

func (s *VisitIDSet) Add(id uuid.UUID) {
	if s.ids == nil {
		s.ids = make(idSet)
	}
	s.ids[id] = struct{}{}
}

func (s *VisitIDSet) Contains(id uuid.UUID) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

func (s *VisitIDSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// Slice returns the members sorted by id bytes.
func (s *VisitIDSet) Slice() []uuid.UUID {
	if s == nil {
		return []uuid.UUID{}
	}
	return s.ids.sorted()
}

func (s *VisitIDSet) Intersect(other *VisitIDSet) *VisitIDSet {
	if s == nil || other == nil {
		return NewVisitIDSet()
	}
	return &VisitIDSet{ids: s.ids.intersect(other.ids)}
}

func (s *VisitIDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// Cohort is an unordered set of patient ids.
type Cohort struct {
	ids idSet
}

func NewCohort(patientIDs ...uuid.UUID) *Cohort {
	return &Cohort{ids: newIDSet(patientIDs)}
}

func (c *Cohort) Add(id uuid.UUID) {
	if c.ids == nil {
		c.ids = make(idSet)
	}
	c.ids[id] = struct{}{}
}

func (c *Cohort) Contains(id uuid.UUID) bool {
	if c == nil {
		return false
	}
	_, ok := c.ids[id]
	return ok
}

func (c *Cohort) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ids)
}

func (c *Cohort) Slice() []uuid.UUID {
	if c == nil {
		return []uuid.UUID{}
	}
	return c.ids.sorted()
}

func (c *Cohort) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Slice())
}

// EvaluationContext scopes a query evaluation. A nil BaseCohort or
// BaseVisits means no restriction on that axis.
type EvaluationContext struct {
	BaseCohort     *Cohort     `json:"base_cohort,omitempty"`
	BaseVisits     *VisitIDSet `json:"base_visits,omitempty"`
	EvaluationDate time.Time   `json:"evaluation_date"`
}

// VisitQuery is a named definition that evaluates to a set of visit ids.
type VisitQuery interface {
	Name() string
	Evaluate(ctx context.Context, ectx *EvaluationContext) (*VisitQueryResult, error)
}

// VisitQueryResult holds the visits matched by a query.
type VisitQueryResult struct {
	Query     VisitQuery         `json:"-"`
	QueryName string             `json:"query"`
	Context   *EvaluationContext `json:"context"`
	MemberIDs *VisitIDSet        `json:"member_ids"`
}

// NewVisitQueryResult returns an empty result for q under ectx.
func NewVisitQueryResult(q VisitQuery, ectx *EvaluationContext) *VisitQueryResult {
	return &VisitQueryResult{Query: q, QueryName: q.Name(), Context: ectx, MemberIDs: NewVisitIDSet()}
}

// VisitQueryService runs visit queries and enforces the base visit set.
type VisitQueryService struct {
	logger zerolog.Logger
	now    func() time.Time
}

func NewVisitQueryService(logger zerolog.Logger) *VisitQueryService {
	return &VisitQueryService{logger: logger, now: time.Now}
}

func (s *VisitQueryService) Evaluate(ctx context.Context, q VisitQuery, ectx *EvaluationContext) (*VisitQueryResult, error) {
	if ectx == nil {
		ectx = &EvaluationContext{}
	}
	if ectx.EvaluationDate.IsZero() {
		ectx.EvaluationDate = s.now()
	}

	start := time.Now()
	res, err := q.Evaluate(ctx, ectx)
	if err != nil {
		s.logger.Error().Err(err).Str("query", q.Name()).Msg("visit query failed")
		return nil, fmt.Errorf("evaluate %s: %w", q.Name(), err)
	}
	if res == nil {
		res = NewVisitQueryResult(q, ectx)
	}
	if res.MemberIDs == nil {
		res.MemberIDs = NewVisitIDSet()
	}
	if ectx.BaseVisits != nil {
		res.MemberIDs = res.MemberIDs.Intersect(ectx.BaseVisits)
	}
	res.Query = q
	res.QueryName = q.Name()
	res.Context = ectx

	s.logger.Info().
		Str("query", q.Name()).
		Int("size", res.MemberIDs.Len()).
		Dur("latency", time.Since(start)).
		Msg("visit query evaluated")
	return res, nil
}
