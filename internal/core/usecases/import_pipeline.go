package usecases

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/geosurvey/internal/core/domain"
	"github.com/samirrijal/geosurvey/internal/core/ports"
	"github.com/samirrijal/geosurvey/internal/pkg/telemetry"
)

// PipelineState is the lifecycle position of an ImportPipeline.
type PipelineState int32

const (
	StateIdle PipelineState = iota
	StateValidating
	StateCommitting
	StateRejected
)

func (s PipelineState) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateCommitting:
		return "committing"
	case StateRejected:
		return "rejected"
	default:
		return "idle"
	}
}

// Column names used in ImportError.Field.
const (
	FieldProjectCode  = "project_code"
	FieldLocationName = "location_name"
	FieldX            = "x"
	FieldY            = "y"
)

// ImportPipeline validates a staged batch of candidates and commits it with a
// single bulk write. Any invalid row rejects the whole batch.
type ImportPipeline struct {
	locations ports.LocationRepository

	mu      sync.Mutex
	pending []domain.ImportCandidate

	state      atomic.Int32
	processing atomic.Bool
}

// NewImportPipeline creates an idle pipeline writing through locations.
func NewImportPipeline(locations ports.LocationRepository) *ImportPipeline {
	return &ImportPipeline{locations: locations}
}

// State returns the current lifecycle state.
func (p *ImportPipeline) State() PipelineState {
	return PipelineState(p.state.Load())
}

// Processing reports whether a batch is being validated or committed.
func (p *ImportPipeline) Processing() bool {
	return p.processing.Load()
}

// Pending returns the number of staged candidates.
func (p *ImportPipeline) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Stage replaces the pending list. It fails while a batch is in flight or
// another batch is already staged.
func (p *ImportPipeline) Stage(candidates []domain.ImportCandidate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.processing.Load() || len(p.pending) > 0 {
		return domain.ErrImportInProgress
	}
	p.pending = append([]domain.ImportCandidate(nil), candidates...)
	return nil
}

// Submit validates the staged batch against active and, if every row is valid,
// writes it with one InsertMany call. Rows are stamped with active.ID.
// The pending list is cleared on every outcome.
func (p *ImportPipeline) Submit(ctx context.Context, active domain.ActiveProject) (int, error) {
	if !p.processing.CompareAndSwap(false, true) {
		return 0, domain.ErrImportInProgress
	}
	defer func() {
		p.mu.Lock()
		p.pending = nil
		p.mu.Unlock()
		p.state.Store(int32(StateIdle))
		p.processing.Store(false)
	}()

	p.mu.Lock()
	batch := p.pending
	p.mu.Unlock()

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanImportSubmit, trace.WithAttributes(
		attribute.String(telemetry.AttrProjectID, active.ID),
		attribute.Int(telemetry.AttrRows, len(batch)),
	))
	defer span.End()

	if len(batch) == 0 {
		span.SetAttributes(attribute.String(telemetry.AttrOutcome, "empty"))
		return 0, domain.ErrEmptyBatch
	}

	p.state.Store(int32(StateValidating))
	records, err := ValidateCandidates(active, batch)
	if err != nil {
		p.state.Store(int32(StateRejected))
		span.SetAttributes(attribute.String(telemetry.AttrOutcome, "rejected"))
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	p.state.Store(int32(StateCommitting))
	n, err := p.commit(ctx, records)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bulk insert failed")
		return 0, fmt.Errorf("%w: %w", domain.ErrImportFailed, err)
	}
	span.SetAttributes(attribute.String(telemetry.AttrOutcome, "committed"))
	return n, nil
}

// commit runs the bulk write detached from the caller's cancellation: once
// submitted, a batch either lands whole or fails in the store.
func (p *ImportPipeline) commit(ctx context.Context, records []domain.NewLocation) (int, error) {
	ctx, span := telemetry.Tracer().Start(context.WithoutCancel(ctx), telemetry.SpanImportCommit)
	defer span.End()
	return p.locations.InsertMany(ctx, records)
}

// ValidateCandidates checks candidates in input order and stops at the first
// invalid row. On success every record carries active.ID as its project.
func ValidateCandidates(active domain.ActiveProject, candidates []domain.ImportCandidate) ([]domain.NewLocation, error) {
	records := make([]domain.NewLocation, 0, len(candidates))
	for _, c := range candidates {
		rec, err := validateCandidate(active, c)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func validateCandidate(active domain.ActiveProject, c domain.ImportCandidate) (domain.NewLocation, error) {
	if c.ProjectCode != active.Code {
		return domain.NewLocation{}, &domain.ImportError{
			Row: c.Row, Field: FieldProjectCode, Value: c.ProjectCode, Err: domain.ErrInvalidProjectCode,
		}
	}

	name := strings.TrimSpace(c.LocationName)
	if name == "" {
		return domain.NewLocation{}, &domain.ImportError{
			Row: c.Row, Field: FieldLocationName, Value: c.LocationName, Err: domain.ErrMissingOrMalformedField,
		}
	}

	x, err := parseCoordinate(c.Row, FieldX, c.X)
	if err != nil {
		return domain.NewLocation{}, err
	}
	y, err := parseCoordinate(c.Row, FieldY, c.Y)
	if err != nil {
		return domain.NewLocation{}, err
	}

	var remarks *string
	if r := strings.TrimSpace(c.Remarks); r != "" {
		remarks = &r
	}

	return domain.NewLocation{
		ProjectID: active.ID,
		Name:      name,
		X:         x,
		Y:         y,
		Remarks:   remarks,
	}, nil
}

func parseCoordinate(row int, field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &domain.ImportError{Row: row, Field: field, Value: raw, Err: domain.ErrMissingOrMalformedField}
	}
	return v, nil
}
