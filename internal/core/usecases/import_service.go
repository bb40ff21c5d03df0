package usecases

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/geosurvey/internal/core/domain"
	"github.com/samirrijal/geosurvey/internal/core/ports"
	"github.com/samirrijal/geosurvey/internal/pkg/metrics"
)

// ImportService runs tabular imports, one pipeline per project.
type ImportService struct {
	projects  ports.ProjectRepository
	locations ports.LocationRepository
	reader    ports.TabularReader
	cache     ports.CacheService
	publisher ports.EventPublisher

	mu        sync.Mutex
	pipelines map[string]*ImportPipeline
}

// NewImportService creates a new ImportService. cache and publisher may be nil.
func NewImportService(
	projects ports.ProjectRepository,
	locations ports.LocationRepository,
	reader ports.TabularReader,
	cache ports.CacheService,
	publisher ports.EventPublisher,
) *ImportService {
	return &ImportService{
		projects:  projects,
		locations: locations,
		reader:    reader,
		cache:     cache,
		publisher: publisher,
		pipelines: make(map[string]*ImportPipeline),
	}
}

// ImportPreview is a parsed but unwritten upload.
type ImportPreview struct {
	Candidates []domain.ImportCandidate `json:"candidates"`
	Valid      bool                     `json:"valid"`
	Error      *domain.ImportError      `json:"error,omitempty"`
}

// Pipeline returns the project's pipeline, creating it on first use.
func (s *ImportService) Pipeline(projectID string) *ImportPipeline {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pipelines[projectID]
	if !ok {
		p = NewImportPipeline(s.locations)
		s.pipelines[projectID] = p
	}
	return p
}

// Processing reports whether projectID has a batch in flight.
func (s *ImportService) Processing(projectID string) bool {
	s.mu.Lock()
	p, ok := s.pipelines[projectID]
	s.mu.Unlock()
	return ok && p.Processing()
}

// Import validates and commits candidates for projectID as one batch.
func (s *ImportService) Import(ctx context.Context, projectID string, candidates []domain.ImportCandidate) (*domain.ImportResult, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	active := project.Active()

	p := s.Pipeline(active.ID)
	if err := p.Stage(candidates); err != nil {
		metrics.ImportBatches.WithLabelValues("busy").Inc()
		return nil, err
	}

	start := time.Now()
	n, err := p.Submit(ctx, active)
	metrics.ImportDuration.Observe(time.Since(start).Seconds())

	log := slog.Default().With("project_id", active.ID, "rows", len(candidates))
	if err != nil {
		metrics.ImportBatches.WithLabelValues(outcomeLabel(err)).Inc()
		log.Warn("import rejected", "error", err)
		return nil, err
	}

	metrics.ImportBatches.WithLabelValues("committed").Inc()
	metrics.ImportRecordsInserted.Add(float64(n))
	log.Info("import committed", "inserted", n)

	result := &domain.ImportResult{ProjectID: active.ID, Inserted: n, At: time.Now().UTC()}
	s.afterCommit(ctx, result)
	return result, nil
}

// ImportFile parses an uploaded .csv or .xlsx file and imports its rows.
func (s *ImportService) ImportFile(ctx context.Context, projectID, filename string, data []byte) (*domain.ImportResult, error) {
	candidates, err := s.reader.ReadCandidates(ctx, filename, data)
	if err != nil {
		return nil, err
	}
	return s.Import(ctx, projectID, candidates)
}

// Preview parses an upload and validates it without writing anything.
func (s *ImportService) Preview(ctx context.Context, projectID, filename string, data []byte) (*ImportPreview, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.reader.ReadCandidates(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	preview := &ImportPreview{Candidates: candidates, Valid: len(candidates) > 0}
	if _, err := ValidateCandidates(project.Active(), candidates); err != nil {
		preview.Valid = false
		var ie *domain.ImportError
		if errors.As(err, &ie) {
			preview.Error = ie
		}
	}
	return preview, nil
}

func (s *ImportService) afterCommit(ctx context.Context, result *domain.ImportResult) {
	if s.cache != nil {
		if err := s.cache.Delete(ctx, mapCacheKey(result.ProjectID)); err != nil {
			slog.Warn("map cache invalidation failed", "project_id", result.ProjectID, "error", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishLocationsImported(ctx, result); err != nil {
			slog.Warn("publish import event failed", "project_id", result.ProjectID, "error", err)
		}
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrImportFailed):
		return "failed"
	case errors.Is(err, domain.ErrEmptyBatch):
		return "empty"
	case errors.Is(err, domain.ErrImportInProgress):
		return "busy"
	default:
		return "rejected"
	}
}
