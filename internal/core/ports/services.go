package ports

import (
	"context"

	"github.com/samirrijal/geosurvey/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishLocationsImported(ctx context.Context, result *domain.ImportResult) error
	PublishLocationChanged(ctx context.Context, loc *domain.Location) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeProjectChanges(ctx context.Context, projectID string, handler func(ctx context.Context, data []byte) error) (func() error, error)
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// TabularReader turns an uploaded sheet into import candidates.
type TabularReader interface {
	ReadCandidates(ctx context.Context, filename string, data []byte) ([]domain.ImportCandidate, error)
}

// TabularWriter renders export and template files.
type TabularWriter interface {
	WriteExport(format string, rows []domain.LocationExportRow) ([]byte, error)
	WriteTemplate(format string) ([]byte, error)
}
