package ports

import (
	"context"

	"github.com/samirrijal/geosurvey/internal/core/domain"
)

// ProjectRepository persists survey projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	GetByCode(ctx context.Context, code string) (*domain.Project, error)
	List(ctx context.Context) ([]domain.Project, error)
}

// LocationRepository persists survey locations.
type LocationRepository interface {
	// ListByProject returns every location of a project ordered by creation time.
	ListByProject(ctx context.Context, projectID string) ([]domain.Location, error)
	GetByID(ctx context.Context, id string) (*domain.Location, error)
	Create(ctx context.Context, loc *domain.Location) error
	Update(ctx context.Context, loc *domain.Location) error

	// InsertMany writes all records or none of them and returns the number
	// inserted. Implementations must not leave a partial batch behind.
	InsertMany(ctx context.Context, locs []domain.NewLocation) (int, error)
}
