// Package memory is an in-process store used by tests and the dev server.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/geosurvey/internal/core/domain"
)

// Store implements ports.ProjectRepository and ports.LocationRepository.
type Store struct {
	mu        sync.RWMutex
	projects  map[string]domain.Project
	locations map[string]domain.Location

	// FailInsert, when set, makes InsertMany fail without writing.
	FailInsert error
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		projects:  make(map[string]domain.Project),
		locations: make(map[string]domain.Location),
	}
}

// Projects returns the project view of the store.
func (s *Store) Projects() *ProjectRepo { return &ProjectRepo{s: s} }

// Locations returns the location view of the store.
func (s *Store) Locations() *LocationRepo { return &LocationRepo{s: s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// ProjectRepo implements ports.ProjectRepository.
type ProjectRepo struct{ s *Store }

func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.projects {
		if existing.Code == p.Code {
			return fmt.Errorf("%w: %q", domain.ErrDuplicateProject, p.Code)
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	r.s.projects[p.ID] = *p
	return nil
}

func (r *ProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (r *ProjectRepo) GetByCode(ctx context.Context, code string) (*domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.projects {
		if p.Code == code {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *ProjectRepo) List(ctx context.Context) ([]domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Project, 0, len(r.s.projects))
	for _, p := range r.s.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// LocationRepo implements ports.LocationRepository.
type LocationRepo struct{ s *Store }

func (r *LocationRepo) ListByProject(ctx context.Context, projectID string) ([]domain.Location, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Location
	for _, l := range r.s.locations {
		if l.ProjectID == projectID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *LocationRepo) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	l, ok := r.s.locations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &l, nil
}

func (r *LocationRepo) Create(ctx context.Context, loc *domain.Location) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.projects[loc.ProjectID]; !ok {
		return fmt.Errorf("project %s: %w", loc.ProjectID, domain.ErrNotFound)
	}
	loc.ID = uuid.NewString()
	loc.CreatedAt = time.Now().UTC()
	r.s.locations[loc.ID] = *loc
	return nil
}

func (r *LocationRepo) Update(ctx context.Context, loc *domain.Location) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.locations[loc.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.locations[loc.ID] = *loc
	return nil
}

// InsertMany appends every record under a single lock, or none of them.
func (r *LocationRepo) InsertMany(ctx context.Context, locs []domain.NewLocation) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.FailInsert != nil {
		return 0, r.s.FailInsert
	}
	for _, l := range locs {
		if _, ok := r.s.projects[l.ProjectID]; !ok {
			return 0, fmt.Errorf("project %s: %w", l.ProjectID, domain.ErrNotFound)
		}
	}

	now := time.Now().UTC()
	for i, l := range locs {
		id := uuid.NewString()
		r.s.locations[id] = domain.Location{
			ID:        id,
			ProjectID: l.ProjectID,
			Name:      l.Name,
			X:         l.X,
			Y:         l.Y,
			Remarks:   l.Remarks,
			// keep input order stable for ListByProject
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
		}
	}
	return len(locs), nil
}
