package usecases_test

import (
	"context"
	"sync"

	"github.com/samirrijal/geosurvey/internal/core/domain"
)

// --- Mock ProjectRepository ---

type mockProjectRepo struct {
	createFn    func(ctx context.Context, p *domain.Project) error
	getByIDFn   func(ctx context.Context, id string) (*domain.Project, error)
	getByCodeFn func(ctx context.Context, code string) (*domain.Project, error)
	listFn      func(ctx context.Context) ([]domain.Project, error)
}

func (m *mockProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	p.ID = "generated"
	return nil
}

func (m *mockProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockProjectRepo) GetByCode(ctx context.Context, code string) (*domain.Project, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, code)
	}
	return nil, domain.ErrNotFound
}

func (m *mockProjectRepo) List(ctx context.Context) ([]domain.Project, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func projectRepoWith(p domain.Project) *mockProjectRepo {
	return &mockProjectRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Project, error) {
			if id != p.ID {
				return nil, domain.ErrNotFound
			}
			cp := p
			return &cp, nil
		},
	}
}

// --- Mock LocationRepository ---

type mockLocationRepo struct {
	listByProjectFn func(ctx context.Context, projectID string) ([]domain.Location, error)
	getByIDFn       func(ctx context.Context, id string) (*domain.Location, error)
	createFn        func(ctx context.Context, loc *domain.Location) error
	updateFn        func(ctx context.Context, loc *domain.Location) error
	insertManyFn    func(ctx context.Context, locs []domain.NewLocation) (int, error)

	mu          sync.Mutex
	listCalls   int
	insertCalls [][]domain.NewLocation
}

func (m *mockLocationRepo) ListByProject(ctx context.Context, projectID string) ([]domain.Location, error) {
	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()
	if m.listByProjectFn != nil {
		return m.listByProjectFn(ctx, projectID)
	}
	return nil, nil
}

func (m *mockLocationRepo) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockLocationRepo) Create(ctx context.Context, loc *domain.Location) error {
	if m.createFn != nil {
		return m.createFn(ctx, loc)
	}
	loc.ID = "new-location"
	return nil
}

func (m *mockLocationRepo) Update(ctx context.Context, loc *domain.Location) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, loc)
	}
	return nil
}

func (m *mockLocationRepo) InsertMany(ctx context.Context, locs []domain.NewLocation) (int, error) {
	m.mu.Lock()
	m.insertCalls = append(m.insertCalls, append([]domain.NewLocation(nil), locs...))
	m.mu.Unlock()
	if m.insertManyFn != nil {
		return m.insertManyFn(ctx, locs)
	}
	return len(locs), nil
}

func (m *mockLocationRepo) writes() [][]domain.NewLocation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertCalls
}

// --- Mock CacheService ---

type mockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (c *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (c *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mockCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.deleted = append(c.deleted, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	imported []domain.ImportResult
	changed  []domain.Location
}

func (p *mockPublisher) PublishLocationsImported(ctx context.Context, r *domain.ImportResult) error {
	p.imported = append(p.imported, *r)
	return nil
}

func (p *mockPublisher) PublishLocationChanged(ctx context.Context, loc *domain.Location) error {
	p.changed = append(p.changed, *loc)
	return nil
}

// --- Mock TabularReader / TabularWriter ---

type mockReader struct {
	candidates []domain.ImportCandidate
	err        error
}

func (r *mockReader) ReadCandidates(ctx context.Context, filename string, data []byte) ([]domain.ImportCandidate, error) {
	return r.candidates, r.err
}

type mockWriter struct {
	format string
	rows   []domain.LocationExportRow
}

func (w *mockWriter) WriteExport(format string, rows []domain.LocationExportRow) ([]byte, error) {
	w.format = format
	w.rows = rows
	return []byte("export"), nil
}

func (w *mockWriter) WriteTemplate(format string) ([]byte, error) {
	w.format = format
	return []byte("template"), nil
}
