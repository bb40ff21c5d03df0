package usecases

import (
	"context"
	"strings"

	"github.com/samirrijal/geosurvey/internal/core/domain"
	"github.com/samirrijal/geosurvey/internal/core/ports"
	"github.com/samirrijal/geosurvey/internal/pkg/geospatial"
)

// ProjectService handles survey projects.
type ProjectService struct {
	projects    ports.ProjectRepository
	defaultZone int
	defaultBand string
}

// NewProjectService creates a new ProjectService. New projects without an
// explicit grid use defaultZone and defaultBand.
func NewProjectService(projects ports.ProjectRepository, defaultZone int, defaultBand string) *ProjectService {
	return &ProjectService{projects: projects, defaultZone: defaultZone, defaultBand: defaultBand}
}

// ProjectInput is the payload for creating a project.
type ProjectInput struct {
	Code    string `json:"project_code"`
	Name    string `json:"name"`
	UTMZone int    `json:"utm_zone"`
	UTMBand string `json:"utm_band"`
}

// Create validates input and stores a new project.
func (s *ProjectService) Create(ctx context.Context, in ProjectInput) (*domain.Project, error) {
	p := &domain.Project{
		Code:    strings.TrimSpace(in.Code),
		Name:    strings.TrimSpace(in.Name),
		UTMZone: in.UTMZone,
		UTMBand: strings.ToUpper(strings.TrimSpace(in.UTMBand)),
	}
	if p.UTMZone == 0 {
		p.UTMZone = s.defaultZone
	}
	if p.UTMBand == "" {
		p.UTMBand = s.defaultBand
	}

	switch {
	case p.Code == "":
		return nil, &domain.ImportError{Field: FieldProjectCode, Value: in.Code, Err: domain.ErrMissingOrMalformedField}
	case p.Name == "":
		return nil, &domain.ImportError{Field: "name", Value: in.Name, Err: domain.ErrMissingOrMalformedField}
	case p.UTMZone < 1 || p.UTMZone > 60:
		return nil, &domain.ImportError{Field: "utm_zone", Value: itoa(p.UTMZone), Err: domain.ErrMissingOrMalformedField}
	case len(p.UTMBand) != 1 || !geospatial.ValidBand(p.UTMBand[0]):
		return nil, &domain.ImportError{Field: "utm_band", Value: in.UTMBand, Err: domain.ErrMissingOrMalformedField}
	}

	if err := s.projects.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns a single project.
func (s *ProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	return s.projects.GetByID(ctx, id)
}

// GetByCode looks a project up by its survey code.
func (s *ProjectService) GetByCode(ctx context.Context, code string) (*domain.Project, error) {
	return s.projects.GetByCode(ctx, strings.TrimSpace(code))
}

// List returns all projects.
func (s *ProjectService) List(ctx context.Context) ([]domain.Project, error) {
	return s.projects.List(ctx)
}
