package postgres

import (
	"context"

	"github.com/samirrijal/geosurvey/internal/core/domain"
)

// ProjectRepo implements ports.ProjectRepository.
type ProjectRepo struct {
	db *DB
}

func NewProjectRepo(db *DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

const projectColumns = `id, project_code, name, utm_zone, utm_band, created_at`

func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO projects (project_code, name, utm_zone, utm_band)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, p.Code, p.Name, p.UTMZone, p.UTMBand).Scan(&p.ID, &p.CreatedAt)
	return duplicate(err)
}

func (r *ProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	p := &domain.Project{}
	err := r.db.Pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id).
		Scan(&p.ID, &p.Code, &p.Name, &p.UTMZone, &p.UTMBand, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *ProjectRepo) GetByCode(ctx context.Context, code string) (*domain.Project, error) {
	p := &domain.Project{}
	err := r.db.Pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE project_code = $1`, code).
		Scan(&p.ID, &p.Code, &p.Name, &p.UTMZone, &p.UTMBand, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *ProjectRepo) List(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY project_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.UTMZone, &p.UTMBand, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}
