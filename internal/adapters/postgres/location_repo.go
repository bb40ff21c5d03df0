package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/geosurvey/internal/core/domain"
)

// LocationRepo implements ports.LocationRepository with pgx.
type LocationRepo struct {
	db *DB
}

// NewLocationRepo creates a new LocationRepo.
func NewLocationRepo(db *DB) *LocationRepo {
	return &LocationRepo{db: db}
}

const locationColumns = `id, project_id, location_name, x, y, remarks, created_at`

func scanLocation(row pgx.Row, l *domain.Location) error {
	return row.Scan(&l.ID, &l.ProjectID, &l.Name, &l.X, &l.Y, &l.Remarks, &l.CreatedAt)
}

// ListByProject returns a project's locations in insertion order.
func (r *LocationRepo) ListByProject(ctx context.Context, projectID string) ([]domain.Location, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+locationColumns+`
		FROM locations WHERE project_id = $1
		ORDER BY created_at, seq
	`, projectID)
	if err != nil {
		return nil, notFound(err)
	}
	defer rows.Close()

	var locs []domain.Location
	for rows.Next() {
		var l domain.Location
		if err := scanLocation(rows, &l); err != nil {
			return nil, err
		}
		locs = append(locs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, notFound(err)
	}
	return locs, nil
}

// GetByID returns a single location.
func (r *LocationRepo) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	var l domain.Location
	row := r.db.Pool.QueryRow(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = $1`, id)
	if err := scanLocation(row, &l); err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

// Create inserts one location and fills in its ID and timestamp.
func (r *LocationRepo) Create(ctx context.Context, l *domain.Location) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO locations (project_id, location_name, x, y, remarks)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, l.ProjectID, l.Name, l.X, l.Y, l.Remarks).Scan(&l.ID, &l.CreatedAt)
}

// Update rewrites the editable fields of a location.
func (r *LocationRepo) Update(ctx context.Context, l *domain.Location) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE locations SET location_name = $2, x = $3, y = $4, remarks = $5
		WHERE id = $1
	`, l.ID, l.Name, l.X, l.Y, l.Remarks)
	if err != nil {
		return notFound(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// InsertMany writes all records in one transaction using pgx.Batch.
// Any failed row rolls back the whole batch.
func (r *LocationRepo) InsertMany(ctx context.Context, locs []domain.NewLocation) (int, error) {
	if len(locs) == 0 {
		return 0, nil
	}

	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, l := range locs {
			batch.Queue(`
				INSERT INTO locations (project_id, location_name, x, y, remarks)
				VALUES ($1, $2, $3, $4, $5)
			`, l.ProjectID, l.Name, l.X, l.Y, l.Remarks)
		}
		br := tx.SendBatch(ctx, batch)
		defer br.Close()
		for i := range locs {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("batch item %d: %w", i, err)
			}
		}
		return br.Close()
	})
	if err != nil {
		return 0, err
	}
	return len(locs), nil
}
