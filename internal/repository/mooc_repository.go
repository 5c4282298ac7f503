package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/mooc-credit-api/internal/models"
)

// MoocRepository reads the MOOC catalog.
type MoocRepository struct {
	db *sqlx.DB
}

// NewMoocRepository constructs the repository.
func NewMoocRepository(db *sqlx.DB) *MoocRepository {
	return &MoocRepository{db: db}
}

const moocColumns = `id, COALESCE(platform, '') AS platform, name, COALESCE(university, '') AS university,
       COALESCE(url, '') AS url, average_hours, is_active, created_at`

// ListActive returns every active MOOC.
func (r *MoocRepository) ListActive(ctx context.Context) ([]models.Mooc, error) {
	query := `SELECT ` + moocColumns + ` FROM mooc WHERE is_active = TRUE ORDER BY name`
	var items []models.Mooc
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list moocs: %w", err)
	}
	return items, nil
}

// FindActiveByIDs returns the active MOOCs among ids. Unknown or inactive
// ids are simply absent from the result.
func (r *MoocRepository) FindActiveByIDs(ctx context.Context, ids []int64) ([]models.Mooc, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + moocColumns + ` FROM mooc WHERE id = ANY($1) AND is_active = TRUE`
	var items []models.Mooc
	if err := r.db.SelectContext(ctx, &items, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find moocs: %w", err)
	}
	return items, nil
}

// FindActive fetches one active MOOC.
func (r *MoocRepository) FindActive(ctx context.Context, id int64) (*models.Mooc, error) {
	var m models.Mooc
	query := `SELECT ` + moocColumns + ` FROM mooc WHERE id = $1 AND is_active = TRUE`
	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		return nil, err
	}
	return &m, nil
}
