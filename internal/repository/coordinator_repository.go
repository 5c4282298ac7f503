package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mooc-credit-api/internal/models"
)

// CoordinatorRepository persists coordinator accounts.
type CoordinatorRepository struct {
	db *sqlx.DB
}

// NewCoordinatorRepository constructs the repository.
func NewCoordinatorRepository(db *sqlx.DB) *CoordinatorRepository {
	return &CoordinatorRepository{db: db}
}

const coordinatorColumns = `id, name, surname, email, password, is_active, created_at`

// FindByID fetches a coordinator regardless of its active flag.
func (r *CoordinatorRepository) FindByID(ctx context.Context, id int64) (*models.Coordinator, error) {
	var c models.Coordinator
	query := `SELECT ` + coordinatorColumns + ` FROM coordinator WHERE id = $1`
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindActiveByEmail fetches an active coordinator by email.
func (r *CoordinatorRepository) FindActiveByEmail(ctx context.Context, email string) (*models.Coordinator, error) {
	var c models.Coordinator
	query := `SELECT ` + coordinatorColumns + ` FROM coordinator WHERE LOWER(email) = LOWER($1) AND is_active = TRUE LIMIT 1`
	if err := r.db.GetContext(ctx, &c, query, email); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a passive coordinator.
func (r *CoordinatorRepository) Create(ctx context.Context, c *models.Coordinator) error {
	const query = `INSERT INTO coordinator (name, surname, email, password, is_active)
	VALUES ($1, $2, $3, $4, FALSE) RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, query, c.Name, c.Surname, c.Email, c.PasswordHash).Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("create coordinator: %w", translate(err))
	}
	c.Active = false
	return nil
}

// List returns every coordinator with its department, if bound.
func (r *CoordinatorRepository) List(ctx context.Context) ([]models.CoordinatorListItem, error) {
	const query = `SELECT c.id, c.name, c.surname, c.email, c.is_active, d.id AS department_id, d.name AS department_name
	FROM coordinator c
	LEFT JOIN department d ON d.coordinator_id = c.id
	ORDER BY c.id`
	var items []models.CoordinatorListItem
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list coordinators: %w", err)
	}
	return items, nil
}

// ListPassive returns inactive coordinators as id and display name.
func (r *CoordinatorRepository) ListPassive(ctx context.Context) ([]models.CoordinatorName, error) {
	const query = `SELECT id, CONCAT(name, ' ', surname) AS name FROM coordinator WHERE is_active = FALSE ORDER BY id`
	var items []models.CoordinatorName
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list passive coordinators: %w", err)
	}
	return items, nil
}

// ListNames returns every coordinator as id and display name.
func (r *CoordinatorRepository) ListNames(ctx context.Context) ([]models.CoordinatorName, error) {
	const query = `SELECT id, CONCAT(name, ' ', surname) AS name FROM coordinator ORDER BY id`
	var items []models.CoordinatorName
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list coordinator names: %w", err)
	}
	return items, nil
}

// Deactivate marks a coordinator passive unless a department still references it.
func (r *CoordinatorRepository) Deactivate(ctx context.Context, id int64) error {
	const query = `UPDATE coordinator SET is_active = FALSE
	WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM department WHERE coordinator_id = $1)`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate coordinator: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check coordinator update rows: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM coordinator WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("check coordinator: %w", err)
	}
	if !exists {
		return sql.ErrNoRows
	}
	return ErrCoordinatorBound
}

// activatePassive flips a passive coordinator to active inside tx.
func activatePassive(ctx context.Context, tx *sqlx.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE coordinator SET is_active = TRUE WHERE id = $1 AND is_active = FALSE`, id)
	if err != nil {
		return fmt.Errorf("activate coordinator: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check coordinator update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
