package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/mooc-credit-api/internal/models"
	"github.com/noah-isme/mooc-credit-api/pkg/database"
)

// DepartmentRepository persists departments and their coordinator binding.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs the repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

const departmentColumns = `id, name, code, coordinator_id, created_at`

// FindByID fetches a department.
func (r *DepartmentRepository) FindByID(ctx context.Context, id int64) (*models.Department, error) {
	var d models.Department
	query := `SELECT ` + departmentColumns + ` FROM department WHERE id = $1`
	if err := r.db.GetContext(ctx, &d, query, id); err != nil {
		return nil, err
	}
	return &d, nil
}

// FindByCoordinator fetches the department bound to a coordinator.
func (r *DepartmentRepository) FindByCoordinator(ctx context.Context, coordinatorID int64) (*models.Department, error) {
	var d models.Department
	query := `SELECT ` + departmentColumns + ` FROM department WHERE coordinator_id = $1 LIMIT 1`
	if err := r.db.GetContext(ctx, &d, query, coordinatorID); err != nil {
		return nil, err
	}
	return &d, nil
}

// List returns every department.
func (r *DepartmentRepository) List(ctx context.Context) ([]models.Department, error) {
	query := `SELECT ` + departmentColumns + ` FROM department ORDER BY name`
	var items []models.Department
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return items, nil
}

// ListDetailed returns departments with their coordinator's name.
func (r *DepartmentRepository) ListDetailed(ctx context.Context) ([]models.DepartmentDetail, error) {
	const query = `SELECT d.id, d.name, d.code, d.coordinator_id, d.created_at,
       c.name AS coordinator_name, c.surname AS coordinator_surname
	FROM department d
	LEFT JOIN coordinator c ON c.id = d.coordinator_id
	ORDER BY d.name`
	var items []models.DepartmentDetail
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list department details: %w", err)
	}
	return items, nil
}

// Create inserts a department and activates its passive coordinator in one
// transaction. sql.ErrNoRows means the coordinator is missing or already active.
func (r *DepartmentRepository) Create(ctx context.Context, d *models.Department) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if d.CoordinatorID == nil {
			return fmt.Errorf("create department: coordinator required")
		}
		if err := activatePassive(ctx, tx, *d.CoordinatorID); err != nil {
			return err
		}
		const query = `INSERT INTO department (name, code, coordinator_id) VALUES ($1, $2, $3) RETURNING id, created_at`
		if err := tx.QueryRowxContext(ctx, query, d.Name, d.Code, *d.CoordinatorID).Scan(&d.ID, &d.CreatedAt); err != nil {
			return fmt.Errorf("create department: %w", translate(err))
		}
		return nil
	})
}

// ChangeCoordinator rebinds a department to a passive coordinator, activating
// it and deactivating the previous one.
func (r *DepartmentRepository) ChangeCoordinator(ctx context.Context, departmentID, coordinatorID int64) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var previous *int64
		if err := tx.GetContext(ctx, &previous, `SELECT coordinator_id FROM department WHERE id = $1 FOR UPDATE`, departmentID); err != nil {
			return err
		}
		if err := activatePassive(ctx, tx, coordinatorID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE department SET coordinator_id = $2 WHERE id = $1`, departmentID, coordinatorID); err != nil {
			return fmt.Errorf("rebind department: %w", translate(err))
		}
		if previous != nil && *previous != coordinatorID {
			if _, err := tx.ExecContext(ctx, `UPDATE coordinator SET is_active = FALSE WHERE id = $1`, *previous); err != nil {
				return fmt.Errorf("deactivate previous coordinator: %w", err)
			}
		}
		return nil
	})
}
