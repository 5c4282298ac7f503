package models

import "time"

// Department owns courses and is bound to at most one coordinator.
type Department struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Code          string    `db:"code" json:"code"`
	CoordinatorID *int64    `db:"coordinator_id" json:"coordinator_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// DepartmentDetail adds the bound coordinator's name.
type DepartmentDetail struct {
	Department
	CoordinatorName    *string `db:"coordinator_name" json:"coordinator_name"`
	CoordinatorSurname *string `db:"coordinator_surname" json:"coordinator_surname"`
}
