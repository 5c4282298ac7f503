package models

import (
	"strings"
	"time"
)

// Coordinator manages the courses and bundles of one department.
type Coordinator struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Surname      string    `db:"surname" json:"surname"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password" json:"-"`
	Active       bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// FullName joins name and surname.
func (c Coordinator) FullName() string {
	return joinName(c.Name, c.Surname)
}

// CoordinatorListItem is a coordinator row joined with its department, if any.
type CoordinatorListItem struct {
	ID             int64   `db:"id" json:"id"`
	Name           string  `db:"name" json:"name"`
	Surname        string  `db:"surname" json:"surname"`
	Email          string  `db:"email" json:"email"`
	Active         bool    `db:"is_active" json:"is_active"`
	DepartmentID   *int64  `db:"department_id" json:"department_id,omitempty"`
	DepartmentName *string `db:"department_name" json:"department_name"`
}

// CoordinatorName is the public id and display name pair.
type CoordinatorName struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

func joinName(name, surname string) string {
	return strings.TrimSpace(name + " " + surname)
}
