package models

import "time"

// Mooc is a catalogued external online course.
type Mooc struct {
	ID           int64     `db:"id" json:"id"`
	Platform     string    `db:"platform" json:"platform"`
	Name         string    `db:"name" json:"name"`
	University   string    `db:"university" json:"university"`
	URL          string    `db:"url" json:"url"`
	AverageHours float64   `db:"average_hours" json:"average_hours"`
	Active       bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
