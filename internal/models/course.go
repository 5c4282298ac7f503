package models

import (
	"fmt"
	"time"
)

// Course is an academic course offered by a department.
type Course struct {
	ID            int64     `db:"id" json:"id"`
	CourseCode    string    `db:"course_code" json:"course_code"`
	Name          string    `db:"name" json:"name"`
	Type          string    `db:"type" json:"type"`
	Semester      string    `db:"semester" json:"semester"`
	Credits       int       `db:"credits" json:"credits"`
	DepartmentID  int64     `db:"department_id" json:"department_id"`
	CoordinatorID int64     `db:"coordinator_id" json:"coordinator_id"`
	Active        bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// CourseSummary is the short course row shown to students.
type CourseSummary struct {
	ID         int64  `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	CourseCode string `db:"course_code" json:"course_code"`
	Credits    int    `db:"credits" json:"credits"`
	Semester   string `db:"semester" json:"semester"`
}

const (
	firstSemesterYear = 2022
	lastSemesterYear  = 2037
)

var semesterTerms = []string{"Fall", "Spring", "Summer"}

// Semesters lists the academic semesters a course can be opened in, formatted
// as "2022-2023-Fall".
func Semesters() []string {
	out := make([]string, 0, (lastSemesterYear-firstSemesterYear+1)*len(semesterTerms))
	for year := firstSemesterYear; year <= lastSemesterYear; year++ {
		for _, term := range semesterTerms {
			out = append(out, fmt.Sprintf("%d-%d-%s", year, year+1, term))
		}
	}
	return out
}

// ValidSemester reports whether s is one of Semesters.
func ValidSemester(s string) bool {
	for _, candidate := range Semesters() {
		if candidate == s {
			return true
		}
	}
	return false
}
