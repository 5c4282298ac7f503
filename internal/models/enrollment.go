package models

import "time"

// Enrollment links a student to a course. Passed is nil until decided.
type Enrollment struct {
	ID        int64      `db:"id" json:"id"`
	StudentID int64      `db:"student_id" json:"student_id"`
	CourseID  int64      `db:"course_id" json:"course_id"`
	Waiting   bool       `db:"is_waiting" json:"is_waiting"`
	Passed    *bool      `db:"is_pass" json:"is_pass"`
	PassDate  *time.Time `db:"pass_date" json:"pass_date,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// StudentEnrollment is an enrollment row joined with its active course.
type StudentEnrollment struct {
	EnrollmentID int64      `db:"enrollment_id" json:"enrollment_id"`
	Waiting      bool       `db:"is_waiting" json:"is_waiting"`
	Passed       *bool      `db:"is_pass" json:"is_pass"`
	PassDate     *time.Time `db:"pass_date" json:"pass_date,omitempty"`
	CourseID     int64      `db:"course_id" json:"course_id"`
	Name         string     `db:"name" json:"name"`
	CourseCode   string     `db:"course_code" json:"course_code"`
}

// CourseStudent is a student enrolled (or waiting) in a course.
type CourseStudent struct {
	ID           int64  `db:"id" json:"id"`
	StudentNo    string `db:"student_no" json:"student_no"`
	Name         string `db:"name" json:"name"`
	Surname      string `db:"surname" json:"surname"`
	Email        string `db:"email" json:"email"`
	EnrollmentID int64  `db:"enrollment_id" json:"enrollment_id"`
	Waiting      bool   `db:"is_waiting" json:"is_waiting"`
	Passed       *bool  `db:"is_pass" json:"is_pass"`
}
