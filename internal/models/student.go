package models

import "time"

// Student is a learner belonging to exactly one department.
type Student struct {
	ID           int64     `db:"id" json:"id"`
	StudentNo    string    `db:"student_no" json:"student_no"`
	Name         string    `db:"name" json:"name"`
	Surname      string    `db:"surname" json:"surname"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password" json:"-"`
	DepartmentID int64     `db:"department_id" json:"department_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// FullName joins name and surname.
func (s Student) FullName() string {
	return joinName(s.Name, s.Surname)
}

// StudentProfile enriches Student with its department name.
type StudentProfile struct {
	Student
	DepartmentName string `db:"department_name" json:"department"`
}
