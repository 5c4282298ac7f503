package dto

// CreateCoordinatorRequest adds a passive coordinator.
type CreateCoordinatorRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Surname string `json:"surname" validate:"required,max=255"`
	Email   string `json:"email" validate:"required,email"`
}

// CreateCoordinatorResult echoes the coordinator and its generated password.
type CreateCoordinatorResult struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateDepartmentRequest opens a department bound to a passive coordinator.
type CreateDepartmentRequest struct {
	Name          string `json:"name" validate:"required,max=255"`
	Code          string `json:"code" validate:"max=64"`
	CoordinatorID int64  `json:"coordinator_id" validate:"required,gt=0"`
}

// ChangeCoordinatorRequest rebinds a department.
type ChangeCoordinatorRequest struct {
	CoordinatorID int64 `json:"coordinator_id" validate:"required,gt=0"`
}

// InviteStudent describes one invited student.
type InviteStudent struct {
	StudentNo    string `json:"student_no" validate:"required,max=255"`
	Name         string `json:"name" validate:"required,max=255"`
	Surname      string `json:"surname" validate:"required,max=255"`
	Email        string `json:"email" validate:"required,email"`
	DepartmentID int64  `json:"department_id" validate:"required,gt=0"`
}

// InviteStudentsRequest creates student accounts in bulk.
type InviteStudentsRequest struct {
	Students []InviteStudent `json:"students" validate:"required,min=1,max=500,dive"`
}

// InviteStudentsResult reports the accounts that were created.
type InviteStudentsResult struct {
	Created []int64  `json:"created"`
	Skipped []string `json:"skipped"`
}
