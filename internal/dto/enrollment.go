package dto

// EnrollRequest enrolls the caller in a course.
type EnrollRequest struct {
	CourseID int64 `json:"course_id" validate:"required,gt=0"`
}

// RejectWaitingRequest carries the message mailed to a rejected student.
type RejectWaitingRequest struct {
	Message string `json:"message" validate:"max=2047"`
}

// EnrollResult reports the admission decision.
type EnrollResult struct {
	EnrollmentID int64 `json:"enrollment_id"`
	CourseID     int64 `json:"course_id"`
	Waiting      bool  `json:"is_waiting"`
}
