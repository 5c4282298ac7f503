package dto

// CreateCourseRequest opens a course in the coordinator's department.
type CreateCourseRequest struct {
	CourseCode string `json:"course_code" validate:"required,max=255"`
	Name       string `json:"name" validate:"required,max=255"`
	Type       string `json:"type" validate:"max=255"`
	Semester   string `json:"semester" validate:"required"`
	Credits    int    `json:"credits" validate:"required,gt=0,lte=60"`
}
