package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mooc-credit-api/internal/dto"
	"github.com/noah-isme/mooc-credit-api/internal/models"
	"github.com/noah-isme/mooc-credit-api/internal/service"
	appErrors "github.com/noah-isme/mooc-credit-api/pkg/errors"
	"github.com/noah-isme/mooc-credit-api/pkg/response"
)

type coordinatorBundleService interface {
	ApproveBundle(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64) error
	RejectBundle(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64, req dto.RejectRequest) error
	ApproveCertificate(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64) error
	RejectCertificate(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64, req dto.RejectRequest) (*models.Bundle, error)
	ListCourseBundles(ctx context.Context, claims *models.JWTClaims, courseID int64, slug string) ([]models.CourseBundleRow, error)
	ExportCourseBundles(ctx context.Context, claims *models.JWTClaims, courseID int64, slug, format string) (*service.ExportFile, error)
}

type coordinatorCourseService interface {
	Semesters() []string
	CreateCourse(ctx context.Context, claims *models.JWTClaims, req dto.CreateCourseRequest) (*models.Course, error)
	DeactivateCourse(ctx context.Context, claims *models.JWTClaims, courseID int64) error
	ListCourses(ctx context.Context, claims *models.JWTClaims, active bool) ([]models.Course, error)
}

type coordinatorEnrollmentService interface {
	AcceptWaiting(ctx context.Context, claims *models.JWTClaims, courseID, studentID int64) error
	RejectWaiting(ctx context.Context, claims *models.JWTClaims, courseID, studentID int64, req dto.RejectWaitingRequest) error
	CourseStudents(ctx context.Context, claims *models.JWTClaims, courseID int64, waiting bool) ([]models.CourseStudent, error)
}

// CoordinatorHandler exposes coordinator endpoints.
type CoordinatorHandler struct {
	bundles     coordinatorBundleService
	courses     coordinatorCourseService
	enrollments coordinatorEnrollmentService
}

// NewCoordinatorHandler constructs CoordinatorHandler.
func NewCoordinatorHandler(bundles coordinatorBundleService, courses coordinatorCourseService, enrollments coordinatorEnrollmentService) *CoordinatorHandler {
	return &CoordinatorHandler{bundles: bundles, courses: courses, enrollments: enrollments}
}

// Semesters godoc
// @Summary Semesters a course can be opened in
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /coordinator/semesters [get]
func (h *CoordinatorHandler) Semesters(c *gin.Context) {
	semesters := h.courses.Semesters()
	response.List(c, semesters, len(semesters))
}

// CreateCourse godoc
// @Summary Open a course in the coordinator's department
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body dto.CreateCourseRequest true "Course"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /coordinator/courses [post]
func (h *CoordinatorHandler) CreateCourse(c *gin.Context) {
	var req dto.CreateCourseRequest
	if !bindJSON(c, &req) {
		return
	}
	course, err := h.courses.CreateCourse(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Courses godoc
// @Summary Courses of the coordinator's department
// @Tags Courses
// @Produce json
// @Param active query bool false "Active courses (default true)"
// @Success 200 {object} response.Envelope
// @Router /coordinator/courses [get]
func (h *CoordinatorHandler) Courses(c *gin.Context) {
	active, err := strconv.ParseBool(c.DefaultQuery("active", "true"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidInput, "active must be a boolean"))
		return
	}
	courses, err := h.courses.ListCourses(c.Request.Context(), claimsFromContext(c), active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, courses, len(courses))
}

// DeactivateCourse godoc
// @Summary Passivate a course
// @Tags Courses
// @Produce json
// @Param course_id path int true "Course ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /coordinator/course/{course_id}/deactivate [patch]
func (h *CoordinatorHandler) DeactivateCourse(c *gin.Context) {
	courseID, ok := idParam(c, "course_id")
	if !ok {
		return
	}
	if err := h.courses.DeactivateCourse(c.Request.Context(), claimsFromContext(c), courseID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Students godoc
// @Summary Admitted students of a course
// @Tags Enrollments
// @Produce json
// @Param course_id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /coordinator/course/{course_id}/students [get]
func (h *CoordinatorHandler) Students(c *gin.Context) {
	h.courseStudents(c, false)
}

// WaitingStudents godoc
// @Summary Waiting-list students of a course
// @Tags Enrollments
// @Produce json
// @Param course_id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /coordinator/course/{course_id}/waiting-students [get]
func (h *CoordinatorHandler) WaitingStudents(c *gin.Context) {
	h.courseStudents(c, true)
}

func (h *CoordinatorHandler) courseStudents(c *gin.Context, waiting bool) {
	courseID, ok := idParam(c, "course_id")
	if !ok {
		return
	}
	students, err := h.enrollments.CourseStudents(c.Request.Context(), claimsFromContext(c), courseID, waiting)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, students, len(students))
}

// AcceptWaiting godoc
// @Summary Admit a waiting student
// @Tags Enrollments
// @Produce json
// @Param course_id path int true "Course ID"
// @Param student_id path int true "Student ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /coordinator/course/{course_id}/waiting/{student_id}/accept [post]
func (h *CoordinatorHandler) AcceptWaiting(c *gin.Context) {
	courseID, studentID, ok := waitingPath(c)
	if !ok {
		return
	}
	if err := h.enrollments.AcceptWaiting(c.Request.Context(), claimsFromContext(c), courseID, studentID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RejectWaiting godoc
// @Summary Remove a student from the waiting list
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param course_id path int true "Course ID"
// @Param student_id path int true "Student ID"
// @Param payload body dto.RejectWaitingRequest false "Message to the student"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /coordinator/course/{course_id}/waiting/{student_id}/reject [post]
func (h *CoordinatorHandler) RejectWaiting(c *gin.Context) {
	courseID, studentID, ok := waitingPath(c)
	if !ok {
		return
	}
	var req dto.RejectWaitingRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if err := h.enrollments.RejectWaiting(c.Request.Context(), claimsFromContext(c), courseID, studentID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ApproveBundle godoc
// @Summary Approve a Waiting Bundle
// @Tags Bundle Decisions
// @Produce json
// @Param course_id path int true "Course ID"
// @Param bundle_id path int true "Bundle ID"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /coordinator/course/{course_id}/bundle/{bundle_id}/approve-bundle [post]
func (h *CoordinatorHandler) ApproveBundle(c *gin.Context) {
	courseID, bundleID, ok := bundlePath(c)
	if !ok {
		return
	}
	if err := h.bundles.ApproveBundle(c.Request.Context(), claimsFromContext(c), courseID, bundleID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RejectBundle godoc
// @Summary Reject a Waiting Bundle
// @Tags Bundle Decisions
// @Accept json
// @Produce json
// @Param course_id path int true "Course ID"
// @Param bundle_id path int true "Bundle ID"
// @Param payload body dto.RejectRequest true "Reason"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /coordinator/course/{course_id}/bundle/{bundle_id}/reject-bundle [post]
func (h *CoordinatorHandler) RejectBundle(c *gin.Context) {
	courseID, bundleID, ok := bundlePath(c)
	if !ok {
		return
	}
	var req dto.RejectRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.bundles.RejectBundle(c.Request.Context(), claimsFromContext(c), courseID, bundleID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ApproveCertificate godoc
// @Summary Accept the certificates of a bundle and pass the enrollment
// @Tags Bundle Decisions
// @Produce json
// @Param course_id path int true "Course ID"
// @Param bundle_id path int true "Bundle ID"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /coordinator/course/{course_id}/bundle/{bundle_id}/approve-certificate [post]
func (h *CoordinatorHandler) ApproveCertificate(c *gin.Context) {
	courseID, bundleID, ok := bundlePath(c)
	if !ok {
		return
	}
	if err := h.bundles.ApproveCertificate(c.Request.Context(), claimsFromContext(c), courseID, bundleID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RejectCertificate godoc
// @Summary Reject the certificates of a bundle and reopen it as a new bundle
// @Tags Bundle Decisions
// @Accept json
// @Produce json
// @Param course_id path int true "Course ID"
// @Param bundle_id path int true "Bundle ID"
// @Param payload body dto.RejectRequest true "Reason"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /coordinator/course/{course_id}/bundle/{bundle_id}/reject-certificate [post]
func (h *CoordinatorHandler) RejectCertificate(c *gin.Context) {
	courseID, bundleID, ok := bundlePath(c)
	if !ok {
		return
	}
	var req dto.RejectRequest
	if !bindJSON(c, &req) {
		return
	}
	clone, err := h.bundles.RejectCertificate(c.Request.Context(), claimsFromContext(c), courseID, bundleID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, clone)
}

// Bundles godoc
// @Summary Bundles of a course in one status
// @Tags Bundle Decisions
// @Produce json
// @Param course_id path int true "Course ID"
// @Param status path string true "Status slug" Enums(waiting-bundles, rejected-bundles, waiting-certificates, waiting-approval, rejected-certificates, accepted-certificates)
// @Success 200 {object} response.Envelope
// @Router /coordinator/course/{course_id}/bundles/{status} [get]
func (h *CoordinatorHandler) Bundles(c *gin.Context) {
	courseID, ok := idParam(c, "course_id")
	if !ok {
		return
	}
	rows, err := h.bundles.ListCourseBundles(c.Request.Context(), claimsFromContext(c), courseID, c.Param("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, rows, len(rows))
}

// ExportBundles godoc
// @Summary Download the bundles of a course in one status
// @Tags Bundle Decisions
// @Produce text/csv
// @Produce application/pdf
// @Param course_id path int true "Course ID"
// @Param status path string true "Status slug"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /coordinator/course/{course_id}/bundles/{status}/export [get]
func (h *CoordinatorHandler) ExportBundles(c *gin.Context) {
	courseID, ok := idParam(c, "course_id")
	if !ok {
		return
	}
	file, err := h.bundles.ExportCourseBundles(c.Request.Context(), claimsFromContext(c), courseID, c.Param("status"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=\""+file.Filename+"\"")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func waitingPath(c *gin.Context) (int64, int64, bool) {
	courseID, ok := idParam(c, "course_id")
	if !ok {
		return 0, 0, false
	}
	studentID, ok := idParam(c, "student_id")
	if !ok {
		return 0, 0, false
	}
	return courseID, studentID, true
}
