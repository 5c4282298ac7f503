package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mooc-credit-api/internal/dto"
	"github.com/noah-isme/mooc-credit-api/internal/models"
	"github.com/noah-isme/mooc-credit-api/pkg/response"
)

type studentBundleService interface {
	CreateBundle(ctx context.Context, claims *models.JWTClaims, courseID int64, req dto.CreateBundleRequest) (*models.BundleWithDetails, error)
	ListStudentBundles(ctx context.Context, claims *models.JWTClaims, courseID int64) ([]models.BundleWithDetails, error)
	GetStudentBundle(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64) (*models.BundleWithDetails, error)
	SubmitCertificate(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64, req dto.SubmitCertificateRequest) error
	CompleteBundle(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64, req dto.CompleteBundleRequest) error
	AddMooc(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64, req dto.BundleMoocRequest) (*models.BundleDetail, error)
	UpdateDetail(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64, req dto.UpdateBundleDetailRequest) error
	DeleteDetail(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64, req dto.DeleteBundleDetailRequest) error
}

type studentEnrollmentService interface {
	Enroll(ctx context.Context, claims *models.JWTClaims, req dto.EnrollRequest) (*dto.EnrollResult, error)
	AvailableCourses(ctx context.Context, claims *models.JWTClaims) ([]models.CourseSummary, error)
	StudentEnrollments(ctx context.Context, claims *models.JWTClaims) ([]models.StudentEnrollment, error)
}

type studentProfileService interface {
	StudentProfile(ctx context.Context, claims *models.JWTClaims) (*models.StudentProfile, error)
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	bundles     studentBundleService
	enrollments studentEnrollmentService
	profiles    studentProfileService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(bundles studentBundleService, enrollments studentEnrollmentService, profiles studentProfileService) *StudentHandler {
	return &StudentHandler{bundles: bundles, enrollments: enrollments, profiles: profiles}
}

// Profile godoc
// @Summary Current student's profile
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/profile [get]
func (h *StudentHandler) Profile(c *gin.Context) {
	profile, err := h.profiles.StudentProfile(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, profile)
}

// AvailableCourses godoc
// @Summary Active courses of the student's department not yet enrolled
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/courses/available [get]
func (h *StudentHandler) AvailableCourses(c *gin.Context) {
	courses, err := h.enrollments.AvailableCourses(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, courses, len(courses))
}

// Enroll godoc
// @Summary Enroll in a course, possibly onto the waiting list
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.EnrollRequest true "Course"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /student/enroll [post]
func (h *StudentHandler) Enroll(c *gin.Context) {
	var req dto.EnrollRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.enrollments.Enroll(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Enrollments godoc
// @Summary The student's enrollments
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/enrollments [get]
func (h *StudentHandler) Enrollments(c *gin.Context) {
	items, err := h.enrollments.StudentEnrollments(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, len(items))
}

// Bundles godoc
// @Summary Bundles of the student's enrollment in a course
// @Tags Bundles
// @Produce json
// @Param course_id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /student/course/{course_id}/bundles [get]
func (h *StudentHandler) Bundles(c *gin.Context) {
	courseID, ok := idParam(c, "course_id")
	if !ok {
		return
	}
	bundles, err := h.bundles.ListStudentBundles(c.Request.Context(), claimsFromContext(c), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, bundles, len(bundles))
}

// Bundle godoc
// @Summary One bundle with its MOOCs
// @Tags Bundles
// @Produce json
// @Param course_id path int true "Course ID"
// @Param bundle_id path int true "Bundle ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /student/course/{course_id}/bundle/{bundle_id} [get]
func (h *StudentHandler) Bundle(c *gin.Context) {
	courseID, bundleID, ok := bundlePath(c)
	if !ok {
		return
	}
	bundle, err := h.bundles.GetStudentBundle(c.Request.Context(), claimsFromContext(c), courseID, bundleID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, bundle)
}

// CreateBundle godoc
// @Summary Propose a MOOC bundle for a course
// @Tags Bundles
// @Accept json
// @Produce json
// @Param course_id path int true "Course ID"
// @Param payload body dto.CreateBundleRequest true "MOOCs"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /student/course/{course_id}/bundle [post]
func (h *StudentHandler) CreateBundle(c *gin.Context) {
	courseID, ok := idParam(c, "course_id")
	if !ok {
		return
	}
	var req dto.CreateBundleRequest
	if !bindJSON(c, &req) {
		return
	}
	bundle, err := h.bundles.CreateBundle(c.Request.Context(), claimsFromContext(c), courseID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, bundle)
}

// SubmitCertificate godoc
// @Summary Attach a certificate URL to a bundle MOOC
// @Tags Bundles
// @Accept json
// @Produce json
// @Param course_id path int true "Course ID"
// @Param bundle_id path int true "Bundle ID"
// @Param payload body dto.SubmitCertificateRequest true "Certificate"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /student/course/{course_id}/bundle/{bundle_id}/certificate [post]
func (h *StudentHandler) SubmitCertificate(c *gin.Context) {
	courseID, bundleID, ok := bundlePath(c)
	if !ok {
		return
	}
	var req dto.SubmitCertificateRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.bundles.SubmitCertificate(c.Request.Context(), claimsFromContext(c), courseID, bundleID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CompleteBundle godoc
// @Summary Submit all certificates for approval
// @Tags Bundles
// @Accept json
// @Produce json
// @Param course_id path int true "Course ID"
// @Param bundle_id path int true "Bundle ID"
// @Param payload body dto.CompleteBundleRequest false "Comment"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /student/course/{course_id}/bundle/{bundle_id}/complete [post]
func (h *StudentHandler) CompleteBundle(c *gin.Context) {
	courseID, bundleID, ok := bundlePath(c)
	if !ok {
		return
	}
	var req dto.CompleteBundleRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if err := h.bundles.CompleteBundle(c.Request.Context(), claimsFromContext(c), courseID, bundleID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddDetail godoc
// @Summary Add a MOOC to an editable bundle
// @Tags Bundles
// @Accept json
// @Produce json
// @Param course_id path int true "Course ID"
// @Param bundle_id path int true "Bundle ID"
// @Param payload body dto.BundleMoocRequest true "MOOC"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /student/course/{course_id}/bundle/{bundle_id}/detail [post]
func (h *StudentHandler) AddDetail(c *gin.Context) {
	courseID, bundleID, ok := bundlePath(c)
	if !ok {
		return
	}
	var req dto.BundleMoocRequest
	if !bindJSON(c, &req) {
		return
	}
	detail, err := h.bundles.AddMooc(c.Request.Context(), claimsFromContext(c), courseID, bundleID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// UpdateDetail godoc
// @Summary Swap the MOOC of a bundle detail
// @Tags Bundles
// @Accept json
// @Produce json
// @Param course_id path int true "Course ID"
// @Param bundle_id path int true "Bundle ID"
// @Param detail_id path int true "Bundle detail ID"
// @Param payload body dto.BundleMoocRequest true "MOOC"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /student/course/{course_id}/bundle/{bundle_id}/detail/{detail_id} [put]
func (h *StudentHandler) UpdateDetail(c *gin.Context) {
	courseID, bundleID, ok := bundlePath(c)
	if !ok {
		return
	}
	detailID, ok := idParam(c, "detail_id")
	if !ok {
		return
	}
	var body dto.BundleMoocRequest
	if !bindJSON(c, &body) {
		return
	}
	req := dto.UpdateBundleDetailRequest{BundleDetailID: detailID, MoocID: body.MoocID}
	if err := h.bundles.UpdateDetail(c.Request.Context(), claimsFromContext(c), courseID, bundleID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteDetail godoc
// @Summary Remove a MOOC from an editable bundle
// @Tags Bundles
// @Produce json
// @Param course_id path int true "Course ID"
// @Param bundle_id path int true "Bundle ID"
// @Param detail_id path int true "Bundle detail ID"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /student/course/{course_id}/bundle/{bundle_id}/detail/{detail_id} [delete]
func (h *StudentHandler) DeleteDetail(c *gin.Context) {
	courseID, bundleID, ok := bundlePath(c)
	if !ok {
		return
	}
	detailID, ok := idParam(c, "detail_id")
	if !ok {
		return
	}
	req := dto.DeleteBundleDetailRequest{BundleDetailID: detailID}
	if err := h.bundles.DeleteDetail(c.Request.Context(), claimsFromContext(c), courseID, bundleID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func bundlePath(c *gin.Context) (int64, int64, bool) {
	courseID, ok := idParam(c, "course_id")
	if !ok {
		return 0, 0, false
	}
	bundleID, ok := idParam(c, "bundle_id")
	if !ok {
		return 0, 0, false
	}
	return courseID, bundleID, true
}
