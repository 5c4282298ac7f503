package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mooc-credit-api/internal/dto"
	"github.com/noah-isme/mooc-credit-api/internal/models"
	"github.com/noah-isme/mooc-credit-api/internal/repository"
	appErrors "github.com/noah-isme/mooc-credit-api/pkg/errors"
	"github.com/noah-isme/mooc-credit-api/pkg/export"
)

type bundleStore interface {
	FindByID(ctx context.Context, id int64) (*models.Bundle, error)
	Scope(ctx context.Context, id int64) (*models.BundleScope, error)
	ListByEnrollment(ctx context.Context, enrollmentID int64) ([]models.Bundle, error)
	Details(ctx context.Context, bundleID int64) ([]models.BundleDetailView, error)
	DetailsByBundles(ctx context.Context, bundleIDs []int64) (map[int64][]models.BundleDetailView, error)
	HasBlocking(ctx context.Context, enrollmentID int64) (bool, error)
	Create(ctx context.Context, enrollmentID int64, comment *string, moocIDs []int64) (*models.Bundle, error)
	DecideBundle(ctx context.Context, to models.BundleStatus, d models.BundleDecision) error
	SetCertificate(ctx context.Context, bundleID, detailID int64, url string) error
	Complete(ctx context.Context, bundleID int64, comment *string, at time.Time) error
	ApproveCertificate(ctx context.Context, d models.BundleDecision) error
	RejectCertificate(ctx context.Context, d models.BundleDecision, keepCertificates bool) (*models.Bundle, error)
	AddDetail(ctx context.Context, bundleID, moocID int64) (*models.BundleDetail, error)
	ReplaceDetailMooc(ctx context.Context, bundleID, detailID, moocID int64) error
	DeleteDetail(ctx context.Context, bundleID, detailID int64) error
	ListByCourseStatus(ctx context.Context, courseID int64, status models.BundleStatus) ([]models.CourseBundleRow, error)
}

type bundleEnrollmentReader interface {
	Find(ctx context.Context, studentID, courseID int64) (*models.Enrollment, error)
}

type bundleCourseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

type bundleMoocReader interface {
	FindActiveByIDs(ctx context.Context, ids []int64) ([]models.Mooc, error)
	FindActive(ctx context.Context, id int64) (*models.Mooc, error)
}

// BundlePolicy holds the credit-hour rule applied when a bundle is created.
type BundlePolicy struct {
	HoursPerCredit         float64
	Tolerance              float64
	CloneKeepsCertificates bool
}

// RequiredHours is the minimum MOOC hours a bundle needs for a course.
func (p BundlePolicy) RequiredHours(credits int) float64 {
	return float64(credits) * p.HoursPerCredit * (1 - p.Tolerance)
}

// BundleServiceParams groups the collaborators of BundleService.
type BundleServiceParams struct {
	Bundles     bundleStore
	Enrollments bundleEnrollmentReader
	Courses     bundleCourseReader
	Moocs       bundleMoocReader
	Guard       *AccessGuard
	Notifier    Notifier
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
	Policy      BundlePolicy
	Clock       func() time.Time
}

// BundleService drives the bundle lifecycle. Every transition is delegated
// to a conditional store write; a bundle found in another status yields
// InvalidState and nothing is written.
type BundleService struct {
	bundles     bundleStore
	enrollments bundleEnrollmentReader
	courses     bundleCourseReader
	moocs       bundleMoocReader
	guard       *AccessGuard
	notifier    Notifier
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	policy      BundlePolicy
	now         func() time.Time
}

// NewBundleService constructs the service.
func NewBundleService(p BundleServiceParams) *BundleService {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.Validator == nil {
		p.Validator = validator.New()
	}
	if p.Clock == nil {
		p.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &BundleService{
		bundles:     p.Bundles,
		enrollments: p.Enrollments,
		courses:     p.Courses,
		moocs:       p.Moocs,
		guard:       p.Guard,
		notifier:    p.Notifier,
		metrics:     p.Metrics,
		validator:   p.Validator,
		logger:      p.Logger,
		policy:      p.Policy,
		now:         p.Clock,
	}
}

// ExportFile is a rendered bundle listing.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// CreateBundle opens a Waiting Bundle for the caller's enrollment in courseID.
func (s *BundleService) CreateBundle(ctx context.Context, claims *models.JWTClaims, courseID int64, req dto.CreateBundleRequest) (*models.BundleWithDetails, error) {
	if err := validationError(s.validator, req, "invalid bundle payload"); err != nil {
		return nil, err
	}
	if dup, ok := firstDuplicate(req.MoocIDs); ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("MOOC %d selected more than once", dup))
	}

	_, enrollment, course, err := s.studentEnrollment(ctx, claims, courseID)
	if err != nil {
		return nil, err
	}
	if enrollment.Waiting {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}

	blocked, err := s.bundles.HasBlocking(ctx, enrollment.ID)
	if err != nil {
		return nil, storeError(err, "bundle")
	}
	if blocked {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an open or accepted bundle already exists for this course")
	}

	moocs, err := s.moocs.FindActiveByIDs(ctx, req.MoocIDs)
	if err != nil {
		return nil, storeError(err, "mooc")
	}
	if len(moocs) != len(req.MoocIDs) {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "unknown or inactive MOOC selected")
	}

	var total float64
	for _, m := range moocs {
		total += m.AverageHours
	}
	required := s.policy.RequiredHours(course.Credits)
	if total < required {
		return nil, appErrors.Clone(appErrors.ErrPolicyViolation,
			fmt.Sprintf("selected MOOCs total %.1f hours, at least %.1f required", total, required))
	}

	bundle, err := s.bundles.Create(ctx, enrollment.ID, optionalString(req.Comment), req.MoocIDs)
	s.metrics.RecordBundleTransition(models.BundleWaitingBundle, err)
	if err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "an open bundle already exists for this course")
		}
		return nil, storeError(err, "bundle")
	}
	s.logger.Info("bundle created", zap.Int64("bundle_id", bundle.ID), zap.Int64("enrollment_id", enrollment.ID), zap.Int("moocs", len(req.MoocIDs)))

	details, err := s.bundles.Details(ctx, bundle.ID)
	if err != nil {
		return nil, storeError(err, "bundle")
	}
	return withDetails(*bundle, details), nil
}

// ListStudentBundles returns the caller's bundles for a course, newest first.
func (s *BundleService) ListStudentBundles(ctx context.Context, claims *models.JWTClaims, courseID int64) ([]models.BundleWithDetails, error) {
	student, err := s.guard.Student(ctx, claims)
	if err != nil {
		return nil, err
	}
	enrollment, err := s.enrollments.Find(ctx, student.ID, courseID)
	if err != nil {
		return nil, storeError(err, "enrollment")
	}
	bundles, err := s.bundles.ListByEnrollment(ctx, enrollment.ID)
	if err != nil {
		return nil, storeError(err, "bundle")
	}
	ids := make([]int64, len(bundles))
	for i, b := range bundles {
		ids[i] = b.ID
	}
	details, err := s.bundles.DetailsByBundles(ctx, ids)
	if err != nil {
		return nil, storeError(err, "bundle")
	}
	out := make([]models.BundleWithDetails, 0, len(bundles))
	for _, b := range bundles {
		out = append(out, *withDetails(b, details[b.ID]))
	}
	return out, nil
}

// GetStudentBundle returns one of the caller's bundles with its details.
func (s *BundleService) GetStudentBundle(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64) (*models.BundleWithDetails, error) {
	if _, err := s.studentBundle(ctx, claims, courseID, bundleID); err != nil {
		return nil, err
	}
	return s.loadBundle(ctx, bundleID)
}

// SubmitCertificate stores a certificate URL on a detail of a Waiting
// Certificates bundle. Resubmitting overwrites the previous URL.
func (s *BundleService) SubmitCertificate(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64, req dto.SubmitCertificateRequest) error {
	if err := validationError(s.validator, req, "invalid certificate payload"); err != nil {
		return err
	}
	if _, err := s.studentBundle(ctx, claims, courseID, bundleID); err != nil {
		return err
	}
	if err := s.bundles.SetCertificate(ctx, bundleID, req.BundleDetailID, strings.TrimSpace(req.CertificateURL)); err != nil {
		return storeError(err, "bundle detail")
	}
	return nil
}

// CompleteBundle sends a fully certified bundle for approval.
func (s *BundleService) CompleteBundle(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64, req dto.CompleteBundleRequest) error {
	if err := validationError(s.validator, req, "invalid completion payload"); err != nil {
		return err
	}
	if _, err := s.studentBundle(ctx, claims, courseID, bundleID); err != nil {
		return err
	}
	err := s.bundles.Complete(ctx, bundleID, optionalString(req.Comment), s.now())
	s.metrics.RecordBundleTransition(models.BundleWaitingApproval, err)
	if err != nil {
		return storeError(err, "bundle")
	}
	return nil
}

// AddMooc appends an active MOOC to an editable bundle.
func (s *BundleService) AddMooc(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64, req dto.BundleMoocRequest) (*models.BundleDetail, error) {
	if err := validationError(s.validator, req, "invalid MOOC payload"); err != nil {
		return nil, err
	}
	if _, err := s.studentBundle(ctx, claims, courseID, bundleID); err != nil {
		return nil, err
	}
	if err := s.requireActiveMooc(ctx, req.MoocID); err != nil {
		return nil, err
	}
	detail, err := s.bundles.AddDetail(ctx, bundleID, req.MoocID)
	if err != nil {
		return nil, detailWriteError(err)
	}
	return detail, nil
}

// UpdateDetail swaps the MOOC of a detail; its certificate is cleared.
func (s *BundleService) UpdateDetail(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64, req dto.UpdateBundleDetailRequest) error {
	if err := validationError(s.validator, req, "invalid bundle detail payload"); err != nil {
		return err
	}
	if _, err := s.studentBundle(ctx, claims, courseID, bundleID); err != nil {
		return err
	}
	if err := s.requireActiveMooc(ctx, req.MoocID); err != nil {
		return err
	}
	if err := s.bundles.ReplaceDetailMooc(ctx, bundleID, req.BundleDetailID, req.MoocID); err != nil {
		return detailWriteError(err)
	}
	return nil
}

// DeleteDetail removes a detail, refusing to empty the bundle.
func (s *BundleService) DeleteDetail(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64, req dto.DeleteBundleDetailRequest) error {
	if err := validationError(s.validator, req, "invalid bundle detail payload"); err != nil {
		return err
	}
	if _, err := s.studentBundle(ctx, claims, courseID, bundleID); err != nil {
		return err
	}
	if err := s.bundles.DeleteDetail(ctx, bundleID, req.BundleDetailID); err != nil {
		return storeError(err, "bundle detail")
	}
	return nil
}

// ApproveBundle moves a Waiting Bundle to Waiting Certificates.
func (s *BundleService) ApproveBundle(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64) error {
	principal, scope, err := s.coordinatorBundle(ctx, claims, courseID, bundleID)
	if err != nil {
		return err
	}
	decision := s.decision(principal, bundleID, "")
	err = s.bundles.DecideBundle(ctx, models.BundleWaitingCertificates, decision)
	s.metrics.RecordBundleTransition(models.BundleWaitingCertificates, err)
	if err != nil {
		return storeError(err, "bundle")
	}
	s.notify(ctx, scope, "MEF MOOC Bundle Approved",
		fmt.Sprintf("Your MOOC bundle for %s has been approved. Please upload your certificates.", courseLabel(scope)))
	return nil
}

// RejectBundle moves a Waiting Bundle to the terminal Rejected Bundle.
func (s *BundleService) RejectBundle(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64, req dto.RejectRequest) error {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validationError(s.validator, req, "invalid rejection payload"); err != nil {
		return err
	}
	principal, scope, err := s.coordinatorBundle(ctx, claims, courseID, bundleID)
	if err != nil {
		return err
	}
	decision := s.decision(principal, bundleID, req.Reason)
	err = s.bundles.DecideBundle(ctx, models.BundleRejectedBundle, decision)
	s.metrics.RecordBundleTransition(models.BundleRejectedBundle, err)
	if err != nil {
		return storeError(err, "bundle")
	}
	s.notify(ctx, scope, "MEF MOOC Bundle Rejected",
		fmt.Sprintf("Your MOOC bundle for %s has been rejected.\n\nReason: %s", courseLabel(scope), req.Reason))
	return nil
}

// ApproveCertificate accepts a Waiting Approval bundle and passes the enrollment.
func (s *BundleService) ApproveCertificate(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64) error {
	principal, scope, err := s.coordinatorBundle(ctx, claims, courseID, bundleID)
	if err != nil {
		return err
	}
	err = s.bundles.ApproveCertificate(ctx, s.decision(principal, bundleID, ""))
	s.metrics.RecordBundleTransition(models.BundleAcceptedCertificates, err)
	if err != nil {
		return storeError(err, "bundle")
	}
	s.notify(ctx, scope, "MEF MOOC Certificates Approved",
		fmt.Sprintf("Your certificates for %s have been approved. You have passed the course.", courseLabel(scope)))
	return nil
}

// RejectCertificate rejects a Waiting Approval bundle and returns the
// Waiting Certificates copy opened in its place.
func (s *BundleService) RejectCertificate(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64, req dto.RejectRequest) (*models.Bundle, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validationError(s.validator, req, "invalid rejection payload"); err != nil {
		return nil, err
	}
	principal, scope, err := s.coordinatorBundle(ctx, claims, courseID, bundleID)
	if err != nil {
		return nil, err
	}
	clone, err := s.bundles.RejectCertificate(ctx, s.decision(principal, bundleID, req.Reason), s.policy.CloneKeepsCertificates)
	s.metrics.RecordBundleTransition(models.BundleRejectedCertificates, err)
	if err != nil {
		return nil, storeError(err, "bundle")
	}
	s.logger.Info("certificates rejected, bundle reopened", zap.Int64("bundle_id", bundleID), zap.Int64("reopened_bundle_id", clone.ID))
	s.notify(ctx, scope, "MEF MOOC Certificates Rejected",
		fmt.Sprintf("Your certificates for %s have been rejected.\n\nReason: %s\n\nPlease upload your certificates again.", courseLabel(scope), req.Reason))
	return clone, nil
}

// ListCourseBundles returns a course's bundles in the status named by slug.
func (s *BundleService) ListCourseBundles(ctx context.Context, claims *models.JWTClaims, courseID int64, slug string) ([]models.CourseBundleRow, error) {
	status, ok := models.BundleStatusFromSlug(slug)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("unknown bundle status %q", slug))
	}
	if _, _, err := s.guard.AuthorizeCourse(ctx, claims, courseID); err != nil {
		return nil, err
	}
	rows, err := s.bundles.ListByCourseStatus(ctx, courseID, status)
	if err != nil {
		return nil, storeError(err, "bundle")
	}
	return rows, nil
}

// ExportCourseBundles renders ListCourseBundles as CSV or PDF.
func (s *BundleService) ExportCourseBundles(ctx context.Context, claims *models.JWTClaims, courseID int64, slug, format string) (*ExportFile, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, appErrors.Invalid(err, "unsupported export format")
	}
	rows, err := s.ListCourseBundles(ctx, claims, courseID, slug)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, storeError(err, "course")
	}
	data, err := export.Render(f, bundleDataset(course, slug, rows))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("%s-%s.%s", course.CourseCode, slug, f),
		ContentType: f.ContentType(),
		Data:        data,
	}, nil
}

// studentEnrollment resolves the caller's enrollment in an active course of
// their own department.
func (s *BundleService) studentEnrollment(ctx context.Context, claims *models.JWTClaims, courseID int64) (*models.Student, *models.Enrollment, *models.Course, error) {
	student, err := s.guard.Student(ctx, claims)
	if err != nil {
		return nil, nil, nil, err
	}
	enrollment, err := s.enrollments.Find(ctx, student.ID, courseID)
	if err != nil {
		return nil, nil, nil, storeError(err, "enrollment")
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, nil, nil, storeError(err, "course")
	}
	if !course.Active || course.DepartmentID != student.DepartmentID {
		return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return student, enrollment, course, nil
}

// studentBundle checks the bundle belongs to the caller's enrollment in courseID.
func (s *BundleService) studentBundle(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64) (*models.BundleScope, error) {
	student, err := s.guard.Student(ctx, claims)
	if err != nil {
		return nil, err
	}
	scope, err := s.bundles.Scope(ctx, bundleID)
	if err != nil {
		return nil, storeError(err, "bundle")
	}
	if scope.StudentID != student.ID || scope.CourseID != courseID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "bundle not found")
	}
	return scope, nil
}

// coordinatorBundle checks the caller coordinates the bundle's department.
func (s *BundleService) coordinatorBundle(ctx context.Context, claims *models.JWTClaims, courseID, bundleID int64) (*CoordinatorPrincipal, *models.BundleScope, error) {
	principal, _, err := s.guard.AuthorizeCourse(ctx, claims, courseID)
	if err != nil {
		return nil, nil, err
	}
	scope, err := s.bundles.Scope(ctx, bundleID)
	if err != nil {
		return nil, nil, storeError(err, "bundle")
	}
	if err := principal.Owns(scope.CourseDepartment); err != nil {
		return nil, nil, err
	}
	if scope.CourseID != courseID {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "bundle not found")
	}
	return principal, scope, nil
}

func (s *BundleService) decision(principal *CoordinatorPrincipal, bundleID int64, reason string) models.BundleDecision {
	return models.BundleDecision{
		BundleID:      bundleID,
		CoordinatorID: principal.Coordinator.ID,
		Reason:        strings.TrimSpace(reason),
		DecidedAt:     s.now(),
	}
}

func (s *BundleService) requireActiveMooc(ctx context.Context, moocID int64) error {
	if _, err := s.moocs.FindActive(ctx, moocID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrInvalidInput, "unknown or inactive MOOC selected")
		}
		return storeError(err, "mooc")
	}
	return nil
}

func (s *BundleService) loadBundle(ctx context.Context, bundleID int64) (*models.BundleWithDetails, error) {
	bundle, err := s.bundles.FindByID(ctx, bundleID)
	if err != nil {
		return nil, storeError(err, "bundle")
	}
	details, err := s.bundles.Details(ctx, bundleID)
	if err != nil {
		return nil, storeError(err, "bundle")
	}
	return withDetails(*bundle, details), nil
}

func (s *BundleService) notify(ctx context.Context, scope *models.BundleScope, subject, body string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Enqueue(ctx, scope.StudentEmail, subject, fmt.Sprintf("Hello %s,\n\n%s", scope.StudentName, body))
}

func detailWriteError(err error) error {
	if errors.Is(err, repository.ErrUniqueViolation) {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "MOOC is already part of the bundle")
	}
	return storeError(err, "bundle detail")
}

func withDetails(bundle models.Bundle, details []models.BundleDetailView) *models.BundleWithDetails {
	if details == nil {
		details = []models.BundleDetailView{}
	}
	var total float64
	for _, d := range details {
		total += d.AverageHours
	}
	return &models.BundleWithDetails{Bundle: bundle, Details: details, TotalHours: total}
}

func firstDuplicate(ids []int64) (int64, bool) {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id, true
		}
		seen[id] = struct{}{}
	}
	return 0, false
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func courseLabel(scope *models.BundleScope) string {
	return strings.TrimSpace(scope.CourseCode + " " + scope.CourseName)
}

func bundleDataset(course *models.Course, slug string, rows []models.CourseBundleRow) export.Dataset {
	data := export.Dataset{
		Title: fmt.Sprintf("%s %s: %s", course.CourseCode, course.Semester, slug),
		Columns: []export.Column{
			{Key: "bundle_id", Title: "Bundle", Width: 0.6},
			{Key: "student_no", Title: "Student No"},
			{Key: "student", Title: "Student", Width: 1.4},
			{Key: "email", Title: "Email", Width: 1.6},
			{Key: "mooc", Title: "MOOC", Width: 2},
			{Key: "hours", Title: "Hours", Width: 0.6},
			{Key: "certificate", Title: "Certificate", Width: 2},
			{Key: "status", Title: "Status", Width: 1.2},
			{Key: "created_at", Title: "Created"},
		},
		Rows: make([]map[string]string, 0, len(rows)),
	}
	for _, r := range rows {
		certificate := ""
		if r.CertificateURL != nil {
			certificate = *r.CertificateURL
		}
		data.Rows = append(data.Rows, map[string]string{
			"bundle_id":   strconv.FormatInt(r.BundleID, 10),
			"student_no":  r.StudentNo,
			"student":     strings.TrimSpace(r.StudentName + " " + r.StudentSurname),
			"email":       r.StudentEmail,
			"mooc":        r.MoocName,
			"hours":       strconv.FormatFloat(r.AverageHours, 'f', -1, 64),
			"certificate": certificate,
			"status":      string(r.Status),
			"created_at":  r.BundleCreatedAt.Format("2006-01-02"),
		})
	}
	return data
}
