package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/mooc-credit-api/internal/dto"
	"github.com/noah-isme/mooc-credit-api/internal/models"
	"github.com/noah-isme/mooc-credit-api/internal/repository"
	appErrors "github.com/noah-isme/mooc-credit-api/pkg/errors"
)

type enrollmentStore interface {
	Find(ctx context.Context, studentID, courseID int64) (*models.Enrollment, error)
	Admit(ctx context.Context, studentID, courseID int64, waitlist func(blocking int) bool) (*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID int64) ([]models.StudentEnrollment, error)
	ListByCourse(ctx context.Context, courseID int64, waiting *bool) ([]models.CourseStudent, error)
	AcceptWaiting(ctx context.Context, courseID, studentID int64) error
	DeleteWaiting(ctx context.Context, courseID, studentID int64) error
}

type enrollmentCourseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	ListAvailable(ctx context.Context, studentID, departmentID int64) ([]models.CourseSummary, error)
}

type enrollmentStudentReader interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
}

// MustWait is the admission rule: a student holding any passed enrollment or
// any enrollment in an active course joins the waiting list.
func MustWait(blocking int) bool {
	return blocking > 0
}

// EnrollmentService admits students to courses and lets coordinators work
// the waiting list.
type EnrollmentService struct {
	enrollments enrollmentStore
	courses     enrollmentCourseReader
	students    enrollmentStudentReader
	guard       *AccessGuard
	notifier    Notifier
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs the service.
func NewEnrollmentService(enrollments enrollmentStore, courses enrollmentCourseReader, students enrollmentStudentReader, guard *AccessGuard, notifier Notifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{
		enrollments: enrollments,
		courses:     courses,
		students:    students,
		guard:       guard,
		notifier:    notifier,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Enroll enrolls the calling student, admitting or waitlisting them.
func (s *EnrollmentService) Enroll(ctx context.Context, claims *models.JWTClaims, req dto.EnrollRequest) (*dto.EnrollResult, error) {
	if err := validationError(s.validator, req, "invalid enrollment payload"); err != nil {
		return nil, err
	}
	student, err := s.guard.Student(ctx, claims)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		return nil, storeError(err, "course")
	}
	if !course.Active || course.DepartmentID != student.DepartmentID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}

	if _, err := s.enrollments.Find(ctx, student.ID, course.ID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled in this course")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, storeError(err, "enrollment")
	}

	enrollment, err := s.enrollments.Admit(ctx, student.ID, course.ID, MustWait)
	if err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "already enrolled in this course")
		}
		return nil, storeError(err, "enrollment")
	}
	s.metrics.RecordEnrollment(enrollment.Waiting)
	s.logger.Info("student enrolled",
		zap.Int64("student_id", student.ID),
		zap.Int64("course_id", course.ID),
		zap.Bool("waiting", enrollment.Waiting),
	)
	return &dto.EnrollResult{EnrollmentID: enrollment.ID, CourseID: course.ID, Waiting: enrollment.Waiting}, nil
}

// AcceptWaiting admits a waiting student to the coordinator's course.
func (s *EnrollmentService) AcceptWaiting(ctx context.Context, claims *models.JWTClaims, courseID, studentID int64) error {
	_, course, err := s.guard.AuthorizeCourse(ctx, claims, courseID)
	if err != nil {
		return err
	}
	if err := s.enrollments.AcceptWaiting(ctx, courseID, studentID); err != nil {
		return storeError(err, "waiting enrollment")
	}
	s.metrics.RecordEnrollment(false)
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		s.logger.Warn("accepted student lookup failed, skipping notification", zap.Int64("student_id", studentID), zap.Error(err))
		return nil
	}
	s.notify(ctx, student, "MEF MOOC Enrollment Accepted",
		fmt.Sprintf("Your enrollment request for %s %s has been accepted.", course.CourseCode, course.Name))
	return nil
}

// RejectWaiting removes a waiting enrollment and mails the student the
// coordinator's message.
func (s *EnrollmentService) RejectWaiting(ctx context.Context, claims *models.JWTClaims, courseID, studentID int64, req dto.RejectWaitingRequest) error {
	if err := validationError(s.validator, req, "invalid rejection payload"); err != nil {
		return err
	}
	_, course, err := s.guard.AuthorizeCourse(ctx, claims, courseID)
	if err != nil {
		return err
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return storeError(err, "student")
	}
	if err := s.enrollments.DeleteWaiting(ctx, courseID, studentID); err != nil {
		return storeError(err, "waiting enrollment")
	}
	body := fmt.Sprintf("Your enrollment request for %s %s has been rejected.", course.CourseCode, course.Name)
	if msg := strings.TrimSpace(req.Message); msg != "" {
		body += "\n\n" + msg
	}
	s.notify(ctx, student, "MEF MOOC Enrollment Rejected", body)
	return nil
}

// AvailableCourses lists active courses of the caller's department they have
// not enrolled in.
func (s *EnrollmentService) AvailableCourses(ctx context.Context, claims *models.JWTClaims) ([]models.CourseSummary, error) {
	student, err := s.guard.Student(ctx, claims)
	if err != nil {
		return nil, err
	}
	items, err := s.courses.ListAvailable(ctx, student.ID, student.DepartmentID)
	if err != nil {
		return nil, storeError(err, "course")
	}
	return items, nil
}

// StudentEnrollments lists the caller's enrollments in active courses.
func (s *EnrollmentService) StudentEnrollments(ctx context.Context, claims *models.JWTClaims) ([]models.StudentEnrollment, error) {
	student, err := s.guard.Student(ctx, claims)
	if err != nil {
		return nil, err
	}
	items, err := s.enrollments.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, storeError(err, "enrollment")
	}
	return items, nil
}

// CourseStudents lists a course's admitted students, or its waiting list.
func (s *EnrollmentService) CourseStudents(ctx context.Context, claims *models.JWTClaims, courseID int64, waiting bool) ([]models.CourseStudent, error) {
	if _, _, err := s.guard.AuthorizeCourse(ctx, claims, courseID); err != nil {
		return nil, err
	}
	items, err := s.enrollments.ListByCourse(ctx, courseID, &waiting)
	if err != nil {
		return nil, storeError(err, "enrollment")
	}
	return items, nil
}

func (s *EnrollmentService) notify(ctx context.Context, student *models.Student, subject, body string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Enqueue(ctx, student.Email, subject, fmt.Sprintf("Hello %s,\n\n%s", student.FullName(), body))
}
