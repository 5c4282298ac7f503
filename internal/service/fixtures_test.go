package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mooc-credit-api/internal/models"
	"github.com/noah-isme/mooc-credit-api/internal/repository"
	appErrors "github.com/noah-isme/mooc-credit-api/pkg/errors"
)

// memoryStore is an in-memory stand-in for the Postgres schema. It keeps the
// same conditional-write semantics as the SQL repositories.
type memoryStore struct {
	mu           sync.Mutex
	students     map[int64]*models.Student
	coordinators map[int64]*models.Coordinator
	departments  map[int64]*models.Department
	courses      map[int64]*models.Course
	moocs        map[int64]*models.Mooc
	enrollments  map[int64]*models.Enrollment
	bundles      map[int64]*models.Bundle
	details      map[int64]*models.BundleDetail
	seq          int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		students:     map[int64]*models.Student{},
		coordinators: map[int64]*models.Coordinator{},
		departments:  map[int64]*models.Department{},
		courses:      map[int64]*models.Course{},
		moocs:        map[int64]*models.Mooc{},
		enrollments:  map[int64]*models.Enrollment{},
		bundles:      map[int64]*models.Bundle{},
		details:      map[int64]*models.BundleDetail{},
		seq:          1000,
	}
}

func (m *memoryStore) id() int64 {
	m.seq++
	return m.seq
}

func (m *memoryStore) bundleDetails(bundleID int64) []*models.BundleDetail {
	var out []*models.BundleDetail
	for _, d := range m.details {
		if d.BundleID == bundleID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memoryStore) enrollmentFor(studentID, courseID int64) *models.Enrollment {
	for _, e := range m.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return e
		}
	}
	return nil
}

type memStudents struct{ *memoryStore }

func (r memStudents) FindByID(_ context.Context, id int64) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (r memStudents) Profile(ctx context.Context, id int64) (*models.StudentProfile, error) {
	s, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return &models.StudentProfile{Student: *s, DepartmentName: r.departments[s.DepartmentID].Name}, nil
}

type memCoordinators struct{ *memoryStore }

func (r memCoordinators) FindByID(_ context.Context, id int64) (*models.Coordinator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coordinators[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

type memDepartments struct{ *memoryStore }

func (r memDepartments) FindByCoordinator(_ context.Context, coordinatorID int64) (*models.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.departments {
		if d.CoordinatorID != nil && *d.CoordinatorID == coordinatorID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

type memCourses struct{ *memoryStore }

func (r memCourses) FindByID(_ context.Context, id int64) (*models.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (r memCourses) ListAvailable(_ context.Context, studentID, departmentID int64) ([]models.CourseSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CourseSummary
	for _, c := range r.courses {
		if !c.Active || c.DepartmentID != departmentID || r.enrollmentFor(studentID, c.ID) != nil {
			continue
		}
		out = append(out, models.CourseSummary{ID: c.ID, Name: c.Name, CourseCode: c.CourseCode, Credits: c.Credits, Semester: c.Semester})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memMoocs struct{ *memoryStore }

func (r memMoocs) FindActiveByIDs(_ context.Context, ids []int64) ([]models.Mooc, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Mooc
	for _, id := range ids {
		if m, ok := r.moocs[id]; ok && m.Active {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r memMoocs) FindActive(_ context.Context, id int64) (*models.Mooc, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.moocs[id]
	if !ok || !m.Active {
		return nil, sql.ErrNoRows
	}
	cp := *m
	return &cp, nil
}

type memEnrollments struct{ *memoryStore }

func (r memEnrollments) Find(_ context.Context, studentID, courseID int64) (*models.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.enrollmentFor(studentID, courseID)
	if e == nil {
		return nil, sql.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (r memEnrollments) Admit(_ context.Context, studentID, courseID int64, waitlist func(blocking int) bool) (*models.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enrollmentFor(studentID, courseID) != nil {
		return nil, repository.ErrUniqueViolation
	}
	blocking := 0
	for _, e := range r.enrollments {
		if e.StudentID != studentID {
			continue
		}
		if e.Passed != nil && *e.Passed {
			blocking++
		}
		if c := r.courses[e.CourseID]; c != nil && c.Active {
			blocking++
		}
	}
	e := &models.Enrollment{ID: r.id(), StudentID: studentID, CourseID: courseID, Waiting: waitlist(blocking)}
	r.enrollments[e.ID] = e
	cp := *e
	return &cp, nil
}

func (r memEnrollments) ListByStudent(_ context.Context, studentID int64) ([]models.StudentEnrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.StudentEnrollment
	for _, e := range r.enrollments {
		c := r.courses[e.CourseID]
		if e.StudentID != studentID || c == nil || !c.Active {
			continue
		}
		out = append(out, models.StudentEnrollment{EnrollmentID: e.ID, Waiting: e.Waiting, Passed: e.Passed, CourseID: c.ID, Name: c.Name, CourseCode: c.CourseCode})
	}
	return out, nil
}

func (r memEnrollments) ListByCourse(_ context.Context, courseID int64, waiting *bool) ([]models.CourseStudent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CourseStudent
	for _, e := range r.enrollments {
		if e.CourseID != courseID || (waiting != nil && e.Waiting != *waiting) {
			continue
		}
		s := r.students[e.StudentID]
		out = append(out, models.CourseStudent{ID: s.ID, StudentNo: s.StudentNo, Name: s.Name, Surname: s.Surname, Email: s.Email, EnrollmentID: e.ID, Waiting: e.Waiting, Passed: e.Passed})
	}
	return out, nil
}

func (r memEnrollments) AcceptWaiting(_ context.Context, courseID, studentID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.enrollmentFor(studentID, courseID)
	if e == nil || !e.Waiting {
		return sql.ErrNoRows
	}
	e.Waiting = false
	return nil
}

func (r memEnrollments) DeleteWaiting(_ context.Context, courseID, studentID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.enrollmentFor(studentID, courseID)
	if e == nil || !e.Waiting {
		return sql.ErrNoRows
	}
	delete(r.enrollments, e.ID)
	return nil
}

type memBundles struct{ *memoryStore }

func (r memBundles) FindByID(_ context.Context, id int64) (*models.Bundle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bundles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (r memBundles) Scope(_ context.Context, id int64) (*models.BundleScope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bundles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	e := r.enrollments[b.EnrollmentID]
	s := r.students[e.StudentID]
	c := r.courses[e.CourseID]
	return &models.BundleScope{
		BundleID:         b.ID,
		Status:           b.Status,
		EnrollmentID:     e.ID,
		StudentID:        s.ID,
		StudentEmail:     s.Email,
		StudentName:      s.FullName(),
		CourseID:         c.ID,
		CourseCode:       c.CourseCode,
		CourseName:       c.Name,
		CourseActive:     c.Active,
		CourseDepartment: c.DepartmentID,
	}, nil
}

func (r memBundles) ListByEnrollment(_ context.Context, enrollmentID int64) ([]models.Bundle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Bundle
	for _, b := range r.bundles {
		if b.EnrollmentID == enrollmentID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memBundles) Details(ctx context.Context, bundleID int64) ([]models.BundleDetailView, error) {
	byBundle, err := r.DetailsByBundles(ctx, []int64{bundleID})
	return byBundle[bundleID], err
}

func (r memBundles) DetailsByBundles(_ context.Context, bundleIDs []int64) (map[int64][]models.BundleDetailView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64][]models.BundleDetailView, len(bundleIDs))
	for _, id := range bundleIDs {
		for _, d := range r.bundleDetails(id) {
			m := r.moocs[d.MoocID]
			out[id] = append(out[id], models.BundleDetailView{BundleDetail: *d, MoocName: m.Name, MoocURL: m.URL, AverageHours: m.AverageHours})
		}
	}
	return out, nil
}

func (r memBundles) HasBlocking(_ context.Context, enrollmentID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blocking(enrollmentID), nil
}

func (r memBundles) blocking(enrollmentID int64) bool {
	for _, b := range r.bundles {
		if b.EnrollmentID == enrollmentID && (b.Status.Open() || b.Status == models.BundleAcceptedCertificates) {
			return true
		}
	}
	return false
}

func (r memBundles) Create(_ context.Context, enrollmentID int64, comment *string, moocIDs []int64) (*models.Bundle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.blocking(enrollmentID) {
		return nil, repository.ErrUniqueViolation
	}
	b := &models.Bundle{ID: r.id(), EnrollmentID: enrollmentID, Status: models.BundleWaitingBundle, Comment: comment}
	r.bundles[b.ID] = b
	for _, moocID := range moocIDs {
		d := &models.BundleDetail{ID: r.id(), BundleID: b.ID, MoocID: moocID}
		r.details[d.ID] = d
	}
	cp := *b
	return &cp, nil
}

func (r memBundles) transition(id int64, from models.BundleStatus) (*models.Bundle, error) {
	b, ok := r.bundles[id]
	if !ok || b.Status != from {
		return nil, repository.ErrStatusMismatch
	}
	return b, nil
}

func (r memBundles) DecideBundle(_ context.Context, to models.BundleStatus, d models.BundleDecision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.transition(d.BundleID, models.BundleWaitingBundle)
	if err != nil {
		return err
	}
	at := d.DecidedAt
	coordinatorID := d.CoordinatorID
	b.Status = to
	b.BundleCoordinatorID = &coordinatorID
	b.BundleDecidedAt = &at
	if d.Reason != "" {
		reason := d.Reason
		b.RejectReason = &reason
	}
	return nil
}

func (r memBundles) detailMiss(bundleID, detailID int64) error {
	if d, ok := r.details[detailID]; ok && d.BundleID == bundleID {
		return repository.ErrStatusMismatch
	}
	return sql.ErrNoRows
}

func (r memBundles) SetCertificate(_ context.Context, bundleID, detailID int64, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.transition(bundleID, models.BundleWaitingCertificates); err != nil {
		return r.detailMiss(bundleID, detailID)
	}
	d, ok := r.details[detailID]
	if !ok || d.BundleID != bundleID {
		return sql.ErrNoRows
	}
	d.CertificateURL = &url
	return nil
}

func (r memBundles) Complete(_ context.Context, bundleID int64, comment *string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.transition(bundleID, models.BundleWaitingCertificates)
	if err != nil {
		return err
	}
	for _, d := range r.bundleDetails(bundleID) {
		if !d.Certified() {
			return repository.ErrMissingCertificate
		}
	}
	b.Status = models.BundleWaitingApproval
	b.Comment = comment
	b.CompleteDate = &at
	return nil
}

func (r memBundles) ApproveCertificate(_ context.Context, d models.BundleDecision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.transition(d.BundleID, models.BundleWaitingApproval)
	if err != nil {
		return err
	}
	at := d.DecidedAt
	coordinatorID := d.CoordinatorID
	b.Status = models.BundleAcceptedCertificates
	b.CertificateCoordinatorID = &coordinatorID
	b.CertificateDecidedAt = &at
	passed := true
	e := r.enrollments[b.EnrollmentID]
	e.Passed = &passed
	e.PassDate = &at
	return nil
}

func (r memBundles) RejectCertificate(_ context.Context, d models.BundleDecision, keepCertificates bool) (*models.Bundle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, err := r.transition(d.BundleID, models.BundleWaitingApproval)
	if err != nil {
		return nil, err
	}
	at := d.DecidedAt
	coordinatorID := d.CoordinatorID
	reason := d.Reason
	b.Status = models.BundleRejectedCertificates
	b.CertificateCoordinatorID = &coordinatorID
	b.CertificateDecidedAt = &at
	b.RejectReason = &reason

	clone := &models.Bundle{
		ID:                  r.id(),
		EnrollmentID:        b.EnrollmentID,
		Status:              models.BundleWaitingCertificates,
		Comment:             b.Comment,
		BundleCoordinatorID: b.BundleCoordinatorID,
		BundleDecidedAt:     b.BundleDecidedAt,
	}
	r.bundles[clone.ID] = clone
	for _, src := range r.bundleDetails(b.ID) {
		cp := &models.BundleDetail{ID: r.id(), BundleID: clone.ID, MoocID: src.MoocID}
		if keepCertificates {
			cp.CertificateURL = src.CertificateURL
		}
		r.details[cp.ID] = cp
	}
	out := *clone
	return &out, nil
}

func (r memBundles) AddDetail(_ context.Context, bundleID, moocID int64) (*models.BundleDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bundles[bundleID]
	if !ok || !b.Status.DetailsEditable() {
		return nil, repository.ErrStatusMismatch
	}
	for _, d := range r.bundleDetails(bundleID) {
		if d.MoocID == moocID {
			return nil, repository.ErrUniqueViolation
		}
	}
	d := &models.BundleDetail{ID: r.id(), BundleID: bundleID, MoocID: moocID}
	r.details[d.ID] = d
	cp := *d
	return &cp, nil
}

func (r memBundles) ReplaceDetailMooc(_ context.Context, bundleID, detailID, moocID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bundles[bundleID]
	d, present := r.details[detailID]
	if !ok || !b.Status.DetailsEditable() || !present || d.BundleID != bundleID {
		return r.detailMiss(bundleID, detailID)
	}
	for _, other := range r.bundleDetails(bundleID) {
		if other.ID != detailID && other.MoocID == moocID {
			return repository.ErrUniqueViolation
		}
	}
	d.MoocID = moocID
	d.CertificateURL = nil
	return nil
}

func (r memBundles) DeleteDetail(_ context.Context, bundleID, detailID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bundles[bundleID]
	if !ok {
		return sql.ErrNoRows
	}
	if !b.Status.DetailsEditable() {
		return repository.ErrStatusMismatch
	}
	details := r.bundleDetails(bundleID)
	d, present := r.details[detailID]
	if !present || d.BundleID != bundleID {
		return sql.ErrNoRows
	}
	if len(details) <= 1 {
		return repository.ErrLastDetail
	}
	delete(r.details, detailID)
	return nil
}

func (r memBundles) ListByCourseStatus(_ context.Context, courseID int64, status models.BundleStatus) ([]models.CourseBundleRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for _, b := range r.bundles {
		if e := r.enrollments[b.EnrollmentID]; e != nil && e.CourseID == courseID && b.Status == status {
			ids = append(ids, b.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	var rows []models.CourseBundleRow
	for _, id := range ids {
		b := r.bundles[id]
		e := r.enrollments[b.EnrollmentID]
		s := r.students[e.StudentID]
		for _, d := range r.bundleDetails(id) {
			m := r.moocs[d.MoocID]
			rows = append(rows, models.CourseBundleRow{
				BundleID:        b.ID,
				Status:          b.Status,
				BundleCreatedAt: b.CreatedAt,
				StudentID:       s.ID,
				StudentNo:       s.StudentNo,
				StudentName:     s.Name,
				StudentSurname:  s.Surname,
				StudentEmail:    s.Email,
				BundleDetailID:  d.ID,
				MoocName:        m.Name,
				AverageHours:    m.AverageHours,
				CertificateURL:  d.CertificateURL,
			})
		}
	}
	return rows, nil
}

type sentMail struct {
	Email   string
	Subject string
	Body    string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *recordingNotifier) Enqueue(_ context.Context, email, subject, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{Email: email, Subject: subject, Body: body})
}

func (n *recordingNotifier) subjects() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.sent))
	for i, m := range n.sent {
		out[i] = m.Subject
	}
	return out
}

// campus is a seeded memoryStore with two departments, a coordinator for
// each, one student, a 3-credit course per department and a MOOC catalog.
// The policy requires 24 hours for 3 credits.
type campus struct {
	store      *memoryStore
	notifier   *recordingNotifier
	guard      *AccessGuard
	bundles    *BundleService
	enrollment *EnrollmentService
	now        time.Time

	studentID       int64
	coordinatorID   int64
	otherCoordID    int64
	departmentID    int64
	otherDeptID     int64
	courseID        int64
	otherCourseID   int64
	moocShort       int64
	moocMedium      int64
	moocLong        int64
	moocInactive    int64
	moocTiny        int64
	studentClaims   *models.JWTClaims
	coordClaims     *models.JWTClaims
	otherCoordClaim *models.JWTClaims
}

func newCampus(t *testing.T) *campus {
	t.Helper()
	store := newMemoryStore()
	c := &campus{store: store, notifier: &recordingNotifier{}, now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}

	c.coordinatorID, c.otherCoordID = 1, 2
	store.coordinators[1] = &models.Coordinator{ID: 1, Name: "Ayse", Surname: "Kaya", Email: "ayse@mef.edu.tr", Active: true}
	store.coordinators[2] = &models.Coordinator{ID: 2, Name: "Mehmet", Surname: "Demir", Email: "mehmet@mef.edu.tr", Active: true}
	c.departmentID, c.otherDeptID = 10, 20
	store.departments[10] = &models.Department{ID: 10, Name: "Computer Engineering", CoordinatorID: &c.coordinatorID}
	store.departments[20] = &models.Department{ID: 20, Name: "Industrial Engineering", CoordinatorID: &c.otherCoordID}

	c.studentID = 100
	store.students[100] = &models.Student{ID: 100, StudentNo: "041901001", Name: "Ali", Surname: "Yilmaz", Email: "ali@mef.edu.tr", DepartmentID: 10}

	c.courseID, c.otherCourseID = 200, 201
	store.courses[200] = &models.Course{ID: 200, CourseCode: "COMP101", Name: "Intro to Programming", Semester: "2023-2024-Spring", Credits: 3, DepartmentID: 10, CoordinatorID: 1, Active: true}
	store.courses[201] = &models.Course{ID: 201, CourseCode: "IE201", Name: "Operations Research", Semester: "2023-2024-Spring", Credits: 3, DepartmentID: 20, CoordinatorID: 2, Active: true}

	c.moocShort, c.moocMedium, c.moocLong, c.moocInactive, c.moocTiny = 300, 301, 302, 303, 304
	store.moocs[300] = &models.Mooc{ID: 300, Name: "Python Basics", URL: "https://mooc.example/python", AverageHours: 20, Active: true}
	store.moocs[301] = &models.Mooc{ID: 301, Name: "Data Structures", URL: "https://mooc.example/ds", AverageHours: 40, Active: true}
	store.moocs[302] = &models.Mooc{ID: 302, Name: "Algorithms", URL: "https://mooc.example/algo", AverageHours: 60, Active: true}
	store.moocs[303] = &models.Mooc{ID: 303, Name: "Retired Course", AverageHours: 100, Active: false}
	store.moocs[304] = &models.Mooc{ID: 304, Name: "Git in a Day", URL: "https://mooc.example/git", AverageHours: 10, Active: true}

	c.studentClaims = &models.JWTClaims{PrincipalID: c.studentID, Role: models.RoleStudent}
	c.coordClaims = &models.JWTClaims{PrincipalID: c.coordinatorID, Role: models.RoleCoordinator}
	c.otherCoordClaim = &models.JWTClaims{PrincipalID: c.otherCoordID, Role: models.RoleCoordinator}

	c.guard = NewAccessGuard(memStudents{store}, memCoordinators{store}, memDepartments{store}, memCourses{store})
	validate := validator.New()
	c.bundles = NewBundleService(BundleServiceParams{
		Bundles:     memBundles{store},
		Enrollments: memEnrollments{store},
		Courses:     memCourses{store},
		Moocs:       memMoocs{store},
		Guard:       c.guard,
		Notifier:    c.notifier,
		Metrics:     NewMetricsService(),
		Validator:   validate,
		Logger:      zap.NewNop(),
		Policy:      BundlePolicy{HoursPerCredit: 10, Tolerance: 0.2},
		Clock:       func() time.Time { return c.now },
	})
	c.enrollment = NewEnrollmentService(memEnrollments{store}, memCourses{store}, memStudents{store}, c.guard, c.notifier, NewMetricsService(), validate, zap.NewNop())
	return c
}

// enroll admits the seeded student to the seeded course directly.
func (c *campus) enroll(t *testing.T) int64 {
	t.Helper()
	e, err := memEnrollments{c.store}.Admit(context.Background(), c.studentID, c.courseID, func(int) bool { return false })
	require.NoError(t, err)
	return e.ID
}

// bundleIn inserts a bundle in the given status with one detail per MOOC.
func (c *campus) bundleIn(t *testing.T, enrollmentID int64, status models.BundleStatus, certified bool, moocIDs ...int64) int64 {
	t.Helper()
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	b := &models.Bundle{ID: c.store.id(), EnrollmentID: enrollmentID, Status: status, CreatedAt: c.now}
	c.store.bundles[b.ID] = b
	for _, moocID := range moocIDs {
		d := &models.BundleDetail{ID: c.store.id(), BundleID: b.ID, MoocID: moocID}
		if certified {
			url := "https://certs.example/" + c.store.moocs[moocID].Name
			d.CertificateURL = &url
		}
		c.store.details[d.ID] = d
	}
	return b.ID
}

func (c *campus) status(t *testing.T, bundleID int64) models.BundleStatus {
	t.Helper()
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	b, ok := c.store.bundles[bundleID]
	require.True(t, ok, "bundle %d missing", bundleID)
	return b.Status
}

func (c *campus) detailIDs(bundleID int64) []int64 {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	var ids []int64
	for _, d := range c.store.bundleDetails(bundleID) {
		ids = append(ids, d.ID)
	}
	return ids
}

func requireKind(t *testing.T, err error, kind *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, kind.Code, appErr.Code, "unexpected error: %v", err)
}
