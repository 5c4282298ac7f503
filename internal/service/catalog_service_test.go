package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/mooc-credit-api/internal/dto"
	"github.com/noah-isme/mooc-credit-api/internal/models"
	appErrors "github.com/noah-isme/mooc-credit-api/pkg/errors"
)

type countingCatalog struct {
	departmentCalls int
	moocCalls       int
	err             error
}

func (c *countingCatalog) List(ctx context.Context) ([]models.Department, error) {
	c.departmentCalls++
	if c.err != nil {
		return nil, c.err
	}
	return []models.Department{{ID: 10, Name: "Computer Engineering"}}, nil
}

func (c *countingCatalog) ListNames(ctx context.Context) ([]models.CoordinatorName, error) {
	return nil, nil
}

func (c *countingCatalog) ListActive(ctx context.Context) ([]models.Mooc, error) {
	c.moocCalls++
	return []models.Mooc{{ID: 300, Name: "Python Basics", AverageHours: 20, Active: true}}, nil
}

func TestCatalogServiceCachesListings(t *testing.T) {
	store := &countingCatalog{}
	repo := &memoryCacheRepo{}
	cache := NewCacheService(repo, NewMetricsService(), time.Minute, zap.NewNop(), true)
	svc := NewCatalogService(store, store, store, cache, time.Minute, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		departments, err := svc.Departments(ctx)
		require.NoError(t, err)
		require.Len(t, departments, 1)
		assert.Equal(t, "Computer Engineering", departments[0].Name)
	}
	assert.Equal(t, 1, store.departmentCalls)

	require.NoError(t, cache.Invalidate(ctx, CacheKeyDepartments))
	_, err := svc.Departments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, store.departmentCalls)

	moocs, err := svc.Moocs(ctx)
	require.NoError(t, err)
	assert.Len(t, moocs, 1)

	coordinators, err := svc.Coordinators(ctx)
	require.NoError(t, err)
	assert.NotNil(t, coordinators)
	assert.Empty(t, coordinators)
}

func TestCatalogServiceWithoutCache(t *testing.T) {
	store := &countingCatalog{}
	svc := NewCatalogService(store, store, store, nil, 0, nil)

	_, err := svc.Moocs(context.Background())
	require.NoError(t, err)
	_, err = svc.Moocs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, store.moocCalls)

	store.err = errors.New("connection reset")
	_, err = svc.Departments(context.Background())
	requireKind(t, err, appErrors.ErrInternal)
}

type mockCourseStore struct {
	created    []*models.Course
	createErr  error
	deactErr   error
	lastActive *bool
}

func (m *mockCourseStore) Create(ctx context.Context, c *models.Course) error {
	if m.createErr != nil {
		return m.createErr
	}
	c.ID = 900
	c.Active = true
	m.created = append(m.created, c)
	return nil
}

func (m *mockCourseStore) Deactivate(ctx context.Context, id, departmentID int64) error {
	return m.deactErr
}

func (m *mockCourseStore) ListByDepartment(ctx context.Context, departmentID int64, active bool) ([]models.Course, error) {
	m.lastActive = &active
	return []models.Course{{ID: 200, DepartmentID: departmentID, Active: active}}, nil
}

func TestCourseServiceCreateCourse(t *testing.T) {
	c := newCampus(t)
	store := &mockCourseStore{}
	svc := NewCourseService(store, c.guard, nil, nil)
	ctx := context.Background()

	course, err := svc.CreateCourse(ctx, c.coordClaims, dto.CreateCourseRequest{CourseCode: "COMP102", Name: "Data Science", Semester: "2024-2025-Fall", Credits: 4})
	require.NoError(t, err)
	assert.Equal(t, c.departmentID, course.DepartmentID)
	assert.Equal(t, c.coordinatorID, course.CoordinatorID)

	_, err = svc.CreateCourse(ctx, c.coordClaims, dto.CreateCourseRequest{CourseCode: "COMP102", Name: "Data Science", Semester: "2019-2020-Winter", Credits: 4})
	requireKind(t, err, appErrors.ErrInvalidInput)

	_, err = svc.CreateCourse(ctx, c.studentClaims, dto.CreateCourseRequest{CourseCode: "COMP102", Name: "Data Science", Semester: "2024-2025-Fall", Credits: 4})
	requireKind(t, err, appErrors.ErrForbidden)

	assert.Contains(t, svc.Semesters(), "2024-2025-Fall")
}

func TestCourseServiceDeactivateAndList(t *testing.T) {
	c := newCampus(t)
	store := &mockCourseStore{}
	svc := NewCourseService(store, c.guard, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.DeactivateCourse(ctx, c.coordClaims, c.courseID))
	requireKind(t, svc.DeactivateCourse(ctx, c.otherCoordClaim, c.courseID), appErrors.ErrForbidden)

	courses, err := svc.ListCourses(ctx, c.coordClaims, false)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.NotNil(t, store.lastActive)
	assert.False(t, *store.lastActive)
}

func TestProfileServiceStudentProfile(t *testing.T) {
	c := newCampus(t)
	svc := NewProfileService(memStudents{c.store}, c.guard)

	profile, err := svc.StudentProfile(context.Background(), c.studentClaims)
	require.NoError(t, err)
	assert.Equal(t, "Computer Engineering", profile.DepartmentName)

	_, err = svc.StudentProfile(context.Background(), c.coordClaims)
	requireKind(t, err, appErrors.ErrForbidden)
}
