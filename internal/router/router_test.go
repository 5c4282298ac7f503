package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mooc-credit-api/internal/handler"
	"github.com/noah-isme/mooc-credit-api/internal/models"
	"github.com/noah-isme/mooc-credit-api/internal/service"
	appErrors "github.com/noah-isme/mooc-credit-api/pkg/errors"
)

type tokenTable map[string]*models.JWTClaims

func (t tokenTable) ValidateToken(ctx context.Context, token string) (*models.JWTClaims, error) {
	if claims, ok := t[token]; ok {
		return claims, nil
	}
	return nil, appErrors.ErrUnauthorized
}

type staticCatalog struct{}

func (staticCatalog) Departments(ctx context.Context) ([]models.Department, error) {
	return []models.Department{{ID: 10, Name: "Computer Engineering"}}, nil
}

func (staticCatalog) Coordinators(ctx context.Context) ([]models.CoordinatorName, error) {
	return []models.CoordinatorName{}, nil
}

func (staticCatalog) Moocs(ctx context.Context) ([]models.Mooc, error) {
	return []models.Mooc{{ID: 300, Name: "Python Basics", AverageHours: 20, Active: true}}, nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(Params{
		APIPrefix: "/api",
		Metrics:   service.NewMetricsService(),
		Tokens: tokenTable{
			"student": {PrincipalID: 100, Role: models.RoleStudent},
			"coord":   {PrincipalID: 1, Role: models.RoleCoordinator},
		},
		Auth:        handler.NewAuthHandler(nil),
		Student:     handler.NewStudentHandler(nil, nil, nil),
		Coordinator: handler.NewCoordinatorHandler(nil, nil, nil),
		Admin:       handler.NewAdminHandler(nil),
		General:     handler.NewGeneralHandler(staticCatalog{}),
		Ops:         handler.NewMetricsHandler(nil, nil),
	})
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRouterAccessControl(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
		{"metrics exposed", http.MethodGet, "/metrics", "", http.StatusOK},
		{"catalog is public", http.MethodGet, "/api/general/all-departments", "", http.StatusOK},
		{"student route needs token", http.MethodGet, "/api/student/course/200/bundles", "", http.StatusUnauthorized},
		{"coordinator cannot use student routes", http.MethodGet, "/api/student/moocs", "coord", http.StatusForbidden},
		{"student reads mooc catalog", http.MethodGet, "/api/student/moocs", "student", http.StatusOK},
		{"student cannot decide bundles", http.MethodPost, "/api/coordinator/course/200/bundle/7/approve-bundle", "student", http.StatusForbidden},
		{"coordinator cannot administer", http.MethodGet, "/api/admin/coordinators", "coord", http.StatusForbidden},
		{"unknown token", http.MethodGet, "/api/admin/departments", "forged", http.StatusUnauthorized},
		{"docs disabled", http.MethodGet, "/docs/index.html", "", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(r, tc.method, tc.path, tc.token)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRouterRegistersEveryRole(t *testing.T) {
	r := newTestRouter()
	routes := map[string]bool{}
	for _, info := range r.Routes() {
		routes[info.Method+" "+info.Path] = true
	}

	for _, want := range []string{
		"POST /api/student/login",
		"POST /api/student/course/:course_id/bundle",
		"POST /api/student/course/:course_id/bundle/:bundle_id/complete",
		"DELETE /api/student/course/:course_id/bundle/:bundle_id/detail/:detail_id",
		"POST /api/coordinator/login",
		"POST /api/coordinator/course/:course_id/bundle/:bundle_id/reject-certificate",
		"GET /api/coordinator/course/:course_id/bundles/:status/export",
		"POST /api/admin/login",
		"POST /api/admin/students/invite",
		"GET /ready",
	} {
		require.True(t, routes[want], "missing route %s", want)
	}
}
