package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/mooc-credit-api/internal/handler"
	"github.com/noah-isme/mooc-credit-api/internal/middleware"
	"github.com/noah-isme/mooc-credit-api/internal/models"
	"github.com/noah-isme/mooc-credit-api/internal/service"
	"github.com/noah-isme/mooc-credit-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/mooc-credit-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/mooc-credit-api/pkg/middleware/requestid"
)

// Params carries everything the HTTP surface is assembled from.
type Params struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Tokens         middleware.TokenValidator

	Auth        *handler.AuthHandler
	Student     *handler.StudentHandler
	Coordinator *handler.CoordinatorHandler
	Admin       *handler.AdminHandler
	General     *handler.GeneralHandler
	Ops         *handler.MetricsHandler
}

// New builds the gin engine with every route registered.
func New(p Params) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(p.Logger))
	r.Use(corsmiddleware.New(p.AllowedOrigins...))
	r.Use(middleware.Metrics(p.Metrics))

	r.GET("/health", p.Ops.Health)
	r.GET("/ready", p.Ops.Ready)
	if p.Metrics != nil {
		r.GET("/metrics", p.Ops.Prometheus)
	}
	if p.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(p.APIPrefix)
	jwt := middleware.JWT(p.Tokens)

	general := api.Group("/general")
	general.GET("/all-departments", p.General.Departments)
	general.GET("/all-coordinators", p.General.Coordinators)

	registerStudent(api.Group("/student"), jwt, p)
	registerCoordinator(api.Group("/coordinator"), jwt, p)
	registerAdmin(api.Group("/admin"), jwt, p)

	return r
}

func registerStudent(g *gin.RouterGroup, jwt gin.HandlerFunc, p Params) {
	g.POST("/login", p.Auth.StudentLogin)
	g.POST("/forgot-password", p.Auth.ForgotPassword)

	auth := g.Group("", jwt, middleware.RequireRoles(models.RoleStudent))
	auth.POST("/logout", p.Auth.Logout)
	auth.POST("/change-password", p.Auth.ChangePassword)
	auth.GET("/profile", p.Student.Profile)
	auth.GET("/moocs", p.General.Moocs)
	auth.GET("/courses/available", p.Student.AvailableCourses)
	auth.POST("/enroll", p.Student.Enroll)
	auth.GET("/enrollments", p.Student.Enrollments)

	course := auth.Group("/course/:course_id")
	course.GET("/bundles", p.Student.Bundles)
	course.POST("/bundle", p.Student.CreateBundle)
	course.GET("/bundle/:bundle_id", p.Student.Bundle)
	course.POST("/bundle/:bundle_id/certificate", p.Student.SubmitCertificate)
	course.POST("/bundle/:bundle_id/complete", p.Student.CompleteBundle)
	course.POST("/bundle/:bundle_id/detail", p.Student.AddDetail)
	course.PUT("/bundle/:bundle_id/detail/:detail_id", p.Student.UpdateDetail)
	course.DELETE("/bundle/:bundle_id/detail/:detail_id", p.Student.DeleteDetail)
}

func registerCoordinator(g *gin.RouterGroup, jwt gin.HandlerFunc, p Params) {
	g.POST("/login", p.Auth.CoordinatorLogin)

	auth := g.Group("", jwt, middleware.RequireRoles(models.RoleCoordinator))
	auth.POST("/logout", p.Auth.Logout)
	auth.GET("/semesters", p.Coordinator.Semesters)
	auth.GET("/courses", p.Coordinator.Courses)
	auth.POST("/courses", p.Coordinator.CreateCourse)

	course := auth.Group("/course/:course_id")
	course.PATCH("/deactivate", p.Coordinator.DeactivateCourse)
	course.GET("/students", p.Coordinator.Students)
	course.GET("/waiting-students", p.Coordinator.WaitingStudents)
	course.POST("/waiting/:student_id/accept", p.Coordinator.AcceptWaiting)
	course.POST("/waiting/:student_id/reject", p.Coordinator.RejectWaiting)
	course.GET("/bundles/:status", p.Coordinator.Bundles)
	course.GET("/bundles/:status/export", p.Coordinator.ExportBundles)
	course.POST("/bundle/:bundle_id/approve-bundle", p.Coordinator.ApproveBundle)
	course.POST("/bundle/:bundle_id/reject-bundle", p.Coordinator.RejectBundle)
	course.POST("/bundle/:bundle_id/approve-certificate", p.Coordinator.ApproveCertificate)
	course.POST("/bundle/:bundle_id/reject-certificate", p.Coordinator.RejectCertificate)
}

func registerAdmin(g *gin.RouterGroup, jwt gin.HandlerFunc, p Params) {
	g.POST("/login", p.Auth.AdminLogin)

	auth := g.Group("", jwt, middleware.RequireRoles(models.RoleAdmin))
	auth.POST("/logout", p.Auth.Logout)
	auth.GET("/coordinators", p.Admin.Coordinators)
	auth.POST("/coordinators", p.Admin.CreateCoordinator)
	auth.GET("/coordinators/passive", p.Admin.PassiveCoordinators)
	auth.PATCH("/coordinators/:coordinator_id/deactivate", p.Admin.DeactivateCoordinator)
	auth.GET("/departments", p.Admin.Departments)
	auth.POST("/departments", p.Admin.CreateDepartment)
	auth.PUT("/departments/:department_id/coordinator", p.Admin.ChangeCoordinator)
	auth.POST("/students/invite", p.Admin.InviteStudents)
}
