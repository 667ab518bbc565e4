package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/courseworks/registration-service/internal/repositories"
	"github.com/courseworks/registration-service/internal/services"
	"github.com/courseworks/registration-service/internal/utils"
)

type HandlerManager struct {
	studentHandler *StudentHandler
	courseHandler  *CourseHandler
	repo           repositories.Repository
	logger         utils.Logger
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	repo repositories.Repository,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		studentHandler: NewStudentHandler(serviceManager.Students(), logger),
		courseHandler:  NewCourseHandler(serviceManager.Courses(), serviceManager.RosterExport(), logger),
		repo:           repo,
		logger:         logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "registration-service",
		})
	})

	router.Use(TokenAuth(hm.repo, hm.logger))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		students := v1.Group("/students")
		{
			// Signup is open; everything else needs a resolved identity.
			students.POST("", hm.studentHandler.CreateStudent)
			students.GET("", RequireAuth(), hm.studentHandler.ListStudents)
			students.GET("/:id", RequireAuth(), hm.studentHandler.GetStudent)
			students.PUT("/:id", RequireAuth(), hm.studentHandler.UpdateStudent)
			students.DELETE("/:id", RequireAuth(), hm.studentHandler.DeleteStudent)
		}

		courses := v1.Group("/courses")
		courses.Use(RequireAuth())
		{
			courses.POST("", hm.courseHandler.CreateCourse)
			courses.GET("", hm.courseHandler.ListCourses)
			courses.GET("/:id", hm.courseHandler.GetCourse)
			courses.GET("/:id/roster", hm.courseHandler.ExportRoster)
			courses.PUT("/:id", hm.courseHandler.UpdateCourse)
			courses.DELETE("/:id", hm.courseHandler.DeleteCourse)
		}
	}
}
