package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courseworks/registration-service/internal/services"
	"github.com/courseworks/registration-service/internal/utils"
)

type CourseHandler struct {
	BaseHandler
	courseService services.CourseService
	exportService services.RosterExportService
}

func NewCourseHandler(
	courseService services.CourseService,
	exportService services.RosterExportService,
	logger utils.Logger,
) *CourseHandler {
	return &CourseHandler{
		BaseHandler:   NewBaseHandler(logger),
		courseService: courseService,
		exportService: exportService,
	}
}

func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req services.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	course, err := h.courseService.Create(c.Request.Context(), &req, h.currentUser(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, course)
}

// ListCourses passes an optional filter query parameter through to the store
// untouched.
func (h *CourseHandler) ListCourses(c *gin.Context) {
	filter := c.Query("filter")

	courses, err := h.courseService.List(c.Request.Context(), filter, h.currentUser(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, courses)
}

func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	course, err := h.courseService.GetByID(c.Request.Context(), id, h.currentUser(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req services.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	course, err := h.courseService.Update(c.Request.Context(), id, &req, h.currentUser(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting course", "course_id", id)

	if err := h.courseService.Delete(c.Request.Context(), id, h.currentUser(c)); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Course deleted",
	})
}

// ExportRoster streams the xlsx roster of students enrolled in the course.
func (h *CourseHandler) ExportRoster(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	data, err := h.exportService.ExportCourseRoster(c.Request.Context(), id, h.currentUser(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="roster.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
