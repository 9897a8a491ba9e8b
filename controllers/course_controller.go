package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vnkhanh/e-learning-backend/middleware"
	"github.com/vnkhanh/e-learning-backend/services"
	"github.com/vnkhanh/e-learning-backend/utils"
)

// CourseController gồm các route xem khóa học, Enrollment Gate và tiến độ
type CourseController struct {
	catalog    *services.CatalogService
	enrollment *services.EnrollmentService
	progress   *services.ProgressService
	log        *utils.Logger
}

func NewCourseController(svc *services.Services, log *utils.Logger) *CourseController {
	return &CourseController{
		catalog:    svc.Catalog,
		enrollment: svc.Enrollment,
		progress:   svc.Progress,
		log:        log,
	}
}

// GET /api/courses?category=<slug>&q=<search>
func (h *CourseController) GetCourses(c *gin.Context) {
	courses, err := h.catalog.ListPublishedCourses(c.Request.Context(), services.CourseFilter{
		CategorySlug: c.Query("category"),
		Search:       c.Query("q"),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, courses)
}

func (h *CourseController) GetCourseDetail(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	details, err := h.catalog.CourseDetails(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *CourseController) CheckAccess(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	decision, err := h.enrollment.CanAccess(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

func (h *CourseController) Enroll(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	enrollment, err := h.enrollment.Enroll(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, enrollment)
}

func (h *CourseController) GetProgress(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sess := middleware.GetSession(c)
	progress, err := h.progress.CourseProgress(c.Request.Context(), sess, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	completed, err := h.progress.CompletedLessonIDs(c.Request.Context(), sess, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_lessons":        progress.TotalLessons,
		"completed_lessons":    progress.CompletedLessons,
		"percentage":           progress.Percentage,
		"completed_lesson_ids": completed,
	})
}

func (h *CourseController) CompleteCourse(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	enrollment, err := h.progress.CompleteCourse(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, enrollment)
}

// ---------- Lessons ----------

func (h *CourseController) GetLesson(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	lesson, err := h.catalog.Lesson(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, lesson)
}

func (h *CourseController) CompleteLesson(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	row, err := h.progress.MarkLessonComplete(c.Request.Context(), middleware.GetSession(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// ---------- Admin ----------

func (h *CourseController) AdminGetCourses(c *gin.Context) {
	courses, err := h.catalog.ListAllCourses(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, courses)
}

func (h *CourseController) CreateCourse(c *gin.Context) {
	var input services.CourseInput
	if !bindJSON(c, &input) {
		return
	}
	course, err := h.catalog.CreateCourse(c.Request.Context(), middleware.GetSession(c), input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

func (h *CourseController) UpdateCourse(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input services.CourseInput
	if !bindJSON(c, &input) {
		return
	}
	course, err := h.catalog.UpdateCourse(c.Request.Context(), middleware.GetSession(c), id, input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *CourseController) DeleteCourse(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCourse(c.Request.Context(), middleware.GetSession(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Xóa khóa học thành công"})
}

func (h *CourseController) CreateModule(c *gin.Context) {
	courseID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input services.ModuleInput
	if !bindJSON(c, &input) {
		return
	}
	module, err := h.catalog.CreateModule(c.Request.Context(), middleware.GetSession(c), courseID, input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, module)
}

type reorderInput struct {
	IDs []uuid.UUID `json:"ids" binding:"required"`
}

func (h *CourseController) ReorderModules(c *gin.Context) {
	courseID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input reorderInput
	if !bindJSON(c, &input) {
		return
	}
	if err := h.catalog.ReorderModules(c.Request.Context(), middleware.GetSession(c), courseID, input.IDs); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Đã cập nhật thứ tự"})
}

func (h *CourseController) UpdateModule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input services.ModuleInput
	if !bindJSON(c, &input) {
		return
	}
	module, err := h.catalog.UpdateModule(c.Request.Context(), middleware.GetSession(c), id, input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, module)
}

func (h *CourseController) DeleteModule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteModule(c.Request.Context(), middleware.GetSession(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Xóa module thành công"})
}

func (h *CourseController) CreateLesson(c *gin.Context) {
	moduleID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input services.LessonInput
	if !bindJSON(c, &input) {
		return
	}
	lesson, err := h.catalog.CreateLesson(c.Request.Context(), middleware.GetSession(c), moduleID, input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, lesson)
}

func (h *CourseController) ReorderLessons(c *gin.Context) {
	moduleID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input reorderInput
	if !bindJSON(c, &input) {
		return
	}
	if err := h.catalog.ReorderLessons(c.Request.Context(), middleware.GetSession(c), moduleID, input.IDs); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Đã cập nhật thứ tự"})
}

func (h *CourseController) UpdateLesson(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input services.LessonInput
	if !bindJSON(c, &input) {
		return
	}
	lesson, err := h.catalog.UpdateLesson(c.Request.Context(), middleware.GetSession(c), id, input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, lesson)
}

func (h *CourseController) DeleteLesson(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteLesson(c.Request.Context(), middleware.GetSession(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Xóa bài học thành công"})
}
