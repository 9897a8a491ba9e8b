package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vnkhanh/e-learning-backend/middleware"
	"github.com/vnkhanh/e-learning-backend/services"
	"github.com/vnkhanh/e-learning-backend/utils"
)

// MeController phục vụ dashboard của user đang đăng nhập
type MeController struct {
	users    *services.UserService
	progress *services.ProgressService
	metrics  *services.MetricsService
	log      *utils.Logger
}

func NewMeController(svc *services.Services, log *utils.Logger) *MeController {
	return &MeController{users: svc.Users, progress: svc.Progress, metrics: svc.Metrics, log: log}
}

func (h *MeController) GetMe(c *gin.Context) {
	me, err := h.users.Me(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, me)
}

func (h *MeController) UpdateMe(c *gin.Context) {
	var input services.UserUpdate
	if !bindJSON(c, &input) {
		return
	}
	me, err := h.users.UpdateMe(c.Request.Context(), middleware.GetSession(c), input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, me)
}

func (h *MeController) GetEnrolledCourses(c *gin.Context) {
	courses, err := h.progress.EnrolledCourses(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, courses)
}

// GetMetrics: lỗi đọc dữ liệu trả về số liệu rỗng với degraded=true thay vì 500
func (h *MeController) GetMetrics(c *gin.Context) {
	sess := middleware.GetSession(c)
	metrics, err := h.metrics.StudentMetrics(c.Request.Context(), sess)
	if err != nil {
		if errorsIsStorage(err) {
			h.log.Warn("student metrics degraded", "user_id", sess.UserID, "error", err)
			c.JSON(http.StatusOK, h.metrics.Degraded())
			return
		}
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, metrics)
}
