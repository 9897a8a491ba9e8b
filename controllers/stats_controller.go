package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vnkhanh/e-learning-backend/middleware"
	"github.com/vnkhanh/e-learning-backend/services"
	"github.com/vnkhanh/e-learning-backend/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type StatsController struct {
	metrics *services.MetricsService
	log     *utils.Logger
}

func NewStatsController(metrics *services.MetricsService, log *utils.Logger) *StatsController {
	return &StatsController{metrics: metrics, log: log}
}

func (h *StatsController) GetAdminMetrics(c *gin.Context) {
	m, err := h.metrics.AdminMetrics(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *StatsController) ExportAdminMetrics(c *gin.Context) {
	data, err := h.metrics.ExportAdminMetrics(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	filename := fmt.Sprintf("metrics-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
