package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vnkhanh/e-learning-backend/middleware"
	"github.com/vnkhanh/e-learning-backend/models"
	"github.com/vnkhanh/e-learning-backend/services"
	"github.com/vnkhanh/e-learning-backend/utils"
)

type AccessRequestController struct {
	requests *services.AccessRequestService
	log      *utils.Logger
}

func NewAccessRequestController(requests *services.AccessRequestService, log *utils.Logger) *AccessRequestController {
	return &AccessRequestController{requests: requests, log: log}
}

// POST /api/courses/:id/access-requests
func (h *AccessRequestController) CreateRequest(c *gin.Context) {
	courseID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Message string `json:"message"`
	}
	// body rỗng vẫn hợp lệ
	if c.Request.ContentLength > 0 && !bindJSON(c, &input) {
		return
	}
	req, err := h.requests.Create(c.Request.Context(), middleware.GetSession(c), courseID, input.Message)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *AccessRequestController) MyRequests(c *gin.Context) {
	requests, err := h.requests.Mine(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// GET /api/admin/access-requests?status=pending
func (h *AccessRequestController) ListRequests(c *gin.Context) {
	status := models.AccessRequestStatus(c.Query("status"))
	switch status {
	case "", models.RequestPending, models.RequestApproved, models.RequestRejected:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status không hợp lệ", "code": "invalid_argument"})
		return
	}
	requests, err := h.requests.List(c.Request.Context(), middleware.GetSession(c), status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// POST /api/admin/access-requests/:id/resolve
func (h *AccessRequestController) ResolveRequest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Decision      models.AccessRequestStatus `json:"decision" binding:"required"`
		AdminResponse string                     `json:"admin_response"`
	}
	if !bindJSON(c, &input) {
		return
	}
	req, err := h.requests.Resolve(c.Request.Context(), middleware.GetSession(c), id, input.Decision, input.AdminResponse)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, req)
}
