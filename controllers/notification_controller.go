package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vnkhanh/e-learning-backend/middleware"
	"github.com/vnkhanh/e-learning-backend/services"
	"github.com/vnkhanh/e-learning-backend/utils"
)

type NotificationController struct {
	notifications *services.NotificationService
	log           *utils.Logger
}

func NewNotificationController(notifications *services.NotificationService, log *utils.Logger) *NotificationController {
	return &NotificationController{notifications: notifications, log: log}
}

// Danh sách thông báo, ?unread=true để chỉ lấy chưa đọc
func (h *NotificationController) GetNotifications(c *gin.Context) {
	unread, _ := strconv.ParseBool(c.Query("unread"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.notifications.List(c.Request.Context(), middleware.GetSession(c), unread, limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Đếm số thông báo chưa đọc
func (h *NotificationController) GetUnreadCount(c *gin.Context) {
	count, err := h.notifications.UnreadCount(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// Đánh dấu đã đọc
func (h *NotificationController) MarkNotificationAsRead(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), middleware.GetSession(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (h *NotificationController) MarkAllAsRead(c *gin.Context) {
	n, err := h.notifications.MarkAllRead(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": n})
}

func (h *NotificationController) DeleteNotification(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), middleware.GetSession(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}

func (h *NotificationController) DeleteReadNotifications(c *gin.Context) {
	n, err := h.notifications.DeleteRead(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Read notifications deleted", "deleted": n})
}

type sendNotificationInput struct {
	services.NotificationInput
	Scope  services.NotificationScope `json:"scope"`
	UserID *uuid.UUID                 `json:"user_id"`
}

// POST /api/admin/notifications
func (h *NotificationController) SendNotification(c *gin.Context) {
	var input sendNotificationInput
	if !bindJSON(c, &input) {
		return
	}
	target := uuid.Nil
	if input.UserID != nil {
		target = *input.UserID
	}
	count, err := h.notifications.Send(c.Request.Context(), middleware.GetSession(c), input.Scope, target, input.NotificationInput)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": count})
}
