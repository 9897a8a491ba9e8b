package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vnkhanh/e-learning-backend/services"
	"github.com/vnkhanh/e-learning-backend/utils"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// thứ tự quan trọng: lỗi cụ thể đứng trước
var errorTable = []errorMapping{
	{services.ErrNotAuthenticated, http.StatusUnauthorized, "not_authenticated"},
	{services.ErrForbidden, http.StatusForbidden, "forbidden"},
	{services.ErrAccessRequestRequired, http.StatusForbidden, "access_request_required"},
	{services.ErrNotEnrolled, http.StatusForbidden, "not_enrolled"},
	{services.ErrNotFound, http.StatusNotFound, "not_found"},
	{services.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
	{services.ErrDuplicateRequest, http.StatusConflict, "duplicate_request"},
	{services.ErrInvalidStateTransition, http.StatusConflict, "invalid_state_transition"},
	{services.ErrAlreadyEnrolled, http.StatusConflict, "already_enrolled"},
	{services.ErrCourseIncomplete, http.StatusConflict, "course_incomplete"},
	{services.ErrConflict, http.StatusConflict, "conflict"},
	{services.ErrStorageUnavailable, http.StatusServiceUnavailable, "storage_unavailable"},
}

// respondError chuyển lỗi nghiệp vụ sang HTTP status; lỗi storage không lộ chi tiết ra client
func respondError(c *gin.Context, log *utils.Logger, err error) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{"error": err.Error(), "code": m.code})
			return
		}
	}
	_ = c.Error(err)
	log.Error("request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi hệ thống, vui lòng thử lại", "code": "internal"})
}

func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID không hợp lệ", "code": "invalid_argument"})
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_argument"})
		return false
	}
	return true
}

func errorsIsStorage(err error) bool {
	return errors.Is(err, services.ErrStorageFailure)
}
