package services

import (
	"github.com/google/uuid"
	"github.com/vnkhanh/e-learning-backend/models"
)

// Session là danh tính đã xác thực của request, truyền tường minh vào mọi lời gọi service
type Session struct {
	UserID uuid.UUID
	Role   models.Role
}

func (s Session) IsAdmin() bool {
	return s.Role == models.RoleAdmin
}

func (s Session) require() error {
	if s.UserID == uuid.Nil {
		return ErrNotAuthenticated
	}
	return nil
}

func (s Session) requireAdmin() error {
	if err := s.require(); err != nil {
		return err
	}
	if !s.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
