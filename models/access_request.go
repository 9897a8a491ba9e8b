package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccessRequestStatus string

const (
	RequestPending  AccessRequestStatus = "pending"
	RequestApproved AccessRequestStatus = "approved"
	RequestRejected AccessRequestStatus = "rejected"
)

// AccessRequest là yêu cầu vào khóa học private. Chỉ một yêu cầu pending cho mỗi (user, course),
// ràng buộc bằng partial unique index.
type AccessRequest struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_access_request_pending,where:status = 'pending'" json:"user_id"`
	CourseID      uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_access_request_pending,where:status = 'pending'" json:"course_id"`
	Status        AccessRequestStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Message       *string             `gorm:"type:text" json:"message"`
	AdminResponse *string             `gorm:"type:text" json:"admin_response"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"autoUpdateTime" json:"updated_at"`

	Course *Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE;" json:"course,omitempty"`
}

func (r *AccessRequest) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	return nil
}

func (r *AccessRequest) IsPending() bool {
	return r.Status == RequestPending
}
