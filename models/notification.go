package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationInfo, NotificationSuccess, NotificationWarning, NotificationError:
		return true
	}
	return false
}

type NotificationCategory string

const (
	CategoryGeneral     NotificationCategory = "general"
	CategoryCourse      NotificationCategory = "course"
	CategoryModule      NotificationCategory = "module"
	CategoryLesson      NotificationCategory = "lesson"
	CategoryAchievement NotificationCategory = "achievement"
)

func (c NotificationCategory) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryCourse, CategoryModule, CategoryLesson, CategoryAchievement:
		return true
	}
	return false
}

type Notification struct {
	ID              uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID            `gorm:"type:uuid;not null;index" json:"user_id"` // người nhận
	Title           string               `gorm:"size:255;not null" json:"title"`
	Message         string               `gorm:"type:text;not null" json:"message"`
	Type            NotificationType     `gorm:"size:20;not null;default:'info'" json:"type"`
	Category        NotificationCategory `gorm:"size:20;not null;default:'general'" json:"category"`
	RelatedEntityID *uuid.UUID           `gorm:"type:uuid" json:"related_entity_id,omitempty"`
	IsRead          bool                 `gorm:"not null;default:false" json:"is_read"`

	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	assignID(&n.ID)
	return nil
}
