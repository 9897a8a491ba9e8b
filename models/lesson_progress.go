package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LessonProgress chỉ lưu khi bài học đã hoàn thành; không có bản ghi = chưa học xong
type LessonProgress struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_progress_user_lesson;index" json:"user_id"`
	LessonID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_progress_user_lesson" json:"lesson_id"`
	CompletedAt time.Time `gorm:"not null;index" json:"completed_at"`

	Lesson *Lesson `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE;" json:"lesson,omitempty"`
}

func (LessonProgress) TableName() string { return "lesson_progress" }

func (p *LessonProgress) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	if p.CompletedAt.IsZero() {
		p.CompletedAt = time.Now()
	}
	return nil
}
