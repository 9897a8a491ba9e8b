package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CourseType string

const (
	CourseFree    CourseType = "free"
	CoursePrivate CourseType = "private" // cần admin duyệt yêu cầu truy cập
)

func (t CourseType) Valid() bool {
	return t == CourseFree || t == CoursePrivate
}

type VideoType string

const (
	VideoYouTube VideoType = "youtube"
	VideoUpload  VideoType = "upload"
)

func (t VideoType) Valid() bool {
	return t == VideoYouTube || t == VideoUpload
}

type Course struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string     `gorm:"size:255;not null" json:"title"`
	Description     *string    `gorm:"type:text" json:"description"`
	ThumbnailURL    *string    `gorm:"size:500" json:"thumbnail_url"`
	InstructorName  *string    `gorm:"size:150" json:"instructor_name"`
	DurationMinutes int        `gorm:"not null;default:0" json:"duration_minutes"`
	CourseType      CourseType `gorm:"type:varchar(20);not null;default:'free'" json:"course_type"`
	IsPublished     bool       `gorm:"not null;default:false;index" json:"is_published"`
	CategoryID      *uuid.UUID `gorm:"type:uuid;index" json:"category_id"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL;" json:"category,omitempty"`
	Modules  []Module  `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE;" json:"modules,omitempty"`
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

type Module struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_module_course_order" json:"course_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description *string   `gorm:"type:text" json:"description"`
	OrderIndex  int       `gorm:"not null;uniqueIndex:idx_module_course_order" json:"order_index"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Lessons []Lesson `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE;" json:"lessons,omitempty"`
}

func (m *Module) BeforeCreate(tx *gorm.DB) error {
	assignID(&m.ID)
	return nil
}

// Material là tài liệu tải về đính kèm bài học
type Material struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Lesson struct {
	ID              uuid.UUID                     `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID        uuid.UUID                     `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_module_order" json:"module_id"`
	Title           string                        `gorm:"size:255;not null" json:"title"`
	Description     *string                       `gorm:"type:text" json:"description"`
	VideoURL        *string                       `gorm:"size:500" json:"video_url"`
	VideoType       VideoType                     `gorm:"type:varchar(20);not null;default:'youtube'" json:"video_type"`
	DurationMinutes int                           `gorm:"not null;default:0" json:"duration_minutes"`
	OrderIndex      int                           `gorm:"not null;uniqueIndex:idx_lesson_module_order" json:"order_index"`
	Materials       datatypes.JSONSlice[Material] `json:"materials"`
	CreatedAt       time.Time                     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time                     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (l *Lesson) BeforeCreate(tx *gorm.DB) error {
	assignID(&l.ID)
	if l.Materials == nil {
		l.Materials = datatypes.JSONSlice[Material]{}
	}
	return nil
}
