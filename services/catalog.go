package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/vnkhanh/e-learning-backend/models"
	"github.com/vnkhanh/e-learning-backend/utils"
	"gorm.io/gorm"
)

type CategoryInput struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
}

type CourseInput struct {
	Title           *string            `json:"title"`
	Description     *string            `json:"description"`
	ThumbnailURL    *string            `json:"thumbnail_url"`
	InstructorName  *string            `json:"instructor_name"`
	DurationMinutes *int               `json:"duration_minutes"`
	CourseType      *models.CourseType `json:"course_type"`
	IsPublished     *bool              `json:"is_published"`
	CategoryID      *uuid.UUID         `json:"category_id"`
	ClearCategory   bool               `json:"clear_category"`
}

type ModuleInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	OrderIndex  *int    `json:"order_index"`
}

type LessonInput struct {
	Title           *string            `json:"title"`
	Description     *string            `json:"description"`
	VideoURL        *string            `json:"video_url"`
	VideoType       *models.VideoType  `json:"video_type"`
	DurationMinutes *int               `json:"duration_minutes"`
	OrderIndex      *int               `json:"order_index"`
	Materials       *[]models.Material `json:"materials"`
}

type CourseFilter struct {
	CategorySlug string
	Search       string
}

// CourseDetails là khóa học kèm module/bài học đã sắp xếp; video và tài liệu bị ẩn khi user chưa có quyền
type CourseDetails struct {
	models.Course
	HasAccess bool     `json:"has_access"`
	Progress  Progress `json:"progress"`
}

// CatalogService quản lý danh mục, khóa học, module và bài học
type CatalogService struct {
	db   *gorm.DB
	log  *utils.Logger
	gate *EnrollmentService
}

func NewCatalogService(db *gorm.DB, log *utils.Logger, gate *EnrollmentService) *CatalogService {
	return &CatalogService{db: db, log: log.With("service", "CatalogService"), gate: gate}
}

// ---------- Categories ----------

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name").Find(&categories).Error; err != nil {
		return nil, storageErr(err)
	}
	return categories, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, sess Session, in CategoryInput) (*models.Category, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, invalidArg("name is required")
	}
	category := models.Category{Name: strings.TrimSpace(*in.Name)}
	category.Slug = categorySlug(category.Name, in.Slug)
	if category.Slug == "" {
		return nil, invalidArg("slug cannot be empty")
	}
	category.Description = trimmedOrNil(in.Description)

	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, conflictOr(err, "category name or slug already exists")
	}
	s.log.Info("category created", "category_id", category.ID, "slug", category.Slug)
	return &category, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, sess Session, id uuid.UUID, in CategoryInput) (*models.Category, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, storageErr(err)
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalidArg("name cannot be empty")
		}
		category.Name = name
	}
	if in.Slug != nil {
		category.Slug = categorySlug(category.Name, in.Slug)
		if category.Slug == "" {
			return nil, invalidArg("slug cannot be empty")
		}
	}
	if in.Description != nil {
		category.Description = trimmedOrNil(in.Description)
	}
	if err := s.db.WithContext(ctx).Save(&category).Error; err != nil {
		return nil, conflictOr(err, "category name or slug already exists")
	}
	return &category, nil
}

// DeleteCategory: các khóa học thuộc danh mục được gỡ category_id
func (s *CatalogService) DeleteCategory(ctx context.Context, sess Session, id uuid.UUID) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Course{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return storageErr(err)
		}
		res := tx.Delete(&models.Category{}, "id = ?", id)
		if res.Error != nil {
			return storageErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func categorySlug(name string, explicit *string) string {
	if explicit != nil && strings.TrimSpace(*explicit) != "" {
		return slug.Make(*explicit)
	}
	return slug.Make(name)
}

// ---------- Courses ----------

// ListPublishedCourses trả khóa học đã publish, mới nhất trước
func (s *CatalogService) ListPublishedCourses(ctx context.Context, filter CourseFilter) ([]models.Course, error) {
	query := s.db.WithContext(ctx).Model(&models.Course{}).
		Preload("Category").
		Where("courses.is_published = ?", true)
	if filter.CategorySlug != "" && filter.CategorySlug != "all" {
		query = query.Joins("JOIN categories ON categories.id = courses.category_id").
			Where("categories.slug = ?", filter.CategorySlug)
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(courses.title) LIKE ? OR LOWER(courses.description) LIKE ?", like, like)
	}
	var courses []models.Course
	if err := query.Order("courses.created_at DESC").Find(&courses).Error; err != nil {
		return nil, storageErr(err)
	}
	return courses, nil
}

// ListAllCourses cho admin, kể cả bản nháp
func (s *CatalogService) ListAllCourses(ctx context.Context, sess Session) ([]models.Course, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	var courses []models.Course
	if err := s.db.WithContext(ctx).Preload("Category").Order("created_at DESC").Find(&courses).Error; err != nil {
		return nil, storageErr(err)
	}
	return courses, nil
}

func (s *CatalogService) CourseDetails(ctx context.Context, sess Session, id uuid.UUID) (*CourseDetails, error) {
	if err := sess.require(); err != nil {
		return nil, err
	}
	if _, err := loadVisibleCourse(ctx, s.db, sess, id); err != nil {
		return nil, err
	}

	var course models.Course
	err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Modules", func(db *gorm.DB) *gorm.DB { return db.Order("order_index") }).
		Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("order_index") }).
		First(&course, "id = ?", id).Error
	if err != nil {
		return nil, storageErr(err)
	}

	details := &CourseDetails{Course: course, HasAccess: sess.IsAdmin()}
	if !details.HasAccess {
		enrollment, err := findEnrollment(ctx, s.db, sess.UserID, id)
		if err != nil {
			return nil, err
		}
		details.HasAccess = enrollment != nil
	}
	if !details.HasAccess {
		for i := range details.Modules {
			for j := range details.Modules[i].Lessons {
				details.Modules[i].Lessons[j].VideoURL = nil
				details.Modules[i].Lessons[j].Materials = nil
			}
		}
	}

	p, err := courseProgress(ctx, s.db, sess.UserID, id)
	if err != nil {
		return nil, err
	}
	details.Progress = p
	return details, nil
}

func (s *CatalogService) CreateCourse(ctx context.Context, sess Session, in CourseInput) (*models.Course, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, invalidArg("title is required")
	}
	course := models.Course{CourseType: models.CourseFree}
	if err := s.applyCourse(ctx, &course, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&course).Error; err != nil {
		return nil, storageErr(err)
	}
	s.log.Info("course created", "course_id", course.ID, "admin_id", sess.UserID)
	return &course, nil
}

func (s *CatalogService) UpdateCourse(ctx context.Context, sess Session, id uuid.UUID, in CourseInput) (*models.Course, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	var course models.Course
	if err := s.db.WithContext(ctx).First(&course, "id = ?", id).Error; err != nil {
		return nil, storageErr(err)
	}
	if err := s.applyCourse(ctx, &course, in); err != nil {
		return nil, err
	}
	// Save bỏ qua association đã preload
	if err := s.db.WithContext(ctx).Omit("Category", "Modules").Save(&course).Error; err != nil {
		return nil, storageErr(err)
	}
	return &course, nil
}

func (s *CatalogService) applyCourse(ctx context.Context, c *models.Course, in CourseInput) error {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return invalidArg("title cannot be empty")
		}
		c.Title = title
	}
	if in.Description != nil {
		c.Description = trimmedOrNil(in.Description)
	}
	if in.ThumbnailURL != nil {
		c.ThumbnailURL = trimmedOrNil(in.ThumbnailURL)
	}
	if in.InstructorName != nil {
		c.InstructorName = trimmedOrNil(in.InstructorName)
	}
	if in.DurationMinutes != nil {
		if *in.DurationMinutes < 0 {
			return invalidArg("duration_minutes cannot be negative")
		}
		c.DurationMinutes = *in.DurationMinutes
	}
	if in.CourseType != nil {
		if !in.CourseType.Valid() {
			return invalidArg("invalid course_type %q", *in.CourseType)
		}
		c.CourseType = *in.CourseType
	}
	if in.IsPublished != nil {
		c.IsPublished = *in.IsPublished
	}
	if in.ClearCategory {
		c.CategoryID = nil
	} else if in.CategoryID != nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", *in.CategoryID).Count(&count).Error; err != nil {
			return storageErr(err)
		}
		if count == 0 {
			return invalidArg("category %s does not exist", *in.CategoryID)
		}
		id := *in.CategoryID
		c.CategoryID = &id
	}
	return nil
}

// DeleteCourse xóa cả module, bài học, enrollment, tiến độ theo cascade
func (s *CatalogService) DeleteCourse(ctx context.Context, sess Session, id uuid.UUID) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lessonIDs, err := courseLessonIDs(ctx, tx, id)
		if err != nil {
			return err
		}
		if len(lessonIDs) > 0 {
			if err := tx.Where("lesson_id IN ?", lessonIDs).Delete(&models.LessonProgress{}).Error; err != nil {
				return storageErr(err)
			}
			if err := tx.Where("id IN ?", lessonIDs).Delete(&models.Lesson{}).Error; err != nil {
				return storageErr(err)
			}
		}
		for _, m := range []interface{}{&models.Module{}, &models.Enrollment{}, &models.AccessRequest{}} {
			if err := tx.Where("course_id = ?", id).Delete(m).Error; err != nil {
				return storageErr(err)
			}
		}
		res := tx.Delete(&models.Course{}, "id = ?", id)
		if res.Error != nil {
			return storageErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ---------- Modules ----------

func (s *CatalogService) CreateModule(ctx context.Context, sess Session, courseID uuid.UUID, in ModuleInput) (*models.Module, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, invalidArg("title is required")
	}
	if _, err := loadVisibleCourse(ctx, s.db, sess, courseID); err != nil {
		return nil, err
	}

	module := models.Module{
		CourseID:    courseID,
		Title:       strings.TrimSpace(*in.Title),
		Description: trimmedOrNil(in.Description),
	}
	if in.OrderIndex != nil {
		if *in.OrderIndex < 0 {
			return nil, invalidArg("order_index cannot be negative")
		}
		module.OrderIndex = *in.OrderIndex
	} else {
		next, err := nextOrderIndex(ctx, s.db, &models.Module{}, "course_id", courseID)
		if err != nil {
			return nil, err
		}
		module.OrderIndex = next
	}

	if err := s.db.WithContext(ctx).Create(&module).Error; err != nil {
		return nil, conflictOr(err, "order_index already used in this course")
	}
	return &module, nil
}

func (s *CatalogService) UpdateModule(ctx context.Context, sess Session, id uuid.UUID, in ModuleInput) (*models.Module, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	var module models.Module
	if err := s.db.WithContext(ctx).First(&module, "id = ?", id).Error; err != nil {
		return nil, storageErr(err)
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, invalidArg("title cannot be empty")
		}
		module.Title = title
	}
	if in.Description != nil {
		module.Description = trimmedOrNil(in.Description)
	}
	if in.OrderIndex != nil {
		if *in.OrderIndex < 0 {
			return nil, invalidArg("order_index cannot be negative")
		}
		module.OrderIndex = *in.OrderIndex
	}
	if err := s.db.WithContext(ctx).Omit("Lessons").Save(&module).Error; err != nil {
		return nil, conflictOr(err, "order_index already used in this course")
	}
	return &module, nil
}

func (s *CatalogService) DeleteModule(ctx context.Context, sess Session, id uuid.UUID) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lessonIDs []uuid.UUID
		if err := tx.Model(&models.Lesson{}).Where("module_id = ?", id).Pluck("id", &lessonIDs).Error; err != nil {
			return storageErr(err)
		}
		if len(lessonIDs) > 0 {
			if err := tx.Where("lesson_id IN ?", lessonIDs).Delete(&models.LessonProgress{}).Error; err != nil {
				return storageErr(err)
			}
			if err := tx.Where("module_id = ?", id).Delete(&models.Lesson{}).Error; err != nil {
				return storageErr(err)
			}
		}
		res := tx.Delete(&models.Module{}, "id = ?", id)
		if res.Error != nil {
			return storageErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ReorderModules gán lại order_index theo thứ tự ids; ids phải là đủ các module của khóa học
func (s *CatalogService) ReorderModules(ctx context.Context, sess Session, courseID uuid.UUID, ids []uuid.UUID) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}
	return reorder(ctx, s.db, &models.Module{}, "course_id", courseID, ids)
}

// ---------- Lessons ----------

// Lesson trả bài học đầy đủ sau khi qua Enrollment Gate
func (s *CatalogService) Lesson(ctx context.Context, sess Session, id uuid.UUID) (*models.Lesson, error) {
	if err := sess.require(); err != nil {
		return nil, err
	}
	var lesson models.Lesson
	if err := s.db.WithContext(ctx).First(&lesson, "id = ?", id).Error; err != nil {
		return nil, storageErr(err)
	}
	var module models.Module
	if err := s.db.WithContext(ctx).Select("id", "course_id").First(&module, "id = ?", lesson.ModuleID).Error; err != nil {
		return nil, storageErr(err)
	}
	decision, err := s.gate.CanAccess(ctx, sess, module.CourseID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, ErrForbidden
	}
	return &lesson, nil
}

func (s *CatalogService) CreateLesson(ctx context.Context, sess Session, moduleID uuid.UUID, in LessonInput) (*models.Lesson, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, invalidArg("title is required")
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Module{}).Where("id = ?", moduleID).Count(&count).Error; err != nil {
		return nil, storageErr(err)
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	lesson := models.Lesson{ModuleID: moduleID, VideoType: models.VideoYouTube}
	if err := applyLesson(&lesson, in); err != nil {
		return nil, err
	}
	if in.OrderIndex == nil {
		next, err := nextOrderIndex(ctx, s.db, &models.Lesson{}, "module_id", moduleID)
		if err != nil {
			return nil, err
		}
		lesson.OrderIndex = next
	}
	if err := s.db.WithContext(ctx).Create(&lesson).Error; err != nil {
		return nil, conflictOr(err, "order_index already used in this module")
	}
	return &lesson, nil
}

func (s *CatalogService) UpdateLesson(ctx context.Context, sess Session, id uuid.UUID, in LessonInput) (*models.Lesson, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	var lesson models.Lesson
	if err := s.db.WithContext(ctx).First(&lesson, "id = ?", id).Error; err != nil {
		return nil, storageErr(err)
	}
	if err := applyLesson(&lesson, in); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(&lesson).Error; err != nil {
		return nil, conflictOr(err, "order_index already used in this module")
	}
	return &lesson, nil
}

func applyLesson(l *models.Lesson, in LessonInput) error {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return invalidArg("title cannot be empty")
		}
		l.Title = title
	}
	if in.Description != nil {
		l.Description = trimmedOrNil(in.Description)
	}
	if in.VideoURL != nil {
		l.VideoURL = trimmedOrNil(in.VideoURL)
	}
	if in.VideoType != nil {
		if !in.VideoType.Valid() {
			return invalidArg("invalid video_type %q", *in.VideoType)
		}
		l.VideoType = *in.VideoType
	}
	if in.DurationMinutes != nil {
		if *in.DurationMinutes < 0 {
			return invalidArg("duration_minutes cannot be negative")
		}
		l.DurationMinutes = *in.DurationMinutes
	}
	if in.OrderIndex != nil {
		if *in.OrderIndex < 0 {
			return invalidArg("order_index cannot be negative")
		}
		l.OrderIndex = *in.OrderIndex
	}
	if in.Materials != nil {
		materials := make([]models.Material, 0, len(*in.Materials))
		for _, m := range *in.Materials {
			m.Name = strings.TrimSpace(m.Name)
			m.URL = strings.TrimSpace(m.URL)
			if m.Name == "" || m.URL == "" {
				return invalidArg("material name and url are required")
			}
			materials = append(materials, m)
		}
		l.Materials = materials
	}
	return nil
}

func (s *CatalogService) DeleteLesson(ctx context.Context, sess Session, id uuid.UUID) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lesson_id = ?", id).Delete(&models.LessonProgress{}).Error; err != nil {
			return storageErr(err)
		}
		res := tx.Delete(&models.Lesson{}, "id = ?", id)
		if res.Error != nil {
			return storageErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *CatalogService) ReorderLessons(ctx context.Context, sess Session, moduleID uuid.UUID, ids []uuid.UUID) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}
	return reorder(ctx, s.db, &models.Lesson{}, "module_id", moduleID, ids)
}

// ---------- helpers ----------

func nextOrderIndex(ctx context.Context, db *gorm.DB, model interface{}, parentColumn string, parentID uuid.UUID) (int, error) {
	var max int
	if err := db.WithContext(ctx).Model(model).
		Where(parentColumn+" = ?", parentID).
		Select("COALESCE(MAX(order_index), -1)").
		Scan(&max).Error; err != nil {
		return 0, storageErr(err)
	}
	return max + 1, nil
}

// reorder đổi thứ tự trong 2 bước (số âm rồi 0..n-1) để không vi phạm unique index giữa chừng
func reorder(ctx context.Context, db *gorm.DB, model interface{}, parentColumn string, parentID uuid.UUID, ids []uuid.UUID) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []uuid.UUID
		if err := tx.Model(model).Where(parentColumn+" = ?", parentID).Pluck("id", &existing).Error; err != nil {
			return storageErr(err)
		}
		if len(existing) != len(ids) {
			return invalidArg("expected %d ids, got %d", len(existing), len(ids))
		}
		known := make(map[uuid.UUID]bool, len(existing))
		for _, id := range existing {
			known[id] = true
		}
		for _, id := range ids {
			if !known[id] {
				return invalidArg("id %s is missing or repeated", id)
			}
			known[id] = false
		}

		for i, id := range ids {
			if err := tx.Model(model).Where("id = ?", id).Update("order_index", -(i + 1)).Error; err != nil {
				return storageErr(err)
			}
		}
		for i, id := range ids {
			if err := tx.Model(model).Where("id = ?", id).Update("order_index", i).Error; err != nil {
				return storageErr(err)
			}
		}
		return nil
	})
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func conflictOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", ErrConflict, msg)
	}
	return storageErr(err)
}
