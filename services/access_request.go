package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vnkhanh/e-learning-backend/models"
	"github.com/vnkhanh/e-learning-backend/utils"
	"gorm.io/gorm"
)

type UserSummary struct {
	ID        uuid.UUID `json:"id"`
	FirstName *string   `json:"first_name"`
	LastName  *string   `json:"last_name"`
}

type CourseSummary struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

type AccessRequestView struct {
	models.AccessRequest
	User   *UserSummary   `json:"user,omitempty"`
	Course *CourseSummary `json:"course,omitempty"`
}

// AccessRequestService quản lý vòng đời pending -> approved | rejected
type AccessRequestService struct {
	db            *gorm.DB
	log           *utils.Logger
	notifications *NotificationService
	now           func() time.Time
}

func NewAccessRequestService(db *gorm.DB, log *utils.Logger, notifications *NotificationService, now func() time.Time) *AccessRequestService {
	return &AccessRequestService{
		db:            db,
		log:           log.With("service", "AccessRequestService"),
		notifications: notifications,
		now:           now,
	}
}

func (s *AccessRequestService) Create(ctx context.Context, sess Session, courseID uuid.UUID, message string) (*models.AccessRequest, error) {
	if err := sess.require(); err != nil {
		return nil, err
	}
	course, err := loadVisibleCourse(ctx, s.db, sess, courseID)
	if err != nil {
		return nil, err
	}
	if course.CourseType != models.CoursePrivate {
		return nil, invalidArg("course %s does not require an access request", courseID)
	}

	enrollment, err := findEnrollment(ctx, s.db, sess.UserID, courseID)
	if err != nil {
		return nil, err
	}
	if enrollment != nil {
		return nil, ErrAlreadyEnrolled
	}

	pending, err := hasPendingRequest(ctx, s.db, sess.UserID, courseID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrDuplicateRequest
	}

	req := models.AccessRequest{
		UserID:   sess.UserID,
		CourseID: courseID,
		Status:   models.RequestPending,
	}
	if msg := strings.TrimSpace(message); msg != "" {
		req.Message = &msg
	}
	if err := s.db.WithContext(ctx).Create(&req).Error; err != nil {
		// partial unique index chặn trường hợp hai request chen nhau
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateRequest
		}
		return nil, storageErr(err)
	}

	s.log.Info("access request created", "request_id", req.ID, "user_id", req.UserID, "course_id", courseID)
	return &req, nil
}

// Resolve duyệt hoặc từ chối yêu cầu. Cập nhật trạng thái và tạo enrollment nằm trong cùng một transaction.
func (s *AccessRequestService) Resolve(ctx context.Context, sess Session, requestID uuid.UUID, decision models.AccessRequestStatus, adminResponse string) (*models.AccessRequest, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	if decision != models.RequestApproved && decision != models.RequestRejected {
		return nil, invalidArg("decision must be %q or %q", models.RequestApproved, models.RequestRejected)
	}

	var response *string
	if r := strings.TrimSpace(adminResponse); r != "" {
		response = &r
	}

	var req models.AccessRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, "id = ?", requestID).Error; err != nil {
			return storageErr(err)
		}
		if !req.IsPending() {
			return ErrInvalidStateTransition
		}

		now := s.now()
		res := tx.Model(&models.AccessRequest{}).
			Where("id = ? AND status = ?", requestID, models.RequestPending).
			Updates(map[string]interface{}{
				"status":         decision,
				"admin_response": response,
				"updated_at":     now,
			})
		if res.Error != nil {
			return storageErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInvalidStateTransition
		}

		if decision == models.RequestApproved {
			if _, _, err := ensureEnrollment(ctx, tx, req.UserID, req.CourseID, now); err != nil {
				return err
			}
		}

		req.Status = decision
		req.AdminResponse = response
		req.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("access request resolved", "request_id", req.ID, "status", req.Status, "admin_id", sess.UserID)
	s.notifyResolved(ctx, &req)
	return &req, nil
}

func (s *AccessRequestService) notifyResolved(ctx context.Context, req *models.AccessRequest) {
	if s.notifications == nil {
		return
	}
	var course models.Course
	title := "Course"
	if err := s.db.WithContext(ctx).Select("id", "title").First(&course, "id = ?", req.CourseID).Error; err == nil {
		title = course.Title
	}

	in := NotificationInput{
		Title:           "Access request rejected",
		Message:         "Your access request for " + title + " was rejected.",
		Type:            models.NotificationWarning,
		Category:        models.CategoryCourse,
		RelatedEntityID: &req.CourseID,
	}
	if req.Status == models.RequestApproved {
		in.Title = "Access request approved"
		in.Message = "You now have access to " + title + "."
		in.Type = models.NotificationSuccess
	}
	if req.AdminResponse != nil {
		in.Message += " " + *req.AdminResponse
	}
	if _, err := s.notifications.deliver(ctx, []uuid.UUID{req.UserID}, in); err != nil {
		s.log.Warn("failed to notify access request result", "request_id", req.ID, "error", err)
	}
}

// List dành cho admin, lọc theo status nếu có
func (s *AccessRequestService) List(ctx context.Context, sess Session, status models.AccessRequestStatus) ([]AccessRequestView, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Preload("Course", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "title")
	}).Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var requests []models.AccessRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, storageErr(err)
	}

	userIDs := make([]uuid.UUID, 0, len(requests))
	for _, r := range requests {
		userIDs = append(userIDs, r.UserID)
	}
	profiles, err := profilesByUserID(ctx, s.db, userIDs)
	if err != nil {
		return nil, err
	}

	views := make([]AccessRequestView, 0, len(requests))
	for _, r := range requests {
		view := AccessRequestView{AccessRequest: r}
		if p, ok := profiles[r.UserID]; ok {
			view.User = &UserSummary{ID: p.ID, FirstName: p.FirstName, LastName: p.LastName}
		}
		if r.Course != nil {
			view.Course = &CourseSummary{ID: r.Course.ID, Title: r.Course.Title}
			view.AccessRequest.Course = nil
		}
		views = append(views, view)
	}
	return views, nil
}

// Mine trả các yêu cầu của chính user
func (s *AccessRequestService) Mine(ctx context.Context, sess Session) ([]models.AccessRequest, error) {
	if err := sess.require(); err != nil {
		return nil, err
	}
	var requests []models.AccessRequest
	if err := s.db.WithContext(ctx).
		Preload("Course", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "title", "thumbnail_url", "course_type")
		}).
		Where("user_id = ?", sess.UserID).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, storageErr(err)
	}
	return requests, nil
}

func profilesByUserID(ctx context.Context, db *gorm.DB, userIDs []uuid.UUID) (map[uuid.UUID]models.Profile, error) {
	out := make(map[uuid.UUID]models.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var profiles []models.Profile
	if err := db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error; err != nil {
		return nil, storageErr(err)
	}
	for _, p := range profiles {
		out[p.UserID] = p
	}
	return out, nil
}
