package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vnkhanh/e-learning-backend/models"
	"github.com/vnkhanh/e-learning-backend/utils"
	"gorm.io/gorm"
)

const (
	EventNotification = "notification"
	EventBadgeUpdate  = "badge_update"
)

type NotificationScope string

const (
	ScopeSingle NotificationScope = "single"
	ScopeAll    NotificationScope = "all"
)

type NotificationInput struct {
	Title           string                      `json:"title"`
	Message         string                      `json:"message"`
	Type            models.NotificationType     `json:"type"`
	Category        models.NotificationCategory `json:"category"`
	RelatedEntityID *uuid.UUID                  `json:"related_entity_id,omitempty"`
}

func (in *NotificationInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	if in.Title == "" || in.Message == "" {
		return invalidArg("title and message are required")
	}
	if in.Type == "" {
		in.Type = models.NotificationInfo
	}
	if in.Category == "" {
		in.Category = models.CategoryGeneral
	}
	if !in.Type.Valid() {
		return invalidArg("invalid notification type %q", in.Type)
	}
	if !in.Category.Valid() {
		return invalidArg("invalid notification category %q", in.Category)
	}
	return nil
}

// NotificationService lưu thông báo và đẩy realtime qua Notifier
type NotificationService struct {
	db       *gorm.DB
	log      *utils.Logger
	notifier Notifier
}

func NewNotificationService(db *gorm.DB, log *utils.Logger, notifier Notifier) *NotificationService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &NotificationService{db: db, log: log.With("service", "NotificationService"), notifier: notifier}
}

// Send do admin gọi: gửi cho một user hoặc tất cả user có profile. Trả số thông báo đã tạo.
func (s *NotificationService) Send(ctx context.Context, sess Session, scope NotificationScope, userID uuid.UUID, in NotificationInput) (int, error) {
	if err := sess.requireAdmin(); err != nil {
		return 0, err
	}
	if err := in.normalize(); err != nil {
		return 0, err
	}

	var recipients []uuid.UUID
	switch scope {
	case ScopeSingle, "":
		if userID == uuid.Nil {
			return 0, invalidArg("user_id is required for a single notification")
		}
		recipients = []uuid.UUID{userID}
	case ScopeAll:
		if err := s.db.WithContext(ctx).Model(&models.Profile{}).Pluck("user_id", &recipients).Error; err != nil {
			return 0, storageErr(err)
		}
	default:
		return 0, invalidArg("invalid scope %q", scope)
	}

	count, err := s.deliver(ctx, recipients, in)
	if err != nil {
		return 0, err
	}
	s.log.Info("notifications sent", "scope", scope, "count", count, "admin_id", sess.UserID)
	return count, nil
}

// deliver ghi thông báo trong một transaction rồi mới đẩy realtime
func (s *NotificationService) deliver(ctx context.Context, recipients []uuid.UUID, in NotificationInput) (int, error) {
	if len(recipients) == 0 {
		return 0, nil
	}
	if err := in.normalize(); err != nil {
		return 0, err
	}

	rows := make([]models.Notification, 0, len(recipients))
	for _, id := range recipients {
		rows = append(rows, models.Notification{
			UserID:          id,
			Title:           in.Title,
			Message:         in.Message,
			Type:            in.Type,
			Category:        in.Category,
			RelatedEntityID: in.RelatedEntityID,
		})
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&rows, 200).Error
	})
	if err != nil {
		return 0, storageErr(err)
	}

	for i := range rows {
		s.notifier.NotifyUser(rows[i].UserID, EventNotification, rows[i])
		s.pushBadge(ctx, rows[i].UserID)
	}
	return len(rows), nil
}

func (s *NotificationService) List(ctx context.Context, sess Session, unreadOnly bool, limit int) ([]models.Notification, error) {
	if err := sess.require(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := s.db.WithContext(ctx).Where("user_id = ?", sess.UserID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	var items []models.Notification
	if err := query.Order("created_at DESC").Limit(limit).Find(&items).Error; err != nil {
		return nil, storageErr(err)
	}
	return items, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, sess Session) (int64, error) {
	if err := sess.require(); err != nil {
		return 0, err
	}
	return s.unreadCount(ctx, sess.UserID)
}

func (s *NotificationService) unreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, storageErr(err)
	}
	return count, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, sess Session, id uuid.UUID) error {
	if err := sess.require(); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, sess.UserID).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	if res.Error != nil {
		return storageErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.pushBadge(ctx, sess.UserID)
	return nil
}

// MarkAllRead trả số thông báo vừa được đánh dấu
func (s *NotificationService) MarkAllRead(ctx context.Context, sess Session) (int64, error) {
	if err := sess.require(); err != nil {
		return 0, err
	}
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", sess.UserID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
	if res.Error != nil {
		return 0, storageErr(res.Error)
	}
	s.pushBadge(ctx, sess.UserID)
	return res.RowsAffected, nil
}

func (s *NotificationService) Delete(ctx context.Context, sess Session, id uuid.UUID) error {
	if err := sess.require(); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, sess.UserID).Delete(&models.Notification{})
	if res.Error != nil {
		return storageErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.pushBadge(ctx, sess.UserID)
	return nil
}

// DeleteRead xóa các thông báo đã đọc của user
func (s *NotificationService) DeleteRead(ctx context.Context, sess Session) (int64, error) {
	if err := sess.require(); err != nil {
		return 0, err
	}
	res := s.db.WithContext(ctx).Where("user_id = ? AND is_read = ?", sess.UserID, true).Delete(&models.Notification{})
	if res.Error != nil {
		return 0, storageErr(res.Error)
	}
	return res.RowsAffected, nil
}

func (s *NotificationService) pushBadge(ctx context.Context, userID uuid.UUID) {
	count, err := s.unreadCount(ctx, userID)
	if err != nil {
		s.log.Warn("failed to count unread notifications", "user_id", userID, "error", err)
		return
	}
	if b, ok := s.notifier.(BadgeNotifier); ok {
		b.SendBadgeUpdate(userID, count)
		return
	}
	s.notifier.NotifyUser(userID, EventBadgeUpdate, map[string]interface{}{"unread_count": count})
}
