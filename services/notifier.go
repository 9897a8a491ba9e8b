package services

import "github.com/google/uuid"

// Notifier đẩy sự kiện realtime tới một user. Gửi kiểu fire-and-forget, không trả lỗi.
type Notifier interface {
	NotifyUser(userID uuid.UUID, event string, payload interface{})
}

// BadgeNotifier được dùng cho badge_update khi Notifier hỗ trợ (ws.Hub)
type BadgeNotifier interface {
	SendBadgeUpdate(userID uuid.UUID, unread int64)
}

type nopNotifier struct{}

func (nopNotifier) NotifyUser(uuid.UUID, string, interface{}) {}
