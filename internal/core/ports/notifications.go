package ports

import (
	"context"

	"github.com/endlessworld/campusnav/internal/core/domain"
)

// NotificationRepository persists user notifications, newest first.
type NotificationRepository interface {
	Insert(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, username string, unreadOnly bool, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, username string) (int64, error)
	// MarkRead returns domain.ErrNotificationNotFound when id does not
	// exist or belongs to another user.
	MarkRead(ctx context.Context, username, id string) error
}

// NotificationService exposes a user's notification inbox.
type NotificationService interface {
	List(ctx context.Context, username string, unreadOnly bool) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, username string) (int64, error)
	MarkRead(ctx context.Context, username, id string) error
}
