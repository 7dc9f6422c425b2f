package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/endlessworld/campusnav/internal/core/domain"
	"github.com/endlessworld/campusnav/internal/core/ports"
)

const (
	notificationLimit   = 50
	notificationTimeout = 2 * time.Second
)

// NotificationService is a Publisher that keeps an inbox of the events a
// user should not miss and forwards every event to the live publisher.
type NotificationService struct {
	repo ports.NotificationRepository
	next ports.Publisher
	log  zerolog.Logger
	now  func() time.Time
}

func NewNotificationService(repo ports.NotificationRepository, next ports.Publisher, log zerolog.Logger) *NotificationService {
	return &NotificationService{repo: repo, next: next, log: log, now: time.Now}
}

// Publish records off-route, recalculation failure and watch-stopped events
// before handing the event on. A failed insert is logged and does not stop
// delivery.
func (s *NotificationService) Publish(userID, eventType string, data any) error {
	if msg, ok := notificationMessage(eventType, data); ok {
		s.record(userID, eventType, msg)
	}
	return s.next.Publish(userID, eventType, data)
}

func (s *NotificationService) record(username, eventType, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), notificationTimeout)
	defer cancel()

	n := &domain.Notification{
		Username:  username,
		Type:      eventType,
		Message:   msg,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		s.log.Warn().Err(err).Str("session", username).Str("event", eventType).Msg("failed to store notification")
	}
}

func (s *NotificationService) List(ctx context.Context, username string, unreadOnly bool) ([]domain.Notification, error) {
	ns, err := s.repo.List(ctx, username, unreadOnly, notificationLimit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return ns, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, username string) (int64, error) {
	n, err := s.repo.CountUnread(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return n, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, username, id string) error {
	return s.repo.MarkRead(ctx, username, id)
}

func notificationMessage(eventType string, data any) (string, bool) {
	switch eventType {
	case EventOffRoute:
		if p, ok := data.(OffRoutePayload); ok {
			return fmt.Sprintf("You are %.0f m off the route.", p.Distance), true
		}
	case EventRecalculationFailed:
		if p, ok := data.(RecalculationFailedPayload); ok {
			return "Could not recalculate the route: " + p.Error, true
		}
	case EventWatchStopped:
		return "Location access was denied, live tracking stopped.", true
	}
	return "", false
}
