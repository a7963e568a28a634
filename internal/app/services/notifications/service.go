package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sarkhq/console/internal/app/domain/notification"
	"github.com/sarkhq/console/internal/app/storage"
	"github.com/sarkhq/console/pkg/isotime"
	"github.com/sarkhq/console/pkg/logger"
)

// Notifier is the side channel other services report business events to.
type Notifier interface {
	Add(ctx context.Context, n notification.Notification) (notification.Notification, error)
}

// Service records operator notifications.
type Service struct {
	store storage.NotificationStore
	log   *logger.Logger
}

var _ Notifier = (*Service)(nil)

// New constructs a notification service.
func New(store storage.NotificationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("notifications")
	}
	return &Service{store: store, log: log}
}

// Add stores n as a new unread notification. ID and timestamp are assigned
// when blank.
func (s *Service) Add(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	n.Title = strings.TrimSpace(n.Title)
	if n.Title == "" {
		return notification.Notification{}, fmt.Errorf("title is required")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = isotime.Now()
	}
	if n.Tone == "" {
		n.Tone = notification.ToneInfo
	}
	n.Read = false

	created, err := s.store.CreateNotification(ctx, n)
	if err != nil {
		return notification.Notification{}, err
	}
	s.log.WithField("notification_id", created.ID).
		WithField("tone", created.Tone).
		Debug("notification added")
	return created, nil
}

// List returns notifications newest first.
func (s *Service) List(ctx context.Context) ([]notification.Notification, error) {
	return s.store.ListNotifications(ctx)
}

// MarkAllRead flags every notification as read and returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context) (int, error) {
	n, err := s.store.MarkAllNotificationsRead(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.WithField("count", n).Info("notifications marked read")
	}
	return n, nil
}

// UnreadCount returns the number of unread notifications.
func (s *Service) UnreadCount(ctx context.Context) (int, error) {
	list, err := s.store.ListNotifications(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range list {
		if !n.Read {
			count++
		}
	}
	return count, nil
}
