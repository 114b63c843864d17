package store

import (
	"time"

	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	apperrors "github.com/lorrc/complaint-desk-bff/internal/core/errors"
)

// ShowNotification appends a message and schedules its removal after
// duration. A non-positive duration uses the store default. Once the store
// is closed the message is returned but not queued.
func (s *Store) ShowNotification(kind domain.NotificationType, message string, duration time.Duration) domain.Notification {
	if duration <= 0 {
		duration = s.notificationTimeout
	}

	s.mu.Lock()
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id

	n := domain.Notification{
		ID:       id,
		Type:     kind,
		Message:  message,
		Duration: duration.Milliseconds(),
	}
	if s.closed {
		s.mu.Unlock()
		s.logger.Debug("notification dropped on closed store", "type", kind)
		return n
	}
	s.state.Notifications = append(s.state.Notifications, n)
	s.timers[id] = time.AfterFunc(duration, func() {
		s.RemoveNotification(id)
	})
	s.mu.Unlock()

	s.publish(domain.NewNotificationEvent(n))
	return n
}

// RemoveNotification drops a message immediately. It reports whether the
// message was still queued.
func (s *Store) RemoveNotification(id int64) bool {
	s.mu.Lock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}

	removed := false
	kept := make([]domain.Notification, 0, len(s.state.Notifications))
	for _, n := range s.state.Notifications {
		if n.ID == id {
			removed = true
			continue
		}
		kept = append(kept, n)
	}
	if removed {
		s.state.Notifications = kept
	}
	s.mu.Unlock()

	if removed {
		s.publish(domain.NewNotificationRemovedEvent(id))
	}
	return removed
}

// Notifications returns the queued messages in insertion order.
func (s *Store) Notifications() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notification{}, s.state.Notifications...)
}

func (s *Store) notifySuccess(message string) {
	s.ShowNotification(domain.NotificationSuccess, message, 0)
}

func (s *Store) notifyError(prefix string, err error) {
	s.ShowNotification(domain.NotificationError, prefix+" : "+apperrors.Message(err), 0)
}
