package domain

import "time"

// NotificationType is the flavour of a transient message.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// IsValid checks if the notification type is a known value
func (t NotificationType) IsValid() bool {
	return t == NotificationSuccess || t == NotificationError
}

// DefaultNotificationDuration is how long a message stays when no duration is given.
const DefaultNotificationDuration = 5000 * time.Millisecond

// Notification is a transient user-facing message. ID is a Unix millisecond
// timestamp, strictly increasing inside one store. Duration is in milliseconds.
type Notification struct {
	ID       int64            `json:"id"`
	Type     NotificationType `json:"type"`
	Message  string           `json:"message"`
	Duration int64            `json:"duration"`
}
