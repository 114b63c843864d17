package domain

// NotificationRemovedPayload tells views to drop a message before its timer fires.
type NotificationRemovedPayload struct {
	ID      int64 `json:"id"`
	Removed bool  `json:"removed"`
}

// NewStateChangedEvent builds the event published after a slice changed.
func NewStateChangedEvent(topic Topic) Event {
	return Event{Type: EventStateChanged, Topic: topic}
}

// NewNotificationEvent builds the event published when a message is shown.
func NewNotificationEvent(n Notification) Event {
	return Event{Type: EventNotification, Topic: TopicNotifications, Payload: n}
}

// NewNotificationRemovedEvent builds the event published when a message expires or is dismissed.
func NewNotificationRemovedEvent(id int64) Event {
	return Event{
		Type:    EventNotification,
		Topic:   TopicNotifications,
		Payload: NotificationRemovedPayload{ID: id, Removed: true},
	}
}
