package domain

// EventType defines the type of real-time event.
type EventType string

const (
	EventStateChanged EventType = "STATE_CHANGED"
	EventNotification EventType = "NOTIFICATION"
	EventPong         EventType = "PONG"
	EventError        EventType = "ERROR"
)

// Topic names the slice of the store an event refers to.
type Topic string

const (
	TopicStats         Topic = "stats"
	TopicPlaintes      Topic = "plaintes"
	TopicPlainte       Topic = "plainte"
	TopicSuggestions   Topic = "suggestions"
	TopicProcessing    Topic = "processing"
	TopicTendances     Topic = "tendances"
	TopicServices      Topic = "services"
	TopicUtilisateurs  Topic = "utilisateurs"
	TopicAudit         Topic = "audit"
	TopicUI            Topic = "ui"
	TopicNotifications Topic = "notifications"
)

// Event is the payload sent over WebSocket.
type Event struct {
	Type    EventType   `json:"type"`
	Topic   Topic       `json:"topic,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// ClientMessageType is a message a browser sends over the change feed.
type ClientMessageType string

const (
	ClientEscape       ClientMessageType = "ESCAPE"
	ClientOutsideClick ClientMessageType = "OUTSIDE_CLICK"
	ClientPing         ClientMessageType = "PING"
	ClientSubscribe    ClientMessageType = "SUBSCRIBE"
	ClientUnsubscribe  ClientMessageType = "UNSUBSCRIBE"
)

// ClientMessage is an inbound WebSocket frame. Topics is only read by
// SUBSCRIBE and UNSUBSCRIBE.
type ClientMessage struct {
	Type   ClientMessageType `json:"type"`
	Topics []Topic           `json:"topics,omitempty"`
}

// IsValid checks if the topic is a known value
func (t Topic) IsValid() bool {
	switch t {
	case TopicStats, TopicPlaintes, TopicPlainte, TopicSuggestions, TopicProcessing,
		TopicTendances, TopicServices, TopicUtilisateurs, TopicAudit, TopicUI, TopicNotifications:
		return true
	default:
		return false
	}
}
