package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	apperrors "github.com/lorrc/complaint-desk-bff/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommands struct {
	calls chan domain.ClientMessageType
	err   error
}

func (f *fakeCommands) HandleClientCommand(_ context.Context, _ uuid.UUID, command domain.ClientMessageType) error {
	f.calls <- command
	return f.err
}

type connFixture struct {
	hub      *Hub
	userID   uuid.UUID
	commands *fakeCommands
	conn     *websocket.Conn
}

func newConnFixture(t *testing.T) *connFixture {
	t.Helper()

	hub, _, _ := startHub(t, Config{SendBufferSize: 8})
	f := &connFixture{
		hub:      hub,
		userID:   uuid.New(),
		commands: &fakeCommands{calls: make(chan domain.ClientMessageType, 4)},
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, f.userID, f.commands, discardLogger())
		if !hub.Attach(client) {
			_ = conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	f.conn = conn

	require.Eventually(t, func() bool { return hub.IsUserConnected(f.userID) }, time.Second, 10*time.Millisecond)
	return f
}

func (f *connFixture) send(t *testing.T, msg domain.ClientMessage) {
	t.Helper()
	require.NoError(t, f.conn.WriteJSON(msg))
}

func (f *connFixture) read(t *testing.T) domain.Event {
	t.Helper()
	require.NoError(t, f.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event domain.Event
	require.NoError(t, f.conn.ReadJSON(&event))
	return event
}

func TestClient_PingPong(t *testing.T) {
	f := newConnFixture(t)

	f.send(t, domain.ClientMessage{Type: domain.ClientPing})

	assert.Equal(t, domain.EventPong, f.read(t).Type)
}

func TestClient_InvalidMessage(t *testing.T) {
	f := newConnFixture(t)

	require.NoError(t, f.conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	event := f.read(t)
	assert.Equal(t, domain.EventError, event.Type)
	assert.Equal(t, "Message invalide", event.Payload)
}

func TestClient_ForwardsCommands(t *testing.T) {
	f := newConnFixture(t)
	f.commands.err = apperrors.ErrSessionNotFound

	f.send(t, domain.ClientMessage{Type: domain.ClientEscape})
	f.send(t, domain.ClientMessage{Type: domain.ClientOutsideClick})

	for _, want := range []domain.ClientMessageType{domain.ClientEscape, domain.ClientOutsideClick} {
		select {
		case got := <-f.commands.calls:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("command %s not forwarded", want)
		}
	}

	// The connection stays usable after a failed command.
	f.send(t, domain.ClientMessage{Type: domain.ClientPing})
	assert.Equal(t, domain.EventPong, f.read(t).Type)
}

func TestClient_ReceivesBroadcasts(t *testing.T) {
	f := newConnFixture(t)

	require.NoError(t, f.hub.Broadcast(f.userID, domain.NewStateChangedEvent(domain.TopicPlaintes)))

	event := f.read(t)
	assert.Equal(t, domain.EventStateChanged, event.Type)
	assert.Equal(t, domain.TopicPlaintes, event.Topic)
}

func TestClient_Subscriptions(t *testing.T) {
	f := newConnFixture(t)

	f.send(t, domain.ClientMessage{Type: domain.ClientSubscribe, Topics: []domain.Topic{domain.TopicUI, "bogus"}})
	// Messages are handled in order, so the pong proves the subscription is applied.
	f.send(t, domain.ClientMessage{Type: domain.ClientPing})
	require.Equal(t, domain.EventPong, f.read(t).Type)

	require.NoError(t, f.hub.Broadcast(f.userID, domain.NewStateChangedEvent(domain.TopicStats)))
	require.NoError(t, f.hub.Broadcast(f.userID, domain.NewStateChangedEvent(domain.TopicUI)))

	assert.Equal(t, domain.TopicUI, f.read(t).Topic)
}

func TestClient_DisconnectUnregisters(t *testing.T) {
	f := newConnFixture(t)

	require.NoError(t, f.conn.Close())

	assert.Eventually(t, func() bool { return !f.hub.IsUserConnected(f.userID) }, 2*time.Second, 10*time.Millisecond)
}
