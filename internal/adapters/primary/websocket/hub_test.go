package websocket

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startHub(t *testing.T, cfg Config) (*Hub, context.CancelFunc, <-chan struct{}) {
	t.Helper()

	hub := NewHub(cfg, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	t.Cleanup(cancel)
	return hub, cancel, stopped
}

func receive(t *testing.T, c *Client) domain.Event {
	t.Helper()

	select {
	case event, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		return event
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return domain.Event{}
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, defaultPongWait, cfg.PongWait)
	assert.Less(t, cfg.PingInterval, cfg.PongWait)
	assert.Equal(t, defaultSendBufferSize, cfg.SendBufferSize)

	cfg = Config{PingInterval: 2 * time.Minute, PongWait: time.Minute, SendBufferSize: 4}.withDefaults()
	assert.Equal(t, 54*time.Second, cfg.PingInterval)
	assert.Equal(t, 4, cfg.SendBufferSize)
}

func TestHub_DeliversToEveryConnectionOfTheUser(t *testing.T) {
	hub, _, _ := startHub(t, Config{SendBufferSize: 4})
	userID := uuid.New()
	tab1 := NewClient(hub, nil, userID, nil, discardLogger())
	tab2 := NewClient(hub, nil, userID, nil, discardLogger())
	other := NewClient(hub, nil, uuid.New(), nil, discardLogger())

	require.True(t, hub.Attach(tab1))
	require.True(t, hub.Attach(tab2))
	require.True(t, hub.Attach(other))
	assert.Equal(t, 3, hub.GetClientCount())
	assert.True(t, hub.IsUserConnected(userID))

	event := domain.NewStateChangedEvent(domain.TopicStats)
	require.NoError(t, hub.Broadcast(userID, event))

	assert.Equal(t, event, receive(t, tab1))
	assert.Equal(t, event, receive(t, tab2))
	assert.Empty(t, other.Send)
}

func TestHub_TopicFiltering(t *testing.T) {
	hub, _, _ := startHub(t, Config{SendBufferSize: 4})
	userID := uuid.New()
	c := NewClient(hub, nil, userID, nil, discardLogger())
	c.Subscribe(domain.TopicUI)
	require.True(t, hub.Attach(c))

	require.NoError(t, hub.Broadcast(userID, domain.NewStateChangedEvent(domain.TopicStats)))
	require.NoError(t, hub.Broadcast(userID, domain.NewStateChangedEvent(domain.TopicUI)))

	assert.Equal(t, domain.TopicUI, receive(t, c).Topic)

	c.Unsubscribe(domain.TopicUI)
	assert.True(t, c.Follows(domain.TopicStats))
}

func TestHub_DropsSlowConsumer(t *testing.T) {
	hub, _, _ := startHub(t, Config{SendBufferSize: 1})
	userID := uuid.New()
	c := NewClient(hub, nil, userID, nil, discardLogger())
	require.True(t, hub.Attach(c))

	require.NoError(t, hub.Broadcast(userID, domain.NewStateChangedEvent(domain.TopicStats)))
	require.NoError(t, hub.Broadcast(userID, domain.NewStateChangedEvent(domain.TopicAudit)))

	assert.Eventually(t, func() bool { return !hub.IsUserConnected(userID) }, time.Second, 10*time.Millisecond)

	// The buffered event is still readable, then the channel is closed.
	<-c.Send
	_, ok := <-c.Send
	assert.False(t, ok)
}

func TestHub_Detach(t *testing.T) {
	hub, _, _ := startHub(t, Config{})
	c := NewClient(hub, nil, uuid.New(), nil, discardLogger())
	require.True(t, hub.Attach(c))

	hub.Detach(c)
	hub.Detach(c)

	assert.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, time.Second, 10*time.Millisecond)
	_, ok := <-c.Send
	assert.False(t, ok)
}

func TestHub_StopClosesConnections(t *testing.T) {
	hub, cancel, stopped := startHub(t, Config{})
	c := NewClient(hub, nil, uuid.New(), nil, discardLogger())
	require.True(t, hub.Attach(c))

	cancel()
	<-stopped

	_, ok := <-c.Send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.GetClientCount())

	late := NewClient(hub, nil, uuid.New(), nil, discardLogger())
	assert.False(t, hub.Attach(late))
	hub.Detach(late)
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	hub := NewHub(Config{}, discardLogger())
	userID := uuid.New()

	for i := 0; i < cap(hub.broadcast)+10; i++ {
		require.NoError(t, hub.Broadcast(userID, domain.NewStateChangedEvent(domain.TopicStats)))
	}
	assert.Len(t, hub.broadcast, cap(hub.broadcast))
}
