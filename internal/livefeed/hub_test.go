package livefeed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trentd187/match-point-league/internal/logging"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(logging.Discard())
	stop := make(chan struct{})
	go h.Run(stop)
	t.Cleanup(func() { close(stop) })
	return h
}

func receive(t *testing.T, s *Subscriber) []byte {
	t.Helper()
	select {
	case msg, ok := <-s.Send:
		require.True(t, ok, "subscriber channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestHub_RoutesByCourt(t *testing.T) {
	h := startHub(t)
	a := h.Subscribe("court-a", 4)
	b := h.Subscribe("court-b", 4)

	h.Publish("court-a", []byte("hello a"))
	h.Publish("court-b", []byte("hello b"))

	assert.Equal(t, "hello a", string(receive(t, a)))
	assert.Equal(t, "hello b", string(receive(t, b)))
	assert.Empty(t, a.Send)
}

func TestHub_PublishJSON(t *testing.T) {
	h := startHub(t)
	s := h.Subscribe("court-a", 1)

	require.NoError(t, h.PublishJSON("court-a", map[string]string{"type": "match_created"}))
	assert.JSONEq(t, `{"type":"match_created"}`, string(receive(t, s)))
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := startHub(t)
	s := h.Subscribe("court-a", 1)
	require.Eventually(t, func() bool { return h.SubscriberCount("court-a") == 1 }, time.Second, time.Millisecond)

	h.Unsubscribe(s)
	_, open := <-s.Send
	assert.False(t, open)
	assert.Equal(t, 0, h.SubscriberCount("court-a"))

	// A second unsubscribe must not panic on the closed channel.
	h.Unsubscribe(s)
}

func TestHub_DropsSlowSubscriber(t *testing.T) {
	h := startHub(t)
	slow := h.Subscribe("court-a", 1)
	fast := h.Subscribe("court-a", 8)

	h.Publish("court-a", []byte("1"))
	h.Publish("court-a", []byte("2"))

	assert.Equal(t, "1", string(receive(t, fast)))
	assert.Equal(t, "2", string(receive(t, fast)))

	assert.Equal(t, "1", string(<-slow.Send))
	_, open := <-slow.Send
	assert.False(t, open, "slow subscriber should have been dropped")
	assert.Equal(t, 1, h.SubscriberCount("court-a"))

	h.Unsubscribe(slow)
}

func TestHub_StopClosesSubscribers(t *testing.T) {
	h := NewHub(logging.Discard())
	stop := make(chan struct{})
	go h.Run(stop)

	s := h.Subscribe("court-a", 1)
	close(stop)

	_, open := <-s.Send
	assert.False(t, open)
	assert.Nil(t, h.Subscribe("court-a", 1))
	h.Unsubscribe(s)
}
