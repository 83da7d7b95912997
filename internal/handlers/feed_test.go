package handlers

import (
	"bufio"
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteEvent(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	require.NoError(t, writeEvent(w, "match", []byte(`{"type":"match_created"}`)))
	assert.Equal(t, "event: match\ndata: {\"type\":\"match_created\"}\n\n", buf.String())
}

func TestStreamFeed(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	events := make(chan []byte, 2)
	keepalive := make(chan time.Time, 1)
	events <- []byte(`{"n":1}`)
	keepalive <- time.Now()

	done := make(chan struct{})
	go func() {
		streamFeed(w, events, keepalive)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(events) == 0 && len(keepalive) == 0 }, time.Second, time.Millisecond)
	close(events)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("streamFeed did not stop after the channel closed")
	}
	assert.Contains(t, buf.String(), "event: match\ndata: {\"n\":1}\n\n")
	assert.Contains(t, buf.String(), ": ping\n\n")
}
