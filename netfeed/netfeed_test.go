package netfeed

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gekko3d/framepipe/pipeline/exchange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type board struct {
	Tick  int      `json:"tick"`
	Names []string `json:"names"`
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestSubscribe_ReceivesLatestAndClears(t *testing.T) {
	b := NewBroadcaster(nil)
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	t.Cleanup(b.Close)

	require.NoError(t, b.Publish(board{Tick: 1, Names: []string{"a"}}))

	ex := exchange.New[board]()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Subscribe(ctx, wsURL(srv.URL), ex, nil) }()

	// A late joiner starts from the newest frame.
	require.Eventually(t, ex.Pending, 2*time.Second, 5*time.Millisecond)
	got, ok := ex.ConsumeLatest()
	require.True(t, ok)
	assert.Equal(t, board{Tick: 1, Names: []string{"a"}}, got)
	assert.Equal(t, 1, b.Clients())

	require.NoError(t, b.Publish(board{Tick: 2}))
	require.Eventually(t, ex.Pending, 2*time.Second, 5*time.Millisecond)
	got, ok = ex.ConsumeLatest()
	require.True(t, ok)
	assert.Equal(t, 2, got.Tick)

	require.NoError(t, b.Publish(board{Tick: 3}))
	require.NoError(t, b.Publish(nil))
	require.Eventually(t, func() bool { return b.Seq() == 4 && ex.Stats().Cleared > 0 }, 2*time.Second, 5*time.Millisecond)
	_, ok = ex.ConsumeLatest()
	assert.False(t, ok)

	cancel()
	select {
	case err := <-done:
		assert.True(t, IsClosed(err), "unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not stop after cancel")
	}
}

func TestBroadcaster_CloseEndsSubscription(t *testing.T) {
	b := NewBroadcaster(nil)
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	ex := exchange.New[board]()
	done := make(chan error, 1)
	go func() { done <- Subscribe(context.Background(), wsURL(srv.URL), ex, nil) }()

	require.Eventually(t, func() bool { return b.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)
	b.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not end after broadcaster close")
	}
	assert.NoError(t, b.Publish(board{Tick: 9}), "publishing after close is a no-op")
}

func TestSubscribe_DialFailure(t *testing.T) {
	ex := exchange.New[board]()
	err := Subscribe(context.Background(), "ws://127.0.0.1:1/feed", ex, nil)
	assert.Error(t, err)
	assert.False(t, ex.Pending())
}
