package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_sentinel_backend/models"
)

// newFeedServer upgrades one connection, reads the subscribe message, sends
// the given events, and then holds the connection open until the client
// closes it.
func newFeedServer(t *testing.T, events []models.MarketEvent) (*httptest.Server, chan struct{}) {
	t.Helper()
	connected := make(chan struct{})
	var once sync.Once
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		for _, event := range events {
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
		once.Do(func() { close(connected) })

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	return srv, connected
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestEventFeedBuffersRecentEvents(t *testing.T) {
	events := []models.MarketEvent{
		{Symbol: "NQ", EventType: "sweep", Timestamp: time.Now().UTC()},
		{Symbol: "NQ", EventType: "level_touch", Timestamp: time.Now().UTC()},
		{Symbol: "ES", EventType: "sweep", Timestamp: time.Now().UTC()},
	}
	srv, connected := newFeedServer(t, events)
	defer srv.Close()

	feed := NewEventFeed(wsURL(srv), []string{"NQ", "ES"})
	feed.Start()
	defer feed.Stop()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("feed never connected")
	}

	assert.Eventually(t, func() bool {
		buffered, err := feed.RecentEvents(context.Background(), "NQ", time.Minute)
		return err == nil && len(buffered) == 2
	}, 2*time.Second, 10*time.Millisecond)

	buffered, err := feed.RecentEvents(context.Background(), "ES", time.Minute)
	require.NoError(t, err)
	assert.Len(t, buffered, 1)
}

func TestStopClosesLiveConnectionPromptly(t *testing.T) {
	srv, connected := newFeedServer(t, nil)
	defer srv.Close()

	feed := NewEventFeed(wsURL(srv), []string{"NQ"})
	feed.Start()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("feed never connected")
	}

	feed.Stop()

	// The read loop must be unblocked by the connection close, not by the
	// read deadline.
	select {
	case <-feed.done:
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not shut down promptly after Stop")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	feed := NewEventFeed("", []string{"NQ"})
	feed.Start()
	feed.Stop()
	feed.Stop()

	select {
	case <-feed.done:
	case <-time.After(time.Second):
		t.Fatal("disabled feed never reported done")
	}
}
