package marketdata

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"trade_sentinel_backend/models"
)

// Feed configuration
const (
	eventBufferSize    = 512 // events retained per symbol
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
	readDeadline       = 90 * time.Second
)

// EventFeed subscribes to the market-event websocket stream and keeps a
// bounded per-symbol ring of recent events in memory. RecentEvents is served
// from that ring; nothing is persisted.
type EventFeed struct {
	wsURL   string
	symbols []string

	mu      sync.RWMutex
	buffers map[string][]models.MarketEvent
	conn    *websocket.Conn

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewEventFeed creates a feed for the given symbols. Start must be called
// before RecentEvents returns anything.
func NewEventFeed(wsURL string, symbols []string) *EventFeed {
	return &EventFeed{
		wsURL:   wsURL,
		symbols: symbols,
		buffers: make(map[string][]models.MarketEvent),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the connect/read loop in the background. Reconnects with
// exponential backoff until Stop is called.
func (f *EventFeed) Start() {
	if f.wsURL == "" {
		logrus.Warn("market event feed disabled: no websocket url configured")
		close(f.done)
		return
	}
	go f.run()
}

// Stop terminates the feed. Closing the live connection unblocks a read in
// flight, so shutdown does not wait out the read deadline.
func (f *EventFeed) Stop() {
	f.stopOnce.Do(func() {
		close(f.stop)
		f.mu.Lock()
		if f.conn != nil {
			f.conn.Close()
		}
		f.mu.Unlock()
	})
}

// RecentEvents returns buffered events for symbol newer than now-lookback,
// oldest first.
func (f *EventFeed) RecentEvents(_ context.Context, symbol string, lookback time.Duration) ([]models.MarketEvent, error) {
	cutoff := time.Now().Add(-lookback)

	f.mu.RLock()
	defer f.mu.RUnlock()

	buffer := f.buffers[symbol]
	events := make([]models.MarketEvent, 0, len(buffer))
	for _, ev := range buffer {
		if ev.Timestamp.After(cutoff) {
			events = append(events, ev)
		}
	}
	return events, nil
}

func (f *EventFeed) run() {
	defer close(f.done)

	delay := reconnectBaseDelay
	for {
		select {
		case <-f.stop:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(f.wsURL, nil)
		if err != nil {
			logrus.WithError(err).WithField("url", f.wsURL).Warn("market feed dial failed, retrying")
			select {
			case <-f.stop:
				return
			case <-time.After(delay):
			}
			if delay *= 2; delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
			continue
		}

		delay = reconnectBaseDelay
		logrus.WithField("url", f.wsURL).Info("market feed connected")

		if !f.trackConn(conn) {
			conn.Close()
			return
		}

		if err := f.subscribe(conn); err != nil {
			logrus.WithError(err).Warn("market feed subscribe failed")
			f.trackConn(nil)
			conn.Close()
			continue
		}

		f.readLoop(conn)
		f.trackConn(nil)
		conn.Close()
	}
}

// trackConn records the live connection so Stop can close it. Reports
// whether the feed is still supposed to be running; Stop and trackConn
// serialize on the mutex, so either Stop sees the connection or the loop
// sees the stop.
func (f *EventFeed) trackConn(conn *websocket.Conn) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conn = conn
	select {
	case <-f.stop:
		return false
	default:
		return true
	}
}

func (f *EventFeed) subscribe(conn *websocket.Conn) error {
	return conn.WriteJSON(map[string]interface{}{
		"action":  "subscribe",
		"symbols": f.symbols,
	})
}

func (f *EventFeed) readLoop(conn *websocket.Conn) {
	for {
		select {
		case <-f.stop:
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(readDeadline))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			logrus.WithError(err).Warn("market feed read failed, reconnecting")
			return
		}

		var event models.MarketEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			logrus.WithError(err).Debug("dropping unparseable market event")
			continue
		}
		if event.Symbol == "" {
			continue
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}
		f.append(event)
	}
}

func (f *EventFeed) append(event models.MarketEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	buffer := append(f.buffers[event.Symbol], event)
	if len(buffer) > eventBufferSize {
		buffer = buffer[len(buffer)-eventBufferSize:]
	}
	f.buffers[event.Symbol] = buffer
}
