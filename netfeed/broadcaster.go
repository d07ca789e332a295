// Package netfeed carries snapshots over websockets: a Broadcaster serves the
// newest snapshot to every connected client and Subscribe feeds a remote
// stream into a local exchange.
package netfeed

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gekko3d/framepipe/pipeline/exchange"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any) {}
func (nopLogger) Warnf(string, ...any) {}

// Envelope is the wire frame. Seq increases by one per Publish.
type Envelope struct {
	Seq    uint64          `json:"seq"`
	SentAt int64           `json:"sentAt"`
	Data   json.RawMessage `json:"data"`
}

// client has its own exchange so a slow reader only ever sees the newest
// frame instead of queueing stale ones.
type client struct {
	conn   *websocket.Conn
	frames *exchange.Exchange[[]byte]
	notify chan struct{}
	done   chan struct{}
}

type Broadcaster struct {
	upgrader websocket.Upgrader
	logger   Logger
	now      func() time.Time

	mu      sync.Mutex
	clients map[*client]struct{}
	seq     uint64
	last    []byte
	closed  bool
}

func NewBroadcaster(logger Logger) *Broadcaster {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Broadcaster{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger:  logger,
		now:     time.Now,
		clients: make(map[*client]struct{}),
	}
}

// Publish encodes v and hands it to every client. A client that has not yet
// written the previous frame skips it.
func (b *Broadcaster) Publish(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}

	b.seq++
	frame, err := json.Marshal(Envelope{Seq: b.seq, SentAt: b.now().UnixMilli(), Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	b.last = frame
	for c := range b.clients {
		c.push(frame)
	}
	return nil
}

// Seq returns the sequence number of the newest published frame.
func (b *Broadcaster) Seq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq
}

func (b *Broadcaster) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// ServeHTTP upgrades the request and streams frames until either side closes.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warnf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	c := &client{
		conn:   conn,
		frames: exchange.New[[]byte](),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		conn.Close()
		return
	}
	b.clients[c] = struct{}{}
	if b.last != nil {
		c.push(b.last)
	}
	b.mu.Unlock()
	b.logger.Infof("feed client connected: %s", r.RemoteAddr)

	go b.readLoop(c)
	b.writeLoop(c)

	b.mu.Lock()
	delete(b.clients, c)
	b.mu.Unlock()
	conn.Close()
	b.logger.Infof("feed client disconnected: %s", r.RemoteAddr)
}

// readLoop only watches for the peer going away.
func (b *Broadcaster) readLoop(c *client) {
	defer close(c.done)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *Broadcaster) writeLoop(c *client) {
	for {
		select {
		case <-c.done:
			return
		case <-c.notify:
		}

		frame, ok := c.frames.ConsumeLatest()
		if !ok {
			continue
		}
		c.conn.SetWriteDeadline(b.now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			b.logger.Warnf("feed write failed: %v", err)
			return
		}
	}
}

// Close disconnects every client and rejects new ones.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for c := range b.clients {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed")
		c.conn.WriteControl(websocket.CloseMessage, msg, b.now().Add(writeWait))
		c.conn.Close()
	}
}

func (c *client) push(frame []byte) {
	c.frames.Publish(frame)
	select {
	case c.notify <- struct{}{}:
	default:
	}
}
