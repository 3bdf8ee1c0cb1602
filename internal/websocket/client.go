package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Viewers never send anything but control frames
	maxInboundSize = 128

	// sendBuffer bounds the events queued for a slow viewer. Every
	// leaderboard event is a full board, so when the queue is full the oldest
	// event is discarded in favour of the newest.
	sendBuffer = 16
)

// Client is one viewer connection following a topic
type Client struct {
	id     string
	topic  string
	conn   *websocket.Conn
	hub    *Hub
	send   chan []byte
	closed bool
	mu     sync.Mutex
	once   sync.Once
}

// NewClient wraps an upgraded connection. It is not delivered anything until
// it is registered with hub.
func NewClient(conn *websocket.Conn, topic string, hub *Hub) *Client {
	return &Client{
		id:    uuid.New().String(),
		topic: topic,
		conn:  conn,
		hub:   hub,
		send:  make(chan []byte, sendBuffer),
	}
}

func (c *Client) ID() string    { return c.id }
func (c *Client) Topic() string { return c.topic }

// Send queues data for the viewer, discarding the oldest queued event when the
// viewer has fallen behind
func (c *Client) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	for {
		select {
		case c.send <- data:
			return nil
		default:
		}
		select {
		case <-c.send:
			log.Debug().Str("client_id", c.id).Msg("Viewer behind, discarding stale event")
		default:
		}
	}
}

// Close stops delivery and closes the connection. It may be called repeatedly.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// IsClosed reports whether Close has been called
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Serve runs the connection until the viewer disconnects, then removes it from
// the hub. It blocks, so callers start it on its own goroutine.
func (c *Client) Serve() {
	go c.writeLoop()
	c.readLoop()
}

// readLoop keeps the read deadline fresh and discards anything the viewer
// sends. It returns when the connection fails or closes.
func (c *Client) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("client_id", c.id).Msg("Viewer disconnected")
			}
			return
		}
	}
}

// writeLoop drains the send queue and keeps the connection alive with pings
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("client_id", c.id).Msg("Viewer write failed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
