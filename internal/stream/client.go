package stream

import (
	"log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	sendChSize = 16
	writeWait  = 10 * time.Second
)

// client owns one subscriber connection with a single write goroutine.
type client struct {
	conn   *ws.Conn
	sendCh chan []byte
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func newClient(conn *ws.Conn, logger *slog.Logger) *client {
	return &client{
		conn:   conn,
		sendCh: make(chan []byte, sendChSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// send queues data without blocking. It reports false when the queue is full.
func (c *client) send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.sendCh <- data:
		return true
	default:
		return false
	}
}

// writeLoop drains sendCh until the client is closed or a write fails.
func (c *client) writeLoop(onExit func()) {
	defer onExit()
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("WebSocket SetWriteDeadline error", "error", err)
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.logger.Warn("WebSocket write error", "error", err)
				return
			}
		}
	}
}

// readLoop discards inbound messages and returns when the peer goes away.
func (c *client) readLoop(onExit func()) {
	defer onExit()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Debug("WebSocket read ended", "error", err)
			}
			return
		}
	}
}

// close sends a close frame once and tears the connection down.
func (c *client) close(code int, reason string) {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(
			ws.CloseMessage,
			ws.FormatCloseMessage(code, reason),
			time.Now().Add(writeWait),
		)
		_ = c.conn.Close()
	})
}
