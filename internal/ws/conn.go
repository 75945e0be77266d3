package ws

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dm-service/internal/models"
	"dm-service/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Conn is one authenticated websocket. Reads happen on the gateway goroutine,
// writes on the write pump fed by a bounded queue.
type Conn struct {
	ws     *websocket.Conn
	info   ConnInfo
	send   chan models.Event
	done   chan struct{}
	closed sync.Once
}

func newConn(ws *websocket.Conn, info ConnInfo, buffer int) *Conn {
	return &Conn{
		ws:   ws,
		info: info,
		send: make(chan models.Event, buffer),
		done: make(chan struct{}),
	}
}

// UserID implements Client.
func (c *Conn) UserID() string { return c.info.UserID }

// Send implements Client. Events are dropped when the queue is full or the
// connection is closing.
func (c *Conn) Send(event models.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- event:
		return true
	default:
		observability.IncWSDropped()
		log.Printf("ws send buffer full conn_id=%s user_id=%s event=%s", c.info.ConnID, c.info.UserID, event.Type)
		return false
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case event := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(event); err != nil {
				log.Printf("websocket write error conn_id=%s: %v", c.info.ConnID, err)
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			c.flush()
			return
		}
	}
}

// flush writes whatever is still queued before the socket goes away.
func (c *Conn) flush() {
	for {
		select {
		case event := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(event); err != nil {
				return
			}
		default:
			_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

func (c *Conn) close() {
	c.closed.Do(func() { close(c.done) })
}

func (c *Conn) prepareRead() {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
}
