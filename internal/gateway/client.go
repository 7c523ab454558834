package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	closeGraceWait = 10 * time.Second
)

var newline = []byte{'\n'}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin is already checked by SecurityMiddleware.ValidateConnection
		// before the upgrade is attempted.
		return true
	},
}

// Client is one websocket connection. It satisfies session.Handle via ID()
// so the match engine's connection registry can address it without
// importing this package.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	id       string
	clientIP string

	mu            sync.RWMutex
	playerID      string
	authenticated bool
	username      string
	elo           int
	lastPong      time.Time
	closed        bool
}

func newClient(conn *websocket.Conn, hub *Hub, id, clientIP string) *Client {
	return &Client{
		conn:     conn,
		send:     make(chan []byte, 256),
		hub:      hub,
		id:       id,
		clientIP: clientIP,
		lastPong: time.Now(),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// authenticate records the identity verified from the handshake's bearer
// token. A connection that never calls this stays unauthenticated: it can
// receive the upgrade but every matchmaking/game action is rejected.
func (c *Client) authenticate(playerID, username string, elo int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
	c.username = username
	c.elo = elo
	c.authenticated = true
}

func (c *Client) isAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authenticated
}

func (c *Client) setProfile(username string, elo int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if username != "" {
		c.username = username
	}
	if elo != 0 {
		c.elo = elo
	}
}

func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

func (c *Client) Elo() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.elo
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// sendEnvelope JSON-encodes env and queues it for the write pump, closing the
// client if its send buffer is full. Used by Hub's Publisher methods.
func (c *Client) sendEnvelope(env outboundEnvelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("gateway: marshal outbound envelope: %v", err)
		return
	}
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.close()
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	c.conn.SetWriteDeadline(time.Now().Add(closeGraceWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
	c.conn.Close()
}

func (c *Client) readPump() {
	h := c.hub
	defer func() {
		h.unregister <- c
	}()

	c.conn.SetReadLimit(int64(h.cfg.MaxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.mu.Lock()
		c.lastPong = time.Now()
		c.mu.Unlock()
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("gateway: websocket error for client %s: %v", c.id, err)
			}
			return
		}

		if h.security != nil {
			if err := h.security.CheckMessageRate(c.id, len(data)); err != nil {
				c.sendEnvelope(errorEnvelope("RATE_LIMIT_EXCEEDED", err.Error()))
				continue
			}
		}

		var in inboundEnvelope
		if err := json.Unmarshal(data, &in); err != nil {
			c.sendEnvelope(errorEnvelope("INVALID_MESSAGE", "malformed message"))
			continue
		}

		h.dispatch(c, in)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
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

func (c *Client) run() {
	go c.writePump()
	go c.readPump()
}
