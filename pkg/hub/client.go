package hub

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gatherly/chat-service/pkg/config"
	"github.com/gatherly/chat-service/pkg/logging"
	"github.com/gatherly/chat-service/pkg/model"
)

// Client is the middleman between one websocket connection and the hub.
// Conn may be nil in tests; the pumps are only started for real
// connections.
type Client struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Session *model.Session

	hub  *Hub
	cfg  config.WebSocketConfig
	room string // guarded by hub.mu
}

func NewClient(id string, h *Hub, conn *websocket.Conn, sess *model.Session, cfg config.WebSocketConfig) *Client {
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = 256
	}
	return &Client{
		ID:      id,
		Conn:    conn,
		Send:    make(chan []byte, buffer),
		Session: sess,
		hub:     h,
		cfg:     cfg,
	}
}

// SendJSON marshals v and enqueues it for delivery to this connection
// only. Enqueueing is non-blocking; a full buffer drops the frame.
func (c *Client) SendJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.hub.SendTo(c, data)
	return nil
}

// ReadPump pumps frames from the websocket connection to the handler.
// It runs in a per-connection goroutine and guarantees the connection is
// unregistered exactly once when the read loop ends, whether the client
// closed cleanly or the network failed.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		c.hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				lg := logging.L(); lg.Warn().Err(err).Str(logging.FieldConnID, c.ID).Msg("websocket read error")
			}
			break
		}

		handler(c, message)
	}
}

// WritePump pumps frames from the send channel to the websocket
// connection and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingPeriod())
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) pingPeriod() time.Duration {
	if c.cfg.PingInterval > 0 {
		return c.cfg.PingInterval
	}
	return (c.cfg.PongWait * 9) / 10
}
