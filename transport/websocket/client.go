package websocket

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096

	sendBufferSize = 256
)

// Client - one websocket connection. The gateway writes into send; WritePump drains it.
type Client struct {
	id      string
	conn    *websocket.Conn
	gateway *Gateway
	send    chan []byte
	logger  *slog.Logger
}

func NewClient(logger *slog.Logger, id string, conn *websocket.Conn, gateway *Gateway) *Client {
	return &Client{
		id:      id,
		conn:    conn,
		gateway: gateway,
		send:    make(chan []byte, sendBufferSize),
		logger:  logger.With("component", "client", "connection_id", id),
	}
}

// Send - queues data without blocking. Returns false when the queue is full.
func (that *Client) Send(data []byte) bool {
	select {
	case that.send <- data:
		return true
	default:
		return false
	}
}

// ReadPump - feeds inbound frames to the gateway until the connection fails, then disconnects.
func (that *Client) ReadPump() {
	defer func() {
		// gateway stops sending before the queue is closed
		that.gateway.Disconnect(that.id)
		close(that.send)

		if err := that.conn.Close(); err != nil {
			that.logger.Debug("connection close error", "error", err)
		}
	}()

	that.conn.SetReadLimit(maxMessageSize)

	if err := that.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		that.logger.Error("failed to set read deadline", "error", err)
		return
	}

	that.conn.SetPongHandler(func(string) error {
		return that.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := that.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				that.logger.Info("unexpected close", "error", err)
			}
			return
		}

		that.gateway.HandleMessage(that.id, data)
	}
}

// WritePump - writes queued messages and keeps the connection alive with pings.
func (that *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := that.conn.Close(); err != nil {
			that.logger.Debug("connection close error", "error", err)
		}
	}()

	for {
		select {
		case message, ok := <-that.send:
			if err := that.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				that.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				_ = that.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := that.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				that.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := that.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				that.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				that.logger.Debug("failed to write ping", "error", err)
				return
			}
		}
	}
}
