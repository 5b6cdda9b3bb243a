package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/mossy-p/meet-signaling/config"
	"github.com/mossy-p/meet-signaling/internal/codec"
	"github.com/mossy-p/meet-signaling/internal/models"
	"github.com/mossy-p/meet-signaling/internal/relay"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Time allowed to hand the disconnect to the relay.
	disconnectWait = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	Subprotocols:    codec.Subprotocols(),
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// Hub tracks live websocket clients by connection id and delivers relay
// output to them. It implements relay.Sender.
type Hub struct {
	mu      sync.RWMutex
	clients map[models.ConnectionID]*Client

	// live counts connections whose disconnect has not reached the relay yet.
	live sync.WaitGroup
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[models.ConnectionID]*Client)}
}

// Send encodes payload with the recipient's codec and queues it. Unknown
// ids and full buffers drop the message.
func (h *Hub) Send(id models.ConnectionID, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, exists := h.clients[id]
	if !exists {
		log.Debug().Str("conn_id", string(id)).Str("event", event).Msg("dropping message for unknown connection")
		return
	}

	data, err := client.codec.Encode(event, payload)
	if err != nil {
		client.log.Error().Err(err).Str("event", event).Msg("failed to encode message")
		return
	}

	select {
	case client.Send <- data:
	default:
		client.log.Warn().Str("event", event).Msg("send buffer full, dropping message")
	}
}

// Len returns the number of live clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

// remove unregisters c and closes its send channel, which stops writePump.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if current, ok := h.clients[c.ID]; ok && current == c {
		delete(h.clients, c.ID)
		close(c.Send)
	}
}

// CloseAll closes every live connection; their read pumps then unregister them.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for _, c := range h.clients {
		conns = append(conns, c.Conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
	log.Info().Int("count", len(conns)).Msg("closed websocket connections")
}

// Wait blocks until every connection has handed its disconnect to the relay,
// or ctx is done.
func (h *Hub) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		h.live.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Client represents a WebSocket client connection
type Client struct {
	ID      models.ConnectionID
	Conn    *websocket.Conn
	Send    chan []byte
	codec   codec.Codec
	limiter *rate.Limiter
	log     zerolog.Logger
}

// HandleSignaling upgrades the request and runs the connection until it closes.
func HandleSignaling(hub *Hub, rly *relay.Relay, cfg config.WebSocketConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Upgrade HTTP connection to WebSocket
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Msg("failed to upgrade connection")
			return
		}

		id := models.ConnectionID(uuid.New().String())
		cdc := codec.ForSubprotocol(conn.Subprotocol())
		client := &Client{
			ID:      id,
			Conn:    conn,
			Send:    make(chan []byte, cfg.SendBuffer),
			codec:   cdc,
			limiter: rate.NewLimiter(rate.Limit(cfg.MessagesPerSecond), cfg.MessageBurst),
			log: log.With().
				Str("conn_id", string(id)).
				Str("codec", cdc.Name()).
				Str("remote", c.ClientIP()).
				Logger(),
		}

		hub.live.Add(1)
		hub.add(client)
		if err := rly.Connected(c.Request.Context(), id); err != nil {
			client.log.Error().Err(err).Msg("relay rejected connection")
			hub.remove(client)
			conn.Close()
			hub.live.Done()
			return
		}
		client.log.Info().Msg("client connected")

		go client.writePump()
		client.readPump(c.Request.Context(), hub, rly, cfg.MaxMessageBytes)
	}
}

func (c *Client) readPump(ctx context.Context, hub *Hub, rly *relay.Relay, maxMessageBytes int64) {
	defer func() {
		defer hub.live.Done()
		hub.remove(c)
		c.Conn.Close()

		dctx, cancel := context.WithTimeout(context.Background(), disconnectWait)
		defer cancel()
		if err := rly.Disconnected(dctx, c.ID); err != nil {
			c.log.Warn().Err(err).Msg("failed to hand disconnect to relay")
		}
		c.log.Info().Msg("client disconnected")
	}()

	c.Conn.SetReadLimit(maxMessageBytes)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("websocket error")
			}
			return
		}

		if !c.limiter.Allow() {
			c.log.Warn().Msg("rate limit exceeded, dropping message")
			continue
		}

		frame, err := c.codec.Decode(message)
		if err != nil {
			c.log.Warn().Err(err).Msg("failed to parse message")
			continue
		}

		err = rly.Submit(ctx, c.ID, relay.Message{Event: frame.Event, Decode: frame.Decode})
		if err != nil {
			if !errors.Is(err, relay.ErrStopped) {
				c.log.Warn().Err(err).Msg("failed to queue message")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(c.codec.MessageType(), message); err != nil {
				c.log.Warn().Err(err).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
