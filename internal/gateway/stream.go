package gateway

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"matchengine/internal/eventbus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans out market-data envelopes read off three EventBus
// subscriptions (trade, bbo, depth) to every connected websocket
// client. It is the remote-consumer counterpart to the in-process
// eventbus.Bus: the gateway holds no privileged position in the core,
// it is just another subscriber.
type Hub struct {
	bus *eventbus.Bus

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub builds a Hub that will read from bus once Run is called.
func NewHub(bus *eventbus.Bus) *Hub {
	return &Hub{
		bus:     bus,
		clients: make(map[*client]struct{}),
	}
}

// Run drains the three EventBus subscriptions and fans each envelope
// out to every connected client until stop is closed or a subscription
// channel closes. Intended to run in its own supervised goroutine.
func (h *Hub) Run(stop <-chan struct{}) {
	trades := h.bus.Subscribe(eventbus.KindTrade)
	bbos := h.bus.Subscribe(eventbus.KindBBO)
	depths := h.bus.Subscribe(eventbus.KindDepth)
	defer h.bus.Unsubscribe(trades)
	defer h.bus.Unsubscribe(bbos)
	defer h.bus.Unsubscribe(depths)

	for {
		select {
		case <-stop:
			return
		case env, ok := <-trades.C():
			if !ok {
				return
			}
			h.broadcast(env)
		case env, ok := <-bbos.C():
			if !ok {
				return
			}
			h.broadcast(env)
		case env, ok := <-depths.C():
			if !ok {
				return
			}
			h.broadcast(env)
		}
	}
}

func (h *Hub) broadcast(env eventbus.Envelope) {
	data, err := json.Marshal(toStreamEnvelope(env))
	if err != nil {
		log.Error().Err(err).Msg("gateway: failed to marshal stream envelope")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Slow client: drop this (newest) message for it rather
			// than block the fan-out to its peers. Unlike eventbus.Bus,
			// which drops the oldest queued event, the client keeps
			// what is already queued.
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// HandleStream upgrades the request to a websocket and registers a new
// client on the Hub for live trade/BBO/depth push.
func (h *Hub) HandleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("gateway: websocket upgrade failed")
		return
	}

	cl := &client{hub: h, conn: conn, send: make(chan []byte, 256)}
	h.register(cl)

	go cl.writePump()
	go cl.readPump()
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// readPump exists only to observe the connection's liveness (the
// stream is one-way: market data out, nothing in); any client message
// or read error tears the connection down.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
