package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"lingua_lms_backend/internal/feed"
	"lingua_lms_backend/pkg/logger"
	"lingua_lms_backend/pkg/monitoring"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage frames hub traffic in both directions. Clients send SUBSCRIBE
// and UNSUBSCRIBE control frames; the hub pushes FEED_EVENT frames.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type subscribeFrame struct {
	NotebookID string `json:"notebookId"`
}

// FeedClient is one websocket connection. It always receives events for
// the user's own notebook list; nested rows (sources, notes, chat) arrive
// only for notebooks the client subscribed to.
type FeedClient struct {
	Hub     *FeedHub
	Conn    *websocket.Conn
	Send    chan []byte
	UserID  uint
	Limiter *rate.Limiter

	mu        sync.RWMutex
	notebooks map[string]bool
}

func (c *FeedClient) subscribed(notebookID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.notebooks[notebookID]
}

func (c *FeedClient) readPump() {
	defer func() {
		// After Stop the hub no longer receives; don't block a dying
		// connection's goroutine on the unregister send.
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.UserID))
			}
			break
		}

		if !c.Limiter.Allow() {
			continue
		}

		var wsMsg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(message, &wsMsg); err != nil {
			continue
		}

		var frame subscribeFrame
		if err := json.Unmarshal(wsMsg.Data, &frame); err != nil || frame.NotebookID == "" {
			continue
		}

		switch wsMsg.Type {
		case "SUBSCRIBE":
			c.mu.Lock()
			c.notebooks[frame.NotebookID] = true
			c.mu.Unlock()
		case "UNSUBSCRIBE":
			c.mu.Lock()
			delete(c.notebooks, frame.NotebookID)
			c.mu.Unlock()
		}
	}
}

func (c *FeedClient) writePump() {
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

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if n := len(c.Send); n > 0 {
				for i := 0; i < n; i++ {
					w.Write(<-c.Send)
				}
			}

			if err := w.Close(); err != nil {
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

// FeedHub fans change-feed events out to websocket clients. The bus
// already bridges instances, so the hub only tracks local connections.
type FeedHub struct {
	mu         sync.RWMutex
	clients    map[*FeedClient]bool
	register   chan *FeedClient
	unregister chan *FeedClient
	done       chan struct{}

	Bus         feed.Bus
	unsubscribe func()
}

func NewFeedHub(bus feed.Bus) *FeedHub {
	return &FeedHub{
		clients:    make(map[*FeedClient]bool),
		register:   make(chan *FeedClient),
		unregister: make(chan *FeedClient),
		done:       make(chan struct{}),
		Bus:        bus,
	}
}

func (h *FeedHub) Run() {
	unsub, err := h.Bus.Subscribe(context.Background(), h.dispatch)
	if err != nil {
		logger.Log.Error("feed hub subscribe failed", zap.Error(err))
	} else {
		h.unsubscribe = unsub
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			monitoring.FeedClientsGauge.Inc()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				monitoring.FeedClientsGauge.Dec()
			}
			h.mu.Unlock()

		case <-h.done:
			return
		}
	}
}

// dispatch routes one feed event to every connection entitled to see it.
func (h *FeedHub) dispatch(ev feed.Event) {
	payload, err := json.Marshal(WSMessage{Type: "FEED_EVENT", Data: ev})
	if err != nil {
		return
	}
	monitoring.FeedEventCounter.WithLabelValues(string(ev.Entity), string(ev.Action)).Inc()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		var want bool
		if ev.Entity == feed.EntityNotebook {
			want = ev.OwnerID == ownerKey(client.UserID)
		} else {
			want = client.subscribed(ev.OwnerID)
		}
		if !want {
			continue
		}
		select {
		case client.Send <- payload:
		default:
		}
	}
}

// Stop closes every connection and detaches from the bus.
func (h *FeedHub) Stop() {
	logger.Log.Info("FeedHub stopping: closing connections...")
	if h.unsubscribe != nil {
		h.unsubscribe()
		h.unsubscribe = nil
	}

	h.mu.Lock()
	count := len(h.clients)
	for client := range h.clients {
		close(client.Send)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	close(h.done)
	monitoring.FeedClientsGauge.Set(0)
	logger.Log.Info("FeedHub stopped", zap.Int("closedConnections", count))
}

// ServeWs upgrades an authenticated request into a feed connection.
func ServeWs(hub *FeedHub, w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	client := &FeedClient{
		Hub:       hub,
		Conn:      conn,
		Send:      make(chan []byte, 256),
		UserID:    userID,
		Limiter:   rate.NewLimiter(rate.Limit(10), 20),
		notebooks: make(map[string]bool),
	}
	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}
