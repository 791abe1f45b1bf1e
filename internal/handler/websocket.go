package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tanhuynh200412/catalog-admin/internal/catalog"
	"github.com/tanhuynh200412/catalog-admin/internal/model"
)

// WebSocket configuration constants.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// pushedCollections are sent to every client on connect.
var pushedCollections = []string{catalog.CollectionCategories, catalog.CollectionItems}

type wsClient struct {
	conn   *websocket.Conn
	send   chan model.WebSocketMessage
	cancel context.CancelFunc
}

// WebSocketHandler pushes live view snapshots to connected clients: the
// current state of every collection on connect, then every applied
// snapshot as it happens.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	catalog  Catalog
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closing bool
	pumps   sync.WaitGroup
}

// NewWebSocketHandler creates a WebSocketHandler subscribed to c's changes.
func NewWebSocketHandler(c Catalog, logger *zap.Logger) *WebSocketHandler {
	h := &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		catalog: c,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
	c.OnChange(h.broadcast)
	return h
}

// RegisterRoutes registers the WebSocket routes with the router.
func (h *WebSocketHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws", h.HandleWebSocket).Methods(http.MethodGet)
}

// HandleWebSocket upgrades the connection and starts its pumps.
//
//nolint:contextcheck // the connection outlives the upgrade request
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &wsClient{
		conn:   conn,
		send:   make(chan model.WebSocketMessage, sendBuffer),
		cancel: cancel,
	}

	// Registering and queueing the current states under one lock keeps
	// every later broadcast behind them.
	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		cancel()
		h.refuse(conn)
		return
	}
	h.clients[c] = struct{}{}
	h.pumps.Add(2)
	for _, name := range pushedCollections {
		if listing, err := h.catalog.Collection(name); err == nil {
			c.send <- snapshotMessage(listing.State())
		}
	}
	h.mu.Unlock()

	h.logger.Info("websocket client connected", zap.String("remote_addr", conn.RemoteAddr().String()))

	go h.writePump(ctx, c)
	go h.readPump(ctx, c)
}

// broadcast queues state for every client. A client whose queue is full
// is disconnected; it will get a fresh state on reconnect.
func (h *WebSocketHandler) broadcast(state catalog.ViewState) {
	msg := snapshotMessage(state)

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("websocket client too slow, disconnecting",
				zap.String("remote_addr", c.conn.RemoteAddr().String()),
			)
			c.cancel()
		}
	}
}

func snapshotMessage(state catalog.ViewState) model.WebSocketMessage {
	return model.NewSnapshotMessage(state.Collection, state.Records, state.Error)
}

// readPump keeps the read deadline fresh and answers client pings.
func (h *WebSocketHandler) readPump(ctx context.Context, c *wsClient) {
	defer func() {
		c.cancel()
		h.removeClient(c)
		h.pumps.Done()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		h.logger.Error("failed to set read deadline", zap.Error(err))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		var msg model.WebSocketMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != model.WSMessageTypePing {
			h.logger.Debug("ignoring client message", zap.ByteString("message", data))
			continue
		}
		select {
		case c.send <- model.WebSocketMessage{Type: model.WSMessageTypePong, Timestamp: time.Now().UTC()}:
		default:
		}
	}
}

// writePump is the only writer on the connection. It closes the
// connection when ctx is done.
func (h *WebSocketHandler) writePump(ctx context.Context, c *wsClient) {
	pingTicker := time.NewTicker(pingPeriod)

	defer func() {
		pingTicker.Stop()
		if err := c.conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
		h.pumps.Done()
	}()

	for {
		select {
		case <-ctx.Done():
			h.sendCloseMessage(c.conn)
			return
		case msg := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.cancel()
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				h.logger.Debug("failed to send message", zap.Error(err))
				c.cancel()
				return
			}
		case <-pingTicker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.cancel()
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.logger.Debug("failed to send ping", zap.Error(err))
				c.cancel()
				return
			}
		}
	}
}

func (h *WebSocketHandler) sendCloseMessage(conn *websocket.Conn) {
	h.writeClose(conn, websocket.CloseNormalClosure)
}

// refuse turns away a client that connected after shutdown began.
func (h *WebSocketHandler) refuse(conn *websocket.Conn) {
	h.writeClose(conn, websocket.CloseGoingAway)
	if err := conn.Close(); err != nil {
		h.logger.Debug("error closing connection", zap.Error(err))
	}
	h.logger.Debug("websocket client refused during shutdown", zap.String("remote_addr", conn.RemoteAddr().String()))
}

func (h *WebSocketHandler) writeClose(conn *websocket.Conn, code int) {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}
	closeMsg := websocket.FormatCloseMessage(code, "server shutting down")
	if err := conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
		h.logger.Debug("failed to send close message", zap.Error(err))
	}
}

func (h *WebSocketHandler) removeClient(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		h.logger.Info("websocket client disconnected", zap.String("remote_addr", c.conn.RemoteAddr().String()))
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHandler) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAllConnections sends a close frame to every client and waits for
// their pumps to exit. Clients connecting afterwards are refused.
func (h *WebSocketHandler) CloseAllConnections() {
	h.mu.Lock()
	h.closing = true
	for c := range h.clients {
		c.cancel()
	}
	h.mu.Unlock()

	h.pumps.Wait()
	h.logger.Info("all websocket connections closed")
}
