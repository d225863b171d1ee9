package status

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/netguard/logger"
)

const clientBuffer = 64

// keepAliveInterval is shorter than common proxy idle timeouts.
var keepAliveInterval = 30 * time.Second

// streamClient is one connected SSE subscriber.
type streamClient struct {
	id     string
	events chan []byte
}

// Hub fans breaker snapshots out to connected SSE clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*streamClient
	closed  bool
	log     *logger.Logger
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*streamClient),
		log:     logger.WithComponent("status.hub"),
	}
}

// add registers a new client with a fresh ID.
func (h *Hub) add() *streamClient {
	c := &streamClient{
		id:     uuid.NewString(),
		events: make(chan []byte, clientBuffer),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(c.events)
		return c
	}
	h.clients[c.id] = c
	h.log.Debug("stream client connected", logger.Fields(
		"client_id", c.id, "total", len(h.clients),
	))
	return c
}

// remove unregisters a client and closes its channel.
func (h *Hub) remove(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.events)
	h.log.Debug("stream client disconnected", logger.Fields(
		"client_id", c.id, "total", len(h.clients),
	))
}

// Broadcast delivers data to every connected client. Slow clients drop the
// message instead of blocking the breaker's notification path.
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.events <- data:
		default:
			h.log.Warn("stream client too slow, dropping event", logger.Fields(
				"client_id", c.id,
			))
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client. Further adds are rejected.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, c := range h.clients {
		close(c.events)
		delete(h.clients, id)
	}
}

// serveStream streams hub events to one HTTP client until it disconnects.
// initial is written first so subscribers start from the current state.
func (h *Hub) serveStream(w http.ResponseWriter, r *http.Request, initial []byte) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Long-lived connection, the server's write timeout must not apply.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.log.Warn("could not clear write deadline", logger.Fields(
			logger.FieldError, err.Error(),
		))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := h.add()
	defer h.remove(client)

	_, _ = fmt.Fprintf(w, "event: status\ndata: %s\n\n", initial)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-client.events:
			if !ok {
				return
			}
			_, _ = fmt.Fprintf(w, "event: status\ndata: %s\n\n", event)
			flusher.Flush()
		case <-keepAlive.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}
