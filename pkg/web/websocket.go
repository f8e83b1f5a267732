package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dbehnke/pccc/pkg/bench"
	"github.com/dbehnke/pccc/pkg/logger"
)

// Event types pushed to dashboard clients
const (
	EventRunStarted   = "run_started"
	EventRunProgress  = "run_progress"
	EventRunCompleted = "run_completed"
)

// progressSteps bounds the number of progress events per run
const progressSteps = 20

const writeWait = 10 * time.Second

// Event represents a WebSocket event to be broadcast to clients
type Event struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Marshal converts an event to JSON bytes
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Client represents a WebSocket client connection
type Client struct {
	ID       string
	conn     *websocket.Conn
	messages chan []byte
}

// WebSocketHub manages WebSocket client connections and broadcasts. It implements
// bench.Observer so runs can stream progress to the dashboard.
type WebSocketHub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *logger.Logger
	mu         sync.RWMutex
}

var _ bench.Observer = (*WebSocketHub)(nil)

// NewWebSocketHub creates a new WebSocket hub
func NewWebSocketHub(log *logger.Logger) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     log,
	}
}

// Run starts the WebSocket hub event loop
func (h *WebSocketHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("WebSocket client registered",
				logger.String("client_id", client.ID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.messages)
			}
			h.mu.Unlock()
			h.logger.Debug("WebSocket client unregistered",
				logger.String("client_id", client.ID))

		case event := <-h.broadcast:
			data, err := event.Marshal()
			if err != nil {
				h.logger.Error("Failed to marshal event",
					logger.Error(err))
				continue
			}

			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.messages <- data:
				default:
					h.logger.Warn("Client message buffer full, skipping",
						logger.String("client_id", client.ID))
				}
			}
			h.mu.RUnlock()

		case <-ctx.Done():
			h.logger.Info("WebSocket hub shutting down")
			h.mu.Lock()
			for client := range h.clients {
				close(client.messages)
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// Broadcast sends an event to all connected clients
func (h *WebSocketHub) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("Broadcast channel full, dropping event",
			logger.String("event_type", event.Type))
	}
}

// Handler returns an HTTP handler for WebSocket connections
func (h *WebSocketHub) Handler() http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the error response
			return
		}
		client := &Client{ID: uuid.NewString(), conn: conn, messages: make(chan []byte, 256)}
		select {
		case h.register <- client:
		case <-h.done:
			_ = conn.Close()
			return
		}

		// Reader goroutine: drain read to detect close
		go func() {
			defer func() {
				select {
				case h.unregister <- client:
				case <-h.done:
				}
				_ = client.conn.Close()
			}()
			client.conn.SetReadLimit(1024)
			for {
				if _, _, err := client.conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		// Writer loop
		go func() {
			for msg := range client.messages {
				_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.logger.Debug("WebSocket write failed",
						logger.String("client_id", client.ID),
						logger.Error(err))
				}
			}
		}()
	})
}

// GetClientCount returns the number of connected clients
func (h *WebSocketHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RunStarted broadcasts the start of a benchmark run
func (h *WebSocketHub) RunStarted(runID string, s bench.Scenario) {
	data := map[string]interface{}{
		"run_id":      runID,
		"block_size":  s.BlockSize,
		"polynomials": s.Polynomials.String(),
		"algorithm":   s.Algo.Kind.String(),
		"iterations":  s.Algo.Iterations,
		"precision":   string(s.Precision),
		"trials":      s.Trials,
	}
	if s.EbN0dB != nil {
		data["ebn0_db"] = *s.EbN0dB
	}
	h.Broadcast(Event{Type: EventRunStarted, Data: data})
}

// TrialCompleted broadcasts progress, at most progressSteps times per run
func (h *WebSocketHub) TrialCompleted(t bench.Trial) {
	step := max(1, t.Trials/progressSteps)
	if t.Completed != t.Trials && t.Completed%step != 0 {
		return
	}
	h.Broadcast(Event{
		Type: EventRunProgress,
		Data: map[string]interface{}{
			"run_id":    t.RunID,
			"completed": t.Completed,
			"trials":    t.Trials,
		},
	})
}

// RunCompleted broadcasts the outcome of a benchmark run
func (h *WebSocketHub) RunCompleted(res *bench.Result, err error) {
	if res == nil {
		return
	}
	data := map[string]interface{}{
		"run_id":         res.RunID,
		"trials":         res.Trials,
		"bit_errors":     res.BitErrors,
		"block_errors":   res.BlockErrors,
		"ber":            res.BER,
		"bler":           res.BLER,
		"mean_decode_us": float64(res.MeanDecode) / float64(time.Microsecond),
	}
	if err != nil {
		data["error"] = err.Error()
	}
	h.Broadcast(Event{Type: EventRunCompleted, Data: data})
}
