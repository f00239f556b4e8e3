package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	fylogger "github.com/FyersDev/trading-logger-go"
	"github.com/gorilla/websocket"

	"ingest-api/internal/models"
)

const (
	eventBufferSize = 64
	writeTimeout    = 5 * time.Second
)

// EventHub fans job events out to every connected websocket client
type EventHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mu         sync.RWMutex
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, eventBufferSize),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is done. Register and
// Unregister return immediately once it has stopped.
func (h *EventHub) Run(ctx context.Context) {
	go func() {
		defer close(h.done)
		for {
			select {
			case <-ctx.Done():
				h.mu.Lock()
				for client := range h.clients {
					client.Close()
					delete(h.clients, client)
				}
				h.mu.Unlock()
				return
			case client := <-h.register:
				h.mu.Lock()
				h.clients[client] = true
				h.mu.Unlock()
			case client := <-h.unregister:
				h.mu.Lock()
				if _, ok := h.clients[client]; ok {
					delete(h.clients, client)
					client.Close()
				}
				h.mu.Unlock()
			case message := <-h.broadcast:
				h.mu.Lock()
				for client := range h.clients {
					_ = client.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
						fylogger.ErrorLog(ctx, "dropping websocket client", err, nil)
						client.Close()
						delete(h.clients, client)
					}
				}
				h.mu.Unlock()
			}
		}
	}()
}

func (h *EventHub) Register(conn *websocket.Conn) {
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
	}
}

func (h *EventHub) Unregister(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
		conn.Close()
	}
}

// ClientCount returns the number of connected clients
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastJobSubmitted announces a new job
func (h *EventHub) BroadcastJobSubmitted(handle models.JobHandle) {
	h.publish(map[string]interface{}{
		"type":        "job_submitted",
		"job_id":      handle.JobID,
		"workflow_id": handle.WorkflowID,
		"status":      "submitted",
		"timestamp":   handle.SubmittedAt,
	})
}

// BroadcastJobResult announces a terminal job result
func (h *EventHub) BroadcastJobResult(result models.JobResult) {
	update := map[string]interface{}{
		"type":            "job_update",
		"job_id":          result.JobID,
		"status":          result.Status,
		"elapsed_seconds": result.ElapsedSeconds,
		"timestamp":       time.Now().UTC(),
	}
	if result.Error != "" {
		update["error"] = result.Error
	}
	h.publish(update)
}

// publish never blocks; events are dropped when the buffer is full
func (h *EventHub) publish(event map[string]interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}
