package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/collabpad/collabpad/pkg/logger"
	"github.com/collabpad/collabpad/pkg/metrics"
)

// Hub fans server events out to the connections subscribed to a document.
// Delivery is best-effort, at most once: a connection whose send buffer is
// full (typically mid-disconnect) has the frame dropped silently; the
// disconnect path cleans up presence separately.
type Hub struct {
	mu    sync.RWMutex
	docs  map[string]map[uuid.UUID]chan []byte
	conns map[uuid.UUID]chan []byte
}

func NewHub() *Hub {
	return &Hub{
		docs:  make(map[string]map[uuid.UUID]chan []byte),
		conns: make(map[uuid.UUID]chan []byte),
	}
}

// Attach subscribes a connection's send channel to a document.
func (h *Hub) Attach(docID string, connID uuid.UUID, send chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.docs[docID] == nil {
		h.docs[docID] = make(map[uuid.UUID]chan []byte)
	}
	h.docs[docID][connID] = send
	h.conns[connID] = send
}

// Detach unsubscribes the connection from the document (and drops the
// connection entry when it matches). Absent entries are ignored.
func (h *Hub) Detach(docID string, connID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.docs[docID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.docs, docID)
		}
	}
	delete(h.conns, connID)
}

// ToDocument delivers the message to every connection joined to the document,
// optionally skipping the originating connection (echo suppression for
// content updates). Pass uuid.Nil to exclude nobody.
func (h *Hub) ToDocument(docID string, msg *ServerMessage, exclude uuid.UUID) {
	data, err := msg.encode()
	if err != nil {
		logger.Errorf("encode %s event: %v", msg.Event, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID, send := range h.docs[docID] {
		if connID == exclude {
			continue
		}
		h.push(send, data, msg.Event)
	}
}

// ToConnection unicasts the message to a single connection.
func (h *Hub) ToConnection(connID uuid.UUID, msg *ServerMessage) {
	data, err := msg.encode()
	if err != nil {
		logger.Errorf("encode %s event: %v", msg.Event, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if send, ok := h.conns[connID]; ok {
		h.push(send, data, msg.Event)
	}
}

// push is a non-blocking send; a full buffer means the peer is not draining
// (likely mid-disconnect) and the frame is dropped.
func (h *Hub) push(send chan []byte, data []byte, event string) {
	select {
	case send <- data:
		metrics.BroadcastsSent.WithLabelValues(event).Inc()
	default:
		metrics.BroadcastsDropped.Inc()
	}
}

// DocumentConnections reports how many connections are joined to a document.
func (h *Hub) DocumentConnections(docID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.docs[docID])
}
