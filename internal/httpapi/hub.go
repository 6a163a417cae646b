package httpapi

import (
	"log"
	"sync"

	"github.com/antoniostano/fable/internal/observability"
	"github.com/antoniostano/fable/internal/protocol"
)

const clientSendBuffer = 64

// Hub is the single game channel: every outbound event fans out to all
// connected clients. It implements engine.Notifier.
type Hub struct {
	mu      sync.Mutex
	clients map[*hubClient]struct{}
	metrics *observability.Metrics
}

type hubClient struct {
	send chan any
}

func NewHub(metrics *observability.Metrics) *Hub {
	return &Hub{
		clients: make(map[*hubClient]struct{}),
		metrics: metrics,
	}
}

func (h *Hub) register() *hubClient {
	c := &hubClient{send: make(chan any, clientSendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.ConnectedClients.Set(float64(n))
	return c
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.ConnectedClients.Set(float64(n))
}

// send queues msg for one client, if still registered. Sends are
// serialized with unregister/drop so a closed queue is never written.
func (h *Hub) send(c *hubClient, msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// Broadcast queues msg for every client. A client whose send queue is
// full is dropped rather than allowed to stall the game loop.
func (h *Hub) Broadcast(msgType protocol.MessageType, msg any) {
	h.metrics.Broadcasts.WithLabelValues(string(msgType)).Inc()

	h.mu.Lock()
	var stalled []*hubClient
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			stalled = append(stalled, c)
		}
	}
	for _, c := range stalled {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if len(stalled) > 0 {
		log.Printf("dropped %d stalled game channel client(s)", len(stalled))
		h.metrics.ConnectedClients.Set(float64(n))
	}
}

// engine.Notifier implementation.

func (h *Hub) PlayerJoined(actor string) {
	h.Broadcast(protocol.TypePlayerJoined, protocol.PlayerJoined{
		Type:  protocol.TypePlayerJoined,
		Actor: actor,
	})
}

func (h *Hub) Narration(eventID, actor, action, text string) {
	h.Broadcast(protocol.TypeNarration, protocol.Narration{
		Type:    protocol.TypeNarration,
		EventID: eventID,
		Actor:   actor,
		Action:  action,
		Text:    text,
	})
}

func (h *Hub) TurnAdvanced(next string, round int) {
	h.Broadcast(protocol.TypeTurnAdvanced, protocol.TurnAdvanced{
		Type:  protocol.TypeTurnAdvanced,
		Next:  next,
		Round: round,
	})
}

func (h *Hub) TurnSkipped(skipped, next string, round int) {
	h.Broadcast(protocol.TypeTurnSkipped, protocol.TurnSkipped{
		Type:    protocol.TypeTurnSkipped,
		Skipped: skipped,
		Next:    next,
		Round:   round,
	})
}

func (h *Hub) SceneChanged(scene string) {
	h.Broadcast(protocol.TypeSceneChanged, protocol.SceneChanged{
		Type:  protocol.TypeSceneChanged,
		Scene: scene,
	})
}
