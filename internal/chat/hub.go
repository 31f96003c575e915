// Package chat fans out team chat events to WebSocket subscribers.
// Rooms are keyed by organization and channel; each room numbers its
// frames with a monotonically increasing sequence.
package chat

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Frame types.
const (
	FrameMessageCreated  = "message.created"
	FrameMessageEdited   = "message.edited"
	FrameMessageDeleted  = "message.deleted"
	FrameReactionChanged = "reaction.changed"
	FrameReady           = "ready"
)

var (
	connectedPeers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prdesk_chat_connected_peers",
		Help: "Open chat WebSocket connections.",
	})
	framesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prdesk_chat_frames_sent_total",
		Help: "Frames written to chat subscribers by type.",
	}, []string{"type"})
)

type Frame struct {
	Type    string    `json:"type"`
	Seq     int64     `json:"seq"`
	Channel string    `json:"channel"`
	SentAt  time.Time `json:"sent_at"`
	Payload any       `json:"payload,omitempty"`
}

// Subscriber receives frames for one room. The hub calls Send while holding
// the room lock so frames arrive in sequence order; Send must not block.
type Subscriber interface {
	Send(f Frame) error
}

type roomKey struct {
	org     string
	channel string
}

type room struct {
	mu          sync.Mutex
	seq         int64
	subscribers map[Subscriber]struct{}
}

// Hub is the set of live rooms. Lock order is Hub.mu before room.mu.
type Hub struct {
	mu    sync.Mutex
	rooms map[roomKey]*room
	log   *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{rooms: make(map[roomKey]*room), log: log}
}

// Join registers s and sends it a ready frame carrying the room's current
// sequence. No broadcast can reach s before the ready frame.
func (h *Hub) Join(org, channel string, s Subscriber) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := roomKey{org, channel}
	r, ok := h.rooms[key]
	if !ok {
		r = &room{subscribers: make(map[Subscriber]struct{})}
		h.rooms[key] = r
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	ready := Frame{Type: FrameReady, Seq: r.seq, Channel: channel, SentAt: time.Now().UTC()}
	if err := s.Send(ready); err != nil {
		if len(r.subscribers) == 0 {
			delete(h.rooms, key)
		}
		return err
	}
	r.subscribers[s] = struct{}{}
	connectedPeers.Inc()
	return nil
}

// Leave unregisters s and drops the room once it is empty.
func (h *Hub) Leave(org, channel string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := roomKey{org, channel}
	r, ok := h.rooms[key]
	if !ok {
		return
	}
	r.mu.Lock()
	if _, present := r.subscribers[s]; present {
		delete(r.subscribers, s)
		connectedPeers.Dec()
	}
	empty := len(r.subscribers) == 0
	r.mu.Unlock()
	if empty {
		delete(h.rooms, key)
	}
}

// Broadcast sends a frame to every subscriber of the room. Subscribers that
// fail to receive are dropped.
func (h *Hub) Broadcast(org, channel, frameType string, payload any) {
	key := roomKey{org, channel}
	h.mu.Lock()
	r, ok := h.rooms[key]
	if !ok {
		h.mu.Unlock()
		return
	}
	r.mu.Lock()
	h.mu.Unlock()

	r.seq++
	frame := Frame{Type: frameType, Seq: r.seq, Channel: channel, SentAt: time.Now().UTC(), Payload: payload}
	for s := range r.subscribers {
		if err := s.Send(frame); err != nil {
			h.log.Debug("dropping chat subscriber", zap.String("channel", channel), zap.Error(err))
			delete(r.subscribers, s)
			connectedPeers.Dec()
			continue
		}
		framesSent.WithLabelValues(frameType).Inc()
	}
	empty := len(r.subscribers) == 0
	r.mu.Unlock()

	if empty {
		h.dropIfEmpty(key, r)
	}
}

func (h *Hub) dropIfEmpty(key roomKey, r *room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.rooms[key] == r && len(r.subscribers) == 0 {
		delete(h.rooms, key)
	}
}

// Subscribers returns the number of subscribers in a room.
func (h *Hub) Subscribers(org, channel string) int {
	h.mu.Lock()
	r, ok := h.rooms[roomKey{org, channel}]
	h.mu.Unlock()
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscribers)
}
