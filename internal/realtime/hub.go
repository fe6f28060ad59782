package realtime

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/feedstream/internal/domain/entity"
)

// Message is a single feed event delivered to every connected listener.
// Action is one of "create", "update", "delete". For deletes only PostID
// is set; creates additionally carry a creator summary.
type Message struct {
	Action  string                 `json:"action"`
	Post    *entity.Post           `json:"post,omitempty"`
	PostID  string                 `json:"post_id,omitempty"`
	Creator *entity.CreatorSummary `json:"creator,omitempty"`
}

// Broadcaster is the publishing side of the hub, used by the application
// layer so tests can swap in a recorder.
type Broadcaster interface {
	Publish(msg Message)
}

const subscriberBuffer = 16

// Subscriber is one connected listener. Receive events from C until it
// is unsubscribed, which closes the channel.
type Subscriber struct {
	ch chan Message
}

func (s *Subscriber) C() <-chan Message { return s.ch }

// Hub fans out feed events to all currently-subscribed listeners.
// Delivery is best-effort: there is no replay for listeners that connect
// later, and a listener whose buffer is full misses the event rather
// than blocking the publisher.
//
// A Hub is constructed once at startup and passed to whoever publishes
// or subscribes; it has no package-level instance.
type Hub struct {
	mu      sync.RWMutex
	subs    map[*Subscriber]struct{}
	logger  *logrus.Logger
	dropped func() // optional drop counter hook
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		subs:   make(map[*Subscriber]struct{}),
		logger: logger,
	}
}

// OnDrop registers a callback invoked each time a message is dropped for
// a slow subscriber. Must be set before the hub is shared.
func (h *Hub) OnDrop(fn func()) { h.dropped = fn }

func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{ch: make(chan Message, subscriberBuffer)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
	h.mu.Unlock()
}

// Publish delivers msg to every current subscriber without blocking.
func (h *Hub) Publish(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		select {
		case s.ch <- msg:
		default:
			if h.dropped != nil {
				h.dropped()
			}
			if h.logger != nil {
				h.logger.WithField("action", msg.Action).Warn("dropped feed event for slow subscriber")
			}
		}
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

var _ Broadcaster = (*Hub)(nil)
