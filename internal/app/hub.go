// Package app holds transport-independent runtime pieces shared by the
// dispatch engine and its adapters.
package app

import (
	"sync"
	"time"
)

type NotificationEvent struct {
	Seq       int64     `json:"seq"`
	Method    string    `json:"method"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// NotificationHub routes outbound notifications to the stream of a single
// party identity. Delivery is best-effort: a party with no open stream, or
// one whose stream buffer is full, simply misses the event. Nothing is
// retried and a miss never fails the operation that published it.
type NotificationHub struct {
	mu      sync.Mutex
	nextSeq int64
	subs    map[string]chan NotificationEvent
}

func NewNotificationHub() *NotificationHub {
	return &NotificationHub{subs: make(map[string]chan NotificationEvent)}
}

// Publish sends one event to the identity's stream, if it has one.
func (h *NotificationHub) Publish(identity, method string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextSeq++
	event := NotificationEvent{
		Seq:       h.nextSeq,
		Method:    method,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	ch, ok := h.subs[identity]
	if !ok {
		return
	}
	select {
	case ch <- event:
	default:
		close(ch)
		delete(h.subs, identity)
	}
}

// Subscribe binds the identity to a fresh stream, replacing any previous
// one, and returns the channel plus a cancel func. Cancel is idempotent.
func (h *NotificationHub) Subscribe(identity string) (<-chan NotificationEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.subs[identity]; ok {
		close(old)
	}
	ch := make(chan NotificationEvent, 64)
	h.subs[identity] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if current, ok := h.subs[identity]; ok && current == ch {
			close(current)
			delete(h.subs, identity)
		}
	}
	return ch, cancel
}

// Subscribers reports how many identities currently hold an open stream.
func (h *NotificationHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
