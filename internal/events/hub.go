package events

import (
	"context"
	"sync"
)

// Hub delivers events to in-process subscribers keyed by poll id. Slow
// subscribers lose events rather than block publishers.
type Hub struct {
	Buffer int

	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{Buffer: buffer, subs: map[string]map[chan Event]struct{}{}}
}

// Subscribe returns a channel of events for pollID and a cancel func that
// closes it.
func (h *Hub) Subscribe(pollID string) (<-chan Event, func()) {
	buffer := h.Buffer
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	h.mu.Lock()
	if h.subs == nil {
		h.subs = map[string]map[chan Event]struct{}{}
	}
	if h.subs[pollID] == nil {
		h.subs[pollID] = map[chan Event]struct{}{}
	}
	h.subs[pollID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[pollID], ch)
			if len(h.subs[pollID]) == 0 {
				delete(h.subs, pollID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(ctx context.Context, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[ev.PollID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribers(pollID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[pollID])
}
