package auth

import (
	"context"
	"sync"
)

// StateChange reports that a user signed in or out.
type StateChange struct {
	UserID   string `json:"userId"`
	SignedIn bool   `json:"signedIn"`
}

// hub fans state changes out to watchers.  Slow watchers lose events
// rather than block sign-ins.
type hub struct {
	mu       sync.Mutex
	watchers map[chan StateChange]struct{}
}

func newHub() *hub { return &hub{watchers: make(map[chan StateChange]struct{})} }

func (h *hub) watch(ctx context.Context) (<-chan StateChange, func()) {
	ch := make(chan StateChange, 16)
	h.mu.Lock()
	h.watchers[ch] = struct{}{}
	h.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			h.mu.Lock()
			delete(h.watchers, ch)
			close(ch)
			h.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ch, stop
}

func (h *hub) broadcast(ev StateChange) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// count returns the number of open watchers.
func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.watchers)
}
