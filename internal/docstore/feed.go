package docstore

import (
	"context"
	"sync"
)

// Feed carries "collection changed" notifications between writers and live
// queries.  Notifications carry no payload: subscribers reload the whole
// result set, so several notifications may be coalesced into one.
type Feed interface {
	Publish(ctx context.Context, collection string) error
	// Listen returns a channel that receives a value after each change of
	// collection.  The returned stop func must be called exactly once.
	Listen(ctx context.Context, collection string) (<-chan struct{}, func(), error)
}

// LocalFeed is an in-process Feed.
type LocalFeed struct {
	mu        sync.Mutex
	listeners map[string]map[chan struct{}]struct{}
}

// NewLocalFeed returns an empty LocalFeed.
func NewLocalFeed() *LocalFeed {
	return &LocalFeed{listeners: make(map[string]map[chan struct{}]struct{})}
}

// Publish notifies every listener of collection.
func (f *LocalFeed) Publish(_ context.Context, collection string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.listeners[collection] {
		notify(ch)
	}
	return nil
}

// Listen registers a listener for collection.
func (f *LocalFeed) Listen(_ context.Context, collection string) (<-chan struct{}, func(), error) {
	ch := make(chan struct{}, 1)
	f.mu.Lock()
	set, ok := f.listeners[collection]
	if !ok {
		set = make(map[chan struct{}]struct{})
		f.listeners[collection] = set
	}
	set[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.listeners[collection], ch)
			if len(f.listeners[collection]) == 0 {
				delete(f.listeners, collection)
			}
			f.mu.Unlock()
		})
	}
	return ch, stop, nil
}

// notify performs a coalescing send.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
