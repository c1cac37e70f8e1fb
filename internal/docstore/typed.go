package docstore

import "sync"

// View is a live query whose snapshots are decoded into T.  Failed reloads
// are dropped (they are already logged by the underlying subscription), so
// consumers only ever see complete results.
type View[T any] struct {
	sub  *Subscription
	out  chan T
	done chan struct{}
	once sync.Once
}

// NewView decodes every snapshot of sub with decode.  The view takes
// ownership of sub.
func NewView[T any](sub *Subscription, decode func([]Document) T) *View[T] {
	v := &View[T]{sub: sub, out: make(chan T, 1), done: make(chan struct{})}
	go func() {
		defer close(v.done)
		defer close(v.out)
		for snap := range sub.Snapshots() {
			if snap.Err != nil {
				continue
			}
			select {
			case v.out <- decode(snap.Docs):
			case <-sub.Done():
				return
			}
		}
	}()
	return v
}

// Updates returns the decoded snapshots.  The channel is closed after the
// view is released.
func (v *View[T]) Updates() <-chan T { return v.out }

// Done is closed once the view has been released.
func (v *View[T]) Done() <-chan struct{} { return v.done }

// Close releases the underlying subscription.  It is idempotent.
func (v *View[T]) Close() {
	v.once.Do(v.sub.Close)
	<-v.done
}
