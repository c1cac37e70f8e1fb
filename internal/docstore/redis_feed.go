package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisFeed is a Feed backed by Redis pub/sub.  Each collection maps to one
// channel named prefix + ":" + collection, so every process connected to
// the same Redis sees writes made by the others.
type RedisFeed struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisFeed returns a feed publishing on channels under prefix.
func NewRedisFeed(rdb *redis.Client, prefix string) *RedisFeed {
	if prefix == "" {
		prefix = "docstore"
	}
	return &RedisFeed{rdb: rdb, prefix: prefix}
}

func (f *RedisFeed) channel(collection string) string {
	return f.prefix + ":" + collection
}

// Publish announces a change of collection.
func (f *RedisFeed) Publish(ctx context.Context, collection string) error {
	if err := f.rdb.Publish(ctx, f.channel(collection), "changed").Err(); err != nil {
		return fmt.Errorf("docstore: publish %s: %w", collection, err)
	}
	return nil
}

// Listen subscribes to the channel of collection.  The subscription is
// confirmed before Listen returns so no change published afterwards is
// missed.
func (f *RedisFeed) Listen(ctx context.Context, collection string) (<-chan struct{}, func(), error) {
	ps := f.rdb.Subscribe(ctx, f.channel(collection))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("docstore: subscribe %s: %w", collection, err)
	}

	out := make(chan struct{}, 1)
	msgs := ps.Channel()
	go func() {
		for range msgs {
			notify(out)
		}
	}()

	var once sync.Once
	stop := func() { once.Do(func() { _ = ps.Close() }) }
	return out, stop, nil
}
