package docstore

import (
	"context"
	"log/slog"
	"sync"
)

// Memory is an in-process Store.  Transactions and single-document writes
// are serialized by one lock, which gives the same isolation as row locks
// held for the duration of a transaction.
type Memory struct {
	tracker

	writeMu sync.Mutex   // serializes transactions and writes
	mu      sync.RWMutex // guards data
	data    map[string]map[string]Fields
	feed    Feed
}

// NewMemory returns an empty store publishing changes on feed.  A nil feed
// gets a private LocalFeed.
func NewMemory(feed Feed) *Memory {
	if feed == nil {
		feed = NewLocalFeed()
	}
	return &Memory{data: make(map[string]map[string]Fields), feed: feed}
}

// Get returns a copy of a document.
func (m *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.data[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Fields: f.Clone()}, nil
}

// Query returns copies of the documents matching q.
func (m *Memory) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	docs := make([]Document, 0, len(m.data[q.Collection]))
	for id, f := range m.data[q.Collection] {
		d := Document{ID: id, Fields: f}
		if q.matches(d) {
			docs = append(docs, Document{ID: id, Fields: f.Clone()})
		}
	}
	m.mu.RUnlock()
	return q.arrange(docs), nil
}

// Set creates or replaces a document.
func (m *Memory) Set(ctx context.Context, collection, id string, fields Fields) error {
	return m.RunTransaction(ctx, func(_ context.Context, tx Tx) error {
		return tx.Set(collection, id, fields)
	})
}

// Update merges fields into an existing document.
func (m *Memory) Update(ctx context.Context, collection, id string, fields Fields) error {
	return m.RunTransaction(ctx, func(_ context.Context, tx Tx) error {
		return tx.Update(collection, id, fields)
	})
}

// RunTransaction runs fn while holding the store's write lock.
func (m *Memory) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.writeMu.Lock()
	tx := &memoryTx{store: m}
	if err := fn(ctx, tx); err != nil {
		m.writeMu.Unlock()
		return err
	}
	if err := ctx.Err(); err != nil {
		m.writeMu.Unlock()
		return err
	}

	m.mu.Lock()
	for _, w := range tx.writes {
		docs, ok := m.data[w.collection]
		if !ok {
			docs = make(map[string]Fields)
			m.data[w.collection] = docs
		}
		if w.kind == writeUpdate {
			docs[w.id] = merge(docs[w.id], w.fields)
		} else {
			docs[w.id] = w.fields
		}
	}
	m.mu.Unlock()
	m.writeMu.Unlock()

	for _, c := range touched(tx.writes) {
		if err := m.feed.Publish(ctx, c); err != nil {
			slog.Warn("change notification failed", "collection", c, "error", err)
		}
	}
	return nil
}

// Subscribe starts a live query over the store.
func (m *Memory) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	return m.subscribe(ctx, q, m.feed, func(ctx context.Context) ([]Document, error) {
		return m.Query(ctx, q)
	})
}

type memoryTx struct {
	store  *Memory
	writes []pendingWrite
}

func (tx *memoryTx) Get(collection, id string) (Document, error) {
	if len(tx.writes) > 0 {
		return Document{}, ErrReadAfterWrite
	}
	return tx.store.Get(context.Background(), collection, id)
}

func (tx *memoryTx) Set(collection, id string, fields Fields) error {
	f, err := normalize(fields)
	if err != nil {
		return err
	}
	tx.writes = append(tx.writes, pendingWrite{kind: writeSet, collection: collection, id: id, fields: f})
	return nil
}

func (tx *memoryTx) Create(collection, id string, fields Fields) error {
	if tx.exists(collection, id) {
		return ErrExists
	}
	f, err := normalize(fields)
	if err != nil {
		return err
	}
	tx.writes = append(tx.writes, pendingWrite{kind: writeCreate, collection: collection, id: id, fields: f})
	return nil
}

func (tx *memoryTx) Update(collection, id string, fields Fields) error {
	if !tx.exists(collection, id) {
		return ErrNotFound
	}
	f, err := normalize(fields)
	if err != nil {
		return err
	}
	tx.writes = append(tx.writes, pendingWrite{kind: writeUpdate, collection: collection, id: id, fields: f})
	return nil
}

// exists reports whether the document exists in the store or was created
// earlier in this transaction.
func (tx *memoryTx) exists(collection, id string) bool {
	for _, w := range tx.writes {
		if w.kind != writeUpdate && w.collection == collection && w.id == id {
			return true
		}
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	_, ok := tx.store.data[collection][id]
	return ok
}
