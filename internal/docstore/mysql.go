package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-sql-driver/mysql"
)

// MySQL stores documents in the `documents` table, one row per document
// with the fields in a JSON column:
//
//	documents(collection, id, data JSON, updated_at)  PRIMARY KEY (collection, id)
//
// Transactions read with SELECT ... FOR UPDATE, so two transactions that
// read the same document are serialized by the row lock.
type MySQL struct {
	tracker

	db   *sql.DB
	feed Feed
}

// NewMySQL returns a store over db publishing changes on feed.  A nil feed
// gets a private LocalFeed, which only reaches subscribers in this process.
func NewMySQL(db *sql.DB, feed Feed) *MySQL {
	if feed == nil {
		feed = NewLocalFeed()
	}
	return &MySQL{db: db, feed: feed}
}

const (
	selectDocSQL    = `SELECT data FROM documents WHERE collection = ? AND id = ?`
	selectForUpdSQL = `SELECT data FROM documents WHERE collection = ? AND id = ? FOR UPDATE`
	insertDocSQL    = `INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)`
	upsertDocSQL    = insertDocSQL + ` ON DUPLICATE KEY UPDATE data = VALUES(data)`
	updateDocSQL    = `UPDATE documents SET data = ? WHERE collection = ? AND id = ?`
	listDocsSQL     = `SELECT id, data FROM documents WHERE collection = ?`
	filterClause    = ` AND JSON_UNQUOTE(JSON_EXTRACT(data, ?)) = ?`
	userFilterSQL   = ` AND user_id = ?`
)

// erDupEntry is MySQL's duplicate key error number.
const erDupEntry = 1062

// indexedFilters lists fields backed by a generated, indexed column.
var indexedFilters = map[string]string{
	"userId": userFilterSQL,
}

// queryer is the subset of *sql.DB and *sql.Tx used for reads.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getDoc(ctx context.Context, q queryer, stmt, collection, id string) (Document, error) {
	var raw []byte
	err := q.QueryRowContext(ctx, stmt, collection, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("docstore: get %s/%s: %w", collection, id, err)
	}
	f, err := decodeFields(raw)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Fields: f}, nil
}

// Get reads one document.
func (s *MySQL) Get(ctx context.Context, collection, id string) (Document, error) {
	return getDoc(ctx, s.db, selectDocSQL, collection, id)
}

// Query filters in SQL and orders in Go.  Documents whose JSON cannot be
// decoded are skipped.
func (s *MySQL) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	stmt := listDocsSQL
	args := []any{q.Collection}
	if q.Where != nil {
		if clause, ok := indexedFilters[q.Where.Field]; ok {
			stmt += clause
			args = append(args, q.Where.Value)
		} else {
			stmt += filterClause
			args = append(args, "$."+q.Where.Field, q.Where.Value)
		}
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("docstore: query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("docstore: scan %s: %w", q.Collection, err)
		}
		f, err := decodeFields(raw)
		if err != nil {
			slog.Debug("skipping undecodable document", "collection", q.Collection, "id", id, "error", err)
			continue
		}
		docs = append(docs, Document{ID: id, Fields: f})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docstore: query %s: %w", q.Collection, err)
	}
	return q.arrange(docs), nil
}

// Set creates or replaces a document.
func (s *MySQL) Set(ctx context.Context, collection, id string, fields Fields) error {
	b, err := encodeFields(fields)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, upsertDocSQL, collection, id, b); err != nil {
		return fmt.Errorf("docstore: set %s/%s: %w", collection, id, err)
	}
	s.publish(ctx, collection)
	return nil
}

// Update merges fields into an existing document.
func (s *MySQL) Update(ctx context.Context, collection, id string, fields Fields) error {
	return s.RunTransaction(ctx, func(_ context.Context, tx Tx) error {
		return tx.Update(collection, id, fields)
	})
}

// RunTransaction runs fn inside a database transaction.  Buffered writes
// are flushed just before commit; an error from fn rolls everything back
// and is returned unchanged.
func (s *MySQL) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("docstore: begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	tx := &mysqlTx{ctx: ctx, tx: sqlTx, read: make(map[string]Fields)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.flush(); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("docstore: commit: %w", err)
	}
	committed = true

	for _, c := range touched(tx.writes) {
		s.publish(ctx, c)
	}
	return nil
}

// Subscribe starts a live query over the table.
func (s *MySQL) Subscribe(ctx context.Context, q Query) (*Subscription, error) {
	return s.subscribe(ctx, q, s.feed, func(ctx context.Context) ([]Document, error) {
		return s.Query(ctx, q)
	})
}

// publish runs after the data is durable; a lost notification only delays
// subscribers until the next change.
func (s *MySQL) publish(ctx context.Context, collection string) {
	if err := s.feed.Publish(context.WithoutCancel(ctx), collection); err != nil {
		slog.Warn("change notification failed", "collection", collection, "error", err)
	}
}

type mysqlTx struct {
	ctx    context.Context
	tx     *sql.Tx
	read   map[string]Fields // documents locked by Get, keyed collection/id
	writes []pendingWrite
}

func docKey(collection, id string) string { return collection + "/" + id }

func (t *mysqlTx) Get(collection, id string) (Document, error) {
	if len(t.writes) > 0 {
		return Document{}, ErrReadAfterWrite
	}
	d, err := getDoc(t.ctx, t.tx, selectForUpdSQL, collection, id)
	if err != nil {
		return Document{}, err
	}
	t.read[docKey(collection, id)] = d.Fields
	return Document{ID: id, Fields: d.Fields.Clone()}, nil
}

func (t *mysqlTx) Set(collection, id string, fields Fields) error {
	f, err := normalize(fields)
	if err != nil {
		return err
	}
	t.writes = append(t.writes, pendingWrite{kind: writeSet, collection: collection, id: id, fields: f})
	return nil
}

func (t *mysqlTx) Create(collection, id string, fields Fields) error {
	f, err := normalize(fields)
	if err != nil {
		return err
	}
	t.writes = append(t.writes, pendingWrite{kind: writeCreate, collection: collection, id: id, fields: f})
	return nil
}

func (t *mysqlTx) Update(collection, id string, fields Fields) error {
	f, err := normalize(fields)
	if err != nil {
		return err
	}
	t.writes = append(t.writes, pendingWrite{kind: writeUpdate, collection: collection, id: id, fields: f})
	return nil
}

// flush applies the buffered writes in order.  Updates of documents not
// read earlier in the transaction lock and load them first.  Creates are
// plain inserts, so the primary key decides between concurrent creators.
func (t *mysqlTx) flush() error {
	for _, w := range t.writes {
		key := docKey(w.collection, w.id)
		data := w.fields
		switch w.kind {
		case writeCreate:
			b, err := encodeFields(data)
			if err != nil {
				return err
			}
			if _, err := t.tx.ExecContext(t.ctx, insertDocSQL, w.collection, w.id, b); err != nil {
				var me *mysql.MySQLError
				if errors.As(err, &me) && me.Number == erDupEntry {
					return ErrExists
				}
				return fmt.Errorf("docstore: create %s: %w", key, err)
			}
		case writeUpdate:
			base, ok := t.read[key]
			if !ok {
				d, err := getDoc(t.ctx, t.tx, selectForUpdSQL, w.collection, w.id)
				if err != nil {
					return err
				}
				base = d.Fields
			}
			data = merge(base, w.fields)
			b, err := encodeFields(data)
			if err != nil {
				return err
			}
			if _, err := t.tx.ExecContext(t.ctx, updateDocSQL, b, w.collection, w.id); err != nil {
				return fmt.Errorf("docstore: update %s: %w", key, err)
			}
		default:
			b, err := encodeFields(data)
			if err != nil {
				return err
			}
			if _, err := t.tx.ExecContext(t.ctx, upsertDocSQL, w.collection, w.id, b); err != nil {
				return fmt.Errorf("docstore: set %s: %w", key, err)
			}
		}
		t.read[key] = data
	}
	return nil
}
