// Package bookings maintains per-user booking history.
package bookings

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/sup-parking/internal/apperr"
	"github.com/iliyamo/sup-parking/internal/docstore"
	"github.com/iliyamo/sup-parking/internal/model"
)

// Subscription delivers the bookings of one user, newest first, after
// every change of the booking collection.
type Subscription = docstore.View[[]model.Booking]

// Draft is the input of Create.  A zero StartTime means now.
type Draft struct {
	UserID    string
	SpotID    string
	StartTime time.Time
}

// Ledger reads and writes bookings.
type Ledger struct {
	store docstore.Store
	now   func() time.Time
	newID func() string
}

// NewLedger returns a ledger over store.
func NewLedger(store docstore.Store, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: store, now: now, newID: uuid.NewString}
}

func userQuery(userID string) docstore.Query {
	return docstore.Query{
		Collection: Collection,
		Where:      &docstore.Filter{Field: "userId", Value: userID},
		OrderBy:    "startTime",
		Descending: true,
	}
}

// DecodeAll parses docs in order, dropping documents that cannot be
// decoded.
func DecodeAll(docs []docstore.Document) []model.Booking {
	out := make([]model.Booking, 0, len(docs))
	for _, d := range docs {
		b, ok := Decode(d)
		if !ok {
			slog.Debug("skipping malformed booking", "id", d.ID)
			continue
		}
		out = append(out, b)
	}
	return out
}

// Subscribe starts a live view of the bookings of userID.
func (l *Ledger) Subscribe(ctx context.Context, userID string) (*Subscription, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Validation("User not authenticated")
	}
	sub, err := l.store.Subscribe(ctx, userQuery(userID))
	if err != nil {
		return nil, apperr.Backend(err)
	}
	return docstore.NewView(sub, DecodeAll), nil
}

// List returns the bookings of userID, newest first.
func (l *Ledger) List(ctx context.Context, userID string) ([]model.Booking, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Validation("User not authenticated")
	}
	docs, err := l.store.Query(ctx, userQuery(userID))
	if err != nil {
		return nil, apperr.Backend(err)
	}
	return DecodeAll(docs), nil
}

// Create writes a standalone active booking.  The spot is not checked or
// touched; reservations go through the reservation service instead.
func (l *Ledger) Create(ctx context.Context, d Draft) (model.Booking, error) {
	if strings.TrimSpace(d.UserID) == "" {
		return model.Booking{}, apperr.Validation("User not authenticated")
	}
	if strings.TrimSpace(d.SpotID) == "" {
		return model.Booking{}, apperr.Validation("Please enter a spot ID")
	}
	start := d.StartTime
	if start.IsZero() {
		start = l.now()
	}
	b := New(l.newID(), d.UserID, d.SpotID, start)
	if err := l.store.Set(ctx, Collection, b.ID, Encode(b)); err != nil {
		return model.Booking{}, apperr.Backend(err)
	}
	return b, nil
}

// New builds an active booking starting at start with the flat fee and
// the fixed duration.
func New(id, userID, spotID string, start time.Time) model.Booking {
	start = start.UTC()
	return model.Booking{
		ID:          id,
		UserID:      userID,
		SpotID:      spotID,
		StartTime:   start,
		EndTime:     start.Add(model.BookingDuration),
		Status:      model.BookingActive,
		AmountCents: model.FlatFeeCents,
	}
}
