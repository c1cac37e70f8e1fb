// Package spots maintains the live set of parking spots.
package spots

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/sup-parking/internal/apperr"
	"github.com/iliyamo/sup-parking/internal/docstore"
	"github.com/iliyamo/sup-parking/internal/model"
)

// Subscription delivers a Snapshot after every change of the spot
// collection, starting with the current state.  Close must be called once
// the caller is done with it.
type Subscription = docstore.View[Snapshot]

// NewSpot is the input of Add.
type NewSpot struct {
	ID    string         `json:"id"`
	Type  model.SpotType `json:"type"`
	Floor int            `json:"floor"`
}

// Directory reads and mutates parking spots.
type Directory struct {
	store docstore.Store
	now   func() time.Time

	mu      sync.RWMutex
	current Snapshot
	ready   chan struct{}
	once    sync.Once
}

// NewDirectory returns a directory over store.  A nil clock means
// time.Now.
func NewDirectory(store docstore.Store, now func() time.Time) *Directory {
	if now == nil {
		now = time.Now
	}
	return &Directory{store: store, now: now, ready: make(chan struct{})}
}

// Subscribe starts a live view of all spots.
func (d *Directory) Subscribe(ctx context.Context) (*Subscription, error) {
	sub, err := d.store.Subscribe(ctx, docstore.Query{Collection: Collection})
	if err != nil {
		return nil, apperr.Backend(err)
	}
	return docstore.NewView(sub, NewSnapshot), nil
}

// Run keeps Current up to date until ctx ends.
func (d *Directory) Run(ctx context.Context) error {
	sub, err := d.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()
	for {
		select {
		case snap, ok := <-sub.Updates():
			if !ok {
				return ctx.Err()
			}
			d.mu.Lock()
			d.current = snap
			d.mu.Unlock()
			d.once.Do(func() { close(d.ready) })
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Current returns the latest snapshot seen by Run.  It waits for the first
// one until ctx ends.
func (d *Directory) Current(ctx context.Context) (Snapshot, error) {
	select {
	case <-d.ready:
	case <-ctx.Done():
		return Snapshot{}, apperr.Backend(fmt.Errorf("spot directory not ready: %w", ctx.Err()))
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current, nil
}

// Get reads one spot.
func (d *Directory) Get(ctx context.Context, id string) (model.ParkingSpot, error) {
	if strings.TrimSpace(id) == "" {
		return model.ParkingSpot{}, apperr.Validation("Please enter a spot ID")
	}
	doc, err := d.store.Get(ctx, Collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return model.ParkingSpot{}, apperr.NotFound("spot not found")
		}
		return model.ParkingSpot{}, apperr.Backend(err)
	}
	spot, ok := Decode(doc)
	if !ok {
		return model.ParkingSpot{}, apperr.NotFound("spot not found")
	}
	return spot, nil
}

// SetStatus changes the status of a spot and stamps lastUpdated.  There is
// no transition check: an administrator may move a spot to any status.
func (d *Directory) SetStatus(ctx context.Context, id string, status model.SpotStatus) error {
	if strings.TrimSpace(id) == "" {
		return apperr.Validation("Please enter a spot ID")
	}
	if !status.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown spot status %q", status))
	}
	err := d.store.Update(ctx, Collection, id, StatusPatch(status, d.now()))
	if errors.Is(err, docstore.ErrNotFound) {
		return apperr.NotFound("spot not found")
	}
	return apperr.Backend(err)
}

// Add creates an available spot.  Spot ids are unique across floors, so an
// existing id is a conflict.
func (d *Directory) Add(ctx context.Context, in NewSpot) (model.ParkingSpot, error) {
	in.ID = strings.TrimSpace(in.ID)
	if in.ID == "" {
		return model.ParkingSpot{}, apperr.Validation("Please enter a spot ID")
	}
	if in.Type == "" {
		in.Type = model.SpotStandard
	}
	if !in.Type.Valid() {
		return model.ParkingSpot{}, apperr.Validation(fmt.Sprintf("unknown spot type %q", in.Type))
	}
	if in.Floor < 1 {
		return model.ParkingSpot{}, apperr.Validation("floor must be 1 or higher")
	}

	spot := model.ParkingSpot{
		ID:          in.ID,
		Status:      model.SpotAvailable,
		Type:        in.Type,
		Floor:       in.Floor,
		LastUpdated: d.now().UTC(),
	}
	err := d.store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		return tx.Create(Collection, spot.ID, Encode(spot))
	})
	if errors.Is(err, docstore.ErrExists) {
		return model.ParkingSpot{}, apperr.Conflict(fmt.Sprintf("spot %s already exists", spot.ID))
	}
	if err != nil {
		return model.ParkingSpot{}, apperr.Backend(err)
	}
	return spot, nil
}
