// Package sweeper returns spots stuck in reserved to available once none
// of their bookings is active any more.
//
// Bookings are never modified: a booking stops being active purely because
// its end time passes.  Only the spot status is reconciled.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/iliyamo/sup-parking/internal/bookings"
	"github.com/iliyamo/sup-parking/internal/docstore"
	"github.com/iliyamo/sup-parking/internal/model"
	"github.com/iliyamo/sup-parking/internal/spots"
)

// Sweeper runs Sweep on a cron schedule.
type Sweeper struct {
	cron     *cron.Cron
	store    docstore.Store
	schedule string
	now      func() time.Time
}

// New returns a sweeper for schedule: a standard five-field cron spec such
// as "*/5 * * * *" or a descriptor like "@every 1m".
func New(store docstore.Store, schedule string, now func() time.Time) *Sweeper {
	if now == nil {
		now = time.Now
	}
	if schedule == "" {
		schedule = "@every 1m"
	}
	return &Sweeper{
		cron:     cron.New(),
		store:    store,
		schedule: schedule,
		now:      now,
	}
}

// Start registers the job and starts the scheduler.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := s.Sweep(ctx)
		if err != nil {
			slog.Error("spot sweep failed", "error", err)
			return
		}
		if n > 0 {
			slog.Info("released expired reservations", "spots", n)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweeper schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	slog.Info("spot sweeper started", "schedule", s.schedule)
	return nil
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep releases every reserved spot without an active booking and
// returns how many were released.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	docs, err := s.store.Query(ctx, docstore.Query{
		Collection: spots.Collection,
		Where:      &docstore.Filter{Field: "status", Value: string(model.SpotReserved)},
	})
	if err != nil {
		return 0, err
	}

	now := s.now()
	released := 0
	for _, d := range docs {
		spot, ok := spots.Decode(d)
		if !ok {
			continue
		}
		held, err := s.hasActiveBooking(ctx, spot.ID, now)
		if err != nil {
			return released, err
		}
		if held {
			continue
		}
		ok, err = s.release(ctx, spot, now)
		if err != nil {
			return released, err
		}
		if ok {
			released++
		}
	}
	return released, nil
}

func (s *Sweeper) hasActiveBooking(ctx context.Context, spotID string, now time.Time) (bool, error) {
	docs, err := s.store.Query(ctx, docstore.Query{
		Collection: bookings.Collection,
		Where:      &docstore.Filter{Field: "spotId", Value: spotID},
	})
	if err != nil {
		return false, err
	}
	for _, b := range bookings.DecodeAll(docs) {
		if b.IsActive(now) {
			return true, nil
		}
	}
	return false, nil
}

// release flips seen back to available unless the spot changed since it
// was read.
func (s *Sweeper) release(ctx context.Context, seen model.ParkingSpot, now time.Time) (bool, error) {
	released := false
	err := s.store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		d, err := tx.Get(spots.Collection, seen.ID)
		if err != nil {
			return err
		}
		cur, ok := spots.Decode(d)
		if !ok || cur.Status != model.SpotReserved || !cur.LastUpdated.Equal(seen.LastUpdated) {
			return nil
		}
		released = true
		return tx.Update(spots.Collection, seen.ID, spots.StatusPatch(model.SpotAvailable, now))
	})
	return released, err
}
