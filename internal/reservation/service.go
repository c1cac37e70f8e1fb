// Package reservation turns an available spot into a booking.
//
// A reservation is one store transaction: the spot is read and locked,
// checked for availability, flipped to reserved, and the booking document
// is written alongside it.  Either both writes land or neither does, so two
// users racing for the same spot can never both end up with a booking.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/sup-parking/internal/apperr"
	"github.com/iliyamo/sup-parking/internal/bookings"
	"github.com/iliyamo/sup-parking/internal/docstore"
	"github.com/iliyamo/sup-parking/internal/model"
	"github.com/iliyamo/sup-parking/internal/queue"
	"github.com/iliyamo/sup-parking/internal/spots"
)

// EventPublisher receives a notification after each committed reservation.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithIDGenerator overrides the booking id generator.
func WithIDGenerator(gen func() string) Option { return func(s *Service) { s.newID = gen } }

// WithPublisher publishes booking.confirmed events after commit.
func WithPublisher(p EventPublisher) Option { return func(s *Service) { s.publisher = p } }

// Service runs reservations.
type Service struct {
	store     docstore.Store
	now       func() time.Time
	newID     func() string
	publisher EventPublisher
}

// NewService returns a reservation service over store.
func NewService(store docstore.Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now, newID: uuid.NewString}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Reserve reserves spotID for userID and returns the new booking.
//
// Errors: ErrValidation for an empty user or spot id, ErrNotFound when the
// spot does not exist or cannot be decoded, ErrConflict when the spot is not
// available, ErrBackend when the store fails.
func (s *Service) Reserve(ctx context.Context, userID, spotID string) (model.Booking, error) {
	if strings.TrimSpace(userID) == "" {
		return model.Booking{}, apperr.Validation("User not authenticated")
	}
	if strings.TrimSpace(spotID) == "" {
		return model.Booking{}, apperr.Validation("Please enter a spot ID")
	}

	now := s.now().UTC()
	booking := bookings.New(s.newID(), userID, spotID, now)
	var spot model.ParkingSpot

	err := s.store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		doc, err := tx.Get(spots.Collection, spotID)
		if errors.Is(err, docstore.ErrNotFound) {
			return apperr.NotFound(fmt.Sprintf("spot %s not found", spotID))
		}
		if err != nil {
			return err
		}
		var ok bool
		spot, ok = spots.Decode(doc)
		if !ok {
			return apperr.NotFound(fmt.Sprintf("spot %s not found", spotID))
		}
		if spot.Status != model.SpotAvailable {
			return apperr.Conflict(fmt.Sprintf("spot %s is %s", spotID, spot.Status))
		}
		if err := tx.Update(spots.Collection, spotID, spots.StatusPatch(model.SpotReserved, now)); err != nil {
			return err
		}
		return tx.Set(bookings.Collection, booking.ID, bookings.Encode(booking))
	})
	if err != nil {
		return model.Booking{}, apperr.Backend(err)
	}

	spot.Status = model.SpotReserved
	spot.LastUpdated = now
	s.announce(ctx, booking, spot, now)
	return booking, nil
}

// announce publishes the confirmation event.  The reservation has already
// committed, so failures are only logged.
func (s *Service) announce(ctx context.Context, b model.Booking, spot model.ParkingSpot, at time.Time) {
	if s.publisher == nil {
		return
	}
	ev := queue.NewBookingConfirmed(b, spot, at)
	if err := s.publisher.PublishBookingConfirmed(context.WithoutCancel(ctx), ev); err != nil {
		slog.Warn("booking.confirmed publish failed", "booking_id", b.ID, "error", err)
	}
}
