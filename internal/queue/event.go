// Package queue carries booking events over RabbitMQ.
package queue

import (
	"time"

	"github.com/iliyamo/sup-parking/internal/model"
)

// BookingConfirmedQueue is the durable queue receiving BookingConfirmedEvent
// messages.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published when a reservation is committed.  It
// contains enough information for downstream consumers to log or trigger
// analytics without querying the document store.
type BookingConfirmedEvent struct {
	BookingID   string `json:"booking_id"`
	UserID      string `json:"user_id"`
	SpotID      string `json:"spot_id"`
	Floor       int    `json:"floor"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at"`
	AmountCents int64  `json:"amount_cents"`
	ConfirmedAt string `json:"confirmed_at"`
}

// NewBookingConfirmed builds the event for a booking on spot.
func NewBookingConfirmed(b model.Booking, spot model.ParkingSpot, at time.Time) BookingConfirmedEvent {
	return BookingConfirmedEvent{
		BookingID:   b.ID,
		UserID:      b.UserID,
		SpotID:      b.SpotID,
		Floor:       spot.Floor,
		StartsAt:    b.StartTime.UTC().Format(time.RFC3339),
		EndsAt:      b.EndTime.UTC().Format(time.RFC3339),
		AmountCents: b.AmountCents,
		ConfirmedAt: at.UTC().Format(time.RFC3339),
	}
}
