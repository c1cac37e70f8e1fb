package model

import (
	"fmt"
	"time"
)

// BookingStatus is the stored state of a booking.
type BookingStatus string

const (
	BookingActive    BookingStatus = "active"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is a known booking status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingActive, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

// BookingDuration is the fixed length of every booking.  There is no
// extension mechanism.
const BookingDuration = 2 * time.Hour

// FlatFeeCents is the amount charged for a booking, in cents.
const FlatFeeCents int64 = 1000

// Booking records one user's reservation of one spot over a time window.
// UserID and SpotID are weak references: nothing cascades and the spot is
// not validated when a standalone booking is written.
//
// Fields:
//  ID          – generated at creation time.
//  UserID      – owning user.
//  SpotID      – reserved spot.
//  StartTime   – creation time of the booking.
//  EndTime     – StartTime + BookingDuration.
//  Status      – stored status; see IsActive for the derived state.
//  AmountCents – fee in cents.
type Booking struct {
	ID          string        `json:"id"`
	UserID      string        `json:"userId"`
	SpotID      string        `json:"spotId"`
	StartTime   time.Time     `json:"startTime"`
	EndTime     time.Time     `json:"endTime"`
	Status      BookingStatus `json:"status"`
	AmountCents int64         `json:"amountCents"`
}

// IsActive reports whether the booking is active at now.  The value is
// derived on read: a booking whose end time has passed stops being active
// without any status change.
func (b Booking) IsActive(now time.Time) bool {
	return b.Status == BookingActive && b.EndTime.After(now)
}

// Amount returns the fee as a decimal currency value.
func (b Booking) Amount() float64 { return float64(b.AmountCents) / 100 }

// FormatAmount renders the fee as "$10.00".
func (b Booking) FormatAmount() string {
	return fmt.Sprintf("$%d.%02d", b.AmountCents/100, b.AmountCents%100)
}
