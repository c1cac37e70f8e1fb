package bookings

import (
	"fmt"
	"slices"
	"time"

	"github.com/iliyamo/sup-parking/internal/model"
)

// Active returns the bookings active at now, newest first.
func Active(list []model.Booking, now time.Time) []model.Booking {
	out := make([]model.Booking, 0, len(list))
	for _, b := range list {
		if b.IsActive(now) {
			out = append(out, b)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Booking) int { return b.StartTime.Compare(a.StartTime) })
	return out
}

// Recent returns at most n active bookings, newest first.
func Recent(list []model.Booking, now time.Time, n int) []model.Booking {
	out := Active(list, now)
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// TimeRemaining renders the time left before b ends.
func TimeRemaining(b model.Booking, now time.Time) string {
	left := b.EndTime.Sub(now)
	if left <= 0 {
		return "Expired"
	}
	secs := int(left / time.Second)
	hours := secs / 3600
	minutes := (secs % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm remaining", hours, minutes)
	}
	return fmt.Sprintf("%dm remaining", minutes)
}
