package bookings

import (
	"math"
	"time"

	"github.com/iliyamo/sup-parking/internal/docstore"
	"github.com/iliyamo/sup-parking/internal/model"
)

// Collection holds one document per booking keyed by booking id.
const Collection = "bookings"

// Encode returns the document fields of b.  The fee is stored as a decimal
// amount.
func Encode(b model.Booking) docstore.Fields {
	return docstore.Fields{
		"id":        b.ID,
		"userId":    b.UserID,
		"spotId":    b.SpotID,
		"startTime": b.StartTime.UTC(),
		"endTime":   b.EndTime.UTC(),
		"status":    string(b.Status),
		"amount":    b.Amount(),
	}
}

// Decode parses a booking document, reporting false when a field is
// missing or invalid.
func Decode(d docstore.Document) (model.Booking, bool) {
	var b model.Booking
	var ok bool
	b.ID = d.ID
	if b.UserID, ok = d.Fields.String("userId"); !ok {
		return model.Booking{}, false
	}
	if b.SpotID, ok = d.Fields.String("spotId"); !ok {
		return model.Booking{}, false
	}
	if b.StartTime, ok = d.Fields.Time("startTime"); !ok {
		return model.Booking{}, false
	}
	if b.EndTime, ok = d.Fields.Time("endTime"); !ok {
		return model.Booking{}, false
	}
	status, ok := d.Fields.String("status")
	if !ok || !model.BookingStatus(status).Valid() {
		return model.Booking{}, false
	}
	b.Status = model.BookingStatus(status)
	amount, ok := d.Fields.Float("amount")
	if !ok {
		return model.Booking{}, false
	}
	b.AmountCents = int64(math.Round(amount * 100))
	b.StartTime = b.StartTime.In(time.UTC)
	b.EndTime = b.EndTime.In(time.UTC)
	return b, true
}
