package bookings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/sup-parking/internal/model"
)

func TestActiveFlipsWithTime(t *testing.T) {
	b := New("b1", "u1", "A1", t0)
	assert.Len(t, Active([]model.Booking{b}, t0.Add(time.Hour)), 1)
	assert.Empty(t, Active([]model.Booking{b}, t0.Add(2*time.Hour)))
}

func TestRecentKeepsTopThreeActive(t *testing.T) {
	var list []model.Booking
	for i := 0; i < 5; i++ {
		list = append(list, New(string(rune('a'+i)), "u1", "A1", t0.Add(time.Duration(i)*time.Minute)))
	}
	cancelled := New("x", "u1", "A1", t0.Add(time.Hour))
	cancelled.Status = model.BookingCancelled
	list = append(list, cancelled)

	got := Recent(list, t0.Add(10*time.Minute), 3)
	assert.Len(t, got, 3)
	assert.Equal(t, "e", got[0].ID)
	assert.Equal(t, "d", got[1].ID)
	assert.Equal(t, "c", got[2].ID)
}

func TestTimeRemaining(t *testing.T) {
	b := New("b1", "u1", "A1", t0)
	assert.Equal(t, "2h 0m remaining", TimeRemaining(b, t0))
	assert.Equal(t, "1h 15m remaining", TimeRemaining(b, t0.Add(45*time.Minute)))
	assert.Equal(t, "5m remaining", TimeRemaining(b, t0.Add(115*time.Minute)))
	assert.Equal(t, "Expired", TimeRemaining(b, t0.Add(2*time.Hour)))
	assert.Equal(t, "Expired", TimeRemaining(b, t0.Add(3*time.Hour)))
}
