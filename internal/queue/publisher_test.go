package queue

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sup-parking/internal/model"
)

// silentBroker accepts TCP connections and never answers the handshake.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		var conns []net.Conn
		defer func() {
			for _, c := range conns {
				_ = c.Close()
			}
		}()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, conn)
		}
	}()
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestPublishGivesUpOnSilentBroker(t *testing.T) {
	p := NewPublisher(silentBroker(t))
	p.timeout = 200 * time.Millisecond

	ev := NewBookingConfirmed(model.Booking{ID: "bk1"}, model.ParkingSpot{ID: "A1"}, time.Now())
	start := time.Now()
	err := p.PublishBookingConfirmed(context.Background(), ev)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	p := NewPublisher(silentBroker(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.PublishBookingConfirmed(ctx, BookingConfirmedEvent{BookingID: "bk1"})
	assert.ErrorIs(t, err, context.Canceled)
}
