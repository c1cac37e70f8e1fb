package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sup-parking/internal/bookings"
	"github.com/iliyamo/sup-parking/internal/middleware"
	"github.com/iliyamo/sup-parking/internal/model"
	"github.com/iliyamo/sup-parking/internal/reservation"
)

// recentLimit is the number of entries of the recent parkings view.
const recentLimit = 3

// BookingHandler serves reservations and the booking history of the
// authenticated user.
type BookingHandler struct {
	Reservations *reservation.Service
	Ledger       *bookings.Ledger
	Now          func() time.Time
}

// NewBookingHandler returns a handler that reserves through r and reads
// history from l.  Booking state is evaluated against the wall clock.
func NewBookingHandler(r *reservation.Service, l *bookings.Ledger) *BookingHandler {
	return &BookingHandler{Reservations: r, Ledger: l, Now: time.Now}
}

// ----- DTOs -----

type bookingPart struct {
	model.Booking
	Amount        float64 `json:"amount"`
	AmountDisplay string  `json:"amountDisplay"`
	IsActive      bool    `json:"isActive"`
	TimeRemaining string  `json:"timeRemaining"`
	Color         string  `json:"color"`
}

func bookingOut(b model.Booking, now time.Time) bookingPart {
	return bookingPart{
		Booking:       b,
		Amount:        b.Amount(),
		AmountDisplay: b.FormatAmount(),
		IsActive:      b.IsActive(now),
		TimeRemaining: bookings.TimeRemaining(b, now),
		Color:         b.Status.Color(),
	}
}

func bookingsOut(list []model.Booking, now time.Time) []bookingPart {
	out := make([]bookingPart, 0, len(list))
	for _, b := range list {
		out = append(out, bookingOut(b, now))
	}
	return out
}

// Reserve books the spot in the path for the caller.  201 with the new
// booking, 409 when the spot is not available, 404 when it does not exist.
func (h *BookingHandler) Reserve(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Reservations.Reserve(ctx, middleware.UserID(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, bookingOut(b, h.Now()))
}

// List returns every booking of the caller, newest first.
func (h *BookingHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Ledger.List(ctx, middleware.UserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookingsOut(list, h.Now())})
}

// Recent returns the caller's active bookings, newest first.  The optional
// ?limit overrides the default of three.
func (h *BookingHandler) Recent(c echo.Context) error {
	limit := recentLimit
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = n
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Ledger.List(ctx, middleware.UserID(c))
	if err != nil {
		return writeError(c, err)
	}
	now := h.Now()
	return c.JSON(http.StatusOK, echo.Map{"bookings": bookingsOut(bookings.Recent(list, now, limit), now)})
}
