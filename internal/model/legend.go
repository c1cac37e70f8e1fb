package model

// Color returns the display hint used by clients to paint a spot.
func (s SpotStatus) Color() string {
	switch s {
	case SpotAvailable:
		return "green"
	case SpotOccupied:
		return "red"
	case SpotReserved:
		return "yellow"
	case SpotDisabled:
		return "blue"
	}
	return "gray"
}

// Color returns the display hint used by clients to paint a booking badge.
func (s BookingStatus) Color() string {
	switch s {
	case BookingActive:
		return "green"
	case BookingCompleted:
		return "blue"
	case BookingCancelled:
		return "red"
	}
	return "gray"
}

// LegendEntry pairs a status with its color.
type LegendEntry struct {
	Status string `json:"status"`
	Color  string `json:"color"`
}

// Legend returns the spot and booking color legends.
func Legend() map[string][]LegendEntry {
	spots := make([]LegendEntry, 0, len(SpotStatuses))
	for _, s := range SpotStatuses {
		spots = append(spots, LegendEntry{Status: string(s), Color: s.Color()})
	}
	bookings := []LegendEntry{
		{Status: string(BookingActive), Color: BookingActive.Color()},
		{Status: string(BookingCompleted), Color: BookingCompleted.Color()},
		{Status: string(BookingCancelled), Color: BookingCancelled.Color()},
	}
	return map[string][]LegendEntry{"spots": spots, "bookings": bookings}
}
