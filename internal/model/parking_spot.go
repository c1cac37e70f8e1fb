package model

import "time"

// SpotStatus is the lifecycle state of a parking spot.
type SpotStatus string

const (
	SpotAvailable SpotStatus = "available"
	SpotOccupied  SpotStatus = "occupied"
	SpotReserved  SpotStatus = "reserved"
	SpotDisabled  SpotStatus = "disabled"
)

// SpotStatuses lists every status in display order.
var SpotStatuses = []SpotStatus{SpotAvailable, SpotOccupied, SpotReserved, SpotDisabled}

// Valid reports whether s is a known status.
func (s SpotStatus) Valid() bool {
	switch s {
	case SpotAvailable, SpotOccupied, SpotReserved, SpotDisabled:
		return true
	}
	return false
}

// SpotType distinguishes standard spots from accessible ones.  The
// accessible type is stored as "disabled".
type SpotType string

const (
	SpotStandard   SpotType = "standard"
	SpotAccessible SpotType = "disabled"
)

// Valid reports whether t is a known spot type.
func (t SpotType) Valid() bool {
	return t == SpotStandard || t == SpotAccessible
}

// ParkingSpot represents a single parking space.  The ID is assigned by an
// administrator and doubles as the document key in the parkingSpots
// collection, so it must be unique across all floors.
//
// Fields:
//  ID          – human assigned identifier such as "B3".
//  Status      – current lifecycle state.
//  Type        – standard or accessible.
//  Floor       – floor number; the reference layout uses 1..5.
//  LastUpdated – time of the last status mutation.
type ParkingSpot struct {
	ID          string     `json:"id"`
	Status      SpotStatus `json:"status"`
	Type        SpotType   `json:"type"`
	Floor       int        `json:"floor"`
	LastUpdated time.Time  `json:"lastUpdated"`
}
