package spots

import (
	"time"

	"github.com/iliyamo/sup-parking/internal/docstore"
	"github.com/iliyamo/sup-parking/internal/model"
)

// Collection holds one document per spot keyed by spot id.
const Collection = "parkingSpots"

// Encode returns the document fields of s.
func Encode(s model.ParkingSpot) docstore.Fields {
	return docstore.Fields{
		"id":          s.ID,
		"status":      string(s.Status),
		"type":        string(s.Type),
		"floor":       s.Floor,
		"lastUpdated": s.LastUpdated.UTC(),
	}
}

// Decode parses a spot document.  It reports false when a required field is
// missing, has the wrong type or holds an unknown enum value.
func Decode(d docstore.Document) (model.ParkingSpot, bool) {
	status, ok := d.Fields.String("status")
	if !ok || !model.SpotStatus(status).Valid() {
		return model.ParkingSpot{}, false
	}
	typ, ok := d.Fields.String("type")
	if !ok || !model.SpotType(typ).Valid() {
		return model.ParkingSpot{}, false
	}
	floor, ok := d.Fields.Int("floor")
	if !ok {
		return model.ParkingSpot{}, false
	}
	updated, ok := d.Fields.Time("lastUpdated")
	if !ok {
		return model.ParkingSpot{}, false
	}
	return model.ParkingSpot{
		ID:          d.ID,
		Status:      model.SpotStatus(status),
		Type:        model.SpotType(typ),
		Floor:       int(floor),
		LastUpdated: updated.In(time.UTC),
	}, true
}

// StatusPatch returns the fields written by a status change at now.
func StatusPatch(status model.SpotStatus, now time.Time) docstore.Fields {
	return docstore.Fields{"status": string(status), "lastUpdated": now.UTC()}
}
