package spots

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/iliyamo/sup-parking/internal/docstore"
	"github.com/iliyamo/sup-parking/internal/model"
)

// Snapshot is an immutable view of every decodable spot grouped by floor.
// A new Snapshot replaces the previous one wholesale on each change.
type Snapshot struct {
	floors  map[int][]model.ParkingSpot
	Skipped int // documents left out because they could not be decoded
}

// NewSnapshot groups docs by floor.  Undecodable documents are skipped and
// counted.
func NewSnapshot(docs []docstore.Document) Snapshot {
	s := Snapshot{floors: make(map[int][]model.ParkingSpot)}
	for _, d := range docs {
		spot, ok := Decode(d)
		if !ok {
			s.Skipped++
			slog.Debug("skipping malformed spot", "id", d.ID)
			continue
		}
		s.floors[spot.Floor] = append(s.floors[spot.Floor], spot)
	}
	for _, list := range s.floors {
		slices.SortFunc(list, func(a, b model.ParkingSpot) int { return cmp.Compare(a.ID, b.ID) })
	}
	return s
}

// Floors returns the floors that have at least one spot, ascending.
func (s Snapshot) Floors() []int {
	out := make([]int, 0, len(s.floors))
	for f := range s.floors {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// Floor returns the spots of floor n ordered by id.
func (s Snapshot) Floor(n int) []model.ParkingSpot {
	return slices.Clone(s.floors[n])
}

// ByFloor returns a copy of the floor grouping.
func (s Snapshot) ByFloor() map[int][]model.ParkingSpot {
	out := make(map[int][]model.ParkingSpot, len(s.floors))
	for f, list := range s.floors {
		out[f] = slices.Clone(list)
	}
	return out
}

// Len returns the number of spots.
func (s Snapshot) Len() int {
	n := 0
	for _, list := range s.floors {
		n += len(list)
	}
	return n
}

// Find returns the spot with the given id.
func (s Snapshot) Find(id string) (model.ParkingSpot, bool) {
	for _, list := range s.floors {
		for _, spot := range list {
			if spot.ID == id {
				return spot, true
			}
		}
	}
	return model.ParkingSpot{}, false
}

// CountByStatus returns how many spots are in status st.
func (s Snapshot) CountByStatus(st model.SpotStatus) int {
	n := 0
	for _, list := range s.floors {
		for _, spot := range list {
			if spot.Status == st {
				n++
			}
		}
	}
	return n
}

// AvailableCount returns the number of available spots.
func (s Snapshot) AvailableCount() int { return s.CountByStatus(model.SpotAvailable) }
