package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sup-parking/internal/model"
	"github.com/iliyamo/sup-parking/internal/spots"
)

// SpotHandler serves the read side of the spot directory.
type SpotHandler struct {
	Spots *spots.Directory
}

// NewSpotHandler returns a handler reading spots from d.
func NewSpotHandler(d *spots.Directory) *SpotHandler {
	return &SpotHandler{Spots: d}
}

// ----- DTOs -----

type spotPart struct {
	model.ParkingSpot
	Color string `json:"color"`
}
type floorPart struct {
	Floor int        `json:"floor"`
	Spots []spotPart `json:"spots"`
}
type spotsResp struct {
	Floors    []floorPart `json:"floors"`
	Total     int         `json:"total"`
	Available int         `json:"available"`
	Skipped   int         `json:"skipped"`
}

func spotOut(s model.ParkingSpot) spotPart {
	return spotPart{ParkingSpot: s, Color: s.Status.Color()}
}

// floorsResp groups snap by floor in ascending order.
func floorsResp(snap spots.Snapshot) spotsResp {
	out := spotsResp{
		Floors:    make([]floorPart, 0),
		Total:     snap.Len(),
		Available: snap.AvailableCount(),
		Skipped:   snap.Skipped,
	}
	for _, f := range snap.Floors() {
		list := snap.Floor(f)
		fp := floorPart{Floor: f, Spots: make([]spotPart, 0, len(list))}
		for _, s := range list {
			fp.Spots = append(fp.Spots, spotOut(s))
		}
		out.Floors = append(out.Floors, fp)
	}
	return out
}

// List returns the latest snapshot grouped by floor.
func (h *SpotHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	snap, err := h.Spots.Current(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, floorsResp(snap))
}

// Get returns one spot read straight from the store.
func (h *SpotHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Spots.Get(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, spotOut(s))
}

// Stats returns spot counts per status.
func (h *SpotHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	snap, err := h.Spots.Current(ctx)
	if err != nil {
		return writeError(c, err)
	}
	byStatus := make(map[string]int, len(model.SpotStatuses))
	for _, st := range model.SpotStatuses {
		byStatus[string(st)] = snap.CountByStatus(st)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"total":     snap.Len(),
		"available": snap.AvailableCount(),
		"by_status": byStatus,
		"floors":    len(snap.Floors()),
	})
}

// Legend returns the status color mapping.
func (h *SpotHandler) Legend(c echo.Context) error {
	return c.JSON(http.StatusOK, model.Legend())
}
