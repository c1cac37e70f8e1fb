package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sup-parking/internal/model"
	"github.com/iliyamo/sup-parking/internal/spots"
)

// AdminHandler manages the spot inventory.  Routes are restricted to the
// ADMIN role.
type AdminHandler struct {
	Spots *spots.Directory
}

// NewAdminHandler returns a handler managing spots through d.
func NewAdminHandler(d *spots.Directory) *AdminHandler {
	return &AdminHandler{Spots: d}
}

type statusReq struct {
	Status model.SpotStatus `json:"status"`
}

// AddSpot creates an available spot.
func (h *AdminHandler) AddSpot(c echo.Context) error {
	var req spots.NewSpot
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Spots.Add(ctx, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, spotOut(s))
}

// SetStatus overrides the status of a spot.
func (h *AdminHandler) SetStatus(c echo.Context) error {
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id := c.Param("id")
	if err := h.Spots.SetStatus(ctx, id, req.Status); err != nil {
		return writeError(c, err)
	}
	s, err := h.Spots.Get(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, spotOut(s))
}
