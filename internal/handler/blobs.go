package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sup-parking/internal/blob"
)

// BlobHandler serves objects of the local blob store.
type BlobHandler struct {
	Blobs *blob.Local
}

// NewBlobHandler returns a handler serving objects of b.
func NewBlobHandler(b *blob.Local) *BlobHandler {
	return &BlobHandler{Blobs: b}
}

// Serve streams the object named by the wildcard path.  Invalid paths are
// answered like missing ones.
func (h *BlobHandler) Serve(c echo.Context) error {
	rc, contentType, err := h.Blobs.Open(c.Request().Context(), c.Param("*"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	defer rc.Close()
	c.Response().Header().Set("Cache-Control", "private, max-age=300")
	return c.Stream(http.StatusOK, contentType, rc)
}
