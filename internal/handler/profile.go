package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sup-parking/internal/middleware"
	"github.com/iliyamo/sup-parking/internal/profile"
)

// ProfileHandler serves the caller's profile and profile image.
type ProfileHandler struct {
	Profiles *profile.Service
}

// NewProfileHandler returns a handler for the profile endpoints backed by p.
func NewProfileHandler(p *profile.Service) *ProfileHandler {
	return &ProfileHandler{Profiles: p}
}

type profileReq struct {
	Name string `json:"name"`
}

// Get returns the caller's profile.
func (h *ProfileHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Profiles.Get(ctx, middleware.UserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Update changes the display name.
func (h *ProfileHandler) Update(c echo.Context) error {
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Profiles.UpdateName(ctx, middleware.UserID(c), req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// UploadImage accepts either a multipart form with an "image" file or the
// raw image as the request body.
func (h *ProfileHandler) UploadImage(c echo.Context) error {
	data, contentType, err := readImage(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	u, err := h.Profiles.UploadImage(ctx, middleware.UserID(c), data, contentType)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// ImageURL returns a download URL of the caller's profile image.
func (h *ProfileHandler) ImageURL(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	url, err := h.Profiles.ImageURL(ctx, middleware.UserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"url": url})
}

func readImage(c echo.Context) ([]byte, string, error) {
	limit := int64(profile.MaxImageBytes) + 1
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		fh, err := c.FormFile("image")
		if err != nil {
			return nil, "", errors.New("image file required")
		}
		f, err := fh.Open()
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, limit))
		if err != nil {
			return nil, "", err
		}
		partType := fh.Header.Get(echo.HeaderContentType)
		if partType == "" || partType == "application/octet-stream" {
			partType = http.DetectContentType(data)
		}
		return data, partType, nil
	}
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, limit))
	if err != nil {
		return nil, "", err
	}
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	return data, ct, nil
}
