package handler

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sup-parking/internal/apperr"
	"github.com/iliyamo/sup-parking/internal/blob"
	"github.com/iliyamo/sup-parking/internal/bookings"
	"github.com/iliyamo/sup-parking/internal/docstore"
	"github.com/iliyamo/sup-parking/internal/model"
	"github.com/iliyamo/sup-parking/internal/profile"
	"github.com/iliyamo/sup-parking/internal/repository"
	"github.com/iliyamo/sup-parking/internal/spots"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Validation("bad"), http.StatusBadRequest},
		{apperr.NotFound("gone"), http.StatusNotFound},
		{apperr.Conflict("taken"), http.StatusConflict},
		{apperr.Backend(errors.New("db down")), http.StatusBadGateway},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusOf(tc.err), tc.err.Error())
	}
}

func TestWriteErrorKeepsBackendMessage(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, writeError(c, apperr.Backend(errors.New("connection refused"))))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"connection refused"}`, rec.Body.String())
}

func spotDoc(id, status string, floor int) docstore.Document {
	return docstore.Document{ID: id, Fields: spots.Encode(model.ParkingSpot{
		ID: id, Status: model.SpotStatus(status), Type: model.SpotStandard, Floor: floor, LastUpdated: t0,
	})}
}

func TestFloorsResp(t *testing.T) {
	snap := spots.NewSnapshot([]docstore.Document{
		spotDoc("B2", "occupied", 2),
		spotDoc("A1", "available", 1),
		spotDoc("B1", "available", 2),
		{ID: "bad", Fields: docstore.Fields{"floor": 1}},
	})

	out := floorsResp(snap)
	require.Len(t, out.Floors, 2)
	assert.Equal(t, 1, out.Floors[0].Floor)
	assert.Equal(t, 2, out.Floors[1].Floor)
	assert.Equal(t, "B1", out.Floors[1].Spots[0].ID)
	assert.Equal(t, "red", out.Floors[1].Spots[1].Color)
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, 2, out.Available)
	assert.Equal(t, 1, out.Skipped)

	empty := floorsResp(spots.Snapshot{})
	assert.NotNil(t, empty.Floors)
	assert.Empty(t, empty.Floors)
}

func TestBookingOut(t *testing.T) {
	b := bookings.New("b1", "u1", "B3", t0)
	out := bookingOut(b, t0.Add(30*time.Minute))
	assert.Equal(t, 10.0, out.Amount)
	assert.Equal(t, "$10.00", out.AmountDisplay)
	assert.True(t, out.IsActive)
	assert.Equal(t, "1h 30m remaining", out.TimeRemaining)
	assert.Equal(t, "green", out.Color)

	late := bookingOut(b, t0.Add(3*time.Hour))
	assert.False(t, late.IsActive)
	assert.Equal(t, "Expired", late.TimeRemaining)
}

func TestUploadImageMultipart(t *testing.T) {
	users := repository.NewUserRepo(docstore.NewMemory(nil))
	require.NoError(t, users.Create(context.Background(), model.User{ID: "u1", Email: "a@b.c", Name: "Ann", Created: t0}, "h"))
	local, err := blob.NewLocal(t.TempDir(), "http://localhost/v1/blobs")
	require.NoError(t, err)
	users.Images = local
	h := NewProfileHandler(profile.NewService(users, local))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\nrest-of-image"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/profile/image", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", "u1")

	require.NoError(t, h.UploadImage(c))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "http://localhost/v1/blobs/profileImages/u1")

	req = httptest.NewRequest(http.MethodPost, "/v1/profile/image", bytes.NewReader(nil))
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set("user_id", "u1")
	require.NoError(t, h.UploadImage(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
