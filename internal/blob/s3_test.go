package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 answers path-style PUT and HEAD object requests.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string // path -> content type
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		_, _ = io.Copy(io.Discard, r.Body)
		f.objects[r.URL.Path] = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		ct, ok := f.objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", ct)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) contentType(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[path]
}

func TestS3UploadAndPresign(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	fake := &fakeS3{objects: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx := context.Background()
	s, err := NewS3(ctx, "us-east-1", "avatars", srv.URL, 10*time.Minute)
	require.NoError(t, err)

	_, err = s.DownloadURL(ctx, "profileImages/u1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Upload(ctx, "profileImages/u1", []byte("img"), "image/png"))
	assert.Equal(t, "image/png", fake.contentType("/avatars/profileImages/u1"))

	url, err := s.DownloadURL(ctx, "profileImages/u1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, srv.URL+"/avatars/profileImages/u1?"), url)
	assert.Contains(t, url, "X-Amz-Expires=600")
}
