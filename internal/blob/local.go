package blob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Local keeps objects on the filesystem under basePath and serves them at
// baseURL + "/" + path.  The content type is kept in a sidecar file.
type Local struct {
	basePath string
	baseURL  string
}

// NewLocal creates basePath if needed.
func NewLocal(basePath, baseURL string) (*Local, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &Local{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

const typeSuffix = ".content-type"

// Upload writes data at path, replacing any previous object.
func (s *Local) Upload(_ context.Context, path string, data []byte, contentType string) error {
	full, err := s.safeJoin(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		if rerr := os.Remove(tmp); rerr != nil {
			slog.Error("failed to remove temp file", "error", rerr)
		}
		return fmt.Errorf("failed to move file: %w", err)
	}
	if err := os.WriteFile(full+typeSuffix, []byte(contentType), 0o644); err != nil {
		return fmt.Errorf("failed to write content type: %w", err)
	}
	return nil
}

// DownloadURL returns the public URL of path.
func (s *Local) DownloadURL(_ context.Context, path string) (string, error) {
	full, err := s.safeJoin(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	parts := strings.Split(filepath.ToSlash(path), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.baseURL + "/" + strings.Join(parts, "/"), nil
}

// Open returns the object at path and its content type.
func (s *Local) Open(_ context.Context, path string) (io.ReadCloser, string, error) {
	full, err := s.safeJoin(path)
	if err != nil {
		return nil, "", err
	}
	if strings.HasSuffix(full, typeSuffix) || strings.HasSuffix(full, ".tmp") {
		return nil, "", ErrNotFound
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	ct := "application/octet-stream"
	if b, err := os.ReadFile(full + typeSuffix); err == nil && len(b) > 0 {
		ct = string(b)
	}
	return f, ct, nil
}

// safeJoin resolves path relative to basePath and rejects directory traversal.
func (s *Local) safeJoin(path string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(s.basePath, path))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}
