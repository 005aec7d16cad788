// Package file stores uploads on the local filesystem.
package file

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/gtfs-pathways/pkg/storage"
)

const scheme = "file://"

type Storage struct {
	root   string
	logger *slog.Logger
}

// NewStorage creates a storage rooted at root, creating the directory when missing.
func NewStorage(root string, logger *slog.Logger) (*Storage, error) {
	absolute, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path: %w", err)
	}

	err = os.MkdirAll(absolute, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &Storage{root: absolute, logger: logger.With("module", "file_storage")}, nil
}

func (s *Storage) Upload(ctx context.Context, filePath, _ string, body io.Reader) (string, error) {
	target := filepath.Join(s.root, filepath.FromSlash(filePath))

	if !s.contains(target) {
		return "", fmt.Errorf("%w: %s", storage.ErrInvalidLocation, filePath)
	}

	err := os.MkdirAll(filepath.Dir(target), 0o755)
	if err != nil {
		return "", fmt.Errorf("failed to create folder for %s: %w", filePath, err)
	}

	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filePath, err)
	}

	_, err = io.Copy(out, body)
	if err != nil {
		_ = out.Close()
		_ = os.Remove(target)

		return "", fmt.Errorf("failed to write %s: %w", filePath, err)
	}

	err = out.Close()
	if err != nil {
		return "", fmt.Errorf("failed to close %s: %w", filePath, err)
	}

	s.logger.DebugContext(ctx, "file stored", "path", target)

	return scheme + filepath.ToSlash(target), nil
}

func (s *Storage) Open(_ context.Context, remoteURL string) (*storage.FileHandle, error) {
	unescaped, err := url.PathUnescape(remoteURL)
	if err != nil || !strings.HasPrefix(unescaped, scheme) {
		return nil, fmt.Errorf("%w: %s", storage.ErrInvalidLocation, remoteURL)
	}

	target := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(unescaped, scheme)))
	if !s.contains(target) {
		return nil, fmt.Errorf("%w: %s", storage.ErrInvalidLocation, remoteURL)
	}

	f, err := os.Open(target)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", target, err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(target))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return &storage.FileHandle{
		FileName: filepath.Base(target),
		MimeType: mimeType,
		Body:     f,
	}, nil
}

func (s *Storage) contains(target string) bool {
	rel, err := filepath.Rel(s.root, target)

	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}
