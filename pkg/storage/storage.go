// Package storage defines the object storage abstraction used for uploaded pathways files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const MetaFileName = "meta.json"

// ErrInvalidLocation is returned by Open for URLs the backend does not own.
var ErrInvalidLocation = errors.New("invalid storage location")

// Storage uploads files and reopens them by the URL Upload returned.
type Storage interface {
	Upload(ctx context.Context, filePath, contentType string, body io.Reader) (string, error)
	Open(ctx context.Context, remoteURL string) (*FileHandle, error)
}

// FileHandle is an open stored file. Callers must close Body.
type FileHandle struct {
	FileName string
	MimeType string
	Body     io.ReadCloser
}

func (h *FileHandle) Close() error {
	return h.Body.Close()
}

// NewRecordID generates a record id: a random UUID without hyphens.
func NewRecordID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// FolderPath is the logical folder of one upload, derived from the upload time.
func FolderPath(now time.Time, projectGroupID, recordID string) string {
	return fmt.Sprintf("%d/%d/%s/%s", now.Year(), int(now.Month()), projectGroupID, recordID)
}

func FilePath(folder, name string) string {
	return path.Join(folder, path.Base(name))
}
