// Package storage archives raw uploads in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStorage captures the S3-compatible operations the ingest flow needs.
type ObjectStorage interface {
	UploadObject(ctx context.Context, key string, data []byte, contentType string) error
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
	Enabled() bool
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ArchiveKey is <prefix>/<workspace>/<kind>/<utc timestamp>_<file name>.
func ArchiveKey(prefix, workspaceSlug, kind, filename string, at time.Time) string {
	name := unsafeKeyChars.ReplaceAllString(path.Base(strings.ReplaceAll(filename, "\\", "/")), "_")
	name = strings.Trim(name, "_")
	if name == "" || name == "." {
		name = "upload"
	}
	return path.Join(
		strings.Trim(prefix, "/"),
		workspaceSlug,
		kind,
		fmt.Sprintf("%s_%s", at.UTC().Format("20060102T150405Z"), name),
	)
}

type noopStorage struct{}

// NewNoopStorage discards uploads. It is used when archiving is disabled.
func NewNoopStorage() ObjectStorage {
	return noopStorage{}
}

func (noopStorage) UploadObject(ctx context.Context, key string, data []byte, contentType string) error {
	return nil
}

func (noopStorage) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	return nil, nil
}

func (noopStorage) GetObject(ctx context.Context, key string) ([]byte, error) {
	return nil, fmt.Errorf("object storage is disabled")
}

func (noopStorage) Enabled() bool { return false }
