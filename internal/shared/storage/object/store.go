package object

import (
	"context"
	"io"
)

// ObjectStore saves and retrieves uploaded files. Keys are grouped under a
// namespace, normally the owning screening ID.
type ObjectStore interface {
	Save(ctx context.Context, namespace string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}
