package object

import (
	"context"
	"io"
)

// ObjectStore defines the contract for saving, retrieving and removing
// binary objects. Delete is best-effort from the caller's point of view:
// lifecycle operations log a failed delete and continue.
type ObjectStore interface {
	Save(ctx context.Context, userId string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}
