package documents

import "errors"

var (
	// ErrNotFound means the referenced document does not exist (or is not
	// visible to the calling user).
	ErrNotFound = errors.New("document not found")
	// ErrInvalidInput means the request was rejected before any mutation.
	ErrInvalidInput = errors.New("invalid input")
)

// StorageError wraps a persistence failure. Operations roll back partial
// state before returning one, so callers may retry the whole call.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
