package ocr

import (
	"context"
	"errors"
)

// Result is the outcome of one extraction: the recovered text and a
// confidence score in [0,1].
type Result struct {
	Text       string
	Confidence float64
}

// Engine extracts text from an uploaded document payload.
type Engine interface {
	Extract(ctx context.Context, data []byte, mimeType string, fileName string) (Result, error)
}

// ErrUnsupportedFormat is returned when a payload's format cannot be read.
var ErrUnsupportedFormat = errors.New("unsupported document format")
