package documents

import (
	"context"
	"encoding/json"
)

// Repo defines persistence operations for documents.
//
// Mutations on a single record are atomic: a concurrent reader never sees a
// status change without the matching timestamp/artifact changes. Timestamp
// stamping rules live in UpdateStatus: entering SUBMITTED sets submitted_at
// if unset, entering PROCESSED or ERROR sets processed_at if unset.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, id string) (Document, error)
	// GetCurrentByType returns the most recent record for
	// (user, type, application), the single source of truth for "does this
	// user currently have a document of this type".
	GetCurrentByType(ctx context.Context, userID string, docType DocType, applicationID string) (Document, error)
	ListByScope(ctx context.Context, userID, applicationID string) ([]Document, error)
	UpdateStatus(ctx context.Context, id string, status Status) (Document, error)
	// Replace overwrites file metadata and atomically resets status to
	// UPLOADED, nulling submitted_at, processed_at and all artifacts.
	Replace(ctx context.Context, id, fileName, storageKey string, sizeBytes int64, mimeType string) (Document, error)
	SetArtifacts(ctx context.Context, id string, ocrText string, result json.RawMessage, confidence float64) (Document, error)
	// ClearProcessing implements reset: status becomes RESET and
	// processed_at plus all artifacts are nulled in one step, while file
	// metadata, uploaded_at and submitted_at are preserved.
	ClearProcessing(ctx context.Context, id string) (Document, error)
	// Delete removes the record, reporting found=false when it did not
	// exist so callers can treat "already gone" as success.
	Delete(ctx context.Context, id string) (bool, error)
}
