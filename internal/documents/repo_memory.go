package documents

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo used in dev mode and
// tests. All mutations happen under one lock and documents are stored by
// value, so readers always observe a record's fields from a single version.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Document // id -> document
	now  func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Document),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new document.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !doc.Status.Valid() || !doc.DocType.Valid() {
		return ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[doc.ID] = doc
	return nil
}

// GetByID returns a document by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// GetCurrentByType returns the newest record for (user, type, application).
func (r *MemoryRepo) GetCurrentByType(ctx context.Context, userID string, docType DocType, applicationID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var (
		found   bool
		current Document
	)
	for _, doc := range r.data {
		if doc.UserID != userID || doc.DocType != docType || doc.ApplicationID != applicationID {
			continue
		}
		if !found || doc.UploadedAt.After(current.UploadedAt) {
			current = doc
			found = true
		}
	}
	if !found {
		return Document{}, ErrNotFound
	}
	return current, nil
}

// ListByScope returns documents for a user, optionally filtered to one
// application, newest first.
func (r *MemoryRepo) ListByScope(ctx context.Context, userID, applicationID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Document, 0)
	for _, doc := range r.data {
		if doc.UserID != userID {
			continue
		}
		if applicationID != "" && doc.ApplicationID != applicationID {
			continue
		}
		out = append(out, doc)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out, nil
}

// UpdateStatus transitions a document's status, stamping submitted_at and
// processed_at on first entry into the corresponding states.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, id string, status Status) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if !status.Valid() {
		return Document{}, ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc.Status = status
	now := r.now()
	if status == StatusSubmitted && doc.SubmittedAt == nil {
		doc.SubmittedAt = &now
	}
	if (status == StatusProcessed || status == StatusError) && doc.ProcessedAt == nil {
		doc.ProcessedAt = &now
	}
	r.data[id] = doc
	return doc, nil
}

// Replace overwrites file metadata and resets the processing state in one
// locked mutation.
func (r *MemoryRepo) Replace(ctx context.Context, id, fileName, storageKey string, sizeBytes int64, mimeType string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc.FileName = fileName
	doc.StorageKey = storageKey
	doc.SizeBytes = sizeBytes
	doc.MimeType = mimeType
	doc.Status = StatusUploaded
	doc.UploadedAt = r.now()
	doc.SubmittedAt = nil
	doc.ProcessedAt = nil
	doc.OCRText = nil
	doc.AnalysisResult = nil
	doc.ConfidenceScore = nil
	r.data[id] = doc
	return doc, nil
}

// SetArtifacts attaches processing results to a document.
func (r *MemoryRepo) SetArtifacts(ctx context.Context, id string, ocrText string, result json.RawMessage, confidence float64) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc.OCRText = &ocrText
	if result != nil {
		doc.AnalysisResult = append(json.RawMessage(nil), result...)
	}
	doc.ConfidenceScore = &confidence
	r.data[id] = doc
	return doc, nil
}

// ClearProcessing resets a document for re-processing, keeping the file
// payload metadata and upload/submission timestamps.
func (r *MemoryRepo) ClearProcessing(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc.Status = StatusReset
	doc.ProcessedAt = nil
	doc.OCRText = nil
	doc.AnalysisResult = nil
	doc.ConfidenceScore = nil
	r.data[id] = doc
	return doc, nil
}

// Delete removes a document, reporting whether it existed.
func (r *MemoryRepo) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return false, nil
	}
	delete(r.data, id)
	return true, nil
}

var _ Repo = (*MemoryRepo)(nil)
