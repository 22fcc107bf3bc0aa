package documents

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"benefits-backend/internal/shared/storage/object"
	"benefits-backend/internal/shared/telemetry"
)

// Service is the document lifecycle manager: it coordinates record
// mutations with the backing file payload so the two are never orphaned
// relative to each other. Record-side invariants always take precedence
// over file cleanup, which is best-effort and only logged on failure.
type Service struct {
	Repo  Repo
	Store object.ObjectStore
}

// Upload stores the file bytes and creates a document record, or replaces
// the current record of the same (user, type, application) scope if one
// exists. Replace keeps the record identity and atomically resets status
// and all processing artifacts.
func (s *Service) Upload(ctx context.Context, userID string, docType DocType, applicationID, fileName string, r io.Reader) (Document, error) {
	if userID == "" || fileName == "" {
		return Document{}, ErrInvalidInput
	}
	if !docType.Valid() {
		return Document{}, ErrInvalidInput
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, userID, fileName, r)
	if err != nil {
		return Document{}, &StorageError{Op: "save payload", Err: err}
	}

	existing, err := s.Repo.GetCurrentByType(ctx, userID, docType, applicationID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.cleanupPayload(ctx, storageKey)
		return Document{}, &StorageError{Op: "lookup current document", Err: err}
	}

	if err == nil {
		// Replace path: drop the superseded payload first. A failed
		// delete leaves stale bytes behind but never blocks the upload.
		s.cleanupPayload(ctx, existing.StorageKey)

		updated, err := s.Repo.Replace(ctx, existing.ID, fileName, storageKey, size, mimeType)
		if err != nil {
			s.cleanupPayload(ctx, storageKey)
			if errors.Is(err, ErrNotFound) {
				return Document{}, ErrNotFound
			}
			return Document{}, &StorageError{Op: "replace document", Err: err}
		}
		return updated, nil
	}

	doc := Document{
		ID:            uuid.NewString(),
		UserID:        userID,
		ApplicationID: applicationID,
		DocType:       docType,
		FileName:      fileName,
		StorageKey:    storageKey,
		SizeBytes:     size,
		MimeType:      mimeType,
		Status:        StatusUploaded,
		UploadedAt:    time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		// Roll back the payload so a retry starts clean; no orphan record
		// exists because the insert failed.
		s.cleanupPayload(ctx, storageKey)
		return Document{}, &StorageError{Op: "create document", Err: err}
	}

	return doc, nil
}

// Get returns a document visible to the given user.
func (s *Service) Get(ctx context.Context, userID, id string) (Document, error) {
	if userID == "" || id == "" {
		return Document{}, ErrInvalidInput
	}
	doc, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if doc.UserID != userID {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

// List returns the user's documents, optionally scoped to an application.
func (s *Service) List(ctx context.Context, userID, applicationID string) ([]Document, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByScope(ctx, userID, applicationID)
}

// Reset discards a document's processing state so OCR and analysis can run
// again without a re-upload. The file payload and the upload/submission
// timestamps are preserved.
func (s *Service) Reset(ctx context.Context, userID, id string) (Document, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return Document{}, err
	}
	doc, err := s.Repo.ClearProcessing(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Document{}, ErrNotFound
		}
		return Document{}, &StorageError{Op: "reset document", Err: err}
	}
	return doc, nil
}

// Delete removes the payload (best-effort) and the record. It reports
// found=false for an unknown or already-deleted id.
func (s *Service) Delete(ctx context.Context, userID, id string) (bool, error) {
	doc, err := s.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	s.cleanupPayload(ctx, doc.StorageKey)

	found, err := s.Repo.Delete(ctx, id)
	if err != nil {
		return false, &StorageError{Op: "delete document", Err: err}
	}
	return found, nil
}

func (s *Service) cleanupPayload(ctx context.Context, storageKey string) {
	if storageKey == "" {
		return
	}
	if err := s.Store.Delete(ctx, storageKey); err != nil {
		telemetry.Warn("file cleanup failed", map[string]any{
			"storage_key": storageKey,
			"error":       err.Error(),
		})
	}
}
