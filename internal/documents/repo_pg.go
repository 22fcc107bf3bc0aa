package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

const documentColumns = `id, user_id, application_id, doc_type, file_name, storage_key, size_bytes, mime_type, status, uploaded_at, submitted_at, processed_at, ocr_text, analysis_result, confidence_score`

// PGRepo implements Repo using Postgres. Every mutation is a single UPDATE
// so the status/timestamp/artifact invariants are applied atomically.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id, user_id, application_id, doc_type, file_name, storage_key,
    size_bytes, mime_type, status, uploaded_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())`

	var appID sql.NullString
	if doc.ApplicationID != "" {
		appID = sql.NullString{String: doc.ApplicationID, Valid: true}
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.UserID,
		appID,
		string(doc.DocType),
		doc.FileName,
		doc.StorageKey,
		doc.SizeBytes,
		doc.MimeType,
		string(doc.Status),
		doc.UploadedAt,
	)
	return err
}

// GetByID fetches a document by ID.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	const query = `
SELECT ` + documentColumns + `
FROM documents
WHERE id = $1
LIMIT 1`
	return scanDocument(r.DB.QueryRowContext(ctx, query, id))
}

// GetCurrentByType returns the newest record for (user, type, application).
func (r *PGRepo) GetCurrentByType(ctx context.Context, userID string, docType DocType, applicationID string) (Document, error) {
	const query = `
SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1 AND doc_type = $2 AND application_id IS NOT DISTINCT FROM $3
ORDER BY uploaded_at DESC, id
LIMIT 1`
	var appID sql.NullString
	if applicationID != "" {
		appID = sql.NullString{String: applicationID, Valid: true}
	}
	return scanDocument(r.DB.QueryRowContext(ctx, query, userID, string(docType), appID))
}

// ListByScope lists a user's documents, optionally narrowed to an
// application, newest first.
func (r *PGRepo) ListByScope(ctx context.Context, userID, applicationID string) ([]Document, error) {
	query := `
SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1
ORDER BY uploaded_at DESC, id`
	args := []any{userID}
	if applicationID != "" {
		query = `
SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1 AND application_id = $2
ORDER BY uploaded_at DESC, id`
		args = append(args, applicationID)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// UpdateStatus transitions a document's status, stamping submitted_at /
// processed_at only on first entry into the corresponding states.
func (r *PGRepo) UpdateStatus(ctx context.Context, id string, status Status) (Document, error) {
	if !status.Valid() {
		return Document{}, ErrInvalidInput
	}
	const query = `
UPDATE documents
SET status = $1,
    submitted_at = CASE WHEN $1 = 'SUBMITTED' AND submitted_at IS NULL THEN now() ELSE submitted_at END,
    processed_at = CASE WHEN $1 IN ('PROCESSED', 'ERROR') AND processed_at IS NULL THEN now() ELSE processed_at END,
    updated_at = now()
WHERE id = $2
RETURNING ` + documentColumns
	return scanDocument(r.DB.QueryRowContext(ctx, query, string(status), id))
}

// Replace overwrites file metadata and resets all processing state in a
// single statement.
func (r *PGRepo) Replace(ctx context.Context, id, fileName, storageKey string, sizeBytes int64, mimeType string) (Document, error) {
	const query = `
UPDATE documents
SET file_name = $1,
    storage_key = $2,
    size_bytes = $3,
    mime_type = $4,
    status = 'UPLOADED',
    uploaded_at = now(),
    submitted_at = NULL,
    processed_at = NULL,
    ocr_text = NULL,
    analysis_result = NULL,
    confidence_score = NULL,
    updated_at = now()
WHERE id = $5
RETURNING ` + documentColumns
	return scanDocument(r.DB.QueryRowContext(ctx, query, fileName, storageKey, sizeBytes, mimeType, id))
}

// SetArtifacts attaches processing results to a document.
func (r *PGRepo) SetArtifacts(ctx context.Context, id string, ocrText string, result json.RawMessage, confidence float64) (Document, error) {
	const query = `
UPDATE documents
SET ocr_text = $1,
    analysis_result = $2,
    confidence_score = $3,
    updated_at = now()
WHERE id = $4
RETURNING ` + documentColumns
	var payload any
	if result != nil {
		payload = string(result)
	}
	return scanDocument(r.DB.QueryRowContext(ctx, query, ocrText, payload, confidence, id))
}

// ClearProcessing resets a document for re-processing, preserving file
// metadata and upload/submission timestamps.
func (r *PGRepo) ClearProcessing(ctx context.Context, id string) (Document, error) {
	const query = `
UPDATE documents
SET status = 'RESET',
    processed_at = NULL,
    ocr_text = NULL,
    analysis_result = NULL,
    confidence_score = NULL,
    updated_at = now()
WHERE id = $1
RETURNING ` + documentColumns
	return scanDocument(r.DB.QueryRowContext(ctx, query, id))
}

// Delete removes a document, reporting whether a row existed.
func (r *PGRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc        Document
		appID      sql.NullString
		docType    string
		status     string
		submitted  sql.NullTime
		processed  sql.NullTime
		ocrText    sql.NullString
		result     sql.NullString
		confidence sql.NullFloat64
	)
	err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&appID,
		&docType,
		&doc.FileName,
		&doc.StorageKey,
		&doc.SizeBytes,
		&doc.MimeType,
		&status,
		&doc.UploadedAt,
		&submitted,
		&processed,
		&ocrText,
		&result,
		&confidence,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	if appID.Valid {
		doc.ApplicationID = appID.String
	}
	doc.DocType = DocType(docType)
	doc.Status = Status(status)
	if submitted.Valid {
		t := submitted.Time
		doc.SubmittedAt = &t
	}
	if processed.Valid {
		t := processed.Time
		doc.ProcessedAt = &t
	}
	if ocrText.Valid {
		s := ocrText.String
		doc.OCRText = &s
	}
	if result.Valid {
		doc.AnalysisResult = json.RawMessage(result.String)
	}
	if confidence.Valid {
		v := confidence.Float64
		doc.ConfidenceScore = &v
	}
	return doc, nil
}

var _ Repo = (*PGRepo)(nil)
