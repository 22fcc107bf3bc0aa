package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMock(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func documentRows(doc Document) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "application_id", "doc_type", "file_name", "storage_key",
		"size_bytes", "mime_type", "status", "uploaded_at", "submitted_at",
		"processed_at", "ocr_text", "analysis_result", "confidence_score",
	})
	var appID, ocr, result any
	var submitted, processed any
	if doc.ApplicationID != "" {
		appID = doc.ApplicationID
	}
	if doc.SubmittedAt != nil {
		submitted = *doc.SubmittedAt
	}
	if doc.ProcessedAt != nil {
		processed = *doc.ProcessedAt
	}
	if doc.OCRText != nil {
		ocr = *doc.OCRText
	}
	if doc.AnalysisResult != nil {
		result = string(doc.AnalysisResult)
	}
	var confidence any
	if doc.ConfidenceScore != nil {
		confidence = *doc.ConfidenceScore
	}
	rows.AddRow(
		doc.ID, doc.UserID, appID, string(doc.DocType), doc.FileName, doc.StorageKey,
		doc.SizeBytes, doc.MimeType, string(doc.Status), doc.UploadedAt, submitted,
		processed, ocr, result, confidence,
	)
	return rows
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMock(t)
	doc := Document{
		ID:            "doc-1",
		UserID:        "user-1",
		ApplicationID: "app-1",
		DocType:       TypeBankStatement,
		FileName:      "statement.pdf",
		StorageKey:    "user-1/statement.pdf",
		SizeBytes:     1024,
		MimeType:      "application/pdf",
		Status:        StatusUploaded,
		UploadedAt:    time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(
			doc.ID,
			doc.UserID,
			sql.NullString{String: "app-1", Valid: true},
			string(TypeBankStatement),
			doc.FileName,
			doc.StorageKey,
			doc.SizeBytes,
			doc.MimeType,
			string(StatusUploaded),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateStatusStampsSubmittedAt(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	expected := Document{
		ID:          "doc-1",
		UserID:      "user-1",
		DocType:     TypeBankStatement,
		FileName:    "statement.pdf",
		StorageKey:  "k",
		Status:      StatusSubmitted,
		UploadedAt:  now,
		SubmittedAt: &now,
	}

	mock.ExpectQuery("UPDATE documents").
		WithArgs(string(StatusSubmitted), "doc-1").
		WillReturnRows(documentRows(expected))

	doc, err := repo.UpdateStatus(context.Background(), "doc-1", StatusSubmitted)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if doc.Status != StatusSubmitted {
		t.Fatalf("expected SUBMITTED, got %s", doc.Status)
	}
	if doc.SubmittedAt == nil {
		t.Fatalf("expected submitted_at set")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateStatusRejectsUnknownStatus(t *testing.T) {
	repo, _ := newMock(t)
	if _, err := repo.UpdateStatus(context.Background(), "doc-1", Status("BOGUS")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPGRepoUpdateStatusNotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("UPDATE documents").
		WithArgs(string(StatusProcessing), "missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.UpdateStatus(context.Background(), "missing", StatusProcessing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoReplaceClearsArtifacts(t *testing.T) {
	repo, mock := newMock(t)
	expected := Document{
		ID:         "doc-1",
		UserID:     "user-1",
		DocType:    TypeBankStatement,
		FileName:   "v2.pdf",
		StorageKey: "user-1/v2.pdf",
		SizeBytes:  2048,
		MimeType:   "application/pdf",
		Status:     StatusUploaded,
		UploadedAt: time.Now().UTC(),
	}

	mock.ExpectQuery("UPDATE documents").
		WithArgs("v2.pdf", "user-1/v2.pdf", int64(2048), "application/pdf", "doc-1").
		WillReturnRows(documentRows(expected))

	doc, err := repo.Replace(context.Background(), "doc-1", "v2.pdf", "user-1/v2.pdf", 2048, "application/pdf")
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if doc.Status != StatusUploaded {
		t.Fatalf("expected UPLOADED, got %s", doc.Status)
	}
	if doc.SubmittedAt != nil || doc.ProcessedAt != nil || doc.OCRText != nil || doc.AnalysisResult != nil || doc.ConfidenceScore != nil {
		t.Fatalf("expected processing state cleared")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoSetArtifacts(t *testing.T) {
	repo, mock := newMock(t)
	text := "extracted"
	conf := 92.0
	raw := json.RawMessage(`{"income":1200}`)
	expected := Document{
		ID:              "doc-1",
		UserID:          "user-1",
		DocType:         TypeBankStatement,
		FileName:        "statement.pdf",
		StorageKey:      "k",
		Status:          StatusProcessing,
		UploadedAt:      time.Now().UTC(),
		OCRText:         &text,
		AnalysisResult:  raw,
		ConfidenceScore: &conf,
	}

	mock.ExpectQuery("UPDATE documents").
		WithArgs("extracted", `{"income":1200}`, 92.0, "doc-1").
		WillReturnRows(documentRows(expected))

	doc, err := repo.SetArtifacts(context.Background(), "doc-1", "extracted", raw, 92.0)
	if err != nil {
		t.Fatalf("SetArtifacts: %v", err)
	}
	if doc.OCRText == nil || *doc.OCRText != "extracted" {
		t.Fatalf("expected ocr text persisted")
	}
	if doc.ConfidenceScore == nil || *doc.ConfidenceScore != 92.0 {
		t.Fatalf("expected confidence persisted")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDeleteReportsFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec("DELETE FROM documents").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM documents").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	found, err := repo.Delete(context.Background(), "doc-1")
	if err != nil || !found {
		t.Fatalf("expected found=true, got found=%v err=%v", found, err)
	}
	found, err = repo.Delete(context.Background(), "doc-1")
	if err != nil || found {
		t.Fatalf("expected found=false, got found=%v err=%v", found, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
