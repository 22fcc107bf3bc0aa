package workflow

import (
	"fmt"
	"strings"
	"time"

	"benefits-backend/internal/documents"
)

// Stage is the derived, monotonic summary of how far an application has
// advanced through upload → submit → OCR/analysis → decision.
type Stage string

const (
	StageDraft             Stage = "draft"
	StageDocumentsUploaded Stage = "documents_uploaded"
	StageSubmitted         Stage = "submitted"
	StageProcessing        Stage = "processing"
	StageAnalysisComplete  Stage = "analysis_complete"
	StageDecision          Stage = "decision"
)

var stageOrder = map[Stage]int{
	StageDraft:             0,
	StageDocumentsUploaded: 1,
	StageSubmitted:         2,
	StageProcessing:        3,
	StageAnalysisComplete:  4,
	StageDecision:          5,
}

// Progress maps a stage to an overall percentage.
func (s Stage) Progress() int {
	switch s {
	case StageDraft:
		return 0
	case StageDocumentsUploaded:
		return 20
	case StageSubmitted:
		return 40
	case StageProcessing:
		return 60
	case StageAnalysisComplete:
		return 80
	case StageDecision:
		return 100
	}
	return 0
}

func minStage(a, b Stage) Stage {
	if stageOrder[b] < stageOrder[a] {
		return b
	}
	return a
}

// StatusCounts buckets an application's documents by status. RESET
// documents count as uploaded: they await resubmission exactly like a
// fresh upload.
type StatusCounts struct {
	Uploaded   int `json:"uploaded"`
	Submitted  int `json:"submitted"`
	Processing int `json:"processing"`
	Processed  int `json:"processed"`
	Error      int `json:"error"`
}

// DocumentDetail is the per-type entry of a summary.
type DocumentDetail struct {
	DocumentID  string     `json:"documentId"`
	FileName    string     `json:"fileName"`
	Status      string     `json:"status"`
	SizeBytes   int64      `json:"sizeBytes"`
	MimeType    string     `json:"mimeType"`
	UploadedAt  time.Time  `json:"uploadedAt"`
	SubmittedAt *time.Time `json:"submittedAt"`
	ProcessedAt *time.Time `json:"processedAt"`
}

// DecisionDetail reports the application's decision artifact, when present.
type DecisionDetail struct {
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	Confidence float64   `json:"confidence"`
	DecidedAt  time.Time `json:"decidedAt"`
}

// Summary is the aggregate view of one application's workflow state. It is
// a pure read-side projection of the document store.
type Summary struct {
	ApplicationID string                    `json:"applicationId"`
	Total         int                       `json:"total"`
	Counts        StatusCounts              `json:"counts"`
	Documents     map[string]DocumentDetail `json:"documents"`
	Stage         Stage                     `json:"stage"`
	Progress      int                       `json:"progress"`
	Decision      *DecisionDetail           `json:"decision,omitempty"`
}

// SubmitFailure records one document that could not be submitted.
type SubmitFailure struct {
	DocumentID string `json:"documentId"`
	Error      string `json:"error"`
}

// SubmitResult reports the per-record outcome of a bulk submit. Skipped
// records were already past SUBMITTED and are left untouched.
type SubmitResult struct {
	Submitted []documents.Document
	Skipped   []documents.Document
	Failed    []SubmitFailure
}

// MissingRequiredError rejects a submit when a required document type has
// not been uploaded yet. It unwraps to the documents validation error so
// handlers map it to a 400.
type MissingRequiredError struct {
	Missing []documents.DocType
}

func (e *MissingRequiredError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, t := range e.Missing {
		parts = append(parts, string(t))
	}
	return fmt.Sprintf("missing required document types: %s", strings.Join(parts, ", "))
}

func (e *MissingRequiredError) Unwrap() error {
	return documents.ErrInvalidInput
}
