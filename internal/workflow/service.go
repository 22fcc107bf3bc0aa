package workflow

import (
	"context"
	"errors"
	"time"

	"benefits-backend/internal/decisions"
	"benefits-backend/internal/documents"
	"benefits-backend/internal/queue"
	"benefits-backend/internal/shared/metrics"
	"benefits-backend/internal/shared/telemetry"
)

// Service implements the submission gate and the workflow status
// aggregator on top of the document store.
type Service struct {
	Docs      documents.Repo
	Decisions decisions.Repo
	Queue     queue.Client
}

// SubmitAll moves every document in (user, application) scope to SUBMITTED
// and enqueues a processing job per document. The gate requires all
// required document types to be present. Per-record failures are collected
// and reported, not fail-fast: one record's failure never prevents
// attempting the others. Records already past SUBMITTED are skipped, never
// regressed.
func (s *Service) SubmitAll(ctx context.Context, userID, applicationID, requestID string) (SubmitResult, error) {
	if userID == "" || applicationID == "" {
		return SubmitResult{}, documents.ErrInvalidInput
	}

	docs, err := s.Docs.ListByScope(ctx, userID, applicationID)
	if err != nil {
		return SubmitResult{}, &documents.StorageError{Op: "list documents", Err: err}
	}

	if missing := missingRequired(docs); len(missing) > 0 {
		return SubmitResult{}, &MissingRequiredError{Missing: missing}
	}

	var result SubmitResult
	for _, doc := range docs {
		if doc.Status.PastSubmission() {
			result.Skipped = append(result.Skipped, doc)
			continue
		}

		updated, err := s.Docs.UpdateStatus(ctx, doc.ID, documents.StatusSubmitted)
		if err != nil {
			result.Failed = append(result.Failed, SubmitFailure{DocumentID: doc.ID, Error: err.Error()})
			continue
		}
		result.Submitted = append(result.Submitted, updated)
		metrics.IncDocumentsSubmitted()

		s.enqueue(ctx, updated, requestID)
	}

	return result, nil
}

// Summarize computes the aggregate view of one application: status bucket
// counts, a per-type detail map, and the derived stage/progress. It has no
// side effects and reads each record as one atomic fetch from the store.
func (s *Service) Summarize(ctx context.Context, userID, applicationID string) (Summary, error) {
	if userID == "" || applicationID == "" {
		return Summary{}, documents.ErrInvalidInput
	}

	docs, err := s.Docs.ListByScope(ctx, userID, applicationID)
	if err != nil {
		return Summary{}, &documents.StorageError{Op: "list documents", Err: err}
	}

	summary := Summary{
		ApplicationID: applicationID,
		Total:         len(docs),
		Documents:     make(map[string]DocumentDetail, len(docs)),
	}

	// docs is newest-first, so the first record seen per type is the
	// current one.
	current := make(map[documents.DocType]documents.Document, len(docs))
	for _, doc := range docs {
		summary.Counts.add(doc.Status)
		if _, ok := current[doc.DocType]; !ok {
			current[doc.DocType] = doc
			summary.Documents[string(doc.DocType)] = DocumentDetail{
				DocumentID:  doc.ID,
				FileName:    doc.FileName,
				Status:      string(doc.Status),
				SizeBytes:   doc.SizeBytes,
				MimeType:    doc.MimeType,
				UploadedAt:  doc.UploadedAt,
				SubmittedAt: doc.SubmittedAt,
				ProcessedAt: doc.ProcessedAt,
			}
		}
	}

	summary.Stage = deriveStage(current)

	if s.Decisions != nil {
		decision, err := s.Decisions.GetByApplication(ctx, userID, applicationID)
		switch {
		case err == nil:
			summary.Stage = StageDecision
			summary.Decision = &DecisionDetail{
				Outcome:    string(decision.Outcome),
				Reason:     decision.Reason,
				Confidence: decision.Confidence,
				DecidedAt:  decision.CreatedAt,
			}
		case !errors.Is(err, decisions.ErrNotFound):
			return Summary{}, &documents.StorageError{Op: "lookup decision", Err: err}
		}
	}

	summary.Progress = summary.Stage.Progress()
	return summary, nil
}

func (c *StatusCounts) add(status documents.Status) {
	switch status {
	case documents.StatusUploaded, documents.StatusReset:
		c.Uploaded++
	case documents.StatusSubmitted:
		c.Submitted++
	case documents.StatusProcessing:
		c.Processing++
	case documents.StatusProcessed:
		c.Processed++
	case documents.StatusError:
		c.Error++
	}
}

// deriveStage is monotone in the least-advanced required document: the
// application cannot report past the stage its slowest required type has
// reached.
func deriveStage(current map[documents.DocType]documents.Document) Stage {
	overall := StageAnalysisComplete
	for _, docType := range documents.RequiredTypes() {
		doc, ok := current[docType]
		if !ok {
			return StageDraft
		}
		overall = minStage(overall, documentStage(doc.Status))
	}
	return overall
}

func documentStage(status documents.Status) Stage {
	switch status {
	case documents.StatusUploaded, documents.StatusReset:
		return StageDocumentsUploaded
	case documents.StatusSubmitted:
		return StageSubmitted
	case documents.StatusProcessing, documents.StatusError:
		return StageProcessing
	case documents.StatusProcessed:
		return StageAnalysisComplete
	}
	return StageDraft
}

func missingRequired(docs []documents.Document) []documents.DocType {
	present := make(map[documents.DocType]bool, len(docs))
	for _, doc := range docs {
		present[doc.DocType] = true
	}
	var missing []documents.DocType
	for _, docType := range documents.RequiredTypes() {
		if !present[docType] {
			missing = append(missing, docType)
		}
	}
	return missing
}

func (s *Service) enqueue(ctx context.Context, doc documents.Document, requestID string) {
	if s.Queue == nil {
		return
	}
	msg := queue.Message{
		DocumentID:    doc.ID,
		UserID:        doc.UserID,
		ApplicationID: doc.ApplicationID,
		RequestID:     requestID,
		EnqueuedAt:    time.Now().UTC().Format(time.RFC3339),
		Version:       1,
	}
	// The submit result is authoritative; a lost job is re-enqueued by a
	// later resubmit or an operator, so enqueue failures are only logged.
	if err := s.Queue.Send(ctx, msg); err != nil {
		telemetry.Warn("enqueue processing job failed", map[string]any{
			"document_id":    doc.ID,
			"application_id": doc.ApplicationID,
			"error":          err.Error(),
		})
	}
}
