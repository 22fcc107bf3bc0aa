package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"benefits-backend/internal/analysis"
	"benefits-backend/internal/decisions"
	"benefits-backend/internal/documents"
	"benefits-backend/internal/ocr"
	"benefits-backend/internal/queue"
	"benefits-backend/internal/shared/metrics"
	"benefits-backend/internal/shared/storage/object"
	"benefits-backend/internal/shared/telemetry"

	"github.com/google/uuid"
)

// Processor runs one queued document through OCR and analysis, stores the
// artifacts, and issues the eligibility decision once every required
// document of the application has been processed.
type Processor struct {
	Docs      documents.Repo
	Decisions decisions.Repo
	Store     object.ObjectStore
	Engine    ocr.Engine
	Analyzer  analysis.Analyzer
	Decider   analysis.Decider
}

// ErrEmptyBody indicates an empty queue payload.
var ErrEmptyBody = errors.New("empty message body")

// ErrMissingDocumentID indicates a message without a document id.
var ErrMissingDocumentID = errors.New("missing document id")

// ParseMessage validates and decodes a queue payload.
func ParseMessage(body string) (queue.Message, error) {
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, ErrEmptyBody
	}
	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, fmt.Errorf("decode message: %w", err)
	}
	if strings.TrimSpace(msg.DocumentID) == "" {
		return msg, ErrMissingDocumentID
	}
	return msg, nil
}

// HandleMessage parses a raw queue payload and processes the document it
// names.
func (p *Processor) HandleMessage(ctx context.Context, body string) error {
	msg, err := ParseMessage(body)
	if err != nil {
		return err
	}
	return p.Process(ctx, msg)
}

// Process runs the pipeline for one document. The record moves to
// PROCESSING first, then to PROCESSED with artifacts set, or to ERROR when
// any step fails. A record no longer in a processable status is skipped:
// the user may have reset or replaced it while the job sat in the queue.
func (p *Processor) Process(ctx context.Context, msg queue.Message) error {
	doc, err := p.Docs.GetByID(ctx, msg.DocumentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			telemetry.Warn("document vanished before processing", map[string]any{
				"request_id":  msg.RequestID,
				"document_id": msg.DocumentID,
			})
			return nil
		}
		return fmt.Errorf("document lookup id=%s: %w", msg.DocumentID, err)
	}

	if doc.Status != documents.StatusSubmitted {
		telemetry.Info("document.skipped", map[string]any{
			"request_id":  msg.RequestID,
			"document_id": doc.ID,
			"status":      string(doc.Status),
		})
		return nil
	}

	startedAt := time.Now().UTC()
	doc, err = p.Docs.UpdateStatus(ctx, doc.ID, documents.StatusProcessing)
	if err != nil {
		return fmt.Errorf("set processing id=%s: %w", doc.ID, err)
	}
	metrics.IncProcessingStarted()
	telemetry.Info("document.status", map[string]any{
		"request_id":        msg.RequestID,
		"user_id":           doc.UserID,
		"document_id":       doc.ID,
		"doc_type":          string(doc.DocType),
		"status":            string(documents.StatusProcessing),
		"status_transition": "submitted->processing",
	})

	ocrRes, raw, err := p.analyzeDocument(ctx, doc)
	if err != nil {
		p.failDocument(ctx, msg, doc, err, startedAt)
		return nil
	}

	if _, err := p.Docs.SetArtifacts(ctx, doc.ID, ocrRes.Text, raw, ocrRes.Confidence); err != nil {
		p.failDocument(ctx, msg, doc, fmt.Errorf("store artifacts: %w", err), startedAt)
		return nil
	}
	if _, err := p.Docs.UpdateStatus(ctx, doc.ID, documents.StatusProcessed); err != nil {
		p.failDocument(ctx, msg, doc, fmt.Errorf("set processed: %w", err), startedAt)
		return nil
	}

	completedAt := time.Now().UTC()
	metrics.IncProcessingDone()
	metrics.ObserveProcessingDurationMs(float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0)
	telemetry.Info("document.status", map[string]any{
		"request_id":        msg.RequestID,
		"user_id":           doc.UserID,
		"document_id":       doc.ID,
		"doc_type":          string(doc.DocType),
		"status":            string(documents.StatusProcessed),
		"status_transition": "processing->processed",
		"duration_ms":       float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0,
	})

	if err := p.maybeDecide(ctx, msg, doc.UserID, doc.ApplicationID); err != nil {
		telemetry.Warn("decision step failed", map[string]any{
			"request_id":     msg.RequestID,
			"user_id":        doc.UserID,
			"application_id": doc.ApplicationID,
			"error":          err.Error(),
		})
	}
	return nil
}

func (p *Processor) analyzeDocument(ctx context.Context, doc documents.Document) (ocr.Result, json.RawMessage, error) {
	body, err := p.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		return ocr.Result{}, nil, fmt.Errorf("open payload key=%s: %w", doc.StorageKey, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return ocr.Result{}, nil, fmt.Errorf("read payload key=%s: %w", doc.StorageKey, err)
	}

	ocrRes, err := p.Engine.Extract(ctx, data, doc.MimeType, doc.FileName)
	if err != nil {
		return ocr.Result{}, nil, fmt.Errorf("ocr: %w", err)
	}

	raw, err := p.Analyzer.Analyze(ctx, analysis.Input{
		DocType:       string(doc.DocType),
		Text:          ocrRes.Text,
		OCRConfidence: ocrRes.Confidence,
	})
	if err != nil {
		return ocr.Result{}, nil, fmt.Errorf("analyze: %w", err)
	}
	return ocrRes, raw, nil
}

// maybeDecide issues the application decision when every required type's
// current record is PROCESSED. Decisions are upserted, so a replaced and
// reprocessed document refreshes the verdict instead of duplicating it.
func (p *Processor) maybeDecide(ctx context.Context, msg queue.Message, userID, applicationID string) error {
	if p.Decider == nil || p.Decisions == nil {
		return nil
	}

	docs, err := p.Docs.ListByScope(ctx, userID, applicationID)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	// docs is newest-first, so the first record per type is the current one.
	current := make(map[documents.DocType]documents.Document, len(docs))
	for _, d := range docs {
		if _, ok := current[d.DocType]; !ok {
			current[d.DocType] = d
		}
	}

	findings := make([]analysis.Finding, 0, len(current))
	for _, docType := range documents.RequiredTypes() {
		d, ok := current[docType]
		if !ok || d.Status != documents.StatusProcessed {
			return nil
		}
		finding := analysis.Finding{DocType: string(docType), Result: d.AnalysisResult}
		if d.ConfidenceScore != nil {
			finding.Confidence = *d.ConfidenceScore
		}
		findings = append(findings, finding)
	}

	verdict, err := p.Decider.Decide(ctx, findings)
	if err != nil {
		return fmt.Errorf("decide: %w", err)
	}

	decision := decisions.Decision{
		ID:            uuid.NewString(),
		UserID:        userID,
		ApplicationID: applicationID,
		Outcome:       decisions.Outcome(verdict.Outcome),
		Reason:        verdict.Reason,
		Confidence:    verdict.Confidence,
		CreatedAt:     time.Now().UTC(),
	}
	if err := p.Decisions.Upsert(ctx, decision); err != nil {
		return fmt.Errorf("store decision: %w", err)
	}
	metrics.IncDecisionsIssued()
	telemetry.Info("decision.issued", map[string]any{
		"request_id":     msg.RequestID,
		"user_id":        userID,
		"application_id": applicationID,
		"outcome":        verdict.Outcome,
		"confidence":     verdict.Confidence,
	})
	return nil
}

func (p *Processor) failDocument(ctx context.Context, msg queue.Message, doc documents.Document, cause error, startedAt time.Time) {
	completedAt := time.Now().UTC()
	if _, err := p.Docs.UpdateStatus(context.WithoutCancel(ctx), doc.ID, documents.StatusError); err != nil {
		telemetry.Error("set error status failed", map[string]any{
			"request_id":  msg.RequestID,
			"document_id": doc.ID,
			"error":       err.Error(),
			"cause":       cause.Error(),
		})
	}
	metrics.IncProcessingFailed()
	metrics.ObserveProcessingDurationMs(float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0)
	telemetry.Info("document.status", map[string]any{
		"request_id":        msg.RequestID,
		"user_id":           doc.UserID,
		"document_id":       doc.ID,
		"doc_type":          string(doc.DocType),
		"status":            string(documents.StatusError),
		"status_transition": "processing->error",
		"error":             cause.Error(),
	})
}
