package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"benefits-backend/internal/decisions"
	"benefits-backend/internal/documents"
	"benefits-backend/internal/queue"
)

func seedDoc(t *testing.T, repo *documents.MemoryRepo, id string, docType documents.DocType, status documents.Status, uploadedAt time.Time) documents.Document {
	t.Helper()
	doc := documents.Document{
		ID:            id,
		UserID:        "user-1",
		ApplicationID: "app-1",
		DocType:       docType,
		FileName:      string(docType) + ".pdf",
		StorageKey:    "keys/" + id,
		SizeBytes:     1024,
		MimeType:      "application/pdf",
		Status:        documents.StatusUploaded,
		UploadedAt:    uploadedAt,
	}
	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	if status != documents.StatusUploaded {
		if _, err := repo.UpdateStatus(context.Background(), id, status); err != nil {
			t.Fatalf("advance %s to %s: %v", id, status, err)
		}
	}
	got, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("read back %s: %v", id, err)
	}
	return got
}

func TestSubmitAllRequiresAllTypes(t *testing.T) {
	repo := documents.NewMemoryRepo()
	seedDoc(t, repo, "d1", documents.TypeIdentityDocument, documents.StatusUploaded, time.Now().UTC())

	svc := &Service{Docs: repo, Queue: queue.NewMemoryClient()}
	_, err := svc.SubmitAll(context.Background(), "user-1", "app-1", "req-1")
	if err == nil {
		t.Fatal("expected submit to be rejected when a required type is missing")
	}
	var missing *MissingRequiredError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingRequiredError, got %v", err)
	}
	if len(missing.Missing) != 1 || missing.Missing[0] != documents.TypeBankStatement {
		t.Fatalf("unexpected missing set: %v", missing.Missing)
	}
	if !errors.Is(err, documents.ErrInvalidInput) {
		t.Fatalf("missing-required error should unwrap to invalid input, got %v", err)
	}
}

func TestSubmitAllPromotesAndEnqueues(t *testing.T) {
	repo := documents.NewMemoryRepo()
	now := time.Now().UTC()
	seedDoc(t, repo, "d1", documents.TypeIdentityDocument, documents.StatusUploaded, now)
	seedDoc(t, repo, "d2", documents.TypeBankStatement, documents.StatusReset, now)

	q := queue.NewMemoryClient()
	svc := &Service{Docs: repo, Queue: q}

	result, err := svc.SubmitAll(context.Background(), "user-1", "app-1", "req-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(result.Submitted) != 2 || len(result.Skipped) != 0 || len(result.Failed) != 0 {
		t.Fatalf("unexpected result: submitted=%d skipped=%d failed=%d",
			len(result.Submitted), len(result.Skipped), len(result.Failed))
	}
	for _, doc := range result.Submitted {
		if doc.Status != documents.StatusSubmitted {
			t.Fatalf("document %s left in %s", doc.ID, doc.Status)
		}
		if doc.SubmittedAt == nil {
			t.Fatalf("document %s has no submission timestamp", doc.ID)
		}
	}

	msgs := q.Drain()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 queued jobs, got %d", len(msgs))
	}
	seen := map[string]bool{}
	for _, msg := range msgs {
		seen[msg.DocumentID] = true
		if msg.UserID != "user-1" || msg.ApplicationID != "app-1" || msg.RequestID != "req-1" {
			t.Fatalf("bad message scope: %+v", msg)
		}
	}
	if !seen["d1"] || !seen["d2"] {
		t.Fatalf("queued jobs missing a document: %v", seen)
	}
}

func TestSubmitAllNeverRegresses(t *testing.T) {
	repo := documents.NewMemoryRepo()
	now := time.Now().UTC()
	processed := seedDoc(t, repo, "d1", documents.TypeIdentityDocument, documents.StatusProcessed, now)
	seedDoc(t, repo, "d2", documents.TypeBankStatement, documents.StatusUploaded, now)

	q := queue.NewMemoryClient()
	svc := &Service{Docs: repo, Queue: q}

	result, err := svc.SubmitAll(context.Background(), "user-1", "app-1", "req-2")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(result.Submitted) != 1 || result.Submitted[0].ID != "d2" {
		t.Fatalf("expected only d2 submitted, got %+v", result.Submitted)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].ID != "d1" {
		t.Fatalf("expected d1 skipped, got %+v", result.Skipped)
	}

	after, err := repo.GetByID(context.Background(), "d1")
	if err != nil {
		t.Fatalf("read back d1: %v", err)
	}
	if after.Status != documents.StatusProcessed {
		t.Fatalf("processed document regressed to %s", after.Status)
	}
	if after.ProcessedAt == nil || !after.ProcessedAt.Equal(*processed.ProcessedAt) {
		t.Fatal("processed timestamp was disturbed by resubmit")
	}
	if msgs := q.Drain(); len(msgs) != 1 || msgs[0].DocumentID != "d2" {
		t.Fatalf("expected one job for d2, got %+v", msgs)
	}
}

func TestSubmitAllCollectsPerRecordFailures(t *testing.T) {
	repo := documents.NewMemoryRepo()
	now := time.Now().UTC()
	seedDoc(t, repo, "d1", documents.TypeIdentityDocument, documents.StatusUploaded, now)
	seedDoc(t, repo, "d2", documents.TypeBankStatement, documents.StatusUploaded, now)

	failing := &failingUpdateRepo{MemoryRepo: repo, failID: "d1"}
	svc := &Service{Docs: failing, Queue: queue.NewMemoryClient()}

	result, err := svc.SubmitAll(context.Background(), "user-1", "app-1", "req-3")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(result.Failed) != 1 || result.Failed[0].DocumentID != "d1" {
		t.Fatalf("expected d1 to fail, got %+v", result.Failed)
	}
	if len(result.Submitted) != 1 || result.Submitted[0].ID != "d2" {
		t.Fatalf("one failure should not block the other record, got %+v", result.Submitted)
	}
}

type failingUpdateRepo struct {
	*documents.MemoryRepo
	failID string
}

func (r *failingUpdateRepo) UpdateStatus(ctx context.Context, id string, status documents.Status) (documents.Document, error) {
	if id == r.failID {
		return documents.Document{}, errors.New("update rejected")
	}
	return r.MemoryRepo.UpdateStatus(ctx, id, status)
}

func TestSummarizeCountsAndPerTypeDetails(t *testing.T) {
	repo := documents.NewMemoryRepo()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	seedDoc(t, repo, "d1", documents.TypeIdentityDocument, documents.StatusProcessed, base)
	seedDoc(t, repo, "d2", documents.TypeBankStatement, documents.StatusUploaded, base.Add(time.Minute))

	svc := &Service{Docs: repo, Decisions: decisions.NewMemoryRepo()}
	summary, err := svc.Summarize(context.Background(), "user-1", "app-1")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	if summary.Total != 2 {
		t.Fatalf("total = %d, want 2", summary.Total)
	}
	want := StatusCounts{Uploaded: 1, Processed: 1}
	if summary.Counts != want {
		t.Fatalf("counts = %+v, want %+v", summary.Counts, want)
	}

	identity, ok := summary.Documents[string(documents.TypeIdentityDocument)]
	if !ok {
		t.Fatal("identity document missing from per-type map")
	}
	if identity.DocumentID != "d1" || identity.Status != string(documents.StatusProcessed) {
		t.Fatalf("unexpected identity detail: %+v", identity)
	}
	bank, ok := summary.Documents[string(documents.TypeBankStatement)]
	if !ok {
		t.Fatal("bank statement missing from per-type map")
	}
	if bank.DocumentID != "d2" || bank.Status != string(documents.StatusUploaded) {
		t.Fatalf("unexpected bank detail: %+v", bank)
	}

	// The uploaded bank statement pins the whole application back.
	if summary.Stage != StageDocumentsUploaded || summary.Progress != 20 {
		t.Fatalf("stage = %s/%d, want documents_uploaded/20", summary.Stage, summary.Progress)
	}
}

func TestSummarizeUsesNewestRecordPerType(t *testing.T) {
	repo := documents.NewMemoryRepo()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	seedDoc(t, repo, "old", documents.TypeIdentityDocument, documents.StatusProcessed, base)
	seedDoc(t, repo, "new", documents.TypeIdentityDocument, documents.StatusUploaded, base.Add(time.Hour))
	seedDoc(t, repo, "bank", documents.TypeBankStatement, documents.StatusProcessed, base)

	svc := &Service{Docs: repo}
	summary, err := svc.Summarize(context.Background(), "user-1", "app-1")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	identity := summary.Documents[string(documents.TypeIdentityDocument)]
	if identity.DocumentID != "new" {
		t.Fatalf("per-type map should surface the newest record, got %s", identity.DocumentID)
	}
	if summary.Stage != StageDocumentsUploaded {
		t.Fatalf("stage = %s, want documents_uploaded", summary.Stage)
	}
}

func TestSummarizeStageProgression(t *testing.T) {
	cases := []struct {
		name     string
		identity documents.Status
		bank     documents.Status
		stage    Stage
		progress int
	}{
		{"both uploaded", documents.StatusUploaded, documents.StatusUploaded, StageDocumentsUploaded, 20},
		{"both submitted", documents.StatusSubmitted, documents.StatusSubmitted, StageSubmitted, 40},
		{"one processing", documents.StatusProcessed, documents.StatusProcessing, StageProcessing, 60},
		{"error holds at processing", documents.StatusProcessed, documents.StatusError, StageProcessing, 60},
		{"all processed", documents.StatusProcessed, documents.StatusProcessed, StageAnalysisComplete, 80},
		{"reset pulls back to uploaded", documents.StatusProcessed, documents.StatusReset, StageDocumentsUploaded, 20},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := documents.NewMemoryRepo()
			now := time.Now().UTC()
			seedDoc(t, repo, "d1", documents.TypeIdentityDocument, tc.identity, now)
			seedDoc(t, repo, "d2", documents.TypeBankStatement, tc.bank, now)

			svc := &Service{Docs: repo}
			summary, err := svc.Summarize(context.Background(), "user-1", "app-1")
			if err != nil {
				t.Fatalf("summarize: %v", err)
			}
			if summary.Stage != tc.stage || summary.Progress != tc.progress {
				t.Fatalf("stage = %s/%d, want %s/%d", summary.Stage, summary.Progress, tc.stage, tc.progress)
			}
		})
	}
}

func TestSummarizeMissingRequiredTypeIsDraft(t *testing.T) {
	repo := documents.NewMemoryRepo()
	seedDoc(t, repo, "d1", documents.TypeIdentityDocument, documents.StatusProcessed, time.Now().UTC())

	svc := &Service{Docs: repo}
	summary, err := svc.Summarize(context.Background(), "user-1", "app-1")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.Stage != StageDraft || summary.Progress != 0 {
		t.Fatalf("stage = %s/%d, want draft/0", summary.Stage, summary.Progress)
	}
}

func TestSummarizeDecisionOverridesStage(t *testing.T) {
	repo := documents.NewMemoryRepo()
	now := time.Now().UTC()
	seedDoc(t, repo, "d1", documents.TypeIdentityDocument, documents.StatusProcessed, now)
	seedDoc(t, repo, "d2", documents.TypeBankStatement, documents.StatusProcessed, now)

	decisionRepo := decisions.NewMemoryRepo()
	err := decisionRepo.Upsert(context.Background(), decisions.Decision{
		ID:            "dec-1",
		UserID:        "user-1",
		ApplicationID: "app-1",
		Outcome:       decisions.OutcomeApproved,
		Reason:        "all checks passed",
		Confidence:    0.93,
		CreatedAt:     now,
	})
	if err != nil {
		t.Fatalf("seed decision: %v", err)
	}

	svc := &Service{Docs: repo, Decisions: decisionRepo}
	summary, err := svc.Summarize(context.Background(), "user-1", "app-1")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.Stage != StageDecision || summary.Progress != 100 {
		t.Fatalf("stage = %s/%d, want decision/100", summary.Stage, summary.Progress)
	}
	if summary.Decision == nil || summary.Decision.Outcome != string(decisions.OutcomeApproved) {
		t.Fatalf("unexpected decision detail: %+v", summary.Decision)
	}
}

func TestSummarizeEmptyScope(t *testing.T) {
	svc := &Service{Docs: documents.NewMemoryRepo()}
	summary, err := svc.Summarize(context.Background(), "user-1", "app-1")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.Total != 0 || summary.Stage != StageDraft || summary.Progress != 0 {
		t.Fatalf("unexpected empty summary: %+v", summary)
	}
	if len(summary.Documents) != 0 {
		t.Fatalf("expected empty per-type map, got %v", summary.Documents)
	}
}

func TestSummarizeRejectsEmptyScopeIdentifiers(t *testing.T) {
	svc := &Service{Docs: documents.NewMemoryRepo()}
	if _, err := svc.Summarize(context.Background(), "", "app-1"); !errors.Is(err, documents.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty user, got %v", err)
	}
	if _, err := svc.SubmitAll(context.Background(), "user-1", "", "req"); !errors.Is(err, documents.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty application, got %v", err)
	}
}
