package analysis

import (
	"context"
	"encoding/json"
	"errors"
)

// Input carries one document's extracted text into analysis.
type Input struct {
	DocType       string
	Text          string
	OCRConfidence float64
}

// Analyzer inspects an extracted document and returns an opaque JSON
// verdict. The pipeline stores the result verbatim; only the decider and
// clients interpret it.
type Analyzer interface {
	Analyze(ctx context.Context, input Input) (json.RawMessage, error)
}

// Finding is one analyzed document fed into the eligibility decision.
type Finding struct {
	DocType    string
	Result     json.RawMessage
	Confidence float64
}

// Verdict is the outcome of the eligibility decision over all findings.
type Verdict struct {
	Outcome    string
	Reason     string
	Confidence float64
}

const (
	OutcomeApproved    = "approved"
	OutcomeRejected    = "rejected"
	OutcomeNeedsReview = "needs_review"
)

// Decider turns a full application's findings into a single verdict.
type Decider interface {
	Decide(ctx context.Context, findings []Finding) (Verdict, error)
}

// ErrNoFindings is returned when a decision is requested with no analyzed
// documents.
var ErrNoFindings = errors.New("no findings to decide on")
