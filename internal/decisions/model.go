package decisions

import (
	"errors"
	"time"
)

// Outcome is the closed set of eligibility decision outcomes.
type Outcome string

const (
	OutcomeApproved    Outcome = "approved"
	OutcomeRejected    Outcome = "rejected"
	OutcomeNeedsReview Outcome = "needs_review"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeApproved, OutcomeRejected, OutcomeNeedsReview:
		return true
	}
	return false
}

// Decision is the persisted eligibility decision for one application.
type Decision struct {
	ID            string
	UserID        string
	ApplicationID string
	Outcome       Outcome
	Reason        string
	Confidence    float64
	CreatedAt     time.Time
}

var ErrNotFound = errors.New("decision not found")
