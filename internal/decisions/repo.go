package decisions

import "context"

// Repo defines persistence operations for decisions. Upsert keeps at most
// one decision per (user, application): reprocessing an application after a
// reset overwrites the prior decision.
type Repo interface {
	Upsert(ctx context.Context, decision Decision) error
	GetByApplication(ctx context.Context, userID, applicationID string) (Decision, error)
	DeleteByApplication(ctx context.Context, userID, applicationID string) error
}
