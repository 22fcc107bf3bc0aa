package decisions

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Upsert inserts or overwrites the decision for its application scope.
func (r *PGRepo) Upsert(ctx context.Context, decision Decision) error {
	const query = `
INSERT INTO decisions (id, user_id, application_id, outcome, reason, confidence, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id, application_id)
DO UPDATE SET id = EXCLUDED.id,
              outcome = EXCLUDED.outcome,
              reason = EXCLUDED.reason,
              confidence = EXCLUDED.confidence,
              created_at = EXCLUDED.created_at`
	_, err := r.DB.ExecContext(ctx, query,
		decision.ID,
		decision.UserID,
		decision.ApplicationID,
		string(decision.Outcome),
		decision.Reason,
		decision.Confidence,
		decision.CreatedAt,
	)
	return err
}

// GetByApplication returns the decision for (user, application).
func (r *PGRepo) GetByApplication(ctx context.Context, userID, applicationID string) (Decision, error) {
	const query = `
SELECT id, user_id, application_id, outcome, reason, confidence, created_at
FROM decisions
WHERE user_id = $1 AND application_id = $2
LIMIT 1`
	var (
		decision Decision
		outcome  string
	)
	err := r.DB.QueryRowContext(ctx, query, userID, applicationID).Scan(
		&decision.ID,
		&decision.UserID,
		&decision.ApplicationID,
		&outcome,
		&decision.Reason,
		&decision.Confidence,
		&decision.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Decision{}, ErrNotFound
		}
		return Decision{}, err
	}
	decision.Outcome = Outcome(outcome)
	return decision, nil
}

// DeleteByApplication removes the decision for (user, application), if any.
func (r *PGRepo) DeleteByApplication(ctx context.Context, userID, applicationID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM decisions WHERE user_id = $1 AND application_id = $2`, userID, applicationID)
	return err
}

var _ Repo = (*PGRepo)(nil)
