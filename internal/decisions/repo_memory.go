package decisions

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Decision // userID+"/"+applicationID -> decision
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Decision)}
}

func scopeKey(userID, applicationID string) string {
	return userID + "/" + applicationID
}

// Upsert stores the decision for its application scope.
func (r *MemoryRepo) Upsert(ctx context.Context, decision Decision) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.data[scopeKey(decision.UserID, decision.ApplicationID)] = decision
	r.mu.Unlock()
	return nil
}

// GetByApplication returns the decision for (user, application).
func (r *MemoryRepo) GetByApplication(ctx context.Context, userID, applicationID string) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	decision, ok := r.data[scopeKey(userID, applicationID)]
	if !ok {
		return Decision{}, ErrNotFound
	}
	return decision, nil
}

// DeleteByApplication removes the decision for (user, application), if any.
func (r *MemoryRepo) DeleteByApplication(ctx context.Context, userID, applicationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.data, scopeKey(userID, applicationID))
	r.mu.Unlock()
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
