package memory

import (
	"context"

	"camptrade/internal/app/storage"
)

// storage.RewardRepository interface implementation
var _ storage.RewardRepository = (*RewardRepository)(nil)

type RewardRepository struct {
	db *DB
}

func NewRewardRepository(db *DB) *RewardRepository {
	return &RewardRepository{db: db}
}

// Award implementation of interface storage.RewardRepository
func (r *RewardRepository) Award(_ context.Context, transactionID string, userID string, points int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	k := awardKey{transactionID: transactionID, userID: userID}
	if _, ok := r.db.awards[k]; ok {
		return false, nil
	}
	r.db.awards[k] = points
	r.db.balances[userID] += points

	return true, nil
}

// Balance implementation of interface storage.RewardRepository
func (r *RewardRepository) Balance(_ context.Context, userID string) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return r.db.balances[userID], nil
}
