package memory

import (
	"context"
	"sort"
	"time"

	"camptrade/internal/app/apperr"
	"camptrade/internal/app/model"
	"camptrade/internal/app/storage"
)

// storage.SettlementRepository interface implementation
var _ storage.SettlementRepository = (*SettlementRepository)(nil)

type SettlementRepository struct {
	db *DB
}

func NewSettlementRepository(db *DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// Read implementation of interface storage.SettlementRepository
func (r *SettlementRepository) Read(_ context.Context, transactionID string) (*model.Settlement, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	s, ok := r.db.settlements[transactionID]
	if !ok {
		return nil, apperr.ErrNotFound
	}

	return &s, nil
}

// Pending implementation of interface storage.SettlementRepository
func (r *SettlementRepository) Pending(_ context.Context, createdBefore time.Time, limit int) ([]*model.Settlement, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	res := make([]*model.Settlement, 0)
	for _, s := range r.db.settlements {
		if s.SettledAt != nil || !s.CreatedAt.Before(createdBefore) {
			continue
		}
		s := s
		res = append(res, &s)
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}

	return res, nil
}

// MarkSettled implementation of interface storage.SettlementRepository
func (r *SettlementRepository) MarkSettled(_ context.Context, transactionID string, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.settlements[transactionID]
	if !ok {
		return apperr.ErrNotFound
	}
	if s.SettledAt == nil {
		s.SettledAt = &at
		r.db.settlements[transactionID] = s
	}

	return nil
}
