package memory

import (
	"context"
	"sort"
	"time"

	"github.com/rs/xid"

	"camptrade/internal/app/apperr"
	"camptrade/internal/app/model"
	"camptrade/internal/app/storage"
)

// storage.TransactionRepository interface implementation
var _ storage.TransactionRepository = (*TransactionRepository)(nil)

type TransactionRepository struct {
	db *DB
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// NewID implementation of interface storage.TransactionRepository
func (r *TransactionRepository) NewID(_ context.Context) (string, error) {
	return xid.New().String(), nil
}

// Create implementation of interface storage.TransactionRepository
func (r *TransactionRepository) Create(_ context.Context, m *model.Transaction) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.transactions[m.ID]; ok {
		return apperr.ErrConflict
	}
	r.db.transactions[m.ID] = copyTransaction(m)

	return nil
}

// Read implementation of interface storage.TransactionRepository
func (r *TransactionRepository) Read(_ context.Context, id string) (*model.Transaction, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	m, ok := r.db.transactions[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	c := copyTransaction(&m)

	return &c, nil
}

// Approve implementation of interface storage.TransactionRepository
func (r *TransactionRepository) Approve(_ context.Context, id string, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	m, ok := r.db.transactions[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if m.Status != model.StatusRequested {
		return apperr.ErrConflict
	}

	m.Status = model.StatusApproved
	m.ApprovedAt = &at
	r.db.transactions[id] = m

	return nil
}

// Complete implementation of interface storage.TransactionRepository
func (r *TransactionRepository) Complete(_ context.Context, id string, at time.Time, s *model.Settlement) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	m, ok := r.db.transactions[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if !m.Status.Verifiable() || m.CredentialConsumed {
		return apperr.ErrConflict
	}
	if _, exists := r.db.settlements[id]; exists {
		return apperr.ErrConflict
	}

	m.Status = model.StatusCompleted
	m.CompletedAt = &at
	m.CredentialConsumed = true
	r.db.transactions[id] = m
	r.db.settlements[id] = *s

	return nil
}

// AllByUserID implementation of interface storage.TransactionRepository
func (r *TransactionRepository) AllByUserID(_ context.Context, userID string) ([]*model.Transaction, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	res := make([]*model.Transaction, 0)
	for _, m := range r.db.transactions {
		if m.BuyerID != userID && m.SellerID != userID {
			continue
		}
		c := copyTransaction(&m)
		res = append(res, &c)
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})

	return res, nil
}

func copyTransaction(m *model.Transaction) model.Transaction {
	c := *m
	if m.ApprovedAt != nil {
		t := *m.ApprovedAt
		c.ApprovedAt = &t
	}
	if m.CompletedAt != nil {
		t := *m.CompletedAt
		c.CompletedAt = &t
	}
	return c
}
