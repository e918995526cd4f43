package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"camptrade/internal/app/apperr"
	"camptrade/internal/app/model"
	"camptrade/internal/app/storage"
)

// storage.SettlementRepository interface implementation
var _ storage.SettlementRepository = (*SettlementRepository)(nil)

type SettlementRepository struct {
	db *sql.DB
}

func (r *SettlementRepository) LoggerComponent() string {
	return "SettlementRepository"
}

func NewSettlementRepository(db *sql.DB) (*SettlementRepository, error) {
	s := &SettlementRepository{
		db: db,
	}
	return s, nil
}

// Read implementation of interface storage.SettlementRepository
func (r *SettlementRepository) Read(ctx context.Context, transactionID string) (*model.Settlement, error) {
	const SQL = `
		SELECT transaction_id, buyer_id, seller_id, item_type, item_id, created_at, settled_at
		FROM settlements
		WHERE transaction_id=$1
`

	s, err := scanSettlement(r.db.QueryRowContext(ctx, SQL, transactionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("select: %w", err)
	}

	return s, nil
}

// Pending implementation of interface storage.SettlementRepository
func (r *SettlementRepository) Pending(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Settlement, error) {
	const SQL = `
		SELECT transaction_id, buyer_id, seller_id, item_type, item_id, created_at, settled_at
		FROM settlements
		WHERE settled_at IS NULL AND created_at < $1
		ORDER BY created_at
		LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, SQL, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	res := make([]*model.Settlement, 0)
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		res = append(res, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return res, nil
}

// MarkSettled implementation of interface storage.SettlementRepository
func (r *SettlementRepository) MarkSettled(ctx context.Context, transactionID string, at time.Time) error {
	const SQL = `
		UPDATE settlements
		SET settled_at=COALESCE(settled_at, $1)
		WHERE transaction_id=$2
`

	res, err := r.db.ExecContext(ctx, SQL, at, transactionID)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}

	return nil
}

func scanSettlement(row rowScanner) (*model.Settlement, error) {
	s := &model.Settlement{}
	var category string
	var settledAt sql.NullTime

	if err := row.Scan(&s.TransactionID, &s.BuyerID, &s.SellerID, &category, &s.ItemID, &s.CreatedAt, &settledAt); err != nil {
		return nil, err
	}

	s.Category = model.ItemCategory(category)
	s.SettledAt = timePtr(settledAt)

	return s, nil
}
