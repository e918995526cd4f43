package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	pg "github.com/lib/pq"

	"camptrade/internal/app/apperr"
	"camptrade/internal/app/logger"
	"camptrade/internal/app/model"
	"camptrade/internal/app/storage"
)

// storage.TransactionRepository interface implementation
var _ storage.TransactionRepository = (*TransactionRepository)(nil)

const transactionColumns = `id, item_id, item_type, item_title, price, seller_id, buyer_id, buyer_contact, status,
			created_at, approved_at, completed_at,
			verification_pin, verification_token, qr_payload, qr_issued_at, credential_consumed`

type TransactionRepository struct {
	db *sql.DB
}

func (r *TransactionRepository) LoggerComponent() string {
	return "TransactionRepository"
}

func NewTransactionRepository(db *sql.DB) (*TransactionRepository, error) {
	s := &TransactionRepository{
		db: db,
	}
	return s, nil
}

// NewID implementation of interface storage.TransactionRepository
func (r *TransactionRepository) NewID(_ context.Context) (string, error) {
	return uuid.New().String(), nil
}

// Create implementation of interface storage.TransactionRepository
func (r *TransactionRepository) Create(ctx context.Context, m *model.Transaction) error {
	const SQL = `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
`

	_, err := r.db.ExecContext(ctx, SQL,
		m.ID, m.ItemID, string(m.Category), m.ItemTitle, m.Price, m.SellerID, m.BuyerID, m.BuyerContact, string(m.Status),
		m.CreatedAt, nullTime(m.ApprovedAt), nullTime(m.CompletedAt),
		m.PIN, m.Token, m.QRPayload, m.QRIssuedAt, m.CredentialConsumed,
	)
	if err != nil {
		if pgErr, ok := err.(*pg.Error); ok {
			if pgerrcode.IsIntegrityConstraintViolation(string(pgErr.Code)) {
				return apperr.ErrConflict
			}
		}

		return fmt.Errorf("insert: %w", err)
	}

	return nil
}

// Read implementation of interface storage.TransactionRepository
func (r *TransactionRepository) Read(ctx context.Context, id string) (*model.Transaction, error) {
	const SQL = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id=$1
`

	m, err := scanTransaction(r.db.QueryRowContext(ctx, SQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("select: %w", err)
	}

	return m, nil
}

// Approve implementation of interface storage.TransactionRepository
func (r *TransactionRepository) Approve(ctx context.Context, id string, at time.Time) error {
	const SQL = `
		UPDATE transactions
		SET status=$1, approved_at=$2
		WHERE id=$3 AND status=$4
`

	res, err := r.db.ExecContext(ctx, SQL, model.StatusApproved, at, id, model.StatusRequested)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		if _, err := r.Read(ctx, id); err != nil {
			return err
		}
		return apperr.ErrConflict
	}

	return nil
}

// Complete implementation of interface storage.TransactionRepository
func (r *TransactionRepository) Complete(ctx context.Context, id string, at time.Time, s *model.Settlement) error {
	l := logger.Get(ctx, r).With().Str("method", "Complete").Str("transaction_id", id).Logger()

	// the row lock serializes concurrent completions; the status is re-read after the lock is granted
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		l.Error().Err(err).Msg("DB transaction begin")
		return fmt.Errorf("tx begin: %w", err)
	}

	var status string
	var consumed bool
	const sqlLock = `SELECT status, credential_consumed FROM transactions WHERE id=$1 FOR UPDATE`
	if err := tx.QueryRowContext(ctx, sqlLock, id).Scan(&status, &consumed); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrNotFound
		}
		if concurrentUpdate(err) {
			l.Debug().Err(err).Msg("Lost completion race")
			return apperr.ErrConflict
		}
		l.Error().Err(err).Msg("DB lock error")
		return fmt.Errorf("lock: %w", err)
	}

	if !model.Status(status).Verifiable() || consumed {
		_ = tx.Rollback()
		l.Debug().Str("status", status).Bool("consumed", consumed).Msg("Not verifiable")
		return apperr.ErrConflict
	}

	const sqlUpdate = `
		UPDATE transactions
		SET status=$1, completed_at=$2, credential_consumed=TRUE
		WHERE id=$3 AND credential_consumed=FALSE
`
	if _, err := tx.ExecContext(ctx, sqlUpdate, model.StatusCompleted, at, id); err != nil {
		_ = tx.Rollback()
		if concurrentUpdate(err) {
			return apperr.ErrConflict
		}
		l.Error().Err(err).Msg("Status update failed")
		return fmt.Errorf("update: %w", err)
	}

	const sqlSettlement = `
		INSERT INTO settlements (transaction_id, buyer_id, seller_id, item_type, item_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
`
	_, err = tx.ExecContext(ctx, sqlSettlement, s.TransactionID, s.BuyerID, s.SellerID, string(s.Category), s.ItemID, s.CreatedAt)
	if err != nil {
		_ = tx.Rollback()
		if pgErr, ok := err.(*pg.Error); ok {
			if pgerrcode.IsIntegrityConstraintViolation(string(pgErr.Code)) {
				return apperr.ErrConflict
			}
		}
		if concurrentUpdate(err) {
			return apperr.ErrConflict
		}
		l.Error().Err(err).Msg("Settlement insert failed")
		return fmt.Errorf("insert settlement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if concurrentUpdate(err) {
			return apperr.ErrConflict
		}
		l.Error().Err(err).Msg("TX commit failed")
		return fmt.Errorf("tx commit: %w", err)
	}

	return nil
}

// concurrentUpdate reports errors postgres raises when another transaction won a race for the same row.
func concurrentUpdate(err error) bool {
	var pgErr *pg.Error
	if !errors.As(err, &pgErr) {
		return false
	}

	switch string(pgErr.Code) {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return true
	}
	return false
}

// AllByUserID implementation of interface storage.TransactionRepository
func (r *TransactionRepository) AllByUserID(ctx context.Context, userID string) ([]*model.Transaction, error) {
	l := logger.Ctx(ctx).With().Str("method", "AllByUserID").Logger()

	const SQL = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE buyer_id=$1 OR seller_id=$1
		ORDER BY created_at DESC
`
	rows, err := r.db.QueryContext(ctx, SQL, userID)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	res := make([]*model.Transaction, 0)

	for rows.Next() {
		m, err := scanTransaction(rows)
		if err != nil {
			l.Debug().Err(err).Send()
			return nil, fmt.Errorf("scan: %w", err)
		}
		res = append(res, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return res, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	m := &model.Transaction{}
	var category, status string
	var approvedAt, completedAt sql.NullTime

	err := row.Scan(
		&m.ID, &m.ItemID, &category, &m.ItemTitle, &m.Price, &m.SellerID, &m.BuyerID, &m.BuyerContact, &status,
		&m.CreatedAt, &approvedAt, &completedAt,
		&m.PIN, &m.Token, &m.QRPayload, &m.QRIssuedAt, &m.CredentialConsumed,
	)
	if err != nil {
		return nil, err
	}

	m.Category = model.ItemCategory(category)
	m.Status = model.Status(status)
	m.ApprovedAt = timePtr(approvedAt)
	m.CompletedAt = timePtr(completedAt)

	return m, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
