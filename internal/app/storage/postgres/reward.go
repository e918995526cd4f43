package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"camptrade/internal/app/logger"
	"camptrade/internal/app/storage"
)

// storage.RewardRepository interface implementation
var _ storage.RewardRepository = (*RewardRepository)(nil)

type RewardRepository struct {
	db *sql.DB
}

func (r *RewardRepository) LoggerComponent() string {
	return "RewardRepository"
}

func NewRewardRepository(db *sql.DB) (*RewardRepository, error) {
	s := &RewardRepository{
		db: db,
	}
	return s, nil
}

// Award implementation of interface storage.RewardRepository
func (r *RewardRepository) Award(ctx context.Context, transactionID string, userID string, points int64) (bool, error) {
	l := logger.Get(ctx, r).With().
		Str("method", "Award").
		Str("transaction_id", transactionID).
		Str("user_id", userID).
		Logger()

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelDefault,
	})
	if err != nil {
		l.Error().Err(err).Msg("DB transaction begin")
		return false, fmt.Errorf("tx begin: %w", err)
	}

	const sqlAward = `
		INSERT INTO reward_awards (transaction_id, user_id, points)
		VALUES ($1, $2, $3)
		ON CONFLICT (transaction_id, user_id) DO NOTHING
`
	res, err := tx.ExecContext(ctx, sqlAward, transactionID, userID, points)
	if err != nil {
		_ = tx.Rollback()
		l.Error().Err(err).Msg("Award insert failed")
		return false, fmt.Errorf("insert award: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		_ = tx.Rollback()
		l.Debug().Msg("Already awarded")
		return false, nil
	}

	const sqlUpdateBalance = `
		INSERT INTO reward_balances (user_id, points)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET points=reward_balances.points+EXCLUDED.points
`
	if _, err := tx.ExecContext(ctx, sqlUpdateBalance, userID, points); err != nil {
		_ = tx.Rollback()
		l.Error().Err(err).Msg("Balance update failed")
		return false, fmt.Errorf("update balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Msg("TX commit failed")
		return false, fmt.Errorf("tx commit: %w", err)
	}

	return true, nil
}

// Balance implementation of interface storage.RewardRepository
func (r *RewardRepository) Balance(ctx context.Context, userID string) (int64, error) {
	const SQL = `SELECT points FROM reward_balances WHERE user_id=$1`

	var points int64
	if err := r.db.QueryRowContext(ctx, SQL, userID).Scan(&points); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("select: %w", err)
	}

	return points, nil
}
