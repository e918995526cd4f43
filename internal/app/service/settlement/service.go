// Package settlement applies the side effects of a completed exchange: reward points,
// listing removal and the completion event.
package settlement

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"camptrade/internal/app/events"
	"camptrade/internal/app/logger"
	"camptrade/internal/app/metrics"
	"camptrade/internal/app/model"
	"camptrade/internal/app/storage"
)

type Coordinator struct {
	logger      logger.Logger
	settlements storage.SettlementRepository
	rewards     storage.RewardRepository
	catalog     storage.CatalogStore
	publisher   events.Publisher
	metrics     *metrics.Metrics
	now         func() time.Time
}

func (c *Coordinator) LoggerComponent() string {
	return "Settlement.Coordinator"
}

type Option func(*Coordinator)

func WithPublisher(p events.Publisher) Option {
	return func(c *Coordinator) {
		c.publisher = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

func NewCoordinator(
	settlements storage.SettlementRepository,
	rewards storage.RewardRepository,
	catalog storage.CatalogStore,
	opts ...Option,
) *Coordinator {
	c := &Coordinator{
		settlements: settlements,
		rewards:     rewards,
		catalog:     catalog,
		publisher:   events.Nop{},
		now:         time.Now,
	}

	for _, o := range opts {
		o(c)
	}

	if c.metrics == nil {
		c.metrics = metrics.New()
	}
	c.logger = logger.Global().Component(c)

	return c
}

func fixedResult() *model.SettlementResult {
	return &model.SettlementResult{
		BuyerPointsAwarded:  model.BuyerRewardPoints,
		SellerPointsAwarded: model.SellerRewardPoints,
	}
}

// Settle awards both parties, removes the listing and marks the settlement done.
// Every step is safe to repeat, so a partially applied settlement can be settled again.
func (c *Coordinator) Settle(ctx context.Context, s *model.Settlement) (*model.SettlementResult, error) {
	l := c.logger.With().
		Str("method", "Settle").
		Str("transaction_id", s.TransactionID).
		Logger()

	if s.SettledAt != nil {
		l.Debug().Msg("Already settled")
		return fixedResult(), nil
	}

	if err := c.award(ctx, s.TransactionID, s.BuyerID, model.RoleBuyer, model.BuyerRewardPoints); err != nil {
		c.metrics.Settlement(metrics.ResultFailed)
		return nil, errors.Wrap(err, "award buyer")
	}

	if err := c.award(ctx, s.TransactionID, s.SellerID, model.RoleSeller, model.SellerRewardPoints); err != nil {
		c.metrics.Settlement(metrics.ResultFailed)
		return nil, errors.Wrap(err, "award seller")
	}

	ns := s.Category.Namespace()
	if err := c.catalog.DeleteListing(ctx, ns, s.ItemID); err != nil {
		c.metrics.Settlement(metrics.ResultFailed)
		return nil, errors.Wrapf(err, "delete listing %s/%s", ns, s.ItemID)
	}

	at := c.now()
	if err := c.settlements.MarkSettled(ctx, s.TransactionID, at); err != nil {
		c.metrics.Settlement(metrics.ResultFailed)
		return nil, errors.Wrap(err, "mark settled")
	}
	s.SettledAt = &at

	res := fixedResult()
	c.publish(ctx, s, res, at)
	c.metrics.Settlement(metrics.ResultOK)

	l.Info().Str("namespace", ns).Str("item_id", s.ItemID).Msg("Transaction settled")

	return res, nil
}

func (c *Coordinator) award(ctx context.Context, transactionID, userID string, role model.Role, points int64) error {
	applied, err := c.rewards.Award(ctx, transactionID, userID, points)
	if err != nil {
		return err
	}
	if applied {
		c.metrics.PointsAwarded(string(role), points)
	}
	return nil
}

func (c *Coordinator) publish(ctx context.Context, s *model.Settlement, res *model.SettlementResult, at time.Time) {
	e := events.Event{
		Type:                events.TypeTransactionCompleted,
		TransactionID:       s.TransactionID,
		ItemID:              s.ItemID,
		Namespace:           s.Category.Namespace(),
		BuyerID:             s.BuyerID,
		SellerID:            s.SellerID,
		BuyerPointsAwarded:  res.BuyerPointsAwarded,
		SellerPointsAwarded: res.SellerPointsAwarded,
		OccurredAt:          at,
	}

	if err := c.publisher.Publish(ctx, e); err != nil {
		c.logger.Warn().Err(err).Str("transaction_id", s.TransactionID).Msg("Completion event not published")
	}
}
