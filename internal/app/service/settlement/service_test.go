package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camptrade/internal/app/events"
	"camptrade/internal/app/model"
	"camptrade/internal/app/storage/memory"
	storagemock "camptrade/internal/app/storage/mock"
)

var testNow = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func testSettlement(category model.ItemCategory) *model.Settlement {
	return &model.Settlement{
		TransactionID: "tx1",
		BuyerID:       "B",
		SellerID:      "S",
		Category:      category,
		ItemID:        "I1",
		CreatedAt:     testNow.Add(-time.Minute),
	}
}

type capturePublisher struct {
	events []events.Event
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return p.err
}

func (p *capturePublisher) Close() error {
	return nil
}

type mocks struct {
	settlements *storagemock.MockSettlementRepository
	rewards     *storagemock.MockRewardRepository
	catalog     *storagemock.MockCatalogStore
	publisher   *capturePublisher
}

func newMockCoordinator(t *testing.T) (*Coordinator, *mocks) {
	t.Helper()

	ctrl := gomock.NewController(t)
	m := &mocks{
		settlements: storagemock.NewMockSettlementRepository(ctrl),
		rewards:     storagemock.NewMockRewardRepository(ctrl),
		catalog:     storagemock.NewMockCatalogStore(ctrl),
		publisher:   &capturePublisher{},
	}

	c := NewCoordinator(m.settlements, m.rewards, m.catalog,
		WithPublisher(m.publisher),
		WithClock(func() time.Time { return testNow }),
	)

	return c, m
}

// -- Settle tests --

func TestSettle_Success(t *testing.T) {
	c, m := newMockCoordinator(t)
	ctx := context.Background()

	gomock.InOrder(
		m.rewards.EXPECT().Award(ctx, "tx1", "B", int64(10)).Return(true, nil),
		m.rewards.EXPECT().Award(ctx, "tx1", "S", int64(15)).Return(true, nil),
		m.catalog.EXPECT().DeleteListing(ctx, "rent-items", "I1").Return(nil),
		m.settlements.EXPECT().MarkSettled(ctx, "tx1", testNow).Return(nil),
	)

	s := testSettlement(model.CategoryRent)
	res, err := c.Settle(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, &model.SettlementResult{BuyerPointsAwarded: 10, SellerPointsAwarded: 15}, res)
	require.NotNil(t, s.SettledAt)

	require.Len(t, m.publisher.events, 1)
	e := m.publisher.events[0]
	assert.Equal(t, events.TypeTransactionCompleted, e.Type)
	assert.Equal(t, "rent-items", e.Namespace)
	assert.Equal(t, int64(15), e.SellerPointsAwarded)
}

func TestSettle_AlreadySettled(t *testing.T) {
	c, m := newMockCoordinator(t)

	s := testSettlement(model.CategorySell)
	at := testNow
	s.SettledAt = &at

	res, err := c.Settle(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.BuyerPointsAwarded)
	assert.Empty(t, m.publisher.events)
}

func TestSettle_AwardFails(t *testing.T) {
	c, m := newMockCoordinator(t)
	ctx := context.Background()

	m.rewards.EXPECT().Award(ctx, "tx1", "B", int64(10)).Return(false, errors.New("db down"))

	_, err := c.Settle(ctx, testSettlement(model.CategorySell))
	assert.Error(t, err)
	assert.Empty(t, m.publisher.events)
}

func TestSettle_DeleteListingFails(t *testing.T) {
	c, m := newMockCoordinator(t)
	ctx := context.Background()

	m.rewards.EXPECT().Award(ctx, "tx1", "B", int64(10)).Return(true, nil)
	m.rewards.EXPECT().Award(ctx, "tx1", "S", int64(15)).Return(true, nil)
	m.catalog.EXPECT().DeleteListing(ctx, "donation-items", "I1").Return(errors.New("catalog down"))

	s := testSettlement(model.CategoryDonate)
	_, err := c.Settle(ctx, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "donation-items/I1")
	assert.Nil(t, s.SettledAt)
}

func TestSettle_PublishFailureIgnored(t *testing.T) {
	c, m := newMockCoordinator(t)
	ctx := context.Background()
	m.publisher.err = errors.New("kafka down")

	m.rewards.EXPECT().Award(ctx, "tx1", "B", int64(10)).Return(true, nil)
	m.rewards.EXPECT().Award(ctx, "tx1", "S", int64(15)).Return(true, nil)
	m.catalog.EXPECT().DeleteListing(ctx, "items", "I1").Return(nil)
	m.settlements.EXPECT().MarkSettled(ctx, "tx1", testNow).Return(nil)

	_, err := c.Settle(ctx, testSettlement(model.CategorySell))
	assert.NoError(t, err)
}

// -- Idempotency tests --

func TestSettle_RetryAfterPartialFailureAwardsOnce(t *testing.T) {
	ctx := context.Background()
	db := memory.NewDB()
	txRepo := memory.NewTransactionRepository(db)
	settlements := memory.NewSettlementRepository(db)
	rewards := memory.NewRewardRepository(db)
	catalog := &flakyCatalog{Catalog: memory.NewCatalog(), failures: 1}
	catalog.Put("items", "I1")

	tr := &model.Transaction{
		ID:       "tx1",
		ItemID:   "I1",
		Category: model.CategorySell,
		SellerID: "S",
		BuyerID:  "B",
		Status:   model.StatusApproved,
	}
	require.NoError(t, txRepo.Create(ctx, tr))
	require.NoError(t, txRepo.Complete(ctx, "tx1", testNow, model.NewSettlement(tr, testNow)))

	c := NewCoordinator(settlements, rewards, catalog, WithClock(func() time.Time { return testNow }))

	s, err := settlements.Read(ctx, "tx1")
	require.NoError(t, err)
	_, err = c.Settle(ctx, s)
	require.Error(t, err)

	s, err = settlements.Read(ctx, "tx1")
	require.NoError(t, err)
	_, err = c.Settle(ctx, s)
	require.NoError(t, err)

	s, err = settlements.Read(ctx, "tx1")
	require.NoError(t, err)
	_, err = c.Settle(ctx, s)
	require.NoError(t, err)

	buyer, err := rewards.Balance(ctx, "B")
	require.NoError(t, err)
	seller, err := rewards.Balance(ctx, "S")
	require.NoError(t, err)

	assert.Equal(t, int64(10), buyer)
	assert.Equal(t, int64(15), seller)
	assert.False(t, catalog.Has("items", "I1"))
}

type flakyCatalog struct {
	*memory.Catalog
	failures int
}

func (c *flakyCatalog) DeleteListing(ctx context.Context, namespace, itemID string) error {
	if c.failures > 0 {
		c.failures--
		return errors.New("catalog unavailable")
	}
	return c.Catalog.DeleteListing(ctx, namespace, itemID)
}
