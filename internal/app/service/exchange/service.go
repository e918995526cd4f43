// Package exchange runs the lifecycle of a marketplace hand-off: request, approval,
// in-person verification and settlement.
package exchange

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"camptrade/internal/app/apperr"
	"camptrade/internal/app/attempt"
	"camptrade/internal/app/credential"
	"camptrade/internal/app/logger"
	"camptrade/internal/app/metrics"
	"camptrade/internal/app/model"
	"camptrade/internal/app/storage"
	"camptrade/internal/app/verification"
)

const (
	DefaultAttemptMax    = 5
	DefaultAttemptWindow = 15 * time.Minute
)

// Settler applies the side effects of a completed transaction.
type Settler interface {
	Settle(ctx context.Context, s *model.Settlement) (*model.SettlementResult, error)
}

type CreateRequest struct {
	ItemID    string
	Category  string
	ItemTitle string
	Price     decimal.Decimal
	SellerID  string
}

type CreateResult struct {
	TransactionID string `json:"transactionId"`
	PIN           string `json:"pin"`
	QRPayload     string `json:"qrPayload"`
}

type Service struct {
	logger       logger.Logger
	transactions storage.TransactionRepository
	rewards      storage.RewardRepository
	settler      Settler
	limiter      attempt.Limiter
	generator    *credential.Generator
	metrics      *metrics.Metrics
	now          func() time.Time
}

func (s *Service) LoggerComponent() string {
	return "Exchange.Service"
}

type Option func(*Service)

func WithLimiter(l attempt.Limiter) Option {
	return func(s *Service) {
		s.limiter = l
	}
}

func WithGenerator(g *credential.Generator) Option {
	return func(s *Service) {
		s.generator = g
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(
	transactions storage.TransactionRepository,
	rewards storage.RewardRepository,
	settler Settler,
	opts ...Option,
) *Service {
	s := &Service{
		transactions: transactions,
		rewards:      rewards,
		settler:      settler,
		now:          time.Now,
	}

	for _, o := range opts {
		o(s)
	}

	if s.limiter == nil {
		s.limiter = attempt.NewMemory(DefaultAttemptMax, DefaultAttemptWindow)
	}
	if s.generator == nil {
		s.generator = credential.NewGenerator()
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	s.logger = logger.Global().Component(s)

	return s
}

func authenticated(caller *model.Caller) error {
	if caller == nil || caller.ID == "" {
		return apperr.ErrUnauthenticated
	}
	return nil
}

// internal logs the cause and hides it behind apperr.ErrInternal.
func internal(l zerolog.Logger, err error, op string) error {
	l.Error().Err(err).Msg(op + " failed")
	return errors.Wrap(apperr.ErrInternal, op)
}

func (s *Service) read(ctx context.Context, l zerolog.Logger, id string) (*model.Transaction, error) {
	t, err := s.transactions.Read(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, errors.Wrapf(apperr.ErrNotFound, "transaction %s", id)
		}
		return nil, internal(l, err, "read transaction")
	}
	return t, nil
}

// Create records a purchase request from caller and returns the hand-off credentials.
func (s *Service) Create(ctx context.Context, caller *model.Caller, in CreateRequest) (*CreateResult, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}

	l := s.logger.With().
		Str("method", "Create").
		Str("user_id", caller.ID).
		Str("item_id", in.ItemID).
		Logger()

	if in.ItemID == "" || in.Category == "" || in.SellerID == "" {
		return nil, errors.Wrap(apperr.ErrInvalidArgument, "itemId, itemType and sellerId are required")
	}
	category, err := model.ParseItemCategory(in.Category)
	if err != nil {
		return nil, errors.Wrap(apperr.ErrInvalidArgument, err.Error())
	}
	if in.Price.IsNegative() {
		return nil, errors.Wrap(apperr.ErrInvalidArgument, "price must not be negative")
	}
	if caller.ID == in.SellerID {
		return nil, errors.Wrap(apperr.ErrPermissionDenied, "buyer and seller must differ")
	}

	id, err := s.transactions.NewID(ctx)
	if err != nil {
		return nil, internal(l, err, "allocate id")
	}

	pin, err := s.generator.GeneratePIN()
	if err != nil {
		return nil, internal(l, err, "generate pin")
	}

	now := s.now()
	token := s.generator.GenerateToken(id, pin, now.UnixNano())
	qr := verification.EncodeQRPayload(verification.Payload{
		TransactionID: id,
		Fingerprint:   token.ShortFingerprint(),
		IssuedAt:      now.UnixMilli(),
	})

	t := &model.Transaction{
		ID:           id,
		ItemID:       in.ItemID,
		Category:     category,
		ItemTitle:    in.ItemTitle,
		Price:        in.Price,
		SellerID:     in.SellerID,
		BuyerID:      caller.ID,
		BuyerContact: caller.Email,
		Status:       model.StatusRequested,
		CreatedAt:    now,
		PIN:          pin,
		Token:        string(token),
		QRPayload:    qr,
		QRIssuedAt:   now.UnixMilli(),
	}

	if err := s.transactions.Create(ctx, t); err != nil {
		return nil, internal(l, err, "create transaction")
	}

	s.metrics.TransactionCreated()
	l.Info().Str("transaction_id", id).Msg("Transaction requested")

	return &CreateResult{
		TransactionID: id,
		PIN:           pin,
		QRPayload:     qr,
	}, nil
}

// Approve lets the seller accept a requested transaction.
func (s *Service) Approve(ctx context.Context, caller *model.Caller, transactionID string) error {
	if err := authenticated(caller); err != nil {
		return err
	}

	l := s.logger.With().
		Str("method", "Approve").
		Str("user_id", caller.ID).
		Str("transaction_id", transactionID).
		Logger()

	t, err := s.read(ctx, l, transactionID)
	if err != nil {
		return err
	}

	if caller.ID != t.SellerID {
		return errors.Wrap(apperr.ErrPermissionDenied, "only the seller can approve")
	}
	if t.Status != model.StatusRequested {
		return errors.Wrapf(apperr.ErrFailedPrecondition, "transaction is %s", t.Status)
	}

	if err := s.transactions.Approve(ctx, transactionID, s.now()); err != nil {
		switch {
		case errors.Is(err, apperr.ErrConflict):
			return errors.Wrap(apperr.ErrFailedPrecondition, "transaction is no longer requested")
		case errors.Is(err, apperr.ErrNotFound):
			return errors.Wrapf(apperr.ErrNotFound, "transaction %s", transactionID)
		}
		return internal(l, err, "approve transaction")
	}

	s.metrics.TransactionApproved()
	l.Info().Msg("Transaction approved")

	return nil
}

// Verify checks the buyer's credential presented to the seller and settles the transaction on success.
// Only one concurrent caller can complete a transaction; the others get apperr.ErrFailedPrecondition.
func (s *Service) Verify(
	ctx context.Context,
	caller *model.Caller,
	transactionID string,
	code string,
	codeKind string,
) (*model.SettlementResult, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}

	l := s.logger.With().
		Str("method", "Verify").
		Str("user_id", caller.ID).
		Str("transaction_id", transactionID).
		Str("code_kind", codeKind).
		Logger()

	t, err := s.read(ctx, l, transactionID)
	if err != nil {
		return nil, err
	}

	if caller.ID != t.SellerID {
		return nil, errors.Wrap(apperr.ErrPermissionDenied, "only the seller can verify")
	}
	if !t.Status.Verifiable() {
		return nil, errors.Wrapf(apperr.ErrFailedPrecondition, "transaction is %s", t.Status)
	}
	if t.CredentialConsumed {
		return nil, errors.Wrap(apperr.ErrFailedPrecondition, "credential already used")
	}

	kind, err := model.ParseCodeKind(codeKind)
	if err != nil {
		s.metrics.Verification("unknown", metrics.ResultRejected)
		return nil, errors.Wrap(apperr.ErrInvalidArgument, err.Error())
	}

	// the attempt is counted before the code is compared
	if err := s.limiter.Acquire(ctx, transactionID); err != nil {
		if errors.Is(err, apperr.ErrTooManyAttempts) {
			s.metrics.Verification(string(kind), metrics.ResultLocked)
			return nil, errors.Wrap(apperr.ErrTooManyAttempts, "verification locked")
		}
		return nil, internal(l, err, "acquire attempt")
	}

	if !matches(t, kind, code) {
		s.metrics.Verification(string(kind), metrics.ResultRejected)
		l.Info().Msg("Credential rejected")
		return nil, errors.Wrap(apperr.ErrInvalidArgument, "code does not match")
	}

	now := s.now()
	settlement := model.NewSettlement(t, now)
	if err := s.transactions.Complete(ctx, transactionID, now, settlement); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, errors.Wrap(apperr.ErrFailedPrecondition, "transaction already completed")
		}
		return nil, internal(l, err, "complete transaction")
	}
	s.metrics.Verification(string(kind), metrics.ResultOK)

	if err := s.limiter.Reset(ctx, transactionID); err != nil {
		l.Warn().Err(err).Msg("Attempt counter not reset")
	}

	res, err := s.settler.Settle(ctx, settlement)
	if err != nil {
		// the settlement stays pending and is picked up by the reconciler
		return nil, internal(l, err, "settle transaction")
	}

	l.Info().Msg("Transaction completed")

	return res, nil
}

func matches(t *model.Transaction, kind model.CodeKind, code string) bool {
	switch kind {
	case model.CodeKindPIN:
		return verification.MatchPIN(code, t.PIN)
	case model.CodeKindQR:
		return verification.DecodeAndMatch(code, verification.Payload{
			TransactionID: t.ID,
			Fingerprint:   credential.Token(t.Token).ShortFingerprint(),
			IssuedAt:      t.QRIssuedAt,
		})
	}
	return false
}

// ListForUser returns every transaction caller takes part in, newest first.
func (s *Service) ListForUser(ctx context.Context, caller *model.Caller) ([]model.UserTransaction, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}

	l := s.logger.With().Str("method", "ListForUser").Str("user_id", caller.ID).Logger()

	list, err := s.transactions.AllByUserID(ctx, caller.ID)
	if err != nil {
		return nil, internal(l, err, "list transactions")
	}

	res := make([]model.UserTransaction, 0, len(list))
	for _, t := range list {
		role, ok := t.RoleOf(caller.ID)
		if !ok {
			continue
		}
		res = append(res, model.UserTransaction{Transaction: t, Role: role})
	}

	return res, nil
}

// Get returns a single transaction as seen by one of its participants.
func (s *Service) Get(ctx context.Context, caller *model.Caller, transactionID string) (*model.UserTransaction, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}

	l := s.logger.With().Str("method", "Get").Str("user_id", caller.ID).Str("transaction_id", transactionID).Logger()

	t, err := s.read(ctx, l, transactionID)
	if err != nil {
		return nil, err
	}

	role, ok := t.RoleOf(caller.ID)
	if !ok {
		return nil, errors.Wrap(apperr.ErrPermissionDenied, "not a participant")
	}

	return &model.UserTransaction{Transaction: t, Role: role}, nil
}

func (s *Service) RewardBalance(ctx context.Context, caller *model.Caller) (*model.RewardBalance, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}

	points, err := s.rewards.Balance(ctx, caller.ID)
	if err != nil {
		l := s.logger.With().Str("method", "RewardBalance").Str("user_id", caller.ID).Logger()
		return nil, internal(l, err, "read balance")
	}

	return &model.RewardBalance{UserID: caller.ID, Points: points}, nil
}
