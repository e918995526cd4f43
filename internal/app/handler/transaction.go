package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"camptrade/internal/app/logger"
	"camptrade/internal/app/model"
	"camptrade/internal/app/service/exchange"
)

type Exchange interface {
	Create(ctx context.Context, caller *model.Caller, in exchange.CreateRequest) (*exchange.CreateResult, error)
	Approve(ctx context.Context, caller *model.Caller, transactionID string) error
	Verify(ctx context.Context, caller *model.Caller, transactionID, code, codeKind string) (*model.SettlementResult, error)
	ListForUser(ctx context.Context, caller *model.Caller) ([]model.UserTransaction, error)
	Get(ctx context.Context, caller *model.Caller, transactionID string) (*model.UserTransaction, error)
	RewardBalance(ctx context.Context, caller *model.Caller) (*model.RewardBalance, error)
}

type TransactionHandler struct {
	exchange Exchange
}

func NewTransactionHandler(ex Exchange) *TransactionHandler {
	return &TransactionHandler{exchange: ex}
}

type createTransactionRequest struct {
	ItemID    string          `json:"itemId" validate:"required,max=128"`
	ItemType  string          `json:"itemType" validate:"required,oneof=sell rent donate"`
	ItemTitle string          `json:"itemTitle" validate:"max=256"`
	Price     decimal.Decimal `json:"price" validate:"-"`
	SellerID  string          `json:"sellerId" validate:"required,max=128"`
}

type verifyTransactionRequest struct {
	Code     string `json:"code" validate:"required,max=1024"`
	CodeKind string `json:"codeKind" validate:"required,oneof=pin qr"`
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Transaction.Create")
	l.Debug().Send()

	c, err := ReadContextCaller(ctx)
	if err != nil {
		writeServiceError(w, l, err)
		return
	}

	in := &createTransactionRequest{}
	if err := readBody(r, in); err != nil {
		l.Debug().Err(err).Msg("Body read failed")
		WriteError(w, err, http.StatusBadRequest)
		return
	}

	if !validateData(w, in) {
		return
	}

	res, err := h.exchange.Create(ctx, c, exchange.CreateRequest{
		ItemID:    in.ItemID,
		Category:  in.ItemType,
		ItemTitle: in.ItemTitle,
		Price:     in.Price,
		SellerID:  in.SellerID,
	})
	if err != nil {
		writeServiceError(w, l, err)
		return
	}

	WriteResponse(w, res, http.StatusOK)
}

func (h *TransactionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Transaction.Approve")

	c, err := ReadContextCaller(ctx)
	if err != nil {
		writeServiceError(w, l, err)
		return
	}

	if err := h.exchange.Approve(ctx, c, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, l, err)
		return
	}

	WriteResponse(w, struct {
		OK bool `json:"ok"`
	}{OK: true}, http.StatusOK)
}

func (h *TransactionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Transaction.Verify")

	c, err := ReadContextCaller(ctx)
	if err != nil {
		writeServiceError(w, l, err)
		return
	}

	in := &verifyTransactionRequest{}
	if err := readBody(r, in); err != nil {
		l.Debug().Err(err).Msg("Body read failed")
		WriteError(w, err, http.StatusBadRequest)
		return
	}

	if !validateData(w, in) {
		return
	}

	res, err := h.exchange.Verify(ctx, c, chi.URLParam(r, "id"), in.Code, in.CodeKind)
	if err != nil {
		writeServiceError(w, l, err)
		return
	}

	WriteResponse(w, res, http.StatusOK)
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Transaction.List")
	l.Debug().Send()

	c, err := ReadContextCaller(ctx)
	if err != nil {
		writeServiceError(w, l, err)
		return
	}

	mm, err := h.exchange.ListForUser(ctx, c)
	if err != nil {
		writeServiceError(w, l, err)
		return
	}

	if len(mm) == 0 {
		WriteResponse(w, nil, http.StatusNoContent)
		return
	}

	WriteResponse(w, mm, http.StatusOK)
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Transaction.Get")

	c, err := ReadContextCaller(ctx)
	if err != nil {
		writeServiceError(w, l, err)
		return
	}

	m, err := h.exchange.Get(ctx, c, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, l, err)
		return
	}

	l.Debug().Msgf("response json: %s", jsonString(m))

	WriteResponse(w, m, http.StatusOK)
}
