package handler

import (
	"net/http"

	"camptrade/internal/app/logger"
)

type RewardHandler struct {
	exchange Exchange
}

func NewRewardHandler(ex Exchange) *RewardHandler {
	return &RewardHandler{exchange: ex}
}

func (h *RewardHandler) Balance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Reward.Balance")
	l.Debug().Send()

	c, err := ReadContextCaller(ctx)
	if err != nil {
		writeServiceError(w, l, err)
		return
	}

	b, err := h.exchange.RewardBalance(ctx, c)
	if err != nil {
		writeServiceError(w, l, err)
		return
	}

	WriteResponse(w, b, http.StatusOK)
}
