package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"camptrade/internal/app/handler"
	mw "camptrade/internal/app/middleware"
)

func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(mw.Log(a.logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", a.metrics.Handler())

	th := handler.NewTransactionHandler(a.exchange)
	rh := handler.NewRewardHandler(a.exchange)

	r.Route("/api", func(r chi.Router) {
		r.Use(mw.Auth(a.session))

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", th.Create)
			r.Get("/", th.List)
			r.Get("/{id}", th.Get)
			r.Post("/{id}/approve", th.Approve)
			r.Post("/{id}/verify", th.Verify)
		})

		r.Get("/rewards/balance", rh.Balance)
	})

	return r
}
