// Command catalog runs an in-memory listings catalog for local development.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"camptrade/internal/app/logger"
	mw "camptrade/internal/app/middleware"
	"camptrade/internal/app/storage/memory"
	"camptrade/pkg/catalog"
)

func main() {
	listenAddr := pflag.StringP("listen-addr", "a", "127.0.0.1:8090", "Server address to listen on")
	pflag.Parse()

	// setting up signal capturing
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		osCall := <-stop
		log.Printf("System call: %+v", osCall)
		cancel()
	}()

	l := logger.New(true, true)

	if err := runServer(ctx, *listenAddr, l); err != nil {
		l.Fatal().Err(err).Msg("Server run failed")
	}
}

func runServer(ctx context.Context, listenAddr string, l logger.Logger) (err error) {
	srv := &http.Server{
		Addr:    listenAddr,
		Handler: newRouter(memory.NewCatalog(), l),
	}

	go func() {
		log.Printf("Listening on %s", listenAddr)
		if err = srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("")
		}
	}()

	<-ctx.Done()
	log.Printf("Server stopped")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Printf("Server exited properly")

	return
}

func newRouter(store *memory.Catalog, l logger.Logger) http.Handler {
	h := &listingHandler{store: store}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(mw.Log(l))
	r.Put("/api/listings/{namespace}/{id}", h.Put)
	r.Get("/api/listings/{namespace}/{id}", h.Get)
	r.Delete("/api/listings/{namespace}/{id}", h.Delete)

	return r
}

type listingHandler struct {
	store *memory.Catalog
}

func listingKey(r *http.Request) (string, string, bool) {
	ns, id := chi.URLParam(r, "namespace"), chi.URLParam(r, "id")
	switch ns {
	case catalog.NamespaceSell, catalog.NamespaceRent, catalog.NamespaceDonate:
		return ns, id, id != ""
	default:
		return ns, id, false
	}
}

func (h *listingHandler) Put(w http.ResponseWriter, r *http.Request) {
	ns, id, ok := listingKey(r)
	if !ok {
		http.Error(w, "unknown listing", http.StatusBadRequest)
		return
	}

	h.store.Put(ns, id)
	w.WriteHeader(http.StatusCreated)
}

func (h *listingHandler) Get(w http.ResponseWriter, r *http.Request) {
	ns, id, ok := listingKey(r)
	if !ok || !h.store.Has(ns, id) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(catalog.Listing{ID: id, Namespace: ns})
}

func (h *listingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ns, id, ok := listingKey(r)
	if !ok {
		http.Error(w, "unknown listing", http.StatusBadRequest)
		return
	}

	if !h.store.Has(ns, id) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	_ = h.store.DeleteListing(r.Context(), ns, id)
	w.WriteHeader(http.StatusNoContent)
}
