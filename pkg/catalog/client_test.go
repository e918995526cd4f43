package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, opts...)
	require.NoError(t, err)

	return c
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("not a url")
	assert.Error(t, err)
}

func TestClient_DeleteListing_OK(t *testing.T) {
	var gotMethod, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.DeleteListing(context.Background(), NamespaceSell, "I1"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/api/listings/items/I1", gotPath)
}

func TestClient_DeleteListing_NotFoundIsSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	assert.NoError(t, c.DeleteListing(context.Background(), NamespaceRent, "I1"))
}

func TestClient_DeleteListing_RemoteError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	err := c.DeleteListing(context.Background(), NamespaceDonate, "I1")
	require.Error(t, err)

	var re *RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusInternalServerError, re.StatusCode)
	assert.Contains(t, re.ResponseBody, "boom")
}

func TestClient_DeleteListing_BreakerOpens(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}, WithBreakerThreshold(2, time.Minute))

	ctx := context.Background()
	assert.Error(t, c.DeleteListing(ctx, NamespaceSell, "I1"))
	assert.Error(t, c.DeleteListing(ctx, NamespaceSell, "I1"))

	err := c.DeleteListing(ctx, NamespaceSell, "I1")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_PutListing(t *testing.T) {
	var gotPath, gotContentType string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
	})

	err := c.PutListing(context.Background(), &Listing{ID: "I1", Namespace: NamespaceSell, Title: "Tent"})
	require.NoError(t, err)
	assert.Equal(t, "/api/listings/items/I1", gotPath)
	assert.Equal(t, "application/json", gotContentType)
}
