package main

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camptrade/internal/app/logger"
	"camptrade/internal/app/storage/memory"
	"camptrade/pkg/catalog"
)

func TestCatalogServer_WithClient(t *testing.T) {
	store := memory.NewCatalog()
	srv := httptest.NewServer(newRouter(store, logger.New(false, false)))
	defer srv.Close()

	c, err := catalog.NewClient(srv.URL)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.PutListing(ctx, &catalog.Listing{ID: "I1", Namespace: catalog.NamespaceSell}))
	assert.True(t, store.Has(catalog.NamespaceSell, "I1"))

	require.NoError(t, c.DeleteListing(ctx, catalog.NamespaceSell, "I1"))
	assert.False(t, store.Has(catalog.NamespaceSell, "I1"))

	assert.NoError(t, c.DeleteListing(ctx, catalog.NamespaceSell, "I1"), "absent listing deletes cleanly")
}

func TestCatalogServer_UnknownNamespace(t *testing.T) {
	srv := httptest.NewServer(newRouter(memory.NewCatalog(), logger.New(false, false)))
	defer srv.Close()

	c, err := catalog.NewClient(srv.URL)
	require.NoError(t, err)

	var re *catalog.RemoteError
	err = c.DeleteListing(context.Background(), "furniture", "I1")
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 400, re.StatusCode)
}
