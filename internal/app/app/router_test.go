package app

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camptrade/internal/app/config"
	"camptrade/internal/app/logger"
	"camptrade/internal/app/model"
	"camptrade/internal/app/storage/memory"
)

type testServer struct {
	*httptest.Server
	app *App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.New()
	cfg.Storage = config.StorageMemory
	cfg.SecretKey = "test-secret"
	cfg.Attempts = config.AttemptConfig{Max: 5, Window: time.Minute}
	cfg.Settlement.RetryInterval = time.Hour

	a, err := New(cfg, logger.New(false, false), embed.FS{})
	require.NoError(t, err)

	srv := httptest.NewServer(a.Router())
	t.Cleanup(func() {
		srv.Close()
		a.Stop()
	})

	return &testServer{Server: srv, app: a}
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := s.app.session.Issue(context.Background(), &model.Caller{ID: userID, Email: userID + "@camp.example"})
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()

	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := s.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	if out != nil && res.StatusCode < 300 && res.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}

	return res.StatusCode
}

type createResponse struct {
	TransactionID string `json:"transactionId"`
	PIN           string `json:"pin"`
	QRPayload     string `json:"qrPayload"`
}

func TestRouter_ExchangeFlow(t *testing.T) {
	s := newTestServer(t)
	buyer, seller := s.token(t, "B"), s.token(t, "S")

	listings := s.app.catalog.(*memory.Catalog)
	listings.Put("items", "I1")

	created := &createResponse{}
	code := s.do(t, http.MethodPost, "/api/transactions", buyer, map[string]interface{}{
		"itemId":    "I1",
		"itemType":  "sell",
		"itemTitle": "Camping stove",
		"price":     "500",
		"sellerId":  "S",
	}, created)
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, created.TransactionID)

	base := "/api/transactions/" + created.TransactionID

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, base+"/approve", buyer, nil, nil))
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, base+"/approve", seller, nil, nil))
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, base+"/approve", seller, nil, nil))

	sellerView := map[string]interface{}{}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, base, seller, nil, &sellerView))
	assert.Equal(t, "seller", sellerView["userRole"])
	assert.NotContains(t, sellerView, "pin")
	assert.NotContains(t, sellerView, "qrPayload")

	verify := map[string]string{"code": created.PIN, "codeKind": "pin"}
	result := &model.SettlementResult{}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, base+"/verify", seller, verify, result))
	assert.Equal(t, int64(10), result.BuyerPointsAwarded)
	assert.Equal(t, int64(15), result.SellerPointsAwarded)
	assert.False(t, listings.Has("items", "I1"))

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, base+"/verify", seller, verify, nil))

	balance := &model.RewardBalance{}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/rewards/balance", buyer, nil, balance))
	assert.Equal(t, int64(10), balance.Points)

	var list []map[string]interface{}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/transactions", buyer, nil, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "completed", list[0]["status"])
	assert.Equal(t, "buyer", list[0]["userRole"])
}

func TestRouter_Errors(t *testing.T) {
	s := newTestServer(t)
	buyer := s.token(t, "B")

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/transactions", "", nil, nil))
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodGet, "/api/transactions", buyer, nil, nil))
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/transactions/missing", buyer, nil, nil))

	selfDeal := map[string]interface{}{"itemId": "I1", "itemType": "sell", "price": "1", "sellerId": "B"}
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/transactions", buyer, selfDeal, nil))

	badType := map[string]interface{}{"itemId": "I1", "itemType": "auction", "price": "1", "sellerId": "S"}
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/transactions", buyer, badType, nil))
}

func TestRouter_Lockout(t *testing.T) {
	s := newTestServer(t)
	buyer, seller := s.token(t, "B"), s.token(t, "S")

	created := &createResponse{}
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/transactions", buyer, map[string]interface{}{
		"itemId": "I1", "itemType": "rent", "price": "0", "sellerId": "S",
	}, created))
	base := "/api/transactions/" + created.TransactionID
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, base+"/approve", seller, nil, nil))

	wrong := "100000"
	if created.PIN == wrong {
		wrong = "100001"
	}
	for i := 0; i < 5; i++ {
		code := s.do(t, http.MethodPost, base+"/verify", seller, map[string]string{"code": wrong, "codeKind": "pin"}, nil)
		require.Equal(t, http.StatusBadRequest, code)
	}

	code := s.do(t, http.MethodPost, base+"/verify", seller, map[string]string{"code": created.PIN, "codeKind": "pin"}, nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
}

func TestRouter_Probes(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", "", nil, nil))
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/metrics", "", nil, nil))
}
