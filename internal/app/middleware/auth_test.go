package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camptrade/internal/app/handler"
	"camptrade/internal/app/model"
	"camptrade/internal/app/session"
)

func TestAuth(t *testing.T) {
	sessions := session.NewJWT("secret")
	token, err := sessions.Issue(context.Background(), &model.Caller{ID: "B", Email: "b@camp.example"})
	require.NoError(t, err)

	var got *model.Caller
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = handler.ReadContextCaller(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := Auth(sessions)(next)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid", header: "Bearer " + token, want: http.StatusOK},
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "no scheme", header: token, want: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", want: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer abc.def.ghi", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				require.NotNil(t, got)
				assert.Equal(t, "B", got.ID)
			}
		})
	}
}
