package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camptrade/internal/app/apperr"
	"camptrade/internal/app/logger"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: apperr.ErrUnauthenticated, want: http.StatusUnauthorized},
		{err: pkgerrors.Wrap(apperr.ErrInvalidArgument, "code does not match"), want: http.StatusBadRequest},
		{err: pkgerrors.Wrap(apperr.ErrPermissionDenied, "only the seller can verify"), want: http.StatusForbidden},
		{err: pkgerrors.Wrap(apperr.ErrNotFound, "transaction x"), want: http.StatusNotFound},
		{err: apperr.ErrFailedPrecondition, want: http.StatusConflict},
		{err: apperr.ErrTooManyAttempts, want: http.StatusTooManyRequests},
		{err: apperr.ErrInternal, want: http.StatusInternalServerError},
		{err: errors.New("anything else"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusCode(tt.err), tt.err.Error())
	}
}

func TestWriteServiceError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, *logger.Global(), errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pq")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestValidateData(t *testing.T) {
	rec := httptest.NewRecorder()
	ok := validateData(rec, &verifyTransactionRequest{Code: "123456", CodeKind: "nfc"})
	require.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	out := ValidationErrorResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "CodeKind", out.Errors[0].Param)
	assert.Equal(t, "nfc", out.Errors[0].Value)

	assert.True(t, validateData(httptest.NewRecorder(), &verifyTransactionRequest{Code: "123456", CodeKind: "pin"}))
}

func TestWriteResponse_NoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteResponse(rec, nil, http.StatusNoContent)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())
}
