package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"camptrade/internal/app/apperr"
	"camptrade/internal/app/logger"
	"camptrade/internal/app/model"
)

const maxBodySize = 1 << 20

var validate = validator.New()

// readBody into json struct
func readBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	_ = r.Body.Close()
	if err != nil {
		return fmt.Errorf("body read: %w", err)
	}

	err = json.Unmarshal(body, v)
	if err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

func jsonString(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

type jsonError struct {
	Message string `json:"error"`
}

// WriteError formatted in json
func WriteError(w http.ResponseWriter, err error, statusCode int) {
	WriteResponse(w, &jsonError{Message: err.Error()}, statusCode)
}

// WriteResponse formatted in json
func WriteResponse(w http.ResponseWriter, v interface{}, statusCode int) {
	if statusCode == http.StatusNoContent {
		w.WriteHeader(statusCode)
		return
	}

	resBody, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(resBody)
}

// statusCode maps service error kinds to HTTP statuses.
func statusCode(err error) int {
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrFailedPrecondition):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs and writes a service error with the matching status.
func writeServiceError(w http.ResponseWriter, l logger.Logger, err error) {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		l.Error().Err(err).Send()
		WriteError(w, apperr.ErrInternal, code)
		return
	}

	l.Debug().Err(err).Int("http_status", code).Send()
	WriteError(w, err, code)
}

type ValidationErrorResponse struct {
	Errors ValidationErrors `json:"errors"`
}

type ValidationErrors []ValidationError

type ValidationError struct {
	Msg   string `json:"msg"`
	Param string `json:"param"`
	Value string `json:"value"`
}

// validateData and send errors, returns true if no validation errors
func validateData(w http.ResponseWriter, v interface{}) bool {
	err := validate.Struct(v)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		WriteError(w, err, http.StatusBadRequest)
		return false
	}

	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Msg:   fe.Error(),
			Param: fe.Field(),
			Value: fmt.Sprintf("%v", fe.Value()),
		})
	}
	writeValidationErrors(w, out)

	return false
}

// writeValidationErrors formatted in json
func writeValidationErrors(w http.ResponseWriter, errors ValidationErrors) {
	WriteResponse(w, ValidationErrorResponse{errors}, http.StatusBadRequest)
}

type ContextKeyCaller struct{}

func ReadContextCaller(ctx context.Context) (*model.Caller, error) {
	v := ctx.Value(ContextKeyCaller{})
	if c, ok := v.(*model.Caller); ok {
		return c, nil
	}

	return nil, apperr.ErrUnauthenticated
}

func WithCaller(ctx context.Context, c *model.Caller) context.Context {
	return context.WithValue(ctx, ContextKeyCaller{}, c)
}
