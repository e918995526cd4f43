package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

func (c *Client) genericCall(ctx context.Context, method, endpoint string, in interface{}, out interface{}) error {
	l := zerolog.Ctx(ctx).With().Str("http_method", method).Str("endpoint", endpoint).Logger()
	ctx = l.WithContext(ctx)

	res, err := c.request(ctx, method, endpoint, in)
	if err != nil {
		l.Error().Err(err).
			Msg("Catalog request failed")
		return fmt.Errorf("request: %w", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode >= 300 {
		resBody := readString(res.Body)
		l.Error().
			Int("http_status", res.StatusCode).
			Str("http_body", resBody).
			Msg("Catalog responded with error")
		return NewRemoteError(resBody, res.StatusCode)
	}

	if out == nil {
		return nil
	}

	if err := readJSON(res.Body, out); err != nil {
		return fmt.Errorf("body read: %w", err)
	}

	return nil
}

func (c *Client) request(ctx context.Context, method, endpoint string, bodyParams interface{}) (*http.Response, error) {
	fullURL := c.apiURL + endpoint
	l := zerolog.Ctx(ctx).With().
		Str("url", fullURL).
		Logger()

	var body io.Reader
	if bodyParams != nil {
		rawJSON, err := json.Marshal(bodyParams)
		if err != nil {
			return nil, fmt.Errorf("json encode: %w", err)
		}
		body = bytes.NewReader(rawJSON)
		l.Debug().Str("request_body", string(rawJSON)).Msg("Doing request")
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	req.Header.Add("Accept", "application/json")
	if body != nil {
		req.Header.Add("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	return res, nil
}

func readJSON(in io.Reader, v interface{}) error {
	body, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("io read: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

func readString(in io.Reader) string {
	body, err := io.ReadAll(in)
	if err != nil {
		return ""
	}

	return string(body)
}
