package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// Client talks to the listings catalog.
type Client struct {
	apiURL     string
	httpClient *http.Client
	logger     zerolog.Logger
	breaker    *gobreaker.CircuitBreaker
	settings   gobreaker.Settings
}

func (c *Client) LoggerComponent() string {
	return "Catalog.Client"
}

func NewClient(apiURL string, opts ...ClientOption) (*Client, error) {
	if _, err := url.ParseRequestURI(apiURL); err != nil {
		return nil, fmt.Errorf("catalog url: %w", err)
	}

	c := &Client{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     log.Logger,
		settings: gobreaker.Settings{
			Name:        "catalog",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		},
	}

	for _, o := range opts {
		o(c)
	}

	c.logger = c.logger.With().Str("component", c.LoggerComponent()).Logger()

	l := c.logger
	c.settings.OnStateChange = func(name string, from, to gobreaker.State) {
		l.Warn().
			Str("breaker", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("Circuit breaker state changed")
	}
	c.breaker = gobreaker.NewCircuitBreaker(c.settings)

	return c, nil
}

type ClientOption func(*Client)

func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBreakerThreshold sets the consecutive failure count that opens the breaker
// and how long it stays open.
func WithBreakerThreshold(failures uint32, openFor time.Duration) ClientOption {
	return func(c *Client) {
		c.settings.Timeout = openFor
		c.settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		}
	}
}

// DeleteListing removes a listing. A listing that is already gone counts as deleted.
func (c *Client) DeleteListing(ctx context.Context, namespace, itemID string) error {
	l := c.logger.With().
		Str("method", "DeleteListing").
		Str("namespace", namespace).
		Str("item_id", itemID).
		Logger()
	ctx = l.WithContext(ctx)

	endpoint := fmt.Sprintf("/api/listings/%s/%s", url.PathEscape(namespace), url.PathEscape(itemID))

	_, err := c.breaker.Execute(func() (interface{}, error) {
		err := c.genericCall(ctx, http.MethodDelete, endpoint, nil, nil)
		var re *RemoteError
		if errors.As(err, &re) && re.StatusCode == http.StatusNotFound {
			l.Debug().Msg("Listing already absent")
			return nil, nil
		}
		return nil, err
	})
	if err != nil {
		return err
	}

	l.Debug().Msg("DeleteListing success")

	return nil
}

// PutListing creates or replaces a listing. Used for seeding the stub catalog.
func (c *Client) PutListing(ctx context.Context, in *Listing) error {
	l := c.logger.With().
		Str("method", "PutListing").
		Str("namespace", in.Namespace).
		Str("item_id", in.ID).
		Logger()
	ctx = l.WithContext(ctx)

	endpoint := fmt.Sprintf("/api/listings/%s/%s", url.PathEscape(in.Namespace), url.PathEscape(in.ID))

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.genericCall(ctx, http.MethodPut, endpoint, in, nil)
	})
	return err
}

type RemoteError struct {
	ResponseBody string
	StatusCode   int
}

func NewRemoteError(responseBody string, statusCode int) *RemoteError {
	return &RemoteError{ResponseBody: responseBody, StatusCode: statusCode}
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("catalog responded %d: %s", e.StatusCode, e.ResponseBody)
}
