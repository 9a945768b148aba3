// Package source fetches raw fares from the airline's public GraphQL search.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FarePull/internal/domain/models"
	drepo "FarePull/internal/domain/repository"
	svcmetrics "FarePull/internal/service/metrics"
	xhttp "FarePull/pkg/http"
	applogger "FarePull/pkg/logger"
)

const userAgent = "farepull/1.0"

var (
	// ErrTransient covers network failures, timeouts and retryable upstream statuses.
	ErrTransient = errors.New("source: transient failure")
	// ErrMalformedPayload means the response could not be decoded at all.
	ErrMalformedPayload = errors.New("source: malformed payload")
	// ErrUpstreamStatus means the upstream answered but refused the query.
	ErrUpstreamStatus = errors.New("source: upstream rejected request")
)

// IsRetryable reports whether another attempt of the same query may succeed.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	if se, ok := xhttp.AsStatusError(err); ok {
		return se.Temporary()
	}
	return false
}

// Config describes the upstream endpoint.
type Config struct {
	URL      string
	APIKey   string
	Currency string
	Headers  map[string]string
	Timeout  time.Duration
}

// Client implements repository.FareFetcher.
type Client struct {
	cfg  Config
	http *xhttp.Client
	dec  *decoder
	l    *applogger.Logger
	now  func() time.Time
}

var _ drepo.FareFetcher = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the transport, mostly for tests.
func WithHTTPClient(c *xhttp.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func New(cfg Config, l *applogger.Logger, opts ...Option) *Client {
	if cfg.Currency == "" {
		cfg.Currency = "ARS"
	}
	svcmetrics.Register()
	c := &Client{
		cfg:  cfg,
		http: xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout), xhttp.WithUserAgent(userAgent)),
		dec:  newDecoder(),
		l:    l,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchFares runs one search. The caller owns the deadline; ctx cancellation aborts the request.
func (c *Client) FetchFares(ctx context.Context, q models.FareQuery) (*models.FareBatch, error) {
	if q.Passengers < 1 {
		return nil, fmt.Errorf("fetch fares: passengers must be >= 1, got %d", q.Passengers)
	}
	currency := q.Currency
	if currency == "" {
		currency = c.cfg.Currency
	}

	headers := make(map[string]string, len(c.cfg.Headers)+1)
	for k, v := range c.cfg.Headers {
		headers[k] = v
	}
	if c.cfg.APIKey != "" {
		headers["Authorization"] = "Key " + c.cfg.APIKey
	}

	start := time.Now()
	var body []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     c.cfg.URL,
		Headers: headers,
		Body: graphQLRequest{
			Query: flightSearchQuery,
			Variables: queryVariables{Input: flightsInput{
				Origin:        q.Origin,
				Destination:   q.Destination,
				DepartureDate: q.Pair.Departure,
				ReturnDate:    q.Pair.Return,
				Currency:      currency,
				Pax:           paxInput{Adults: q.Passengers},
			}},
		},
	}, &body)
	svcmetrics.SourceLatency.WithLabelValues("fetch").Observe(time.Since(start).Seconds())
	if err != nil {
		err = classify(ctx, err)
		svcmetrics.SourceRequests.WithLabelValues("fetch", resultLabel(err)).Inc()
		return nil, fmt.Errorf("fetch fares %s: %w", q.Pair.Label(), err)
	}

	records, warnings, err := c.dec.decode(body)
	if err != nil {
		svcmetrics.SourceRequests.WithLabelValues("fetch", resultLabel(err)).Inc()
		return nil, fmt.Errorf("fetch fares %s: %w", q.Pair.Label(), err)
	}
	svcmetrics.SourceRequests.WithLabelValues("fetch", "ok").Inc()
	if warnings > 0 {
		svcmetrics.SourceParseWarnings.Add(float64(warnings))
		c.l.Debug("skipped undecodable fares",
			applogger.String("pair", q.Pair.Label()),
			applogger.Int("warnings", warnings),
		)
	}

	return &models.FareBatch{Records: records, ParseWarnings: warnings, FetchedAt: c.now()}, nil
}

func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return err
	}
	if se, ok := xhttp.AsStatusError(err); ok {
		if se.Temporary() {
			return fmt.Errorf("%w: %w", ErrTransient, se)
		}
		return fmt.Errorf("%w: %w", ErrUpstreamStatus, se)
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrMalformedPayload):
		return "malformed"
	case errors.Is(err, ErrUpstreamStatus):
		return "rejected"
	case errors.Is(err, ErrTransient):
		return "transient"
	default:
		return "error"
	}
}
