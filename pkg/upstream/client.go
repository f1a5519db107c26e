// Package upstream fetches the full order row set from the spreadsheet-backed
// Apps Script endpoint.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redigma/partner-dashboard/pkg/logging"
	"github.com/redigma/partner-dashboard/pkg/rows"
	"github.com/rs/zerolog"
)

// Prometheus metrics for upstream fetches.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_upstream_requests_total",
		Help: "Total Apps Script fetches by outcome",
	}, []string{"status"})

	upstreamRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dashboard_upstream_request_duration_seconds",
		Help:    "Apps Script fetch duration in seconds",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
	})

	upstreamRowsFetched = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_upstream_rows_fetched",
		Help: "Number of rows returned by the last successful fetch",
	})
)

// Config holds the upstream client configuration.
type Config struct {
	// URL of the deployed Apps Script web app. Empty means not configured.
	URL string

	// Timeout for a single fetch. Zero leaves it to the transport.
	Timeout time.Duration

	// UserAgent sent with every request.
	UserAgent string
}

// DefaultConfig returns the configuration used when only a URL is known.
func DefaultConfig(url string) Config {
	return Config{
		URL:       url,
		UserAgent: "partner-dashboard/1.0",
	}
}

// Client performs the single full-table fetch.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates an upstream client.
func New(cfg Config) *Client {
	return &Client{
		// The default client follows redirects, which the Apps Script
		// deployment relies on (script.google.com -> googleusercontent.com).
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		logger:     logging.NewLogger(logging.ComponentUpstream),
	}
}

// payload is the Apps Script response envelope.
type payload struct {
	Data  json.RawMessage `json:"data"`
	Error any             `json:"error"`
}

// Fetch retrieves every row. The body is buffered in full before decoding.
func (c *Client) Fetch(ctx context.Context) ([]rows.Row, error) {
	if c.config.URL == "" {
		return nil, ErrNotConfigured
	}

	start := time.Now()
	defer func() {
		upstreamRequestDuration.Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		upstreamRequestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Error().Err(err).Msg("Apps Script request failed")
		return nil, &Error{Kind: KindTransport, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		upstreamRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
		c.logger.Warn().
			Int("status_code", resp.StatusCode).
			Msg("Apps Script returned non-success status")
		return nil, &Error{
			Kind:       KindTransport,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		upstreamRequestsTotal.WithLabelValues("read_error").Inc()
		return nil, &Error{Kind: KindTransport, Message: "read body", Err: err}
	}

	result, err := decode(body)
	if err != nil {
		upstreamRequestsTotal.WithLabelValues(string(errorKind(err))).Inc()
		c.logger.Warn().Err(err).Msg("Apps Script payload rejected")
		return nil, err
	}

	upstreamRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	upstreamRowsFetched.Set(float64(len(result)))
	c.logger.Info().
		Int("rows", len(result)).
		Dur("duration", time.Since(start)).
		Msg("Fetched rows from Apps Script")

	return result, nil
}

// decode parses the envelope and surfaces an explicit error field.
func decode(body []byte) ([]rows.Row, error) {
	var p payload
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return nil, &Error{Kind: KindDecode, Message: "invalid JSON body", Err: err}
	}

	if msg, ok := errorMessage(p.Error); ok {
		return nil, &Error{Kind: KindUpstream, Message: msg}
	}

	if len(p.Data) == 0 || string(p.Data) == "null" {
		return nil, &Error{Kind: KindDecode, Message: "payload has no data field"}
	}

	var result []rows.Row
	if err := json.Unmarshal(p.Data, &result); err != nil {
		return nil, &Error{Kind: KindDecode, Message: "data is not an array of objects", Err: err}
	}
	if result == nil {
		result = []rows.Row{}
	}
	return result, nil
}

// errorMessage reports whether the error field is set to a truthy value.
func errorMessage(v any) (string, bool) {
	switch e := v.(type) {
	case nil:
		return "", false
	case string:
		return e, e != ""
	case bool:
		return "upstream reported an error", e
	case json.Number:
		return e.String(), e.String() != "0"
	default:
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Sprint(e), true
		}
		return string(b), true
	}
}

func errorKind(err error) ErrorKind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindDecode
}

// URL returns the configured endpoint.
func (c *Client) URL() string {
	return c.config.URL
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
