// Package datadog implements the VendorClient port against the Datadog REST API.
package datadog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	"golang.org/x/time/rate"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
	"github.com/ericfisherdev/setoolkit/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.VendorClient = (*Client)(nil)

const (
	// DefaultTimeout bounds every request that is not already bounded by its context.
	DefaultTimeout = 30 * time.Second
	// DefaultRateLimit is the sustained request rate per client (requests per second).
	DefaultRateLimit = 5

	headerAPIKey = "DD-API-KEY"
	headerAppKey = "DD-APPLICATION-KEY"

	maxErrorBody = 4 << 10
)

// APIError is returned when the API answers with an unexpected status code.
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("datadog API error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Client implements driven.VendorClient for one region and key pair.
type Client struct {
	region   model.Region
	baseURL  string
	apiKey   string
	appKey   string
	http     *http.Client
	pollHTTP *http.Client
	limiter  *rate.Limiter

	cacheEntries int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The event polling client
// wraps the same transport with an in-memory HTTP cache.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithBaseURL overrides the region's API URL. Intended for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithRateLimit sets a custom sustained request rate.
func WithRateLimit(requestsPerSecond int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithCacheEntries caps the number of event poll responses held in memory.
func WithCacheEntries(n int) Option {
	return func(c *Client) {
		c.cacheEntries = n
	}
}

// NewClient creates a client with the following transport stack for event
// polling:
//  1. httpcache (ETag/Cache-Control conditional request caching) over a
//     bounded LRU store
//  2. the base transport (http.DefaultTransport unless overridden)
//
// Validation and writes bypass the cache.
func NewClient(region model.Region, apiKey, appKey string, opts ...Option) *Client {
	c := &Client{
		region:  region,
		baseURL: strings.TrimRight(region.APIURL, "/"),
		apiKey:  apiKey,
		appKey:  appKey,
		http:    &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),

		cacheEntries: DefaultCacheEntries,
	}

	for _, opt := range opts {
		opt(c)
	}

	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	cacheTransport := httpcache.NewTransport(newBoundedCache(c.cacheEntries))
	cacheTransport.Transport = base
	c.pollHTTP = &http.Client{Transport: cacheTransport, Timeout: c.http.Timeout}

	return c
}

// NewFactory returns a driven.VendorClientFactory that applies opts to every client.
func NewFactory(opts ...Option) driven.VendorClientFactory {
	return func(region model.Region, apiKey, appKey string) driven.VendorClient {
		return NewClient(region, apiKey, appKey, opts...)
	}
}

// Region returns the region this client talks to.
func (c *Client) Region() model.Region {
	return c.region
}

type validateResponse struct {
	Status string `json:"status"`
	Valid  *bool  `json:"valid,omitempty"`
}

// ValidateKeys calls GET /api/v2/validate_keys with the bound key pair.
// It returns true only for a 2xx response whose status field is "ok".
// 401 and 403 are definitive rejections and return (false, nil).
func (c *Client) ValidateKeys(ctx context.Context) (bool, error) {
	const endpoint = "/api/v2/validate_keys"

	resp, err := c.do(ctx, c.http, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return false, newAPIError(resp, endpoint)
	}

	var body validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode validate response from %s: %w", c.region.ID, err)
	}

	if !strings.EqualFold(body.Status, "ok") {
		return false, nil
	}
	if body.Valid != nil && !*body.Valid {
		return false, nil
	}
	return true, nil
}

type eventJSON struct {
	ID           int64    `json:"id,omitempty"`
	Title        string   `json:"title"`
	Text         string   `json:"text"`
	AlertType    string   `json:"alert_type,omitempty"`
	Priority     string   `json:"priority,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	SourceType   string   `json:"source_type_name,omitempty"`
	DateHappened int64    `json:"date_happened,omitempty"`
}

type listEventsResponse struct {
	Events []eventJSON `json:"events"`
}

type postEventResponse struct {
	Status string    `json:"status"`
	Event  eventJSON `json:"event"`
}

// ListEvents calls GET /api/v1/events for the given window.
func (c *Client) ListEvents(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	const endpoint = "/api/v1/events"

	params := url.Values{}
	params.Set("start", strconv.FormatInt(start.Unix(), 10))
	params.Set("end", strconv.FormatInt(end.Unix(), 10))

	resp, err := c.do(ctx, c.pollHTTP, http.MethodGet, endpoint, params, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp, endpoint)
	}

	var body listEventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode events from %s: %w", c.region.ID, err)
	}

	events := make([]model.Event, 0, len(body.Events))
	for _, e := range body.Events {
		events = append(events, mapEvent(e))
	}
	return events, nil
}

// PostEvent calls POST /api/v1/events.
func (c *Client) PostEvent(ctx context.Context, event model.Event) (model.Event, error) {
	const endpoint = "/api/v1/events"

	payload, err := json.Marshal(eventJSON{
		Title:      event.Title,
		Text:       event.Text,
		AlertType:  event.AlertType,
		Priority:   event.Priority,
		Tags:       event.Tags,
		SourceType: event.Source,
	})
	if err != nil {
		return model.Event{}, fmt.Errorf("encode event: %w", err)
	}

	resp, err := c.do(ctx, c.http, http.MethodPost, endpoint, nil, payload)
	if err != nil {
		return model.Event{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return model.Event{}, newAPIError(resp, endpoint)
	}

	var body postEventResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return model.Event{}, fmt.Errorf("decode posted event: %w", err)
	}

	return mapEvent(body.Event), nil
}

// do waits for the rate limiter and issues an authenticated request.
func (c *Client) do(ctx context.Context, hc *http.Client, method, endpoint string, params url.Values, body []byte) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait for %s: %w", c.region.ID, err)
	}

	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(headerAPIKey, c.apiKey)
	if c.appKey != "" {
		req.Header.Set(headerAppKey, c.appKey)
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s (%s): %w", method, endpoint, c.region.ID, err)
	}

	slog.Debug("datadog request",
		"region", c.region.ID,
		"method", method,
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"cached", resp.Header.Get(httpcache.XFromCache) != "",
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return resp, nil
}

func newAPIError(resp *http.Response, endpoint string) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Message: msg}
}

func mapEvent(e eventJSON) model.Event {
	var created time.Time
	if e.DateHappened > 0 {
		created = time.Unix(e.DateHappened, 0).UTC()
	}
	return model.Event{
		ID:        e.ID,
		Title:     e.Title,
		Text:      e.Text,
		AlertType: e.AlertType,
		Priority:  e.Priority,
		Tags:      e.Tags,
		Source:    e.SourceType,
		CreatedAt: created,
	}
}
