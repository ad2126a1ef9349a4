package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	httphandler "github.com/ericfisherdev/setoolkit/internal/adapter/driving/http"
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("setoolkit returned %d", e.StatusCode)
	}
	return fmt.Sprintf("setoolkit returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the local setoolkit REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the service listening on addr (host:port).
func NewClient(addr string, timeout time.Duration) *Client {
	return &Client{
		baseURL: "http://" + addr + "/api/v1",
		http:    &http.Client{Timeout: timeout},
	}
}

// Validate probes the regions with the given key pair, or with the stored pair
// when both keys are empty.
func (c *Client) Validate(ctx context.Context, apiKey, appKey string) (httphandler.ValidationResponse, error) {
	var body any
	if apiKey != "" || appKey != "" {
		body = httphandler.CredentialsRequest{APIKey: apiKey, AppKey: appKey}
	}
	var out httphandler.ValidationResponse
	err := c.do(ctx, http.MethodPost, "/credentials/validate", nil, body, &out)
	return out, err
}

// Regions lists the vendor regions in probe order.
func (c *Client) Regions(ctx context.Context) ([]httphandler.RegionResponse, error) {
	var out []httphandler.RegionResponse
	err := c.do(ctx, http.MethodGet, "/regions", nil, nil, &out)
	return out, err
}

// Plugins lists plugins, optionally restricted to an execution context.
func (c *Client) Plugins(ctx context.Context, execCtx string) ([]httphandler.PluginResponse, error) {
	q := url.Values{}
	if execCtx != "" {
		q.Set("context", execCtx)
	}
	var out []httphandler.PluginResponse
	err := c.do(ctx, http.MethodGet, "/plugins", q, nil, &out)
	return out, err
}

// SetPluginEnabled toggles a plugin and returns its resulting state.
func (c *Client) SetPluginEnabled(ctx context.Context, id string, enabled bool) (httphandler.PluginResponse, error) {
	var out httphandler.PluginResponse
	err := c.do(ctx, http.MethodPut, "/plugins/"+url.PathEscape(id)+"/enabled", nil,
		httphandler.SetEnabledRequest{Enabled: &enabled}, &out)
	return out, err
}

// Traces lists captured trace records newest first.
func (c *Client) Traces(ctx context.Context, domain, traceID string, limit int) ([]httphandler.TraceResponse, error) {
	q := url.Values{}
	if domain != "" {
		q.Set("domain", domain)
	}
	if traceID != "" {
		q.Set("trace_id", traceID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []httphandler.TraceResponse
	err := c.do(ctx, http.MethodGet, "/traces", q, nil, &out)
	return out, err
}

// ClearTraces drops every trace record.
func (c *Client) ClearTraces(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/traces", nil, nil, nil)
}

// PruneTraces removes records past retention.
func (c *Client) PruneTraces(ctx context.Context, force bool) (httphandler.PruneResponse, error) {
	q := url.Values{}
	if force {
		q.Set("force", "true")
	}
	var out httphandler.PruneResponse
	err := c.do(ctx, http.MethodPost, "/traces/prune", q, nil, &out)
	return out, err
}

// Links lists quick-access links.
func (c *Client) Links(ctx context.Context) ([]httphandler.LinkResponse, error) {
	var out []httphandler.LinkResponse
	err := c.do(ctx, http.MethodGet, "/links", nil, nil, &out)
	return out, err
}

// AddLink creates a quick-access link.
func (c *Client) AddLink(ctx context.Context, req httphandler.AddLinkRequest) (httphandler.LinkResponse, error) {
	var out httphandler.LinkResponse
	err := c.do(ctx, http.MethodPost, "/links", nil, req, &out)
	return out, err
}

// RemoveLink deletes a quick-access link.
func (c *Client) RemoveLink(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/links/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// do sends a JSON request and decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e)
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
