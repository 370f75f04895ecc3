// Package lootlocker talks to the LootLocker server API: it keeps a server
// session token and issues wallet credit and debit calls with it.
package lootlocker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultBaseURL is the public LootLocker API.
	DefaultBaseURL = "https://api.lootlocker.io"
	// DefaultAPIVersion is sent in the LL-Version header.
	DefaultAPIVersion = "2021-03-01"

	defaultTimeout = 30 * time.Second
)

// Config configures the HTTP client.
type Config struct {
	// BaseURL of the API (optional, defaults to DefaultBaseURL)
	BaseURL string

	// APIVersion for the LL-Version header (optional)
	APIVersion string

	// HTTPClient to use (optional)
	HTTPClient *http.Client

	// Timeout for requests when HTTPClient is nil (optional, defaults to 30s)
	Timeout time.Duration
}

// Client performs raw JSON calls against the server API.
type Client struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
}

// NewClient creates a client, filling in defaults.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    baseURL,
		apiVersion: apiVersion,
		httpClient: httpClient,
	}
}

// reply is an upstream response of any status.
type reply struct {
	status int
	body   []byte
}

func (r *reply) ok() bool {
	return r.status >= 200 && r.status < 300
}

// post sends payload as JSON. Only transport failures are returned as
// errors; the caller interprets the status.
func (c *Client) post(ctx context.Context, path string, headers map[string]string, payload any) (*reply, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create HTTP request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("LL-Version", c.apiVersion)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "POST %s failed", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	return &reply{status: resp.StatusCode, body: body}, nil
}
