// Package cooksync provides a client for the Cooksync export API.
package cooksync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cooksync/cooksync/internal/domain"
)

// Defaults match the values the Obsidian plugin used.
const (
	DefaultClientTarget   = "obsidian"
	DefaultClientIDHeader = "Obsidian-Client"
	DefaultTimeout        = 30 * time.Second
)

// Config configures a Client.
type Config struct {
	BaseURL        string
	ClientTarget   string
	ClientIDHeader string
	Timeout        time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client talks to the Cooksync service.
type Client struct {
	baseURL        string
	clientTarget   string
	clientIDHeader string
	httpClient     *http.Client
}

// NewClient creates a new API client.
func NewClient(cfg Config) *Client {
	if cfg.ClientTarget == "" {
		cfg.ClientTarget = DefaultClientTarget
	}
	if cfg.ClientIDHeader == "" {
		cfg.ClientIDHeader = DefaultClientIDHeader
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		clientTarget:   cfg.ClientTarget,
		clientIDHeader: cfg.ClientIDHeader,
		httpClient:     hc,
	}
}

// ClientTarget returns the export target this client identifies as.
func (c *Client) ClientTarget() string {
	return c.clientTarget
}

// AuthorizationURL is the browser page where the user links deviceID to
// their account.
func (c *Client) AuthorizationURL(deviceID string) string {
	return addQuery(c.baseURL+"/export", map[string]string{
		"uuid":    deviceID,
		"service": c.clientTarget,
	})
}

// CustomizeURL is the browser page where the user configures how
// recipes are rendered for this client.
func (c *Client) CustomizeURL() string {
	return c.baseURL + "/export/" + url.PathEscape(c.clientTarget)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	// StatusText is the reason phrase, e.g. "Internal Server Error".
	StatusText string
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("cooksync api (%d)", e.StatusCode)
	if e.StatusText != "" {
		msg += " " + e.StatusText
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Unwrap maps status codes the service uses with a fixed meaning to the
// domain sentinels.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrUnauthorized
	case http.StatusConflict:
		return domain.ErrConflict
	case http.StatusExpectationFailed:
		return domain.ErrLocked
	default:
		return nil
	}
}

// FetchToken looks up the token registered for deviceID. It returns an
// empty string while the user has not finished authorizing.
func (c *Client) FetchToken(ctx context.Context, deviceID string) (string, error) {
	endpoint := addQuery(c.baseURL+"/api/clients/token", map[string]string{"uuid": deviceID})
	body, _, err := c.doRequest(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return "", err
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: parse token response: %v", domain.ErrProtocol, err)
	}
	return payload.Token, nil
}

type exportRequest struct {
	ExportTarget string  `json:"exportTarget"`
	RecipeIDs    []int64 `json:"recipeIds"`
}

// Export asks the server for the records not in importedIDs. A nil slice
// with a nil error means the client is up to date.
func (c *Client) Export(ctx context.Context, token, deviceID string, importedIDs []int64) ([]domain.ExportRecord, error) {
	if importedIDs == nil {
		importedIDs = []int64{}
	}
	endpoint := c.baseURL + "/api/recipes/export/" + url.PathEscape(c.clientTarget)
	headers := map[string]string{
		"Authorization":  "Bearer " + token,
		c.clientIDHeader: deviceID,
	}
	body, _, err := c.doRequest(ctx, http.MethodPost, endpoint, exportRequest{
		ExportTarget: c.clientTarget,
		RecipeIDs:    importedIDs,
	}, headers)
	if err != nil {
		return nil, err
	}
	return decodeExport(body)
}

// decodeExport treats an absent or falsy JSON body as "nothing new".
func decodeExport(body []byte) ([]domain.ExportRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var raw any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse export response: %v", domain.ErrProtocol, err)
	}
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		if !v {
			return nil, nil
		}
	case string:
		if v == "" {
			return nil, nil
		}
	case float64:
		if v == 0 {
			return nil, nil
		}
	case []any:
		if len(v) == 0 {
			return nil, nil
		}
		var records []domain.ExportRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("%w: parse export records: %v", domain.ErrProtocol, err)
		}
		return records, nil
	}
	return nil, fmt.Errorf("%w: export response is not a record list", domain.ErrProtocol)
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, payload any, headers map[string]string) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return nil, 0, fmt.Errorf("encode payload: %w", err)
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "cooksync")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read body: %v", domain.ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, &StatusError{
			StatusCode: resp.StatusCode,
			StatusText: statusText(resp),
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	return raw, resp.StatusCode, nil
}

// statusText returns the reason phrase the server sent, falling back to
// the standard one.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func addQuery(endpoint string, values map[string]string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	for key, value := range values {
		q.Set(key, value)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
