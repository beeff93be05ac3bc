package coolify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultPort is Coolify's conventional management port. The API is not
// served on the default scheme port, so a bare host must have this appended
// or every call fails with a connection error that looks like the server is
// down.
const DefaultPort = "8000"

// ErrNoServers means the orchestrator is reachable but has no compute nodes
// registered, so there is nowhere to schedule an application.
var ErrNoServers = errors.New("no compute nodes registered in the orchestrator")

// ResponseFormatError reports a non-JSON body where JSON was expected,
// typically an HTML error page from a misconfigured reverse proxy in front
// of the orchestrator.
type ResponseFormatError struct {
	Op      string
	Excerpt string
}

func (e *ResponseFormatError) Error() string {
	return fmt.Sprintf("coolify %s returned an unexpected response format (not JSON): %q", e.Op, e.Excerpt)
}

// APIError is a non-2xx response from the orchestrator.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("coolify %s failed: status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("coolify %s failed: status %d", e.Op, e.Status)
}

// Client is the HTTP client for the Coolify management API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	debug      bool
}

// NewClient creates a client for the orchestrator at rawURL. The URL is
// normalized before use; see NormalizeBaseURL.
func NewClient(rawURL, token string, debug bool) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("coolify api token is required")
	}
	base, err := NormalizeBaseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		debug: debug,
	}, nil
}

// BaseURL returns the normalized base URL the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// NormalizeBaseURL coerces a bare host or IP into a full base URL: an
// explicit scheme (http when none is given) and the management port when no
// port is specified.
func NormalizeBaseURL(raw string) (string, error) {
	s := strings.TrimSpace(strings.TrimRight(raw, "/"))
	if s == "" {
		return "", fmt.Errorf("empty orchestrator URL")
	}

	if !strings.Contains(s, "://") {
		s = "http://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid orchestrator URL %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid orchestrator URL %q: no host", raw)
	}

	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), DefaultPort)
	}

	return u.Scheme + "://" + u.Host, nil
}

// doRequest performs one authenticated API call and returns the raw body.
// Idempotent GETs are retried on transient failures with a short backoff;
// writes are attempted exactly once, since retrying an ambiguous failure can
// create duplicate remote objects.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	backoffs := []time.Duration{0}
	if method == http.MethodGet {
		backoffs = []time.Duration{0, 300 * time.Millisecond, 900 * time.Millisecond}
	}

	var lastErr error
	for attempt, delay := range backoffs {
		if delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			if c.debug {
				fmt.Printf("[coolify] retrying %s %s (attempt %d)\n", method, path, attempt+1)
			}
		}

		data, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if !isRetryable(err) {
			break
		}
	}
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api/v1"+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.debug {
		fmt.Printf("[coolify] %s %s\n", method, path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &APIError{Op: method + " " + path, Status: resp.StatusCode, Message: "invalid API token"}
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Op: method + " " + path, Status: resp.StatusCode}
		var envelope struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(respBody, &envelope) == nil {
			if envelope.Message != "" {
				apiErr.Message = envelope.Message
			} else {
				apiErr.Message = envelope.Error
			}
		}
		return nil, apiErr
	}

	return respBody, nil
}

// decode parses data as JSON into v. A body that is not JSON at all (an HTML
// error page from a proxy, usually) is surfaced as ResponseFormatError with
// an excerpt instead of an opaque parser error.
func decode(op string, data []byte, v interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] == '<' {
		return &ResponseFormatError{Op: op, Excerpt: excerpt(data)}
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return &ResponseFormatError{Op: op, Excerpt: excerpt(data)}
	}
	return nil
}

func excerpt(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	var fmtErr *ResponseFormatError
	if errors.As(err, &fmtErr) {
		return false
	}
	// Transport-level failures (timeouts, refused connections) are worth a
	// second attempt for reads.
	return true
}
