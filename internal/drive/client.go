package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Default Drive endpoints.
const (
	DefaultAPIBaseURL    = "https://www.googleapis.com/drive/v3"
	DefaultUploadBaseURL = "https://www.googleapis.com/upload/drive/v3"
	userAgent            = "attendance-go/0.1"
)

// TokenSource provides OAuth2 bearer tokens. Defined at the consumer per Go
// convention "accept interfaces, return structs"; the auth controller is
// the real implementation. ctx bounds any refresh the source performs.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client is an HTTP client for the Drive v3 API. It handles request
// construction, bearer authentication, and error classification.
type Client struct {
	apiBaseURL    string
	uploadBaseURL string
	httpClient    *http.Client
	token         TokenSource
	logger        *slog.Logger
}

// NewClient creates a Drive API client. Empty base URLs fall back to the
// public Google endpoints.
func NewClient(apiBaseURL, uploadBaseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if apiBaseURL == "" {
		apiBaseURL = DefaultAPIBaseURL
	}

	if uploadBaseURL == "" {
		uploadBaseURL = DefaultUploadBaseURL
	}

	return &Client{
		apiBaseURL:    strings.TrimRight(apiBaseURL, "/"),
		uploadBaseURL: strings.TrimRight(uploadBaseURL, "/"),
		httpClient:    httpClient,
		token:         token,
		logger:        logger,
	}
}

// CheckEndpoints validates that both base URLs are absolute http(s) URLs.
// It makes no network calls.
func (c *Client) CheckEndpoints() error {
	for _, raw := range []string{c.apiBaseURL, c.uploadBaseURL} {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("drive: invalid endpoint %q: %w", raw, err)
		}

		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("drive: endpoint %q must be an absolute http(s) URL", raw)
		}
	}

	return nil
}

// do executes a single authenticated request. On 2xx the caller owns the
// response body; any other status is returned as *APIError.
func (c *Client) do(ctx context.Context, method, rawURL, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("drive: creating request: %w", err)
	}

	tok, err := c.token.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: obtaining token: %w", ErrUnauthorized, err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", userAgent)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("drive: request canceled: %w", ctx.Err())
		}

		c.logger.Warn("request failed",
			slog.String("method", method),
			slog.String("url", redactQuery(rawURL)),
			slog.String("error", err.Error()),
		)

		return nil, fmt.Errorf("drive: %s request failed: %w", method, err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			slog.String("method", method),
			slog.String("url", redactQuery(rawURL)),
			slog.Int("status", resp.StatusCode),
		)

		return resp, nil
	}

	errBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()

	if readErr != nil {
		errBody = []byte("(failed to read response body)")
	}

	c.logger.Warn("request returned error status",
		slog.String("method", method),
		slog.String("url", redactQuery(rawURL)),
		slog.Int("status", resp.StatusCode),
	)

	return nil, newAPIError(resp.StatusCode, errBody)
}

// redactQuery strips the query string so folder names in q= never reach logs.
func redactQuery(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}

	return rawURL
}
