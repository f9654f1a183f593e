package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxRevokeBody caps how much of an error response is kept for logging.
const maxRevokeBody = 4 << 10

// revoke asks the provider to invalidate credential. Any non-200 response
// is an error; the caller decides what to do about it.
func (c *Controller) revoke(ctx context.Context, credential string) error {
	form := url.Values{"token": {credential}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.RevokeURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("auth: building revoke request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth: revoke request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxRevokeBody))
		return fmt.Errorf("auth: revoke returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}
