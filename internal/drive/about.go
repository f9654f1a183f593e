package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// User is the Drive account owner as reported by about.get.
type User struct {
	DisplayName  string
	EmailAddress string
}

type aboutResponse struct {
	User struct {
		DisplayName  string `json:"displayName"`
		EmailAddress string `json:"emailAddress"`
	} `json:"user"`
}

// About returns the authenticated account's user info.
func (c *Client) About(ctx context.Context) (*User, error) {
	resp, err := c.do(ctx, http.MethodGet, c.apiBaseURL+"/about?fields=user(displayName,emailAddress)", "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var ar aboutResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, fmt.Errorf("drive: decoding about response: %w", err)
	}

	return &User{
		DisplayName:  ar.User.DisplayName,
		EmailAddress: ar.User.EmailAddress,
	}, nil
}
