package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// testTokenJSON is the canonical token response for tests.
const testTokenJSON = `{
	"access_token": "test-access-token",
	"token_type": "Bearer",
	"refresh_token": "test-refresh-token",
	"expires_in": 3600
}`

// testDeviceCodeJSON uses interval=1 to minimize poll delay.
const testDeviceCodeJSON = `{
	"device_code": "test-device-code",
	"user_code": "ABCD-1234",
	"verification_uri": "https://www.google.com/device",
	"expires_in": 900,
	"interval": 1
}`

func writeTokenJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(testTokenJSON))
}

// newMockOAuthServer serves device code, authorize, and token endpoints.
// The authorize endpoint redirects to redirect_uri with a code and the
// request's state. tokenHandler nil returns testTokenJSON.
func newMockOAuthServer(t *testing.T, tokenHandler http.HandlerFunc) oauth2.Endpoint {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /device/code", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testDeviceCodeJSON))
	})

	mux.HandleFunc("GET /authorize", func(w http.ResponseWriter, r *http.Request) {
		redirectURI := r.URL.Query().Get("redirect_uri")
		state := r.URL.Query().Get("state")
		http.Redirect(w, r, redirectURI+"?code=test-auth-code&state="+url.QueryEscape(state), http.StatusFound)
	})

	handler := tokenHandler
	if handler == nil {
		handler = writeTokenJSON
	}

	mux.HandleFunc("POST /token", handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return oauth2.Endpoint{
		AuthURL:       srv.URL + "/authorize",
		DeviceAuthURL: srv.URL + "/device/code",
		TokenURL:      srv.URL + "/token",
	}
}

func testConfig(endpoint oauth2.Endpoint) *oauth2.Config {
	return &oauth2.Config{
		ClientID: "test-client",
		Endpoint: endpoint,
		Scopes:   []string{Scope},
	}
}

// simulateBrowserCallback acts as the browser: fetches the auth URL, then
// follows its redirect to the loopback callback server.
func simulateBrowserCallback(t *testing.T) func(string) error {
	t.Helper()

	client := &http.Client{
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return func(authURL string) error {
		resp, err := client.Get(authURL) //nolint:noctx // test helper
		if err != nil {
			return err
		}
		resp.Body.Close()

		location := resp.Header.Get("Location")
		if location == "" {
			return errors.New("authorize endpoint did not redirect")
		}

		callbackResp, err := http.Get(location) //nolint:noctx // test helper
		if err != nil {
			return err
		}
		callbackResp.Body.Close()

		return nil
	}
}

func noopDisplay(_ DeviceAuth) {}

func TestDeviceLogin_Success(t *testing.T) {
	cfg := testConfig(newMockOAuthServer(t, nil))

	var displayed DeviceAuth
	tok, err := deviceLogin(context.Background(), cfg, func(da DeviceAuth) {
		displayed = da
	}, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, "ABCD-1234", displayed.UserCode)
	assert.Equal(t, "https://www.google.com/device", displayed.VerificationURI)
	assert.Equal(t, "test-access-token", tok.AccessToken)
	assert.Equal(t, "test-refresh-token", tok.RefreshToken)
}

func TestDeviceLogin_UserDeclined(t *testing.T) {
	cfg := testConfig(newMockOAuthServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"access_denied","error_description":"user declined"}`))
	}))

	_, err := deviceLogin(context.Background(), cfg, noopDisplay, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_denied")
}

func TestDeviceLogin_PendingThenSuccess(t *testing.T) {
	var polls atomic.Int32

	cfg := testConfig(newMockOAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"authorization_pending"}`))

			return
		}

		writeTokenJSON(w, r)
	}))

	tok, err := deviceLogin(context.Background(), cfg, noopDisplay, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "test-access-token", tok.AccessToken)
	assert.GreaterOrEqual(t, polls.Load(), int32(2))
}

func TestDeviceLogin_ContextCancel(t *testing.T) {
	cfg := testConfig(newMockOAuthServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"authorization_pending"}`))
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	_, err := deviceLogin(ctx, cfg, noopDisplay, slog.Default())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBrowserLogin_Success(t *testing.T) {
	cfg := testConfig(newMockOAuthServer(t, nil))

	tok, err := browserLogin(context.Background(), cfg, simulateBrowserCallback(t), slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "test-access-token", tok.AccessToken)
	assert.Contains(t, cfg.RedirectURL, "http://127.0.0.1:")
}

func TestBrowserLogin_SendsPKCEVerifier(t *testing.T) {
	var verifier atomic.Value

	cfg := testConfig(newMockOAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		verifier.Store(r.PostForm.Get("code_verifier"))
		writeTokenJSON(w, r)
	}))

	_, err := browserLogin(context.Background(), cfg, simulateBrowserCallback(t), slog.Default())
	require.NoError(t, err)
	assert.NotEmpty(t, verifier.Load())
}

func TestBrowserLogin_ExchangeError(t *testing.T) {
	cfg := testConfig(newMockOAuthServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"code expired"}`))
	}))

	_, err := browserLogin(context.Background(), cfg, simulateBrowserCallback(t), slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token exchange failed")
}

func TestBrowserLogin_ContextCancel(t *testing.T) {
	cfg := testConfig(newMockOAuthServer(t, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	// The browser never comes back.
	openURL := func(string) error { return nil }

	_, err := browserLogin(ctx, cfg, openURL, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser auth canceled")
}

func TestBrowserLogin_OpenURLFails(t *testing.T) {
	cfg := testConfig(newMockOAuthServer(t, nil))
	browser := simulateBrowserCallback(t)

	// The launcher reports failure but the user opens the printed URL.
	openURL := func(authURL string) error {
		go func() { _ = browser(authURL) }()
		return errors.New("no browser")
	}

	tok, err := browserLogin(context.Background(), cfg, openURL, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "test-access-token", tok.AccessToken)
}

func TestHandleOAuthCallback(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCode   string
		wantErr    string
	}{
		{"success", "state=s1&code=c1", http.StatusOK, "c1", ""},
		{"state mismatch", "state=other&code=c1", http.StatusBadRequest, "", "state mismatch"},
		{"consent denied", "state=s1&error=access_denied&error_description=nope", http.StatusBadRequest, "", "access_denied"},
		{"missing code", "state=s1", http.StatusBadRequest, "", "missing authorization code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resultCh := make(chan callbackResult, 1)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)

			handleOAuthCallback(rec, req, "s1", resultCh)

			assert.Equal(t, tt.wantStatus, rec.Code)

			res := <-resultCh
			if tt.wantErr != "" {
				require.Error(t, res.err)
				assert.Contains(t, res.err.Error(), tt.wantErr)

				return
			}

			require.NoError(t, res.err)
			assert.Equal(t, tt.wantCode, res.code)
		})
	}
}

func TestHandleOAuthCallback_SecondCallbackDoesNotBlock(t *testing.T) {
	resultCh := make(chan callbackResult, 1)

	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/?state=s1&code=c1", nil)
		handleOAuthCallback(httptest.NewRecorder(), req, "s1", resultCh)
	}

	assert.Len(t, resultCh, 1)
}

func TestGenerateState(t *testing.T) {
	state1, err := generateState()
	require.NoError(t, err)
	assert.Len(t, state1, stateTokenBytes*2)

	state2, err := generateState()
	require.NoError(t, err)
	assert.NotEqual(t, state1, state2)
}
