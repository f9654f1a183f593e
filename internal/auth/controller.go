// Package auth owns the OAuth client for Google Drive and the authorization
// state the rest of the application renders and reads tokens from.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"golang.org/x/sync/errgroup"

	"github.com/vocos/attendance-go/internal/tokenstore"
)

// Scope limits access to files this application creates.
const Scope = "https://www.googleapis.com/auth/drive.file"

// DefaultClientID is the OAuth client registered for the attendance form.
const DefaultClientID = "887069703934-o2thfso17bur08q3novje0meenf13l0v.apps.googleusercontent.com"

// DefaultRevokeURL is Google's token revocation endpoint.
const DefaultRevokeURL = "https://oauth2.googleapis.com/revoke"

var (
	// ErrUninitialized is returned when authorization is requested before
	// Initialize has brought up both clients.
	ErrUninitialized = errors.New("auth: not initialized yet, try again in a moment")
	// ErrAuthorizationFailed wraps every error reported by the consent flow.
	ErrAuthorizationFailed = errors.New("auth: authorization failed")
	// ErrNotAuthorized is returned by Token when no usable token is held.
	ErrNotAuthorized = errors.New("auth: not authorized")
)

// State is the authorization state rendered by the UI.
type State int

const (
	// StateUninitialized holds until both the API and identity clients are ready.
	StateUninitialized State = iota
	// StateUnauthorized means initialized with no token.
	StateUnauthorized
	// StateAuthorized means a token with a non-empty access token is held.
	StateAuthorized
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateUnauthorized:
		return "unauthorized"
	case StateAuthorized:
		return "authorized"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Event is delivered to observers on every readiness flip, authorization,
// authorization failure, and sign-out.
type Event struct {
	State         State
	APIReady      bool
	IdentityReady bool
	Err           error
}

// Flow selects how consent is obtained.
type Flow string

// Supported consent flows.
const (
	FlowBrowser Flow = "browser"
	FlowDevice  Flow = "device"
)

// APIClient is the storage API client whose readiness gates the UI.
type APIClient interface {
	CheckEndpoints() error
}

// Options configure a Controller. Zero values select Google defaults.
type Options struct {
	ClientID     string
	ClientSecret string
	Endpoint     oauth2.Endpoint
	RevokeURL    string
	// TokenPath persists the token between runs; empty keeps it in memory.
	TokenPath string
	Flow      Flow
	// HTTPClient is used for token exchange, refresh, and revocation.
	HTTPClient *http.Client
	// OpenURL launches the browser for the browser flow.
	OpenURL func(string) error
	// DisplayDeviceCode shows the user code for the device flow.
	DisplayDeviceCode func(DeviceAuth)
	Logger            *slog.Logger
}

// Controller is the authorization state machine. It is the only writer of
// its token store.
type Controller struct {
	opts   Options
	store  *tokenstore.Store
	logger *slog.Logger

	mu            sync.Mutex
	apiReady      bool
	identityReady bool
	oauthCfg      *oauth2.Config
	observers     map[int]func(Event)
	nextObserver  int

	// notifyMu serializes observer delivery; readiness flips arrive from
	// two goroutines during Initialize.
	notifyMu sync.Mutex

	initOnce sync.Once
	initErr  error

	nowFunc func() time.Time
}

// NewController returns an uninitialized Controller writing to store.
func NewController(opts Options, store *tokenstore.Store) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.ClientID == "" {
		opts.ClientID = DefaultClientID
	}

	if opts.Endpoint.TokenURL == "" {
		opts.Endpoint = endpoints.Google
	}

	if opts.RevokeURL == "" {
		opts.RevokeURL = DefaultRevokeURL
	}

	if opts.Flow == "" {
		opts.Flow = FlowBrowser
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	if store == nil {
		store = tokenstore.New()
	}

	return &Controller{
		opts:      opts,
		store:     store,
		logger:    opts.Logger,
		observers: make(map[int]func(Event)),
		nowFunc:   time.Now,
	}
}

// Store returns the token store. Readers only; the controller writes it.
func (c *Controller) Store() *tokenstore.Store {
	return c.store
}

// Initialize brings up the API client and the identity client concurrently.
// Each completion flips its readiness flag and notifies observers, in
// whichever order they finish. Only the first call does any work; later
// calls return its result.
func (c *Controller) Initialize(ctx context.Context, api APIClient) error {
	c.initOnce.Do(func() {
		c.initErr = c.initialize(ctx, api)
	})

	return c.initErr
}

func (c *Controller) initialize(ctx context.Context, api APIClient) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := api.CheckEndpoints(); err != nil {
			return fmt.Errorf("auth: initializing api client: %w", err)
		}

		c.markReady(func() { c.apiReady = true })
		c.logger.Debug("api client ready")

		return nil
	})

	g.Go(func() error {
		if err := c.initIdentity(gctx); err != nil {
			return err
		}

		c.markReady(func() { c.identityReady = true })
		c.logger.Debug("identity client ready")

		return nil
	})

	return g.Wait()
}

// initIdentity registers the OAuth client and restores a persisted token.
func (c *Controller) initIdentity(ctx context.Context) error {
	cfg := &oauth2.Config{
		ClientID:     c.opts.ClientID,
		ClientSecret: c.opts.ClientSecret,
		Endpoint:     c.opts.Endpoint,
		Scopes:       []string{Scope},
		// Called by ReuseTokenSource after each silent refresh, outside its mutex.
		OnTokenChange: c.adopt,
	}

	c.mu.Lock()
	c.oauthCfg = cfg
	c.mu.Unlock()

	if c.opts.TokenPath == "" {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	tf, err := tokenstore.Load(c.opts.TokenPath)
	if err != nil {
		// A corrupt token file means "signed out", not a broken app.
		c.logger.Warn("ignoring unreadable token file",
			slog.String("path", c.opts.TokenPath),
			slog.String("error", err.Error()),
		)

		return nil
	}

	if tf == nil {
		return nil
	}

	if tf.ClientID != "" && tf.ClientID != c.opts.ClientID {
		c.logger.Warn("saved token belongs to a different client, ignoring",
			slog.String("path", c.opts.TokenPath),
		)

		return nil
	}

	c.store.Set(tf.Token)
	c.logger.Info("restored saved token",
		slog.String("path", c.opts.TokenPath),
		slog.Time("expiry", tf.Token.Expiry),
	)

	return nil
}

// markReady applies a readiness flip under the lock and notifies.
func (c *Controller) markReady(flip func()) {
	c.mu.Lock()
	flip()
	c.mu.Unlock()

	c.notify(nil)
}

// ready reports whether both clients have finished initializing.
func (c *Controller) ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.apiReady && c.identityReady
}

// State returns the current state. It stays StateUninitialized until both
// clients are ready.
func (c *Controller) State() State {
	if !c.ready() {
		return StateUninitialized
	}

	if c.store.Present() {
		return StateAuthorized
	}

	return StateUnauthorized
}

// Subscribe registers fn for every Event and returns a function that
// removes it. Observers run synchronously and must not call RequestAuthorization,
// OnAuthorized, or SignOut.
func (c *Controller) Subscribe(fn func(Event)) func() {
	c.mu.Lock()
	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

func (c *Controller) notify(err error) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	ev := Event{
		APIReady:      c.apiReady,
		IdentityReady: c.identityReady,
		Err:           err,
	}

	fns := make([]func(Event), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	ev.State = c.State()

	for _, fn := range fns {
		fn(ev)
	}
}

// RequestAuthorization runs the interactive consent flow and feeds its
// result to OnAuthorized.
func (c *Controller) RequestAuthorization(ctx context.Context) error {
	if !c.ready() {
		c.notify(ErrUninitialized)
		return ErrUninitialized
	}

	c.mu.Lock()
	cfg := *c.oauthCfg
	c.mu.Unlock()

	ctx = c.withHTTPClient(ctx)

	var (
		tok *oauth2.Token
		err error
	)

	switch c.opts.Flow {
	case FlowDevice:
		tok, err = deviceLogin(ctx, &cfg, c.displayDeviceCode, c.logger)
	default:
		tok, err = browserLogin(ctx, &cfg, c.openURL, c.logger)
	}

	return c.OnAuthorized(tok, err)
}

// OnAuthorized is the consent callback. On success it stores and persists
// the token and notifies observers. On a provider error it notifies
// observers with an ErrAuthorizationFailed error and leaves the store alone.
func (c *Controller) OnAuthorized(tok *oauth2.Token, err error) error {
	if err == nil && (tok == nil || tok.AccessToken == "") {
		err = errors.New("provider returned an empty access token")
	}

	if err != nil {
		wrapped := fmt.Errorf("%w: %w", ErrAuthorizationFailed, err)
		c.logger.Warn("authorization failed", slog.String("error", err.Error()))
		c.notify(wrapped)

		return wrapped
	}

	if persistErr := c.persist(tok); persistErr != nil {
		wrapped := fmt.Errorf("%w: %w", ErrAuthorizationFailed, persistErr)
		c.notify(wrapped)

		return wrapped
	}

	c.store.Set(tok)
	c.logger.Info("authorized", slog.Time("expiry", tok.Expiry))
	c.notify(nil)

	return nil
}

// SignOut revokes the held token and clears it. The store is cleared and
// observers are notified whatever the revocation outcome; a failed
// revocation is logged and not retried. Without a token it does nothing.
func (c *Controller) SignOut(ctx context.Context) error {
	tok := c.store.Get()
	if tok == nil {
		c.logger.Debug("sign-out: no token held")
		return nil
	}

	credential := tok.AccessToken
	if credential == "" {
		credential = tok.RefreshToken
	}

	if err := c.revoke(c.withHTTPClient(ctx), credential); err != nil {
		c.logger.Warn("token revocation failed, clearing local token anyway",
			slog.String("error", err.Error()),
		)
	} else {
		c.logger.Info("token revoked")
	}

	c.store.Clear()

	if c.opts.TokenPath != "" {
		if err := tokenstore.Remove(c.opts.TokenPath); err != nil {
			c.logger.Warn("failed to remove token file", slog.String("error", err.Error()))
		}
	}

	c.notify(nil)

	return nil
}

// CurrentToken returns a copy of the held token, or nil.
func (c *Controller) CurrentToken() *oauth2.Token {
	return c.store.Get()
}

// HasToken reports whether any token is held, usable or not. SignOut acts
// only when it does.
func (c *Controller) HasToken() bool {
	return c.store.Get() != nil
}

// IsAuthorized reports whether a token with a non-empty access token is held.
func (c *Controller) IsAuthorized() bool {
	return c.store.Present()
}

// Token returns a bearer token for API calls, refreshing it silently when
// it has expired and a refresh token is available. The refresh request is
// bound to ctx.
func (c *Controller) Token(ctx context.Context) (string, error) {
	tok := c.store.Get()
	if tok == nil || tok.AccessToken == "" {
		return "", ErrNotAuthorized
	}

	if tok.Valid() {
		return tok.AccessToken, nil
	}

	if tok.RefreshToken == "" {
		return "", fmt.Errorf("%w: access token expired", ErrNotAuthorized)
	}

	c.mu.Lock()
	cfg := c.oauthCfg
	c.mu.Unlock()

	if cfg == nil {
		return "", ErrUninitialized
	}

	fresh, err := cfg.TokenSource(c.withHTTPClient(ctx), tok).Token()
	if err != nil {
		c.logger.Warn("token refresh failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: refreshing token: %w", ErrNotAuthorized, err)
	}

	c.adopt(fresh)

	return fresh.AccessToken, nil
}

// adopt stores a refreshed token. It is idempotent so it can run both from
// the oauth2 OnTokenChange hook and after Token's own refresh.
func (c *Controller) adopt(tok *oauth2.Token) {
	if tok == nil || tok.AccessToken == "" {
		return
	}

	if cur := c.store.Get(); cur != nil && cur.AccessToken == tok.AccessToken {
		return
	}

	if err := c.persist(tok); err != nil {
		c.logger.Warn("failed to persist refreshed token", slog.String("error", err.Error()))
	}

	c.store.Set(tok)
	c.logger.Info("token refreshed", slog.Time("new_expiry", tok.Expiry))
}

func (c *Controller) persist(tok *oauth2.Token) error {
	if c.opts.TokenPath == "" {
		return nil
	}

	return tokenstore.Save(c.opts.TokenPath, &tokenstore.File{
		Token:    tok,
		ClientID: c.opts.ClientID,
		SavedAt:  c.nowFunc().UTC(),
	})
}

func (c *Controller) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.opts.HTTPClient)
}

func (c *Controller) openURL(u string) error {
	if c.opts.OpenURL == nil {
		return errors.New("no browser launcher configured")
	}

	return c.opts.OpenURL(u)
}

func (c *Controller) displayDeviceCode(da DeviceAuth) {
	if c.opts.DisplayDeviceCode != nil {
		c.opts.DisplayDeviceCode(da)
	}
}
