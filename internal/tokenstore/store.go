// Package tokenstore holds the single OAuth access token the application
// works with. Store is the in-memory holder shared by the auth controller and
// its readers; the file helpers persist it between CLI invocations.
package tokenstore

import (
	"sync"

	"golang.org/x/oauth2"
)

// Store holds at most one token. The auth controller is the only writer;
// everything else reads through Get or Present.
type Store struct {
	mu  sync.RWMutex
	tok *oauth2.Token
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// Get returns a copy of the held token, or nil.
func (s *Store) Get() *oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.tok == nil {
		return nil
	}

	cp := *s.tok

	return &cp
}

// Set replaces the held token. A nil token is equivalent to Clear.
func (s *Store) Set(tok *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tok == nil {
		s.tok = nil
		return
	}

	cp := *tok
	s.tok = &cp
}

// Clear drops the held token.
func (s *Store) Clear() {
	s.Set(nil)
}

// Present reports whether a token with a non-empty access token is held.
func (s *Store) Present() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tok != nil && s.tok.AccessToken != ""
}
