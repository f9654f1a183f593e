package tokenstore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
)

func TestStore_EmptyByDefault(t *testing.T) {
	s := New()
	assert.Nil(t, s.Get())
	assert.False(t, s.Present())
}

func TestStore_SetAndGet(t *testing.T) {
	s := New()
	s.Set(&oauth2.Token{AccessToken: "T1"})

	assert.True(t, s.Present())
	assert.Equal(t, "T1", s.Get().AccessToken)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := New()
	s.Set(&oauth2.Token{AccessToken: "T1"})

	got := s.Get()
	got.AccessToken = "mutated"

	assert.Equal(t, "T1", s.Get().AccessToken)
}

func TestStore_EmptyAccessTokenIsNotPresent(t *testing.T) {
	s := New()
	s.Set(&oauth2.Token{RefreshToken: "r"})

	assert.NotNil(t, s.Get())
	assert.False(t, s.Present())
}

func TestStore_Clear(t *testing.T) {
	s := New()
	s.Set(&oauth2.Token{AccessToken: "T1"})
	s.Clear()

	assert.Nil(t, s.Get())
	assert.False(t, s.Present())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)

		go func() {
			defer wg.Done()
			s.Set(&oauth2.Token{AccessToken: "T"})

			if i%2 == 0 {
				s.Clear()
			}
		}()

		go func() {
			defer wg.Done()
			_ = s.Present()
			_ = s.Get()
		}()
	}

	wg.Wait()
}
