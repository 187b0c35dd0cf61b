package handshake

import (
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSession is a minimal in-package Session for unit tests. The
// sessionstore package provides the real implementations.
type testSession struct {
	mu sync.Mutex
	m  map[string]string
}

func newTestSession() *testSession {
	return &testSession{m: map[string]string{}}
}

func (s *testSession) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *testSession) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

func (s *testSession) Unset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

func (s *testSession) Take(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	delete(s.m, key)
	return v, ok
}

func TestIssueToken(t *testing.T) {
	t.Parallel()
	t.Run("mints-url-safe-token", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s := newTestSession()
		token, err := IssueToken(s)
		require.NoError(err)
		assert.Len(token, 43)
		decoded, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(err)
		assert.Len(decoded, TokenEntropyBytes)
		stored, ok := s.Get(SessionKeyState)
		require.True(ok)
		assert.Equal(token, stored)
	})
	t.Run("idempotent-before-validate", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s := newTestSession()
		first, err := IssueToken(s)
		require.NoError(err)
		second, err := IssueToken(s)
		require.NoError(err)
		assert.Equal(first, second)
	})
	t.Run("fresh-token-after-validate", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s := newTestSession()
		first, err := IssueToken(s)
		require.NoError(err)
		ValidateToken(s, first)
		second, err := IssueToken(s)
		require.NoError(err)
		assert.NotEqual(first, second)
	})
	t.Run("unique-across-sessions", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		seen := map[string]bool{}
		for i := 0; i < 64; i++ {
			token, err := IssueToken(newTestSession())
			require.NoError(err)
			assert.False(seen[token])
			seen[token] = true
		}
	})
	t.Run("nil-session", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		_, err := IssueToken(nil)
		require.Error(err)
		assert.True(errors.Is(err, ErrNilParameter))
	})
}

func TestValidateToken(t *testing.T) {
	t.Parallel()
	t.Run("matching-token-succeeds-once", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s := newTestSession()
		token, err := IssueToken(s)
		require.NoError(err)
		assert.True(ValidateToken(s, token))
		// the first validation consumed the token
		assert.False(ValidateToken(s, token))
		_, ok := s.Get(SessionKeyState)
		assert.False(ok)
	})
	t.Run("mismatch-fails-and-consumes", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s := newTestSession()
		token, err := IssueToken(s)
		require.NoError(err)
		assert.False(ValidateToken(s, "not-the-token"))
		_, ok := s.Get(SessionKeyState)
		assert.False(ok)
		// even the real token is rejected now
		assert.False(ValidateToken(s, token))
	})
	t.Run("no-live-token", func(t *testing.T) {
		assert := assert.New(t)
		assert.False(ValidateToken(newTestSession(), "anything"))
	})
	t.Run("empty-received-state", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s := newTestSession()
		_, err := IssueToken(s)
		require.NoError(err)
		assert.False(ValidateToken(s, ""))
		_, ok := s.Get(SessionKeyState)
		assert.False(ok)
	})
	t.Run("nil-session", func(t *testing.T) {
		assert := assert.New(t)
		assert.False(ValidateToken(nil, "anything"))
	})
	t.Run("concurrent-callbacks-single-winner", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s := newTestSession()
		token, err := IssueToken(s)
		require.NoError(err)
		results := make(chan bool, 2)
		for i := 0; i < 2; i++ {
			go func() {
				results <- ValidateToken(s, token)
			}()
		}
		wins := 0
		for i := 0; i < 2; i++ {
			if <-results {
				wins++
			}
		}
		assert.Equal(1, wins)
	})
}
