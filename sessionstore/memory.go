package sessionstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openlms/extauth/handshake"
)

// DefaultSessionTTL is how long an untouched in-memory session survives.
const DefaultSessionTTL = 2 * time.Hour

// Memory is an in-process Store. Sessions are evicted lazily once they have
// been idle past the TTL.
type Memory struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*memorySession
	nowFunc  func() time.Time
}

// ensure that Memory implements the Store interface
var _ Store = (*Memory)(nil)

// NewMemory creates an in-memory session store. A zero ttl means
// DefaultSessionTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}
	return &Memory{
		ttl:      ttl,
		sessions: map[string]*memorySession{},
		nowFunc:  time.Now,
	}
}

// Session returns the live session for id, creating one when absent or
// expired. Expired siblings are swept on each call.
func (m *Memory) Session(ctx context.Context, id string) (handshake.Session, error) {
	const op = "sessionstore.Memory.Session"
	if id == "" {
		return nil, fmt.Errorf("%s: session id is empty: %w", op, ErrInvalidParameter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowFunc()
	for sid, s := range m.sessions {
		if now.Sub(s.touched()) > m.ttl {
			delete(m.sessions, sid)
		}
	}
	s, ok := m.sessions[id]
	if !ok {
		s = &memorySession{m: map[string]string{}, nowFunc: m.nowFunc}
		s.lastTouch = now
		m.sessions[id] = s
	}
	return s, nil
}

// Destroy removes the session and all its state.
func (m *Memory) Destroy(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// memorySession implements handshake.Session over a mutex-guarded map.
type memorySession struct {
	mu        sync.Mutex
	m         map[string]string
	lastTouch time.Time
	nowFunc   func() time.Time
}

func (s *memorySession) touched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTouch
}

func (s *memorySession) touch() {
	s.lastTouch = s.nowFunc()
}

func (s *memorySession) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	v, ok := s.m[key]
	return v, ok
}

func (s *memorySession) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.m[key] = value
}

func (s *memorySession) Unset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	delete(s.m, key)
}

func (s *memorySession) Take(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	v, ok := s.m[key]
	delete(s.m, key)
	return v, ok
}
