package directory

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-memory Directory, suitable for tests and examples. It is
// safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	accounts map[string]*Account
	prefs    map[string]map[string]string
	nowFunc  func() time.Time
}

// ensure that Memory implements the Directory interface
var _ Directory = (*Memory)(nil)

// NewMemory creates an empty in-memory directory.
func NewMemory() *Memory {
	return &Memory{
		accounts: map[string]*Account{},
		prefs:    map[string]map[string]string{},
		nowFunc:  time.Now,
	}
}

// Add stores an account, replacing any existing account with the same
// username. A zero CreatedAt is set to the current time.
func (m *Memory) Add(a Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = m.nowFunc()
	}
	m.accounts[a.Username] = &a
}

// FindByUsername resolves a local account, or ErrNotFound. The returned
// Account is a copy.
func (m *Memory) FindByUsername(ctx context.Context, username string) (*Account, error) {
	const op = "directory.Memory.FindByUsername"
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[username]
	if !ok {
		return nil, fmt.Errorf("%s: %q: %w", op, username, ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

// CompleteLogin records a successful login for the account.
func (m *Memory) CompleteLogin(ctx context.Context, username string) error {
	const op = "directory.Memory.CompleteLogin"
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[username]
	if !ok {
		return fmt.Errorf("%s: %q: %w", op, username, ErrNotFound)
	}
	a.LastLogin = m.nowFunc()
	return nil
}

// Confirm marks the account as confirmed, reporting whether it already was.
func (m *Memory) Confirm(ctx context.Context, username string) (ConfirmResult, error) {
	const op = "directory.Memory.Confirm"
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[username]
	if !ok {
		return 0, fmt.Errorf("%s: %q: %w", op, username, ErrNotFound)
	}
	if a.Confirmed {
		return ConfirmAlready, nil
	}
	a.Confirmed = true
	return ConfirmOK, nil
}

// SetPreference stores a per-account preference value.
func (m *Memory) SetPreference(ctx context.Context, username, name, value string) error {
	const op = "directory.Memory.SetPreference"
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[username]; !ok {
		return fmt.Errorf("%s: %q: %w", op, username, ErrNotFound)
	}
	p, ok := m.prefs[username]
	if !ok {
		p = map[string]string{}
		m.prefs[username] = p
	}
	p[name] = value
	return nil
}

// Preference returns a per-account preference value and whether it was set.
func (m *Memory) Preference(ctx context.Context, username, name string) (string, bool, error) {
	const op = "directory.Memory.Preference"
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[username]; !ok {
		return "", false, fmt.Errorf("%s: %q: %w", op, username, ErrNotFound)
	}
	v, ok := m.prefs[username][name]
	return v, ok, nil
}
