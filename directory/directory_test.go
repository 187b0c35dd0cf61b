package directory

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDirectories returns each Directory implementation pre-loaded with the
// given accounts, so every contract test runs against both.
func testDirectories(t *testing.T, accounts ...Account) map[string]Directory {
	t.Helper()
	require := require.New(t)
	ctx := context.Background()

	mem := NewMemory()
	for _, a := range accounts {
		mem.Add(a)
	}

	lite, err := OpenSQLite(":memory:")
	require.NoError(err)
	t.Cleanup(func() { _ = lite.Close() })
	for _, a := range accounts {
		require.NoError(lite.Add(ctx, a))
	}

	return map[string]Directory{
		"memory": mem,
		"sqlite": lite,
	}
}

func TestDirectory_FindByUsername(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	for name, d := range testDirectories(t, Account{Username: "alice", Email: "alice@example.com"}) {
		t.Run(name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := d.FindByUsername(ctx, "alice")
			require.NoError(err)
			assert.Equal("alice", got.Username)
			assert.Equal("alice@example.com", got.Email)
			assert.False(got.Confirmed)

			_, err = d.FindByUsername(ctx, "nobody")
			require.Error(err)
			assert.True(errors.Is(err, ErrNotFound))
		})
	}
}

func TestDirectory_CompleteLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	for name, d := range testDirectories(t, Account{Username: "alice"}) {
		t.Run(name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			before, err := d.FindByUsername(ctx, "alice")
			require.NoError(err)
			assert.True(before.LastLogin.IsZero())

			require.NoError(d.CompleteLogin(ctx, "alice"))
			after, err := d.FindByUsername(ctx, "alice")
			require.NoError(err)
			assert.False(after.LastLogin.IsZero())

			err = d.CompleteLogin(ctx, "nobody")
			require.Error(err)
			assert.True(errors.Is(err, ErrNotFound))
		})
	}
}

func TestDirectory_Confirm(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	for name, d := range testDirectories(t,
		Account{Username: "alice"},
		Account{Username: "bob", Confirmed: true},
	) {
		t.Run(name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := d.Confirm(ctx, "alice")
			require.NoError(err)
			assert.Equal(ConfirmOK, got)

			got, err = d.Confirm(ctx, "alice")
			require.NoError(err)
			assert.Equal(ConfirmAlready, got)

			got, err = d.Confirm(ctx, "bob")
			require.NoError(err)
			assert.Equal(ConfirmAlready, got)

			_, err = d.Confirm(ctx, "nobody")
			require.Error(err)
			assert.True(errors.Is(err, ErrNotFound))
		})
	}
}

func TestDirectory_Preferences(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	for name, d := range testDirectories(t, Account{Username: "alice"}) {
		t.Run(name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			_, ok, err := d.Preference(ctx, "alice", "theme")
			require.NoError(err)
			assert.False(ok)

			require.NoError(d.SetPreference(ctx, "alice", "theme", "dark"))
			got, ok, err := d.Preference(ctx, "alice", "theme")
			require.NoError(err)
			assert.True(ok)
			assert.Equal("dark", got)

			require.NoError(d.SetPreference(ctx, "alice", "theme", "light"))
			got, _, err = d.Preference(ctx, "alice", "theme")
			require.NoError(err)
			assert.Equal("light", got)

			err = d.SetPreference(ctx, "nobody", "theme", "dark")
			require.Error(err)
			assert.True(errors.Is(err, ErrNotFound))
		})
	}
}

func TestExpiryPolicy_DaysUntilExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		maxAge    time.Duration
		updatedAt time.Time
		want      int
	}{
		{
			name:      "no-policy",
			maxAge:    0,
			updatedAt: now.Add(-100 * 24 * time.Hour),
			want:      0,
		},
		{
			name:      "days-remaining-rounds-up",
			maxAge:    30 * 24 * time.Hour,
			updatedAt: now.Add(-20*24*time.Hour - 12*time.Hour),
			want:      10,
		},
		{
			name:      "expired-rounds-down",
			maxAge:    30 * 24 * time.Hour,
			updatedAt: now.Add(-35*24*time.Hour - 12*time.Hour),
			want:      -6,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			d := NewMemory()
			d.Add(Account{Username: "alice"})
			require.NoError(d.SetPreference(ctx, "alice", PrefPasswordUpdatedAt,
				testUnixSeconds(tt.updatedAt)))

			p := ExpiryPolicy{MaxAge: tt.maxAge, nowFunc: func() time.Time { return now }}
			got, err := p.DaysUntilExpiry(ctx, d, "alice")
			require.NoError(err)
			assert.Equal(tt.want, got)
		})
	}

	t.Run("falls-back-to-created-at", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		d := NewMemory()
		d.Add(Account{Username: "bob", CreatedAt: now.Add(-10 * 24 * time.Hour)})
		p := ExpiryPolicy{MaxAge: 30 * 24 * time.Hour, nowFunc: func() time.Time { return now }}
		got, err := p.DaysUntilExpiry(ctx, d, "bob")
		require.NoError(err)
		assert.Equal(20, got)
	})
	t.Run("unknown-account", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		p := ExpiryPolicy{MaxAge: time.Hour}
		_, err := p.DaysUntilExpiry(ctx, NewMemory(), "nobody")
		require.Error(err)
		assert.True(errors.Is(err, ErrNotFound))
	})
}

func testUnixSeconds(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
