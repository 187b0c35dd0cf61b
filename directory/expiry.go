package directory

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ExpiryPolicy computes how many days remain until an account's password
// expires, from the account's password_updated_at preference (or its
// creation time when the preference was never set).
type ExpiryPolicy struct {
	// MaxAge is how long a password stays valid after its last update. A
	// zero MaxAge means passwords never expire.
	MaxAge time.Duration

	// nowFunc is for tests; time.Now when nil.
	nowFunc func() time.Time
}

// DaysUntilExpiry returns the whole days until the account's password
// expires: positive when time remains (rounded up), zero or negative when
// already expired (rounded down), and 0 with no error when the policy has
// no MaxAge.
func (p ExpiryPolicy) DaysUntilExpiry(ctx context.Context, d Directory, username string) (int, error) {
	const op = "directory.ExpiryPolicy.DaysUntilExpiry"
	if d == nil {
		return 0, fmt.Errorf("%s: directory is nil: %w", op, ErrNilParameter)
	}
	if p.MaxAge == 0 {
		return 0, nil
	}
	a, err := d.FindByUsername(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	updatedAt := a.CreatedAt
	if raw, ok, err := d.Preference(ctx, username, PrefPasswordUpdatedAt); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	} else if ok {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: invalid %s preference %q: %w", op, PrefPasswordUpdatedAt, raw, err)
		}
		updatedAt = time.Unix(secs, 0)
	}

	now := time.Now
	if p.nowFunc != nil {
		now = p.nowFunc
	}
	expireAt := updatedAt.Add(p.MaxAge)
	days := expireAt.Sub(now()).Hours() / 24
	if expireAt.After(now()) {
		return int(math.Ceil(days)), nil
	}
	return int(math.Floor(days)), nil
}

// RecordPasswordUpdate stores the password_updated_at preference for the
// account as the current time.
func RecordPasswordUpdate(ctx context.Context, d Directory, username string) error {
	const op = "directory.RecordPasswordUpdate"
	if d == nil {
		return fmt.Errorf("%s: directory is nil: %w", op, ErrNilParameter)
	}
	secs := strconv.FormatInt(time.Now().Unix(), 10)
	if err := d.SetPreference(ctx, username, PrefPasswordUpdatedAt, secs); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
