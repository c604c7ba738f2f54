package model

import (
	"sort"
	"time"
)

// TimeoutEntry is an active timeout for one member of one guild.
// ExpiresAt is absolute so a restart does not shift the expiry.
type TimeoutEntry struct {
	GuildID     string    `json:"guild_id"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
	Reason      string    `json:"reason,omitempty"`
	RequestedBy string    `json:"requested_by,omitempty"`
}

// Expired reports whether the timeout ran out strictly before now.
func (e TimeoutEntry) Expired(now time.Time) bool {
	return e.ExpiresAt.Before(now)
}

// Remaining returns how long the timeout still has to run, never negative.
func (e TimeoutEntry) Remaining(now time.Time) time.Duration {
	if d := e.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// NormalizeTime strips the monotonic reading and location and truncates to
// millisecond precision, which is what the stores persist.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// SortByExpiry orders entries soonest expiry first, ties broken by user ID.
func SortByExpiry(entries []TimeoutEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ExpiresAt.Equal(entries[j].ExpiresAt) {
			return entries[i].UserID < entries[j].UserID
		}
		return entries[i].ExpiresAt.Before(entries[j].ExpiresAt)
	})
}
