// Package events publishes timeout lifecycle events for other services.
package events

import (
	"context"
	"time"
)

// Event topic constants
const (
	TopicTimeoutAdded     = "durandal.timeout.added"
	TopicTimeoutRemoved   = "durandal.timeout.removed"
	TopicTimeoutExpired   = "durandal.timeout.expired"
	TopicTimeoutReapplied = "durandal.timeout.reapplied"
)

// TimeoutEvent is the payload of every timeout topic.
type TimeoutEvent struct {
	GuildID     string    `json:"guild_id"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
	Reason      string    `json:"reason,omitempty"`
	RequestedBy string    `json:"requested_by,omitempty"`
	At          time.Time `json:"at"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
