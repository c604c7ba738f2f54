// Package timeout applies, tracks and releases member timeouts.
//
// Every operation on a (guild, member) pair runs under a per-pair lock, so a
// moderator command and the sweeper never interleave on the same member.
// The durable store is written before memory changes. Enforcement on Discord
// is best effort: a failed role call never rolls back a stored record.
package timeout

import (
	"context"
	"fmt"
	"time"

	"durandal/events"
	"durandal/metrics"
	"durandal/model"
	"durandal/registry"
	"durandal/utils"

	"github.com/rs/zerolog/log"
)

const defaultGatewayTimeout = 10 * time.Second

// Engine runs the timeout lifecycle of every loaded guild.
type Engine struct {
	reg            *registry.Registry
	gateway        Gateway
	publisher      events.Publisher
	now            func() time.Time
	gatewayTimeout time.Duration
	locks          *keyedMutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPublisher sets where lifecycle events go.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.publisher = p
		}
	}
}

// WithGatewayTimeout bounds every Discord call.
func WithGatewayTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.gatewayTimeout = d
		}
	}
}

// NewEngine creates an engine over reg that enforces through gateway.
func NewEngine(reg *registry.Registry, gateway Gateway, opts ...Option) *Engine {
	e := &Engine{
		reg:            reg,
		gateway:        gateway,
		publisher:      &events.NoopPublisher{},
		now:            time.Now,
		gatewayTimeout: defaultGatewayTimeout,
		locks:          newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddRequest describes a timeout to apply.
type AddRequest struct {
	GuildID     string
	UserID      string
	Duration    string
	Reason      string
	RequestedBy string
	// ChannelID receives the public confirmation. May be empty.
	ChannelID string
}

// AddResult is the outcome of a successful AddTimeout.
type AddResult struct {
	Entry   model.TimeoutEntry
	Span    time.Duration
	Message string
}

// RemoveOutcome tells whether RemoveTimeout found anything to remove.
type RemoveOutcome int

const (
	Removed RemoveOutcome = iota + 1
	NotFound
)

func (o RemoveOutcome) String() string {
	switch o {
	case Removed:
		return "removed"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// RemoveRequest describes a timeout to lift.
type RemoveRequest struct {
	GuildID     string
	UserID      string
	RequestedBy string
	ChannelID   string
}

// RemoveResult is the outcome of RemoveTimeout.
type RemoveResult struct {
	Outcome RemoveOutcome
	Entry   model.TimeoutEntry
	Message string
}

// AddTimeout records a timeout expiring Duration from now, replacing any
// earlier one for the member, then applies the timeout role and posts the
// confirmation.
//
// When the record was stored but the role could not be applied, the result
// is returned together with an error wrapping ErrGatewayFailure.
func (e *Engine) AddTimeout(ctx context.Context, req AddRequest) (*AddResult, error) {
	span, err := utils.ParseDuration(req.Duration)
	if err != nil || span <= 0 {
		return nil, fmt.Errorf("%w: `%s`", ErrInvalidDuration, req.Duration)
	}

	unlock := e.locks.Lock(subjectKey(req.GuildID, req.UserID))
	defer unlock()

	cfg, err := e.reg.GetConfig(req.GuildID)
	if err != nil {
		return nil, err
	}
	if cfg.TimeoutRoleID == "" {
		return nil, ErrNoTimeoutRole
	}

	entry := model.TimeoutEntry{
		GuildID:     req.GuildID,
		UserID:      req.UserID,
		ExpiresAt:   model.NormalizeTime(e.now().Add(span)),
		Reason:      req.Reason,
		RequestedBy: req.RequestedBy,
	}
	if err := e.reg.UpsertTimeout(ctx, entry); err != nil {
		metrics.StoreFailuresTotal.WithLabelValues("add").Inc()
		log.Error().Err(err).Str("guild_id", req.GuildID).Str("user_id", req.UserID).Msg("Failed to store timeout")
		return nil, err
	}
	metrics.TimeoutsAddedTotal.Inc()
	e.refreshActive()

	result := &AddResult{
		Entry:   entry,
		Span:    span,
		Message: confirmation(entry, span),
	}

	enforceErr := e.call(ctx, "add_role", func(ctx context.Context) error {
		return e.gateway.AddRole(ctx, req.GuildID, req.UserID, cfg.TimeoutRoleID)
	})
	if enforceErr != nil {
		log.Warn().Err(enforceErr).Str("guild_id", req.GuildID).Str("user_id", req.UserID).
			Str("role_id", cfg.TimeoutRoleID).Msg("Timeout stored but role not applied")
	} else {
		log.Info().Str("guild_id", req.GuildID).Str("user_id", req.UserID).
			Time("expires_at", entry.ExpiresAt).Str("requested_by", req.RequestedBy).Msg("Timeout applied")
	}

	e.notify(ctx, req.GuildID, result.Message, req.ChannelID, cfg.LogChannelID)
	e.publish(ctx, events.TopicTimeoutAdded, entry)

	return result, enforceErr
}

// RemoveTimeout lifts the timeout of a member. A member without a timeout
// yields the NotFound outcome and no change.
//
// The record is cleared before the role is released. A store failure leaves
// both untouched. A role that could not be removed returns the result
// together with an error wrapping ErrGatewayFailure.
func (e *Engine) RemoveTimeout(ctx context.Context, req RemoveRequest) (*RemoveResult, error) {
	unlock := e.locks.Lock(subjectKey(req.GuildID, req.UserID))
	defer unlock()

	entry, ok, err := e.reg.Lookup(req.GuildID, req.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &RemoveResult{Outcome: NotFound}, nil
	}

	cfg, err := e.reg.GetConfig(req.GuildID)
	if err != nil {
		return nil, err
	}

	if _, err := e.reg.ClearTimeout(ctx, req.GuildID, req.UserID); err != nil {
		metrics.StoreFailuresTotal.WithLabelValues("remove").Inc()
		log.Error().Err(err).Str("guild_id", req.GuildID).Str("user_id", req.UserID).Msg("Failed to clear timeout")
		return nil, err
	}
	metrics.TimeoutsRemovedTotal.Inc()
	e.refreshActive()

	enforceErr := e.releaseRole(ctx, cfg, req.UserID)

	result := &RemoveResult{
		Outcome: Removed,
		Entry:   entry,
		Message: fmt.Sprintf("<@%s> timeout lifted by <@%s>", req.UserID, req.RequestedBy),
	}
	log.Info().Str("guild_id", req.GuildID).Str("user_id", req.UserID).Str("requested_by", req.RequestedBy).
		Msg("Timeout removed")

	e.notify(ctx, req.GuildID, result.Message, req.ChannelID, cfg.LogChannelID)
	e.publish(ctx, events.TopicTimeoutRemoved, entry)

	return result, enforceErr
}

// Config returns the settings of a loaded guild.
func (e *Engine) Config(guildID string) (model.GuildConfig, error) {
	return e.reg.GetConfig(guildID)
}

// SetLogChannel sets the channel that receives moderation notices.
func (e *Engine) SetLogChannel(ctx context.Context, guildID, channelID string) error {
	if err := e.reg.SetLogChannel(ctx, guildID, channelID); err != nil {
		metrics.StoreFailuresTotal.WithLabelValues("set_log_channel").Inc()
		return err
	}
	log.Info().Str("guild_id", guildID).Str("channel_id", channelID).Msg("Log channel set")
	return nil
}

// SetTimeoutRole sets the role applied to timed out members.
func (e *Engine) SetTimeoutRole(ctx context.Context, guildID, roleID string) error {
	if err := e.reg.SetTimeoutRole(ctx, guildID, roleID); err != nil {
		metrics.StoreFailuresTotal.WithLabelValues("set_timeout_role").Inc()
		return err
	}
	log.Info().Str("guild_id", guildID).Str("role_id", roleID).Msg("Timeout role set")
	return nil
}

// Snapshot lists the active timeouts of a guild, soonest expiry first.
func (e *Engine) Snapshot(guildID string) ([]model.TimeoutEntry, error) {
	snap, err := e.reg.SnapshotTimeouts(guildID)
	if err != nil {
		return nil, err
	}
	entries := make([]model.TimeoutEntry, 0, len(snap))
	for _, entry := range snap {
		entries = append(entries, entry)
	}
	model.SortByExpiry(entries)
	return entries, nil
}

// Now returns the current time of the engine clock.
func (e *Engine) Now() time.Time {
	return e.now()
}

// releaseRole removes the timeout role, tolerating members who left and
// guilds without a role.
func (e *Engine) releaseRole(ctx context.Context, cfg model.GuildConfig, userID string) error {
	if cfg.TimeoutRoleID == "" {
		log.Warn().Str("guild_id", cfg.GuildID).Str("user_id", userID).Msg("No timeout role configured, clearing record only")
		return nil
	}
	err := e.call(ctx, "remove_role", func(ctx context.Context) error {
		return e.gateway.RemoveRole(ctx, cfg.GuildID, userID, cfg.TimeoutRoleID)
	})
	switch {
	case err == nil:
		return nil
	case isSubjectGone(err):
		log.Debug().Str("guild_id", cfg.GuildID).Str("user_id", userID).Msg("Member left, nothing to remove")
		return nil
	default:
		log.Warn().Err(err).Str("guild_id", cfg.GuildID).Str("user_id", userID).
			Str("role_id", cfg.TimeoutRoleID).Msg("Failed to remove timeout role")
		return err
	}
}

// call runs one gateway operation with the gateway timeout. In-flight calls
// are not cancelled by the caller's context.
func (e *Engine) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.gatewayTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		if !isSubjectGone(err) {
			metrics.GatewayFailuresTotal.WithLabelValues(op).Inc()
		}
		return fmt.Errorf("%w: %s: %w", ErrGatewayFailure, op, err)
	}
	return nil
}

// notify posts content to each distinct non-empty channel.
func (e *Engine) notify(ctx context.Context, guildID, content string, channelIDs ...string) {
	seen := make(map[string]bool, len(channelIDs))
	for _, channelID := range channelIDs {
		if channelID == "" || seen[channelID] {
			continue
		}
		seen[channelID] = true
		err := e.call(ctx, "send_message", func(ctx context.Context) error {
			return e.gateway.SendMessage(ctx, channelID, content)
		})
		if err != nil {
			log.Warn().Err(err).Str("guild_id", guildID).Str("channel_id", channelID).Msg("Failed to send notice")
		}
	}
}

func (e *Engine) publish(ctx context.Context, topic string, entry model.TimeoutEntry) {
	event := events.TimeoutEvent{
		GuildID:     entry.GuildID,
		UserID:      entry.UserID,
		ExpiresAt:   entry.ExpiresAt,
		Reason:      entry.Reason,
		RequestedBy: entry.RequestedBy,
		At:          model.NormalizeTime(e.now()),
	}
	if err := e.publisher.Publish(ctx, topic, event); err != nil {
		log.Warn().Err(err).Str("topic", topic).Str("guild_id", entry.GuildID).Msg("Failed to publish event")
	}
}

func (e *Engine) refreshActive() {
	metrics.ActiveTimeouts.Set(float64(e.reg.ActiveCount()))
}

func confirmation(entry model.TimeoutEntry, span time.Duration) string {
	msg := fmt.Sprintf("<@%s> timed out for %s by <@%s>", entry.UserID, utils.PrintHuman(span), entry.RequestedBy)
	if entry.Reason != "" {
		msg += ", reason: " + entry.Reason
	}
	return msg
}
