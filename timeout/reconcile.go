package timeout

import (
	"context"
	"fmt"
	"time"

	"durandal/events"
	"durandal/metrics"

	"github.com/rs/zerolog/log"
)

// Sweep releases every expired timeout of every loaded guild and returns how
// many were released. One clock reading is used for the whole pass. Failures
// are logged per entry and never stop the pass.
func (e *Engine) Sweep(ctx context.Context) int {
	start := time.Now()
	now := e.now()
	ctx = context.WithoutCancel(ctx)

	released := 0
	for _, guildID := range e.reg.Guilds() {
		snap, err := e.reg.SnapshotTimeouts(guildID)
		if err != nil {
			log.Warn().Err(err).Str("guild_id", guildID).Msg("Skipping guild in sweep")
			continue
		}
		for userID, entry := range snap {
			if !entry.Expired(now) {
				continue
			}
			if e.expire(ctx, guildID, userID, now) {
				released++
			}
		}
	}

	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	log.Debug().Int("released", released).Dur("took", time.Since(start)).Msg("Sweep finished")
	return released
}

// expire releases one timeout if it is still expired once the member lock is
// held; a newer AddTimeout may have replaced it since the snapshot.
func (e *Engine) expire(ctx context.Context, guildID, userID string, now time.Time) bool {
	unlock := e.locks.Lock(subjectKey(guildID, userID))
	defer unlock()

	entry, ok, err := e.reg.Lookup(guildID, userID)
	if err != nil || !ok || !entry.Expired(now) {
		return false
	}
	cfg, err := e.reg.GetConfig(guildID)
	if err != nil {
		return false
	}

	// A failed removal is logged; the record is still cleared.
	e.releaseRole(ctx, cfg, userID)

	if _, err := e.reg.ClearTimeout(ctx, guildID, userID); err != nil {
		metrics.StoreFailuresTotal.WithLabelValues("expire").Inc()
		log.Error().Err(err).Str("guild_id", guildID).Str("user_id", userID).Msg("Failed to clear expired timeout")
		return false
	}
	metrics.TimeoutsExpiredTotal.Inc()
	e.refreshActive()

	log.Info().Str("guild_id", guildID).Str("user_id", userID).Msg("Timeout expired")
	e.notify(ctx, guildID, fmt.Sprintf("<@%s> is no longer timed out (expired)", userID), cfg.LogChannelID)
	e.publish(ctx, events.TopicTimeoutExpired, entry)
	return true
}

// OnGuildAvailable loads the stored state of a guild. Commands for the guild
// are rejected until it has been loaded.
func (e *Engine) OnGuildAvailable(ctx context.Context, guildID string) error {
	if err := e.reg.Load(ctx, guildID); err != nil {
		metrics.StoreFailuresTotal.WithLabelValues("load").Inc()
		log.Error().Err(err).Str("guild_id", guildID).Msg("Failed to load community")
		return err
	}
	e.refreshActive()
	return nil
}

// OnMemberJoined reapplies the timeout role to a member who rejoined while
// still timed out. The expiry is left unchanged.
func (e *Engine) OnMemberJoined(ctx context.Context, guildID, userID string) error {
	if err := e.OnGuildAvailable(ctx, guildID); err != nil {
		return err
	}

	unlock := e.locks.Lock(subjectKey(guildID, userID))
	defer unlock()

	entry, ok, err := e.reg.Lookup(guildID, userID)
	if err != nil || !ok {
		return err
	}
	if entry.Expired(e.now()) {
		return nil
	}
	cfg, err := e.reg.GetConfig(guildID)
	if err != nil {
		return err
	}
	if cfg.TimeoutRoleID == "" {
		log.Warn().Str("guild_id", guildID).Str("user_id", userID).Msg("Member rejoined while timed out but no timeout role is set")
		return ErrNoTimeoutRole
	}

	err = e.call(ctx, "add_role", func(ctx context.Context) error {
		return e.gateway.AddRole(ctx, guildID, userID, cfg.TimeoutRoleID)
	})
	if err != nil {
		log.Warn().Err(err).Str("guild_id", guildID).Str("user_id", userID).Msg("Failed to reapply timeout role")
		return err
	}
	metrics.TimeoutsReappliedTotal.Inc()

	log.Info().Str("guild_id", guildID).Str("user_id", userID).Time("expires_at", entry.ExpiresAt).
		Msg("Timeout role reapplied on rejoin")
	e.notify(ctx, guildID,
		fmt.Sprintf("<@%s> rejoined while timed out, role reapplied (expires <t:%d:R>)", userID, entry.ExpiresAt.Unix()),
		cfg.LogChannelID)
	e.publish(ctx, events.TopicTimeoutReapplied, entry)
	return nil
}
