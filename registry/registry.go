// Package registry keeps the loaded guild records in memory and writes every
// change through to the durable store before it becomes visible.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"durandal/model"
	"durandal/utils/database"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNotLoaded is returned for guilds that have not been loaded yet.
	ErrNotLoaded = errors.New("community not loaded")
	// ErrPersist wraps every store failure; memory is left untouched.
	ErrPersist = errors.New("failed to persist community")
)

// Store is the durable side of the registry.
type Store interface {
	Get(ctx context.Context, guildID string) (*model.GuildRecord, error)
	Put(ctx context.Context, rec *model.GuildRecord) error
}

type guildState struct {
	mu  sync.Mutex
	rec *model.GuildRecord
}

// Registry maps guild IDs to their loaded records.
type Registry struct {
	store Store

	mu     sync.RWMutex
	guilds map[string]*guildState

	loads singleflight.Group
}

// New creates an empty registry backed by store.
func New(store Store) *Registry {
	return &Registry{
		store:  store,
		guilds: make(map[string]*guildState),
	}
}

// Load reads a guild from the store into memory, creating an empty stored
// record when none exists. Loading an already loaded guild is a no-op.
func (r *Registry) Load(ctx context.Context, guildID string) error {
	if r.IsLoaded(guildID) {
		return nil
	}
	_, err, _ := r.loads.Do(guildID, func() (any, error) {
		if r.IsLoaded(guildID) {
			return nil, nil
		}

		rec, err := r.store.Get(ctx, guildID)
		switch {
		case errors.Is(err, database.ErrRecordNotFound):
			rec = model.NewGuildRecord(guildID)
			if err := r.store.Put(ctx, rec); err != nil {
				return nil, fmt.Errorf("%w %s: %w", ErrPersist, guildID, err)
			}
		case err != nil:
			return nil, fmt.Errorf("%w %s: %w", ErrPersist, guildID, err)
		default:
			if rec.Upgrade() {
				if err := r.store.Put(ctx, rec); err != nil {
					return nil, fmt.Errorf("%w %s: %w", ErrPersist, guildID, err)
				}
				log.Info().Str("guild_id", guildID).Int("schema_version", rec.SchemaVersion).
					Msg("Upgraded stored community record")
			}
		}

		r.mu.Lock()
		r.guilds[guildID] = &guildState{rec: rec}
		r.mu.Unlock()

		log.Info().Str("guild_id", guildID).Int("timeouts", len(rec.Timeouts)).Msg("Loaded community")
		return nil, nil
	})
	return err
}

// IsLoaded reports whether the guild is in memory.
func (r *Registry) IsLoaded(guildID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.guilds[guildID]
	return ok
}

// Guilds returns the IDs of all loaded guilds in ascending order.
func (r *Registry) Guilds() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.guilds))
	for id := range r.guilds {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (r *Registry) state(guildID string) (*guildState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.guilds[guildID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotLoaded, guildID)
	}
	return g, nil
}

// mutate applies fn to a copy of the record, persists the copy and only then
// swaps it in.
func (r *Registry) mutate(ctx context.Context, guildID string, fn func(rec *model.GuildRecord)) error {
	g, err := r.state(guildID)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	next := g.rec.Clone()
	fn(next)
	if err := r.store.Put(ctx, next); err != nil {
		return fmt.Errorf("%w %s: %w", ErrPersist, guildID, err)
	}
	g.rec = next
	return nil
}

// GetConfig returns the settings of a loaded guild.
func (r *Registry) GetConfig(guildID string) (model.GuildConfig, error) {
	g, err := r.state(guildID)
	if err != nil {
		return model.GuildConfig{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rec.Config(), nil
}

// SetLogChannel stores the channel that receives moderation notices.
func (r *Registry) SetLogChannel(ctx context.Context, guildID, channelID string) error {
	return r.mutate(ctx, guildID, func(rec *model.GuildRecord) {
		rec.LogChannelID = channelID
	})
}

// SetTimeoutRole stores the role applied to timed out members.
func (r *Registry) SetTimeoutRole(ctx context.Context, guildID, roleID string) error {
	return r.mutate(ctx, guildID, func(rec *model.GuildRecord) {
		rec.TimeoutRoleID = roleID
	})
}

// SnapshotTimeouts returns a copy of the active timeouts of a guild.
func (r *Registry) SnapshotTimeouts(guildID string) (map[string]model.TimeoutEntry, error) {
	g, err := r.state(guildID)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[string]model.TimeoutEntry, len(g.rec.Timeouts))
	for k, v := range g.rec.Timeouts {
		out[k] = v
	}
	return out, nil
}

// Lookup returns the active timeout of one member, if any.
func (r *Registry) Lookup(guildID, userID string) (model.TimeoutEntry, bool, error) {
	g, err := r.state(guildID)
	if err != nil {
		return model.TimeoutEntry{}, false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.rec.Timeouts[userID]
	return entry, ok, nil
}

// UpsertTimeout stores entry, replacing any previous timeout of the member.
func (r *Registry) UpsertTimeout(ctx context.Context, entry model.TimeoutEntry) error {
	entry.ExpiresAt = model.NormalizeTime(entry.ExpiresAt)
	return r.mutate(ctx, entry.GuildID, func(rec *model.GuildRecord) {
		rec.Timeouts[entry.UserID] = entry
	})
}

// ClearTimeout removes the timeout of a member. It reports false without
// touching the store when there was none.
func (r *Registry) ClearTimeout(ctx context.Context, guildID, userID string) (bool, error) {
	g, err := r.state(guildID)
	if err != nil {
		return false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.rec.Timeouts[userID]; !ok {
		return false, nil
	}
	next := g.rec.Clone()
	delete(next.Timeouts, userID)
	if err := r.store.Put(ctx, next); err != nil {
		return false, fmt.Errorf("%w %s: %w", ErrPersist, guildID, err)
	}
	g.rec = next
	return true, nil
}

// ActiveCount returns the number of active timeouts across loaded guilds.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	states := make([]*guildState, 0, len(r.guilds))
	for _, g := range r.guilds {
		states = append(states, g)
	}
	r.mu.RUnlock()

	n := 0
	for _, g := range states {
		g.mu.Lock()
		n += len(g.rec.Timeouts)
		g.mu.Unlock()
	}
	return n
}
