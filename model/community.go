package model

// CurrentSchemaVersion is the version written with every persisted GuildRecord.
//
// Version 1 records stored timeouts as a bare user -> expiry map.
// Version 2 added reason and requester to each timeout.
const CurrentSchemaVersion = 2

// GuildConfig holds the moderation settings of a guild.
type GuildConfig struct {
	GuildID       string `json:"guild_id"`
	LogChannelID  string `json:"log_channel_id,omitempty"`
	TimeoutRoleID string `json:"timeout_role_id,omitempty"`
}

// GuildRecord is the persisted state of a guild: its settings plus the
// outstanding timeouts and namelocks, keyed by user ID.
type GuildRecord struct {
	SchemaVersion int                     `json:"schema_version"`
	GuildID       string                  `json:"guild_id"`
	LogChannelID  string                  `json:"log_channel_id,omitempty"`
	TimeoutRoleID string                  `json:"timeout_role_id,omitempty"`
	Timeouts      map[string]TimeoutEntry `json:"timeouts"`
	Namelocks     map[string]bool         `json:"namelocks"`
}

// NewGuildRecord returns an empty record at the current schema version.
func NewGuildRecord(guildID string) *GuildRecord {
	return &GuildRecord{
		SchemaVersion: CurrentSchemaVersion,
		GuildID:       guildID,
		Timeouts:      make(map[string]TimeoutEntry),
		Namelocks:     make(map[string]bool),
	}
}

// Config returns the settings part of the record.
func (r *GuildRecord) Config() GuildConfig {
	return GuildConfig{
		GuildID:       r.GuildID,
		LogChannelID:  r.LogChannelID,
		TimeoutRoleID: r.TimeoutRoleID,
	}
}

// Clone returns a deep copy of the record.
func (r *GuildRecord) Clone() *GuildRecord {
	c := *r
	c.Timeouts = make(map[string]TimeoutEntry, len(r.Timeouts))
	for k, v := range r.Timeouts {
		c.Timeouts[k] = v
	}
	c.Namelocks = make(map[string]bool, len(r.Namelocks))
	for k, v := range r.Namelocks {
		c.Namelocks[k] = v
	}
	return &c
}

// Upgrade fills defaults missing from records written by older versions and
// stamps the current schema version. It reports whether anything changed.
func (r *GuildRecord) Upgrade() bool {
	changed := false
	if r.Timeouts == nil {
		r.Timeouts = make(map[string]TimeoutEntry)
		changed = true
	}
	if r.Namelocks == nil {
		r.Namelocks = make(map[string]bool)
		changed = true
	}
	for userID, entry := range r.Timeouts {
		fixed := entry
		if fixed.GuildID == "" {
			fixed.GuildID = r.GuildID
		}
		if fixed.UserID == "" {
			fixed.UserID = userID
		}
		fixed.ExpiresAt = NormalizeTime(fixed.ExpiresAt)
		if fixed != entry {
			r.Timeouts[userID] = fixed
			changed = true
		}
	}
	if r.SchemaVersion < CurrentSchemaVersion {
		r.SchemaVersion = CurrentSchemaVersion
		changed = true
	}
	return changed
}
