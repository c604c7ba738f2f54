package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"durandal/model"

	bolt "go.etcd.io/bbolt"
)

// BucketCommunities stores one JSON GuildRecord per guild ID.
var BucketCommunities = []byte("communities")

// BoltStore stores guild records as JSON documents in a bbolt file.
type BoltStore struct {
	db *bolt.DB
}

// storedRecord is the on-disk shape. Timeouts are decoded lazily because
// version 1 files hold a bare expiry timestamp per user.
type storedRecord struct {
	SchemaVersion int                        `json:"schema_version"`
	GuildID       string                     `json:"guild_id"`
	LogChannelID  string                     `json:"log_channel_id,omitempty"`
	TimeoutRoleID string                     `json:"timeout_role_id,omitempty"`
	Timeouts      map[string]json.RawMessage `json:"timeouts"`
	Namelocks     map[string]bool            `json:"namelocks"`
}

// OpenBoltStore opens or creates the bbolt file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(BucketCommunities)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket %s: %w", BucketCommunities, err)
	}
	return &BoltStore{db: db}, nil
}

// Migrate is a no-op: records are upgraded as they are read.
func (s *BoltStore) Migrate() error {
	return nil
}

// Get loads the record of a guild.
func (s *BoltStore) Get(_ context.Context, guildID string) (*model.GuildRecord, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(BucketCommunities).Get([]byte(guildID))
		if v == nil {
			return ErrRecordNotFound
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decodeRecord(data)
}

// Put replaces the stored record of a guild.
func (s *BoltStore) Put(_ context.Context, rec *model.GuildRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal community %s: %w", rec.GuildID, err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(BucketCommunities).Put([]byte(rec.GuildID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store community %s: %w", rec.GuildID, err)
	}
	return nil
}

// Delete removes the record of a guild.
func (s *BoltStore) Delete(_ context.Context, guildID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(BucketCommunities).Delete([]byte(guildID))
	})
}

// ListGuildIDs returns the IDs of all stored guilds in ascending order.
func (s *BoltStore) ListGuildIDs(_ context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(BucketCommunities).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list communities: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close closes the database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func decodeRecord(data []byte) (*model.GuildRecord, error) {
	var stored storedRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode community record: %w", err)
	}

	rec := &model.GuildRecord{
		SchemaVersion: stored.SchemaVersion,
		GuildID:       stored.GuildID,
		LogChannelID:  stored.LogChannelID,
		TimeoutRoleID: stored.TimeoutRoleID,
		Timeouts:      make(map[string]model.TimeoutEntry, len(stored.Timeouts)),
		Namelocks:     stored.Namelocks,
	}
	if rec.SchemaVersion == 0 {
		rec.SchemaVersion = 1
	}

	for userID, raw := range stored.Timeouts {
		var entry model.TimeoutEntry
		var legacy time.Time
		if err := json.Unmarshal(raw, &legacy); err == nil {
			entry.ExpiresAt = legacy
		} else if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("failed to decode timeout for user %s: %w", userID, err)
		}
		rec.Timeouts[userID] = entry
	}
	return rec, nil
}
