package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/storage"
)

// Key prefixes in the two scopes
const (
	sessionPrefix = "session:" // durable
	resumePrefix  = "resume:"  // durable
	gamePrefix    = "game:"    // volatile
)

const storeTimeout = 5 * time.Second

// StorePersistence implements SessionPersistence on two key-value stores
type StorePersistence struct {
	durable  storage.Store
	volatile storage.Store
}

// NewStorePersistence creates a persistence layer. volatile may be nil, in
// which case an in-memory store is used.
func NewStorePersistence(durable, volatile storage.Store) (*StorePersistence, error) {
	if durable == nil {
		return nil, fmt.Errorf("durable store cannot be nil")
	}
	if volatile == nil {
		volatile = storage.NewMemory()
	}
	return &StorePersistence{durable: durable, volatile: volatile}, nil
}

// NewFilePersistence creates a persistence layer with the durable scope in
// sessionsDir and the volatile scope in memory
func NewFilePersistence(sessionsDir string) (*StorePersistence, error) {
	durable, err := storage.NewFileStore(sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return NewStorePersistence(durable, storage.NewMemory())
}

func normalize(id string) string {
	return strings.ToLower(id)
}

func ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeTimeout)
}

// Save persists a session record
func (sp *StorePersistence) Save(data *PersistedSessionData) error {
	if data == nil {
		return fmt.Errorf("session cannot be nil")
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	c, cancel := ctx()
	defer cancel()
	if err := sp.durable.Set(c, sessionPrefix+normalize(data.ID), string(raw)); err != nil {
		return fmt.Errorf("failed to write session record: %w", err)
	}
	return nil
}

// Load retrieves a session record
func (sp *StorePersistence) Load(id string) (*PersistedSessionData, error) {
	c, cancel := ctx()
	defer cancel()

	raw, err := sp.durable.Get(c, sessionPrefix+normalize(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session record: %w", err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	if data.ID == "" {
		data.ID = id
	}
	return &data, nil
}

// Delete removes the record, the resume snapshot and the volatile snapshot
func (sp *StorePersistence) Delete(id string) error {
	if !sp.Exists(id) {
		return ErrSessionNotFound
	}

	c, cancel := ctx()
	defer cancel()

	key := normalize(id)
	if err := sp.durable.Remove(c, sessionPrefix+key); err != nil {
		return fmt.Errorf("failed to remove session record: %w", err)
	}
	if err := sp.durable.Remove(c, resumePrefix+key); err != nil {
		return fmt.Errorf("failed to remove resume snapshot: %w", err)
	}
	if err := sp.volatile.Remove(c, gamePrefix+key); err != nil {
		log.Warn().Err(err).Str("session", id).Msg("failed to clear volatile snapshot")
	}
	return nil
}

// ListAll returns all persisted session IDs
func (sp *StorePersistence) ListAll() ([]string, error) {
	c, cancel := ctx()
	defer cancel()

	keys, err := sp.durable.Keys(c, sessionPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, sessionPrefix))
	}
	return ids, nil
}

// Exists checks if a session record exists
func (sp *StorePersistence) Exists(id string) bool {
	c, cancel := ctx()
	defer cancel()
	_, err := sp.durable.Get(c, sessionPrefix+normalize(id))
	return err == nil
}

func (sp *StorePersistence) putSnapshot(s storage.Store, key string, snap *engine.Snapshot) error {
	data, err := engine.EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	c, cancel := ctx()
	defer cancel()
	return s.Set(c, key, string(data))
}

// getSnapshot returns nil without error when the key is absent or the
// stored value is unusable
func (sp *StorePersistence) getSnapshot(s storage.Store, key string) (*engine.Snapshot, error) {
	c, cancel := ctx()
	defer cancel()

	raw, err := s.Get(c, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return engine.DecodeSnapshot([]byte(raw)), nil
}

// SaveSnapshot implements SessionPersistence
func (sp *StorePersistence) SaveSnapshot(id string, snap *engine.Snapshot) error {
	return sp.putSnapshot(sp.volatile, gamePrefix+normalize(id), snap)
}

// ClearVolatile implements SessionPersistence
func (sp *StorePersistence) ClearVolatile(id string) error {
	c, cancel := ctx()
	defer cancel()
	return sp.volatile.Remove(c, gamePrefix+normalize(id))
}

// LoadSnapshot implements SessionPersistence
func (sp *StorePersistence) LoadSnapshot(id string) (*engine.Snapshot, error) {
	key := normalize(id)

	snap, err := sp.getSnapshot(sp.volatile, gamePrefix+key)
	if err != nil {
		log.Warn().Err(err).Str("session", id).Msg("volatile scope unavailable, trying resume snapshot")
	}
	if snap != nil {
		return snap, nil
	}

	snap, err = sp.getSnapshot(sp.durable, resumePrefix+key)
	if err != nil {
		return nil, fmt.Errorf("failed to read resume snapshot: %w", err)
	}
	return snap, nil
}

// SaveResume implements SessionPersistence
func (sp *StorePersistence) SaveResume(id string, snap *engine.Snapshot) error {
	if err := sp.putSnapshot(sp.durable, resumePrefix+normalize(id), snap); err != nil {
		return fmt.Errorf("failed to write resume snapshot: %w", err)
	}
	return nil
}

// LoadResume implements SessionPersistence
func (sp *StorePersistence) LoadResume(id string) (*engine.Snapshot, error) {
	snap, err := sp.getSnapshot(sp.durable, resumePrefix+normalize(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read resume snapshot: %w", err)
	}
	if snap == nil {
		return nil, ErrNoSavedGame
	}
	return snap, nil
}
