// Package cache is the on-device durable cache for customization settings and
// the locally synthesized guest identity.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"idlely/internal/customization"
	applog "idlely/internal/log"
)

// SettingsKey is where the customization settings are cached.
const SettingsKey = "idlely-customization"

// ErrCorrupt wraps payloads that are present but cannot be decoded.
var ErrCorrupt = errors.New("cache: corrupt payload")

// Store is a badger-backed key-value cache.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the cache at path.
func Open(ctx context.Context, path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true
	return open(ctx, opts)
}

// OpenInMemory opens a cache that lives only as long as the process.
func OpenInMemory(ctx context.Context) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(ctx, opts)
}

func open(ctx context.Context, opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	applog.Debug(ctx, "settings cache opened", "path", opts.Dir, "inMemory", opts.InMemory)
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get reads the raw value stored under key.
func (s *Store) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return value, true, nil
}

// Put stores value under key.
func (s *Store) Put(key string, value []byte) error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	}); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(key string) error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// ReadSettings returns the cached settings. found is false when nothing has
// been cached yet; a payload that does not decode yields ErrCorrupt.
func (s *Store) ReadSettings(ctx context.Context) (customization.Settings, bool, error) {
	if err := ctx.Err(); err != nil {
		return customization.Settings{}, false, err
	}

	raw, found, err := s.Get(SettingsKey)
	if err != nil || !found {
		return customization.Settings{}, false, err
	}

	var settings customization.Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return customization.Settings{}, true, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return settings, true, nil
}

// WriteSettings replaces the cached settings.
func (s *Store) WriteSettings(ctx context.Context, settings customization.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return s.Put(SettingsKey, data)
}
