// Package settings owns the in-memory customization settings. Every mutation
// goes through the Store, which projects the result, mirrors it to the local
// cache and, for signed-in identities, to the remote store in the background.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"idlely/internal/customization"
	"idlely/internal/entitlement"
	"idlely/internal/identity"
	applog "idlely/internal/log"
	"idlely/internal/presentation"
	"idlely/internal/remote"
)

var (
	// ErrClosed is returned by mutations and reconciles after Close.
	ErrClosed = errors.New("settings: store closed")
	// ErrInvalidPayload wraps import payloads that do not parse or validate.
	ErrInvalidPayload = errors.New("settings: invalid payload")
)

// Cache is the durable local mirror.
type Cache interface {
	ReadSettings(ctx context.Context) (customization.Settings, bool, error)
	WriteSettings(ctx context.Context, s customization.Settings) error
}

// Remote is the durable remote mirror.
type Remote interface {
	FetchSettings(ctx context.Context, userID string) (customization.Settings, error)
	UpdateSettings(ctx context.Context, userID string, s customization.Settings) error
}

// Gate resolves entitlement and activates premium access.
type Gate interface {
	Resolve(ctx context.Context, who identity.Identity) *customization.SubscriptionInfo
	Activate(ctx context.Context, who identity.Identity, key string) entitlement.Result
}

// Options wires a Store. Remote and Gate may be nil for offline use; Surface
// may be nil when nobody renders the projection.
type Options struct {
	Identity   identity.Identity
	Cache      Cache
	Remote     Remote
	Gate       Gate
	Surface    presentation.Surface
	Appearance presentation.Appearance
	Emitter    EventEmitter
}

// Store is the single owner of the current settings.
type Store struct {
	cache      Cache
	remote     Remote
	gate       Gate
	surface    presentation.Surface
	appearance presentation.Appearance
	emitter    EventEmitter

	mu           sync.Mutex
	who          identity.Identity
	current      customization.Settings
	projected    presentation.State
	subscription *customization.SubscriptionInfo
	generation   uint64
	closed       bool

	tasks sync.WaitGroup
}

// New returns a Store holding the default settings for opts.Identity. Nothing
// is projected until Load or the first mutation.
func New(opts Options) *Store {
	emitter := opts.Emitter
	if emitter == nil {
		emitter = NoopEmitter{}
	}
	who := opts.Identity
	return &Store{
		cache:      opts.Cache,
		remote:     opts.Remote,
		gate:       opts.Gate,
		surface:    opts.Surface,
		appearance: opts.Appearance,
		emitter:    emitter,
		who:        who,
		current:    customization.Defaults().WithOwner(ownerID(who), false),
	}
}

func ownerID(who identity.Identity) string {
	if who.SignedIn() {
		return who.ID
	}
	return ""
}

// Load applies the cached settings, if any, and projects them. For a
// signed-in identity it then reconciles against the remote store in the
// background. Cache problems are logged and leave the defaults in place.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	next := s.current
	if cached, ok := s.readCache(ctx); ok {
		next = cached.WithOwner(ownerID(s.who), cached.IsPremium && s.who.SignedIn())
	}
	s.commitLocked(ctx, next, false)

	if s.who.SignedIn() && s.remote != nil {
		s.spawnLocked(ctx, func(ctx context.Context) {
			_ = s.Sync(ctx)
		})
	}
	return nil
}

func (s *Store) readCache(ctx context.Context) (customization.Settings, bool) {
	if s.cache == nil {
		return customization.Settings{}, false
	}
	cached, found, err := s.cache.ReadSettings(ctx)
	if err != nil {
		applog.Warn(ctx, "ignoring unreadable cached settings", "error", err)
		return customization.Settings{}, false
	}
	if !found {
		applog.Debug(ctx, "no cached settings")
		return customization.Settings{}, false
	}
	if err := cached.Validate(); err != nil {
		applog.Warn(ctx, "ignoring invalid cached settings", "error", err)
		return customization.Settings{}, false
	}
	if cached.UserID != "" && cached.UserID != ownerID(s.who) {
		applog.Info(ctx, "ignoring cached settings owned by another identity", "cachedUser", cached.UserID)
		return customization.Settings{}, false
	}
	return cached, true
}

// Sync fetches entitlement and remote settings concurrently and, on success,
// replaces the in-memory settings with the remote record annotated with the
// fresh entitlement. Failures leave state untouched; the returned error is
// informational. A remote record fetched before a later local mutation is
// discarded, though the fresh entitlement still applies.
func (s *Store) Sync(ctx context.Context) error {
	s.mu.Lock()
	who, gen, closed := s.who, s.generation, s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if !who.SignedIn() || s.remote == nil {
		return nil
	}

	var (
		info   *customization.SubscriptionInfo
		record customization.Settings
		found  bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if s.gate != nil {
			info = s.gate.Resolve(gctx, who)
		}
		return nil
	})
	g.Go(func() error {
		fetched, err := s.remote.FetchSettings(gctx, who.ID)
		if errors.Is(err, remote.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		record, found = fetched, true
		return nil
	})
	if err := g.Wait(); err != nil {
		applog.Error(ctx, "failed to load remote settings", "user", who.ID, "error", err)
		s.emitter.Emit(Event{Kind: EventSyncFailed, UserID: who.ID, Err: err})
		return fmt.Errorf("sync settings: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.who != who {
		s.mu.Unlock()
		applog.Info(ctx, "discarding remote settings for previous identity", "user", who.ID)
		return nil
	}

	next := s.current
	switch {
	case !found:
		applog.Debug(ctx, "no remote settings on record", "user", who.ID)
	case s.generation != gen:
		applog.Info(ctx, "discarding remote settings older than local changes", "user", who.ID)
	default:
		if err := record.Validate(); err != nil {
			applog.Warn(ctx, "ignoring invalid remote settings", "user", who.ID, "error", err)
		} else {
			next = record
		}
	}

	s.subscription = info
	snapshot := s.commitLocked(ctx, next.WithOwner(who.ID, info.Entitled()), true)
	s.mu.Unlock()

	applog.Debug(ctx, "settings reconciled", "user", who.ID, "premium", snapshot.IsPremium)
	s.emitter.Emit(Event{Kind: EventSynced, UserID: who.ID, Settings: snapshot})
	return nil
}

// Update merges patch onto the current settings, projects the result once,
// writes it to the cache and starts a best-effort remote write. A merged
// result that fails validation is rejected without changing anything.
func (s *Store) Update(ctx context.Context, patch customization.Patch) (customization.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return customization.Settings{}, ErrClosed
	}
	if patch.Empty() {
		return s.current.Clone(), nil
	}

	next := patch.Apply(s.current)
	if err := next.Validate(); err != nil {
		return customization.Settings{}, fmt.Errorf("update settings: %w", err)
	}
	return s.mutateLocked(ctx, next), nil
}

// Replace swaps in settings wholesale. Fields absent from settings do not
// survive. The identity-owned fields stay with the store.
func (s *Store) Replace(ctx context.Context, settings customization.Settings) (customization.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return customization.Settings{}, ErrClosed
	}

	next := settings.WithOwner(s.current.UserID, s.current.IsPremium)
	if err := next.Validate(); err != nil {
		return customization.Settings{}, fmt.Errorf("replace settings: %w", err)
	}
	return s.mutateLocked(ctx, next), nil
}

// ApplyPreset merges the named preset. Unknown names are ignored and report false.
func (s *Store) ApplyPreset(ctx context.Context, name string) (bool, error) {
	preset, ok := customization.PresetByName(name)
	if !ok {
		applog.Debug(ctx, "unknown preset ignored", "preset", name)
		return false, nil
	}
	if _, err := s.Update(ctx, preset.Patch()); err != nil {
		return false, err
	}
	return true, nil
}

// ResetToDefaults replaces the settings with the defaults.
func (s *Store) ResetToDefaults(ctx context.Context) (customization.Settings, error) {
	return s.Replace(ctx, customization.Defaults())
}

// Export serializes the full settings object as indented JSON.
func (s *Store) Export() (string, error) {
	s.mu.Lock()
	current := s.current.Clone()
	s.mu.Unlock()

	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return "", fmt.Errorf("export settings: %w", err)
	}
	return string(data), nil
}

// Import replaces the settings with payload, an object in the Export format.
// Fields the payload omits take their default values. Payloads that do not
// parse or validate are rejected and leave the settings unchanged.
func (s *Store) Import(ctx context.Context, payload []byte) (customization.Settings, error) {
	imported, err := ParseSnapshot(payload)
	if err != nil {
		applog.Warn(ctx, "rejected settings import", "error", err)
		return customization.Settings{}, err
	}
	return s.Replace(ctx, imported)
}

// ParseSnapshot decodes and validates an exported settings object.
func ParseSnapshot(payload []byte) (customization.Settings, error) {
	if trimmed := bytes.TrimSpace(payload); len(trimmed) == 0 || trimmed[0] != '{' {
		return customization.Settings{}, fmt.Errorf("%w: snapshot must be a JSON object", ErrInvalidPayload)
	}
	settings := customization.Defaults()
	if err := json.Unmarshal(payload, &settings); err != nil {
		return customization.Settings{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := settings.Validate(); err != nil {
		return customization.Settings{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return settings, nil
}

// ActivatePremium redeems key for the current identity. On success the
// settings are reloaded synchronously before the result is returned.
func (s *Store) ActivatePremium(ctx context.Context, key string) entitlement.Result {
	s.mu.Lock()
	who, closed := s.who, s.closed
	s.mu.Unlock()
	if closed {
		return entitlement.Result{Message: entitlement.MsgFailed}
	}
	if !who.SignedIn() {
		return entitlement.Result{Message: entitlement.MsgSignInRequired}
	}
	if s.gate == nil {
		return entitlement.Result{Message: entitlement.MsgFailed}
	}

	result := s.gate.Activate(ctx, who, key)
	if !result.Success {
		return result
	}
	if err := s.Sync(ctx); err != nil {
		applog.Warn(ctx, "reload after activation failed", "user", who.ID, "error", err)
	}
	return result
}

// SetIdentity switches the owner of the settings. Entitlement is dropped until
// the next reconcile, which starts in the background for signed-in identities.
// Results still in flight for the previous identity are discarded.
func (s *Store) SetIdentity(ctx context.Context, who identity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.who == who {
		return nil
	}

	s.who = who
	s.generation++
	s.subscription = nil
	s.commitLocked(ctx, s.current.WithOwner(ownerID(who), false), true)
	applog.Info(ctx, "settings identity changed", "user", who.ID, "guest", who.Guest)

	if who.SignedIn() && s.remote != nil {
		s.spawnLocked(ctx, func(ctx context.Context) {
			_ = s.Sync(ctx)
		})
	}
	return nil
}

// Identity returns the current owner.
func (s *Store) Identity() identity.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.who
}

// Current returns a copy of the current settings.
func (s *Store) Current() customization.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Presentation returns the most recent projection.
func (s *Store) Presentation() presentation.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projected
}

// Subscription returns the last resolved subscription, or nil.
func (s *Store) Subscription() *customization.SubscriptionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscription == nil {
		return nil
	}
	info := *s.subscription
	return &info
}

// Entitled reports whether the current settings carry the premium flag.
func (s *Store) Entitled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.IsPremium
}

// Wait blocks until every background task started so far has finished.
func (s *Store) Wait() {
	s.tasks.Wait()
}

// Close rejects further mutations and waits for background tasks.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.tasks.Wait()
	return nil
}

// mutateLocked commits a local change and mirrors it remotely.
func (s *Store) mutateLocked(ctx context.Context, next customization.Settings) customization.Settings {
	s.generation++
	snapshot := s.commitLocked(ctx, next, true)

	who := s.who
	if who.SignedIn() && s.remote != nil {
		s.spawnLocked(ctx, func(ctx context.Context) {
			s.pushRemote(ctx, who, snapshot)
		})
	}
	return snapshot
}

// commitLocked installs next, projects it and optionally writes the cache.
func (s *Store) commitLocked(ctx context.Context, next customization.Settings, persist bool) customization.Settings {
	s.current = next.Clone()
	s.projected = presentation.Project(s.current, s.appearance)
	if s.surface != nil {
		s.surface.Apply(s.projected)
	}
	if persist && s.cache != nil {
		if err := s.cache.WriteSettings(context.WithoutCancel(ctx), s.current); err != nil {
			applog.Error(ctx, "failed to cache settings", "error", err)
		}
	}
	return s.current.Clone()
}

func (s *Store) pushRemote(ctx context.Context, who identity.Identity, snapshot customization.Settings) {
	if err := s.remote.UpdateSettings(ctx, who.ID, snapshot); err != nil {
		applog.Error(ctx, "failed to save settings remotely", "user", who.ID, "error", err)
		s.emitter.Emit(Event{Kind: EventRemoteSaveFailed, UserID: who.ID, Settings: snapshot, Err: err})
		return
	}
	applog.Debug(ctx, "settings saved remotely", "user", who.ID)
	s.emitter.Emit(Event{Kind: EventRemoteSaved, UserID: who.ID, Settings: snapshot})
}

// spawnLocked starts a tracked background task detached from the caller's
// cancellation. The transport timeout bounds it.
func (s *Store) spawnLocked(ctx context.Context, task func(context.Context)) {
	detached := context.WithoutCancel(ctx)
	s.tasks.Go(func() {
		task(detached)
	})
}
