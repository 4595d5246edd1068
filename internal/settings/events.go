package settings

import "idlely/internal/customization"

// EventKind names what a background task did.
type EventKind string

// Background task outcomes.
const (
	EventRemoteSaved      EventKind = "settings.remote_saved"
	EventRemoteSaveFailed EventKind = "settings.remote_save_failed"
	EventSynced           EventKind = "settings.synced"
	EventSyncFailed       EventKind = "settings.sync_failed"
)

// Event reports the outcome of a background remote write or reconcile.
type Event struct {
	Kind     EventKind
	UserID   string
	Settings customization.Settings
	Err      error
}

// EventEmitter receives store events. Emit is called outside the store lock
// and must not block for long.
type EventEmitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to EventEmitter.
type EmitterFunc func(Event)

// Emit implements EventEmitter.
func (f EmitterFunc) Emit(e Event) { f(e) }

// NoopEmitter discards events.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(Event) {}
