package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"idlely/internal/cache"
	"idlely/internal/config"
	"idlely/internal/entitlement"
	"idlely/internal/identity"
	applog "idlely/internal/log"
	"idlely/internal/presentation"
	"idlely/internal/remote"
	"idlely/internal/settings"
)

const memoryCache = ":memory:"

// options are the persistent flags shared by every command.
type options struct {
	cachePath string
	remoteURL string
	apiKey    string
	timeout   time.Duration
	offline   bool
	logLevel  string
}

func (o *options) fill(cfg config.Config) {
	if o.cachePath == "" {
		o.cachePath = cfg.Cache.Path
	}
	if o.remoteURL == "" {
		o.remoteURL = cfg.Remote.BaseURL
	}
	if o.apiKey == "" {
		o.apiKey = cfg.Remote.APIKey
	}
	if o.timeout <= 0 {
		o.timeout = cfg.Remote.Timeout
	}
}

// app is one CLI invocation: the cache, the backend client and the settings
// store built on top of them.
type app struct {
	opts   options
	out    io.Writer
	cache  *cache.Store
	client *remote.Client
	store  *settings.Store
}

func openApp(ctx context.Context, opts options, out io.Writer) (*app, error) {
	var (
		kv  *cache.Store
		err error
	)
	if opts.cachePath == memoryCache {
		kv, err = cache.OpenInMemory(ctx)
	} else {
		kv, err = cache.Open(ctx, opts.cachePath)
	}
	if err != nil {
		return nil, err
	}

	a := &app{opts: opts, out: out, cache: kv}

	if !opts.offline && strings.TrimSpace(opts.apiKey) != "" {
		a.client, err = remote.NewClient(remote.Config{
			BaseURL: opts.remoteURL,
			APIKey:  opts.apiKey,
			Timeout: opts.timeout,
		})
		if err != nil {
			_ = kv.Close()
			return nil, err
		}
	} else {
		applog.Debug(ctx, "running without backend", "offline", opts.offline)
	}

	who, err := a.resolveIdentity(ctx)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	storeOpts := settings.Options{
		Identity:   who,
		Cache:      kv,
		Appearance: presentation.EnvAppearance,
		Emitter:    settings.EmitterFunc(logEvent),
	}
	if a.client != nil {
		storeOpts.Remote = a.client
		storeOpts.Gate = entitlement.New(a.client)
	}
	a.store = settings.New(storeOpts)

	if err := a.store.Load(ctx); err != nil {
		_ = a.close()
		return nil, err
	}
	a.store.Wait()
	return a, nil
}

// resolveIdentity restores a cached session when the backend is reachable
// and falls back to the device's guest identity.
func (a *app) resolveIdentity(ctx context.Context) (identity.Identity, error) {
	if a.client != nil {
		session, ok, err := identity.RestoreSession(ctx, a.cache)
		if err != nil {
			return identity.Identity{}, err
		}
		if ok {
			a.client.SetAccessToken(session.AccessToken)
			return session.User, nil
		}
	}
	return identity.Guest(ctx, a.cache)
}

func (a *app) requireBackend() error {
	if a.client == nil {
		return errors.New("no backend configured: set IDLELY_REMOTE_API_KEY or pass --api-key")
	}
	return nil
}

// signedIn records session and moves the settings over to its identity.
func (a *app) signedIn(ctx context.Context, session identity.Session) error {
	if err := identity.SaveSession(a.cache, session); err != nil {
		return err
	}
	if err := a.store.SetIdentity(ctx, session.User); err != nil {
		return err
	}
	a.store.Wait()
	return nil
}

func (a *app) close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	errs = append(errs, a.cache.Close())
	return errors.Join(errs...)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func logEvent(e settings.Event) {
	ctx := context.Background()
	if e.Err != nil {
		applog.Warn(ctx, "settings background task failed", "event", string(e.Kind), "user", e.UserID, "error", e.Err)
		return
	}
	applog.Debug(ctx, "settings background task finished", "event", string(e.Kind), "user", e.UserID)
}
