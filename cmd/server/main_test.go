package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"gorm.io/gorm"

	"idlely/internal/config"
	"idlely/internal/server"
)

type stubServer struct {
	startErr       error
	stopErr        error
	blockUntilStop bool

	startCalled bool
	stopCalled  bool

	startGate   chan struct{}
	startNotify chan struct{}
}

func newStubServer(startErr, stopErr error, block bool) *stubServer {
	s := &stubServer{
		startErr:       startErr,
		stopErr:        stopErr,
		blockUntilStop: block,
		startNotify:    make(chan struct{}),
	}
	if block {
		s.startGate = make(chan struct{})
	}
	return s
}

func (s *stubServer) Start() error {
	s.startCalled = true
	close(s.startNotify)
	if s.blockUntilStop {
		<-s.startGate
	}
	return s.startErr
}

func (s *stubServer) Stop() error {
	s.stopCalled = true
	if s.blockUntilStop {
		close(s.startGate)
	}
	return s.stopErr
}

// harness replaces every seam run uses and restores them when the test ends.
type harness struct {
	cfg        config.Config
	server     *stubServer
	built      server.Config
	mockCalled bool
	shutdown   chan os.Signal
}

func newHarness(t *testing.T, cfg config.Config, srv *stubServer) *harness {
	t.Helper()
	saved := struct {
		load      func() (config.Config, error)
		level     func(string) error
		mock      func(context.Context) (*gorm.DB, error)
		configure func(config.DatabaseConfig) (*gorm.DB, error)
		build     func(server.Config) (serverLifecycle, error)
		subscribe func() (<-chan os.Signal, func())
	}{loadConfigFunc, setLogLevelFunc, newMockDatabaseFunc, configureDatabase, newServerFunc, subscribeShutdownSig}
	t.Cleanup(func() {
		loadConfigFunc = saved.load
		setLogLevelFunc = saved.level
		newMockDatabaseFunc = saved.mock
		configureDatabase = saved.configure
		newServerFunc = saved.build
		subscribeShutdownSig = saved.subscribe
	})

	h := &harness{cfg: cfg, server: srv, shutdown: make(chan os.Signal, 1)}
	loadConfigFunc = func() (config.Config, error) { return h.cfg, nil }
	setLogLevelFunc = func(string) error { return nil }
	newMockDatabaseFunc = func(context.Context) (*gorm.DB, error) {
		h.mockCalled = true
		return &gorm.DB{}, nil
	}
	configureDatabase = func(config.DatabaseConfig) (*gorm.DB, error) {
		return &gorm.DB{}, nil
	}
	newServerFunc = func(c server.Config) (serverLifecycle, error) {
		h.built = c
		return h.server, nil
	}
	subscribeShutdownSig = func() (<-chan os.Signal, func()) {
		return h.shutdown, func() {}
	}
	return h
}

func mockConfig() config.Config {
	return config.Config{
		Server:   config.ServerConfig{Addr: ":8080"},
		Database: config.DatabaseConfig{UseMock: true},
		Logging:  config.LoggingConfig{Level: "debug"},
		Auth: config.AuthConfig{
			Session: config.SessionConfig{Lifetime: time.Hour, CookieName: "test", CookieSecure: true},
			APIKey:  "anon-key",
		},
		Activation: config.ActivationConfig{RatePerSecond: 0.5, Burst: 2},
	}
}

func TestRunServesUntilSignal(t *testing.T) {
	h := newHarness(t, mockConfig(), newStubServer(http.ErrServerClosed, nil, true))
	configureDatabase = func(config.DatabaseConfig) (*gorm.DB, error) {
		t.Fatal("configureDatabase should not be called when mock is enabled")
		return nil, nil
	}

	go func() {
		<-h.server.startNotify
		h.shutdown <- syscall.SIGTERM
	}()

	if code := run(context.Background()); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !h.mockCalled {
		t.Fatal("expected mock database to be used")
	}
	if !h.server.startCalled || !h.server.stopCalled {
		t.Fatal("expected server start and stop to be invoked")
	}
	if h.built.APIKey != "anon-key" {
		t.Fatalf("server APIKey = %q, want anon-key", h.built.APIKey)
	}
	if h.built.Activation.RatePerSecond != 0.5 || h.built.Activation.Burst != 2 {
		t.Fatalf("unexpected activation config: %+v", h.built.Activation)
	}
	if h.built.Session.CookieName != "test" || !h.built.Session.CookieSecure {
		t.Fatalf("unexpected session config: %+v", h.built.Session)
	}
}

func TestRunStopsWhenContextCancelled(t *testing.T) {
	h := newHarness(t, mockConfig(), newStubServer(http.ErrServerClosed, nil, true))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-h.server.startNotify
		cancel()
	}()

	if code := run(ctx); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !h.server.stopCalled {
		t.Fatal("expected server stop on cancellation")
	}
}

func TestRunFallsBackToMockWithoutURL(t *testing.T) {
	cfg := mockConfig()
	cfg.Database = config.DatabaseConfig{}
	h := newHarness(t, cfg, newStubServer(nil, nil, false))

	if code := run(context.Background()); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !h.mockCalled {
		t.Fatal("expected mock database when no URL is configured")
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
		stops bool
	}{
		{
			name: "server start fails",
			setup: func(h *harness) {
				h.server = newStubServer(errors.New("listener failure"), nil, false)
			},
		},
		{
			name: "database unreachable",
			setup: func(h *harness) {
				h.cfg.Database = config.DatabaseConfig{URL: "postgres://example"}
				configureDatabase = func(config.DatabaseConfig) (*gorm.DB, error) {
					return nil, errors.New("db connection refused")
				}
			},
		},
		{
			name: "invalid log level",
			setup: func(*harness) {
				setLogLevelFunc = func(string) error { return errors.New("invalid level") }
			},
		},
		{
			name: "config cannot load",
			setup: func(*harness) {
				loadConfigFunc = func() (config.Config, error) { return config.Config{}, errors.New("bad env") }
			},
		},
		{
			name: "graceful shutdown fails",
			setup: func(h *harness) {
				h.server = newStubServer(http.ErrServerClosed, errors.New("timeout"), true)
				go func() {
					<-h.server.startNotify
					h.shutdown <- syscall.SIGINT
				}()
			},
			stops: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, mockConfig(), newStubServer(nil, nil, false))
			tt.setup(h)

			if code := run(context.Background()); code != 1 {
				t.Fatalf("expected exit code 1, got %d", code)
			}
			if h.server.stopCalled != tt.stops {
				t.Fatalf("stopCalled = %t, want %t", h.server.stopCalled, tt.stops)
			}
		})
	}
}
