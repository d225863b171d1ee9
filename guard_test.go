package netguard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/kbukum/netguard/breaker"
	"github.com/kbukum/netguard/config"
	"github.com/kbukum/netguard/httpclient"
	"github.com/kbukum/netguard/status"
)

func testConfig(t *testing.T, baseURL string) Config {
	t.Helper()
	return Config{
		ServiceConfig: config.ServiceConfig{Name: "guard-test"},
		Breaker: breaker.Config{
			FailureThreshold:    1,
			RecoveryTimeout:     time.Minute,
			RetryTimeout:        time.Minute,
			HealthCheckInterval: time.Minute,
			BaseRetryDelay:      time.Millisecond,
			MaxRetryDelay:       8 * time.Millisecond,
		},
		Client: httpclient.Config{
			BaseURL: baseURL,
			Timeout: 2 * time.Second,
		},
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{ServiceConfig: config.ServiceConfig{Name: "guard-test"}})
	if err == nil {
		t.Fatal("expected error for config without a base URL")
	}
}

func TestGuardLifecycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	g, err := New(testConfig(t, srv.URL))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	if err := g.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	resp, err := g.Client().Get(ctx, "/things")
	if err != nil {
		t.Fatalf("request through guard failed: %v", err)
	}
	if !resp.IsSuccess() {
		t.Errorf("expected success, got HTTP %d", resp.StatusCode)
	}
	if g.Breaker().State() != breaker.StateClosed {
		t.Errorf("breaker state = %s, want closed", g.Breaker().State())
	}

	if err := g.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := g.Stop(ctx); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
}

func TestGuardBreakerNameDefaultsToService(t *testing.T) {
	g, err := New(testConfig(t, "http://localhost:1"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if g.Breaker().Name() != "guard-test" {
		t.Errorf("breaker name = %q, want guard-test", g.Breaker().Name())
	}
}

func TestGuardRecoversThroughProber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g, err := New(testConfig(t, srv.URL))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	if err := g.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _ = g.Stop(ctx) }()

	g.Breaker().RecordFailure(httpclient.NewConnectionError(context.DeadlineExceeded))
	if g.Breaker().State() != breaker.StateOpen {
		t.Fatalf("breaker state = %s, want open", g.Breaker().State())
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if g.Breaker().State() == breaker.StateClosed {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("circuit never recovered, state = %s", g.Breaker().State())
}

func TestGuardRestoresPersistedToggle(t *testing.T) {
	flagFile := filepath.Join(t.TempDir(), "flags.json")
	store := status.NewFlagStore(flagFile)
	if err := store.Save(status.Flags{Enabled: false}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	cfg := testConfig(t, "http://localhost:1")
	cfg.Status.FlagFile = flagFile

	g, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if g.Breaker().Enabled() {
		t.Error("breaker should start disabled from the persisted flag")
	}
}
