package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/park285/turtle-soup-judge/internal/config"
	"github.com/park285/turtle-soup-judge/internal/domain/turtlesoup"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newValkeyStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)
	store, err := NewStore(context.Background(),
		config.SessionStoreConfig{URL: "redis://" + mini.Addr(), Enabled: true, Required: true, DisableCache: true, ConnectMaxAttempts: 1},
		config.SessionConfig{SessionTTLMinutes: 1},
		quietLogger(),
	)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(store.Close)
	return store, mini
}

func sampleState(id string) turtlesoup.GameState {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	state := turtlesoup.NewGameState(id, turtlesoup.DefaultEconomy(), now)
	state.Spend(3)
	state.Record(turtlesoup.Turn{Kind: "question", Text: "Is he alive?", Result: "no", Source: "fallback", At: now}, 10)
	return state
}

func TestValkeyStoreRoundTrip(t *testing.T) {
	store, mini := newValkeyStore(t)
	ctx := context.Background()

	if store.Backend() != "valkey" {
		t.Fatalf("expected valkey backend, got %s", store.Backend())
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	state := sampleState("s1")
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mini.Exists(keyPrefix + "s1") {
		t.Fatalf("expected key to exist")
	}
	if ttl := mini.TTL(keyPrefix + "s1"); ttl != time.Minute {
		t.Fatalf("unexpected ttl: %v", ttl)
	}

	loaded, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Coins != 97 || len(loaded.History) != 1 || loaded.History[0].Result != "no" {
		t.Fatalf("unexpected loaded state: %+v", loaded)
	}

	count, err := store.Count(ctx)
	if err != nil || count != 1 {
		t.Fatalf("expected 1 session, got %d err=%v", count, err)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestValkeyStoreExpiry(t *testing.T) {
	store, mini := newValkeyStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, sampleState("s2")); err != nil {
		t.Fatalf("save: %v", err)
	}
	mini.FastForward(2 * time.Minute)
	if _, err := store.Load(ctx, "s2"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}
}

func TestValkeyStoreCorruptValue(t *testing.T) {
	store, mini := newValkeyStore(t)
	if err := mini.Set(keyPrefix+"bad", "not zstd"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.Load(context.Background(), "bad"); err == nil || errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestNewStoreDisabledRequired(t *testing.T) {
	_, err := NewStore(context.Background(), config.SessionStoreConfig{Enabled: false, Required: true}, config.SessionConfig{}, quietLogger())
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewStoreFallsBackToMemory(t *testing.T) {
	store, err := NewStore(context.Background(),
		config.SessionStoreConfig{URL: "redis://127.0.0.1:1", Enabled: true, ConnectMaxAttempts: 1},
		config.SessionConfig{SessionTTLMinutes: 1},
		quietLogger(),
	)
	if err != nil {
		t.Fatalf("expected memory fallback, got %v", err)
	}
	if store.Backend() != "memory" {
		t.Fatalf("expected memory backend, got %s", store.Backend())
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Unix(0, 0)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Save(ctx, sampleState("m1")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Load(ctx, "m1"); err != nil {
		t.Fatalf("load: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := store.Load(ctx, "m1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
	if count, _ := store.Count(ctx); count != 0 {
		t.Fatalf("expected empty store, got %d", count)
	}
}

func TestStoreRejectsEmptyID(t *testing.T) {
	store := NewMemoryStore(0)
	if err := store.Save(context.Background(), turtlesoup.GameState{}); err == nil {
		t.Fatalf("expected error for empty id")
	}
	if _, err := store.Load(context.Background(), " "); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found for blank id")
	}
}
