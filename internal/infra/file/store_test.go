package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "sessions.json")

	store := NewStore(path)
	if _, ok, err := store.Get(ctx, "assessment:sessions"); err != nil || ok {
		t.Fatalf("expected missing key on fresh file, got ok=%v err=%v", ok, err)
	}
	if err := store.Put(ctx, "assessment:sessions", []byte(`[ {"id": "s1"} ]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "other", []byte("plain")); err != nil {
		t.Fatalf("put other: %v", err)
	}

	reopened := NewStore(path)
	got, ok, err := reopened.Get(ctx, "assessment:sessions")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(got) != `[ {"id": "s1"} ]` {
		t.Fatalf("value changed on disk: %s", got)
	}
	if other, _, _ := reopened.Get(ctx, "other"); string(other) != "plain" {
		t.Fatalf("unexpected other value %q", other)
	}
}

func TestStoreCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.json")
	if err := os.WriteFile(path, []byte("{oops"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	store := NewStore(path)
	if _, _, err := store.Get(ctx, "k"); err == nil {
		t.Fatalf("expected decode error")
	}
	if err := store.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("put should replace a corrupt file: %v", err)
	}
	if got, ok, err := store.Get(ctx, "k"); err != nil || !ok || string(got) != "v" {
		t.Fatalf("unexpected get after repair: %q ok=%v err=%v", got, ok, err)
	}
}
