package keymod

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/danmuck/keybridge/internal/testutil/testlog"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "keys.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreCreateGet(t *testing.T) {
	testlog.Start(t)
	store := openTestStore(t)
	ctx := context.Background()

	rec := &KeyRecord{Alias: "alpha", Module: "passphrase", Salt: []byte("0123456789abcdef")}
	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.Get(ctx, "alpha")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Alias != "alpha" || got.Module != "passphrase" || string(got.Salt) != "0123456789abcdef" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not persisted: %+v", got)
	}
}

func TestStoreGetMissing(t *testing.T) {
	testlog.Start(t)
	store := openTestStore(t)

	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestStoreCreateDuplicate(t *testing.T) {
	testlog.Start(t)
	store := openTestStore(t)
	ctx := context.Background()

	rec := &KeyRecord{Alias: "alpha", Module: "passphrase", Salt: []byte("salt")}
	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := store.Create(ctx, &KeyRecord{Alias: "alpha", Module: "passphrase", Salt: []byte("other")})
	if !errors.Is(err, ErrKeyExists) {
		t.Fatalf("expected ErrKeyExists, got %v", err)
	}
}

func TestStoreDelete(t *testing.T) {
	testlog.Start(t)
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, &KeyRecord{Alias: "alpha", Module: "passphrase", Salt: []byte("salt")}); err != nil {
		t.Fatalf("create: %v", err)
	}

	removed, err := store.Delete(ctx, "alpha")
	if err != nil || !removed {
		t.Fatalf("delete: removed=%v err=%v", removed, err)
	}
	removed, err = store.Delete(ctx, "alpha")
	if err != nil || removed {
		t.Fatalf("second delete must be a no-op: removed=%v err=%v", removed, err)
	}
	if _, err := store.Get(ctx, "alpha"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after delete, got %v", err)
	}
}
