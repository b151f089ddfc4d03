package keymod

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/danmuck/keybridge/internal/protocol"
	"github.com/danmuck/keybridge/internal/testutil/testlog"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	reg, err := Init(filepath.Join(t.TempDir(), "keys.db"), []byte("hunter2"), zerolog.Nop())
	if err != nil {
		t.Fatalf("init registry: %v", err)
	}
	t.Cleanup(func() { _ = reg.Teardown() })
	return NewHandler(reg, zerolog.Nop())
}

func handle(t *testing.T, h *Handler, request string) ([]byte, error) {
	t.Helper()
	reply, err := h.HandleRequest(&protocol.Message{Index: 7, Data: []byte(request)})
	if err != nil {
		return nil, err
	}
	return reply.Data, nil
}

func TestHandlerNewAndGetKey(t *testing.T) {
	testlog.Start(t)
	h := newTestHandler(t)

	out, err := handle(t, h, "NEWKEY:alpha")
	if err != nil {
		t.Fatalf("newkey: %v", err)
	}
	if !bytes.Equal(out, []byte("OK:alpha")) {
		t.Fatalf("unexpected newkey reply: %q", out)
	}

	first, err := handle(t, h, "GETKEY:alpha")
	if err != nil {
		t.Fatalf("getkey: %v", err)
	}
	if !strings.HasPrefix(string(first), "KEY:") {
		t.Fatalf("unexpected getkey reply: %q", first)
	}

	second, err := handle(t, h, "GETKEY:alpha")
	if err != nil {
		t.Fatalf("second getkey: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("key derivation must be deterministic per alias")
	}
}

func TestHandlerDistinctAliasesDistinctKeys(t *testing.T) {
	testlog.Start(t)
	h := newTestHandler(t)

	for _, alias := range []string{"alpha", "beta"} {
		if _, err := handle(t, h, "NEWKEY:"+alias); err != nil {
			t.Fatalf("newkey %s: %v", alias, err)
		}
	}
	a, err := handle(t, h, "GETKEY:alpha")
	if err != nil {
		t.Fatalf("getkey alpha: %v", err)
	}
	b, err := handle(t, h, "GETKEY:beta")
	if err != nil {
		t.Fatalf("getkey beta: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("different aliases must derive different keys")
	}
}

func TestHandlerGetKeyUnknownAlias(t *testing.T) {
	testlog.Start(t)
	h := newTestHandler(t)

	_, err := handle(t, h, "GETKEY:ghost")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestHandlerNewKeyDuplicate(t *testing.T) {
	testlog.Start(t)
	h := newTestHandler(t)

	if _, err := handle(t, h, "NEWKEY:alpha"); err != nil {
		t.Fatalf("newkey: %v", err)
	}
	_, err := handle(t, h, "NEWKEY:alpha")
	if !errors.Is(err, ErrKeyExists) {
		t.Fatalf("expected ErrKeyExists, got %v", err)
	}
}

func TestHandlerStatKey(t *testing.T) {
	testlog.Start(t)
	h := newTestHandler(t)

	if _, err := handle(t, h, "NEWKEY:alpha"); err != nil {
		t.Fatalf("newkey: %v", err)
	}
	out, err := handle(t, h, "STATKEY:alpha")
	if err != nil {
		t.Fatalf("statkey: %v", err)
	}
	if !strings.HasPrefix(string(out), "STAT:passphrase:") {
		t.Fatalf("unexpected statkey reply: %q", out)
	}
}

func TestHandlerRevoke(t *testing.T) {
	testlog.Start(t)
	h := newTestHandler(t)

	if _, err := handle(t, h, "NEWKEY:alpha"); err != nil {
		t.Fatalf("newkey: %v", err)
	}
	if _, err := handle(t, h, "REVOKE:alpha"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := handle(t, h, "GETKEY:alpha"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after revoke, got %v", err)
	}
	if _, err := handle(t, h, "REVOKE:alpha"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound on double revoke, got %v", err)
	}
}

func TestHandlerBadRequests(t *testing.T) {
	testlog.Start(t)
	h := newTestHandler(t)

	for _, raw := range []string{"", "GETKEY", "GETKEY:", ":alpha", "FROBNICATE:alpha"} {
		if _, err := handle(t, h, raw); !errors.Is(err, ErrBadRequest) {
			t.Fatalf("request %q: expected ErrBadRequest, got %v", raw, err)
		}
	}
	if _, err := h.HandleRequest(nil); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("nil request: expected ErrBadRequest, got %v", err)
	}
}

func TestPassphraseModule(t *testing.T) {
	testlog.Start(t)
	if _, err := NewPassphraseModule(nil); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("expected ErrEmptySecret, got %v", err)
	}

	mod, err := NewPassphraseModule([]byte("hunter2"))
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	salt := []byte("0123456789abcdef")
	k1, err := mod.DeriveKey("alpha", salt)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	k2, err := mod.DeriveKey("alpha", salt)
	if err != nil {
		t.Fatalf("derive again: %v", err)
	}
	if !bytes.Equal(k1, k2) {
		t.Fatalf("derivation must be deterministic")
	}
	k3, err := mod.DeriveKey("beta", salt)
	if err != nil {
		t.Fatalf("derive beta: %v", err)
	}
	if bytes.Equal(k1, k3) {
		t.Fatalf("alias must influence the derived key")
	}
	if len(k1) != derivedKeyBytes {
		t.Fatalf("expected %d key bytes, got %d", derivedKeyBytes, len(k1))
	}
}

func TestRegistryDuplicateModule(t *testing.T) {
	testlog.Start(t)
	reg, err := Init(filepath.Join(t.TempDir(), "keys.db"), []byte("hunter2"), zerolog.Nop())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	defer reg.Teardown()

	mod, err := NewPassphraseModule([]byte("other"))
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	if err := reg.Register(mod); !errors.Is(err, ErrDuplicateModule) {
		t.Fatalf("expected ErrDuplicateModule, got %v", err)
	}
}

func TestRegistryTeardownIdempotent(t *testing.T) {
	testlog.Start(t)
	reg, err := Init(filepath.Join(t.TempDir(), "keys.db"), []byte("hunter2"), zerolog.Nop())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := reg.Teardown(); err != nil {
		t.Fatalf("teardown: %v", err)
	}
	if err := reg.Teardown(); err != nil {
		t.Fatalf("second teardown: %v", err)
	}
}
