package securecache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cpcoders/codetrack/internal/crypto/cachecrypto"
)

type memKeyStore struct {
	key []byte
}

func (m *memKeyStore) Load() ([]byte, bool, error) { return m.key, m.key != nil, nil }
func (m *memKeyStore) Save(k []byte) error         { m.key = append([]byte(nil), k...); return nil }
func (m *memKeyStore) Drop() error                 { m.key = nil; return nil }

func newTestCache(t *testing.T) (*Cache, *memKeyStore) {
	t.Helper()
	ks := &memKeyStore{}
	c := New(filepath.Join(t.TempDir(), "cache.db"), ks)
	t.Cleanup(func() { _ = c.Close() })
	return c, ks
}

type profile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func TestCache_InitIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, ks := newTestCache(t)

	if err := c.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	k1 := append([]byte(nil), ks.key...)
	if len(k1) != cachecrypto.KeyLen {
		t.Fatalf("key len=%d, want=%d", len(k1), cachecrypto.KeyLen)
	}
	if err := c.Init(ctx); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if string(ks.key) != string(k1) {
		t.Fatalf("second Init must not rotate the key")
	}
}

func TestCache_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _ := newTestCache(t)

	in := profile{Username: "ada", Email: "ada@example.com"}
	if err := c.SetItem(ctx, "profile", in); err != nil {
		t.Fatalf("SetItem: %v", err)
	}

	var out profile
	found, err := c.GetItem(ctx, "profile", &out)
	if err != nil || !found {
		t.Fatalf("GetItem: found=%v err=%v", found, err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}

	// overwrite wins
	in2 := profile{Username: "ada2", Email: "ada@example.com"}
	if err := c.SetItem(ctx, "profile", in2); err != nil {
		t.Fatalf("SetItem(2): %v", err)
	}
	found, err = c.GetItem(ctx, "profile", &out)
	if err != nil || !found || out.Username != "ada2" {
		t.Fatalf("overwrite: found=%v err=%v out=%+v", found, err, out)
	}
}

func TestCache_MissOnUnknownKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _ := newTestCache(t)

	var out profile
	found, err := c.GetItem(ctx, "nope", &out)
	if err != nil || found {
		t.Fatalf("want clean miss, got found=%v err=%v", found, err)
	}
}

func TestCache_EncryptedAtRest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _ := newTestCache(t)

	if err := c.SetItem(ctx, "k", profile{Username: "secret-name"}); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	blob, found, err := c.store.get(ctx, "k")
	if err != nil || !found {
		t.Fatalf("raw get: found=%v err=%v", found, err)
	}
	if string(blob) == `{"username":"secret-name","email":""}` {
		t.Fatalf("value stored in cleartext")
	}
	if len(blob) <= len("secret-name") {
		t.Fatalf("blob too short to carry nonce+tag: %d", len(blob))
	}
}

func TestCache_RotatedKeyIsMissNotError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, ks := newTestCache(t)

	if err := c.SetItem(ctx, "profile", profile{Username: "ada"}); err != nil {
		t.Fatalf("SetItem: %v", err)
	}

	// Simulate a new session: key store lost the key, cache reinitializes.
	ks.key = nil
	c.key = nil
	if err := c.Init(ctx); err != nil {
		t.Fatalf("re-Init: %v", err)
	}

	var out profile
	found, err := c.GetItem(ctx, "profile", &out)
	if err != nil {
		t.Fatalf("decrypt failure must not be an error: %v", err)
	}
	if found {
		t.Fatalf("entry sealed under the old key must read as absent")
	}

	// Self-heal: a fresh write under the new key is readable again.
	if err := c.SetItem(ctx, "profile", profile{Username: "ada"}); err != nil {
		t.Fatalf("SetItem after rotate: %v", err)
	}
	found, err = c.GetItem(ctx, "profile", &out)
	if err != nil || !found || out.Username != "ada" {
		t.Fatalf("self-heal failed: found=%v err=%v out=%+v", found, err, out)
	}
}

func TestCache_RemoveItem(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _ := newTestCache(t)

	if err := c.SetItem(ctx, "k", profile{Username: "x"}); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	if err := c.RemoveItem(ctx, "k"); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	var out profile
	if found, _ := c.GetItem(ctx, "k", &out); found {
		t.Fatalf("entry survived removal")
	}

	// absent key is not an error
	if err := c.RemoveItem(ctx, "never-existed"); err != nil {
		t.Fatalf("RemoveItem(absent): %v", err)
	}
}

func TestCache_ClearDropsEntriesAndKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, ks := newTestCache(t)

	if err := c.SetItem(ctx, "a", profile{Username: "1"}); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	oldKey := append([]byte(nil), ks.key...)

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if ks.key != nil {
		t.Fatalf("Clear must drop the session key")
	}

	var out profile
	if found, _ := c.GetItem(ctx, "a", &out); found {
		t.Fatalf("entries survived Clear")
	}
	if string(ks.key) == string(oldKey) {
		t.Fatalf("next Init must generate a fresh key")
	}
}

func TestIsSupported(t *testing.T) {
	t.Parallel()
	if !IsSupported() {
		t.Fatalf("sqlite and crypto rand should be available in tests")
	}
}
