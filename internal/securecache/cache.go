// Package securecache is a durable key/value cache that encrypts every value
// under a session-scoped symmetric key before it touches storage. Entries
// survive process restarts; the key does not survive the session, so stale
// ciphertexts degrade to cache misses instead of readable data.
package securecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cpcoders/codetrack/internal/crypto/cachecrypto"
)

// ErrStoreUnavailable reports that the durable store cannot be opened or
// written.
var ErrStoreUnavailable = errors.New("securecache: store unavailable")

// ErrCryptoUnavailable reports that key material cannot be generated or
// loaded.
var ErrCryptoUnavailable = errors.New("securecache: crypto unavailable")

// Cache is the encrypted client-side cache.
type Cache struct {
	dbPath string
	keys   KeyStore

	mu    sync.Mutex
	store *sqliteStore
	key   []byte
}

// New builds a cache over the given sqlite file and key store. Nothing is
// opened until Init.
func New(dbPath string, keys KeyStore) *Cache {
	return &Cache{dbPath: dbPath, keys: keys}
}

// DefaultPath returns the cache database path under the user config dir.
func DefaultPath(appName string) (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache.db"), nil
}

// Init opens the durable store and loads or generates the session key.
// Idempotent: safe to call before every operation, later calls in the same
// session are no-ops.
func (c *Cache) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initLocked(ctx)
}

func (c *Cache) initLocked(_ context.Context) error {
	if c.store != nil && c.key != nil {
		return nil
	}
	if c.store == nil {
		st, err := openStore(c.dbPath)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		c.store = st
	}
	if c.key == nil {
		key, found, err := c.keys.Load()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
		}
		if !found || len(key) != cachecrypto.KeyLen {
			key, err = cachecrypto.NewKey()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
			}
			if err := c.keys.Save(key); err != nil {
				return fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
			}
		}
		c.key = key
	}
	return nil
}

// SetItem serializes v, seals it under the session key with a fresh nonce
// and persists it, overwriting any prior entry for key.
func (c *Cache) SetItem(ctx context.Context, key string, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.initLocked(ctx); err != nil {
		return err
	}
	plain, err := json.Marshal(v)
	if err != nil {
		return err
	}
	blob, err := cachecrypto.Seal(c.key, plain)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
	}
	if err := c.store.put(ctx, key, blob); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// GetItem loads and decrypts the entry for key into out. A missing entry or
// a blob sealed under a lost key both report found=false; decryption failure
// is a miss, never an error.
func (c *Cache) GetItem(ctx context.Context, key string, out any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.initLocked(ctx); err != nil {
		return false, err
	}
	blob, found, err := c.store.get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !found {
		return false, nil
	}
	plain, err := cachecrypto.Open(c.key, blob)
	if err != nil {
		// Wrong or rotated session key. The entry is unreadable by design.
		return false, nil
	}
	if err := json.Unmarshal(plain, out); err != nil {
		return false, nil
	}
	return true, nil
}

// RemoveItem deletes the entry for key; absent keys are not an error.
func (c *Cache) RemoveItem(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.initLocked(ctx); err != nil {
		return err
	}
	if err := c.store.delete(ctx, key); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Clear deletes all entries and discards the session key, forcing a fresh
// key on the next Init.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.initLocked(ctx); err != nil {
		return err
	}
	if err := c.store.deleteAll(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := c.keys.Drop(); err != nil {
		return fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
	}
	c.key = nil
	return nil
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	err := c.store.close()
	c.store = nil
	return err
}

// IsSupported probes the storage and crypto primitives. Callers fall back to
// cacheless behavior when false; the probe itself never fails.
func IsSupported() bool {
	if _, err := cachecrypto.Rand(1); err != nil {
		return false
	}
	st, err := openStore(":memory:")
	if err != nil {
		return false
	}
	_ = st.close()
	return true
}
