package securecache

import (
	"os"
	"path/filepath"
)

// KeyStore holds the session key's exported form. Implementations are
// expected to be volatile: a key that disappears between sessions is the
// mechanism that makes old ciphertexts unreadable.
type KeyStore interface {
	Load() ([]byte, bool, error)
	Save(key []byte) error
	Drop() error
}

// fileKeyStore keeps the key in a file under the runtime dir, which the OS
// clears at session end. Falls back to the temp dir when no runtime dir is
// available.
type fileKeyStore struct {
	path string
}

// NewSessionKeyStore returns a session-scoped key store named after the
// application.
func NewSessionKeyStore(appName string) KeyStore {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return &fileKeyStore{path: filepath.Join(dir, appName+"-session.key")}
}

func (s *fileKeyStore) Load() ([]byte, bool, error) {
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *fileKeyStore) Save(key []byte) error {
	return os.WriteFile(s.path, key, 0o600)
}

func (s *fileKeyStore) Drop() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
