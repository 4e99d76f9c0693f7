package client

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TokenStore persists the session token between runs
type TokenStore interface {
	// Load returns the stored token, or "" when none is stored
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileTokenStore keeps the token in a single file under the user's home
// directory
type FileTokenStore struct {
	path string
}

// NewFileTokenStore creates a token store at the given path.
// An empty path uses the default location.
func NewFileTokenStore(path string) *FileTokenStore {
	if path == "" {
		path = defaultTokenFile()
	}
	return &FileTokenStore{path: path}
}

// Load returns the stored token, or "" if the file does not exist
func (s *FileTokenStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the token to the token file
func (s *FileTokenStore) Save(token string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(token), 0600)
}

// Clear removes the token file
func (s *FileTokenStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".legendgame/token"
	}
	return filepath.Join(home, ".legendgame", "token")
}

// MemoryTokenStore holds the token in memory only
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

// Load returns the stored token
func (s *MemoryTokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

// Save stores the token
func (s *MemoryTokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

// Clear removes the stored token
func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
