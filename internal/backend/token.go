package backend

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// tokenKey is the name the bearer token is stored under in the token file.
const tokenKey = "authToken"

// TokenStore holds the admin bearer token with an explicit lifecycle: set on
// login, cleared on logout or a 401. With a path it persists across runs so a
// login survives process restarts; with an empty path it is memory-only.
type TokenStore struct {
	mu     sync.Mutex
	path   string
	token  string
	loaded bool
}

// NewTokenStore creates a store backed by the given file, or memory-only when
// path is empty.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// DefaultTokenPath places the token file in the user config directory.
func DefaultTokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "medibot", "token.json")
}

// Token returns the current bearer token, loading it from disk on first use.
func (s *TokenStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	return s.token
}

// Set stores a fresh token and persists it.
func (s *TokenStore) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	s.token = token
	s.persist()
}

// Clear wipes the token, both in memory and on disk.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	s.token = ""
	s.persist()
}

// load reads the token file once. A missing or unreadable file simply means
// no stored token.
func (s *TokenStore) load() {
	if s.loaded {
		return
	}
	s.loaded = true
	if s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var stored map[string]string
	if err := json.Unmarshal(data, &stored); err != nil {
		return
	}
	s.token = stored[tokenKey]
}

func (s *TokenStore) persist() {
	if s.path == "" {
		return
	}
	if s.token == "" {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			log.Printf("[api] failed to remove token file: %v", err)
		}
		return
	}
	data, err := json.Marshal(map[string]string{tokenKey: s.token})
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		log.Printf("[api] failed to create token dir: %v", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		log.Printf("[api] failed to write token file: %v", err)
	}
}
