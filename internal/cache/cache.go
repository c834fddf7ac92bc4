// Package cache keeps small string lookups on disk so later clop processes
// can skip expensive discovery.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/lydakis/clop/internal/paths"
)

type entry struct {
	Key     string    `json:"key"`
	Value   string    `json:"value"`
	Created time.Time `json:"created"`
	Expires time.Time `json:"expires"`
}

// Store is a directory of entries that expire ttl after they are written.
type Store struct {
	dir string
	ttl time.Duration
}

// New returns a Store rooted at dir.
func New(dir string, ttl time.Duration) *Store {
	return &Store{dir: dir, ttl: ttl}
}

// Installs returns the Store for discovered peer install paths.
func Installs(ttl time.Duration) *Store {
	return New(filepath.Join(paths.CacheDir(), "installs"), ttl)
}

// Get looks up key. Expired or unreadable entries are removed and reported
// as misses.
func (s *Store) Get(key string) (string, bool) {
	path := s.entryPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Key != key {
		_ = os.Remove(path)
		return "", false
	}
	if time.Now().After(e.Expires) {
		_ = os.Remove(path)
		return "", false
	}
	return e.Value, true
}

// Put stores value under key.
func (s *Store) Put(key, value string) error {
	if err := paths.EnsureDir(s.dir); err != nil {
		return err
	}

	now := time.Now()
	data, err := json.Marshal(entry{
		Key:     key,
		Value:   value,
		Created: now,
		Expires: now.Add(s.ttl),
	})
	if err != nil {
		return err
	}
	return os.WriteFile(s.entryPath(key), data, 0600)
}

// Forget removes key.
func (s *Store) Forget(key string) error {
	err := os.Remove(s.entryPath(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *Store) entryPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])[:32]+".json")
}
