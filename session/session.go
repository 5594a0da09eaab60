// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/danielhkuo/rollcall/models"
)

// ErrNoSession is returned by Get when no credential is held.
var ErrNoSession = errors.New("no session")

// Session is the credential and cached admin profile of the signed-in operator.
type Session struct {
	Token string
	Admin models.Admin
}

// Store holds the process-wide session. It is written only by a
// successful login and cleared by logout or an authorization failure.
type Store interface {
	Get() (Session, error)
	Set(Session) error
	Clear() error
}

// MemoryStore keeps the session in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	current *Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get() (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil || m.current.Token == "" {
		return Session{}, ErrNoSession
	}
	return *m.current, nil
}

func (m *MemoryStore) Set(s Session) error {
	if s.Token == "" {
		return errors.New("session token must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = &s
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	return nil
}

// fileLayout mirrors the two keys the browser console kept in local storage:
// the raw token and the JSON-serialized admin profile.
type fileLayout struct {
	Token string `json:"token"`
	User  string `json:"user"`
}

// FileStore persists the session as a JSON file readable only by its owner.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Get() (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session file: %w", err)
	}

	var layout fileLayout
	if err := json.Unmarshal(raw, &layout); err != nil {
		return Session{}, fmt.Errorf("decode session file: %w", err)
	}
	if layout.Token == "" {
		return Session{}, ErrNoSession
	}

	s := Session{Token: layout.Token}
	if layout.User != "" {
		// A corrupt profile is not fatal; the token alone gates access.
		if err := json.Unmarshal([]byte(layout.User), &s.Admin); err != nil {
			slog.Warn("discarding unreadable session profile", "path", f.path, "error", err)
			s.Admin = models.Admin{}
		}
	}
	return s, nil
}

func (f *FileStore) Set(s Session) error {
	if s.Token == "" {
		return errors.New("session token must not be empty")
	}

	user, err := json.Marshal(s.Admin)
	if err != nil {
		return fmt.Errorf("encode admin profile: %w", err)
	}
	raw, err := json.Marshal(fileLayout{Token: s.Token, User: string(user)})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// HasToken reports whether the store currently holds a credential.
func HasToken(s Store) bool {
	_, err := s.Get()
	return err == nil
}
