// Copyright (c) 2026 Fixaroo. All rights reserved.
// Author: dev@fixaroo.app

package authflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// # File-Backed Store

// FileSessionStore persists the session as a JSON file so the CLI stays
// signed in across invocations. The file carries the access token, so it is
// written with owner-only permissions.
type FileSessionStore struct {
	mutex sync.Mutex
	path  string
}

// NewFileSessionStore constructs a store rooted at dataDir/session.json,
// creating the directory if needed.
func NewFileSessionStore(dataDir string) (*FileSessionStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("authflow_store_mkdir_failed: %w", err)
	}
	return &FileSessionStore{path: filepath.Join(dataDir, "session.json")}, nil
}

// Get loads the persisted session. A missing file means [ErrNoSession].
func (store *FileSessionStore) Get(_ context.Context) (*Session, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	raw, err := os.ReadFile(store.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("authflow_store_read_failed: %w", err)
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("authflow_store_decode_failed: %w", err)
	}
	return &session, nil
}

// Set atomically replaces the persisted session via a temp-file rename, so a
// crash mid-write never leaves a truncated session behind.
func (store *FileSessionStore) Set(_ context.Context, session *Session) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	raw, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("authflow_store_encode_failed: %w", err)
	}

	temporary := store.path + ".tmp"
	if err := os.WriteFile(temporary, raw, 0o600); err != nil {
		return fmt.Errorf("authflow_store_write_failed: %w", err)
	}
	if err := os.Rename(temporary, store.path); err != nil {
		return fmt.Errorf("authflow_store_rename_failed: %w", err)
	}
	return nil
}

// Clear removes the persisted session. Clearing when nothing is stored is a
// no-op.
func (store *FileSessionStore) Clear(_ context.Context) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	if err := os.Remove(store.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("authflow_store_clear_failed: %w", err)
	}
	return nil
}
