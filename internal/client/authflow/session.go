// Copyright (c) 2026 Fixaroo. All rights reserved.
// Author: dev@fixaroo.app

package authflow

import (
	"context"
	"sync"

	"github.com/fixaroo/fixaroo/internal/platform/sec"
)

// # Session Record

// Session is the persisted record of an authenticated subject's identity.
// The rest of the application reads it to gate access to authenticated
// surfaces; only the controller writes it, and only after the server has
// returned an authenticated identity.
type Session struct {
	SubjectID   int64        `json:"subject_id"`
	Role        sec.UserRole `json:"role"`
	DisplayName string       `json:"display_name"`
	AccessToken string       `json:"access_token"`
}

// # Store Contract

// SessionStore is the injected persistence mechanism for the [Session].
// Implementations must return [ErrNoSession] from Get when nothing is stored.
type SessionStore interface {
	Get(context context.Context) (*Session, error)
	Set(context context.Context, session *Session) error
	Clear(context context.Context) error
}

// # In-Memory Store

// MemorySessionStore keeps the session in process memory. It is the default
// store and the one used throughout the test suite.
type MemorySessionStore struct {
	mutex   sync.RWMutex
	session *Session
}

// NewMemorySessionStore constructs an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

// Get returns a copy of the stored session, or [ErrNoSession].
func (store *MemorySessionStore) Get(_ context.Context) (*Session, error) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()

	if store.session == nil {
		return nil, ErrNoSession
	}
	copied := *store.session
	return &copied, nil
}

// Set replaces the stored session.
func (store *MemorySessionStore) Set(_ context.Context, session *Session) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	copied := *session
	store.session = &copied
	return nil
}

// Clear removes the stored session. Clearing an empty store is a no-op.
func (store *MemorySessionStore) Clear(_ context.Context) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	store.session = nil
	return nil
}
