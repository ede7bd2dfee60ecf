// Copyright (c) 2026 Fixaroo. All rights reserved.
// Author: dev@fixaroo.app

package authflow_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixaroo/fixaroo/internal/client/authflow"
	"github.com/fixaroo/fixaroo/internal/platform/sec"
)

func sampleSession() *authflow.Session {
	return &authflow.Session{
		SubjectID:   42,
		Role:        sec.RoleCustomer,
		DisplayName: "Anna",
		AccessToken: "token-abc",
	}
}

/*
TestMemorySessionStore covers the get/set/clear contract, including the
no-session sentinel and copy semantics on reads.
*/
func TestMemorySessionStore(t *testing.T) {
	store := authflow.NewMemorySessionStore()

	_, err := store.Get(context.Background())
	assert.ErrorIs(t, err, authflow.ErrNoSession)

	require.NoError(t, store.Set(context.Background(), sampleSession()))

	loaded, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleSession(), loaded)

	// Mutating the returned copy must not leak into the store.
	loaded.DisplayName = "Mallory"
	reloaded, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Anna", reloaded.DisplayName)

	require.NoError(t, store.Clear(context.Background()))
	_, err = store.Get(context.Background())
	assert.ErrorIs(t, err, authflow.ErrNoSession)

	// Clearing an empty store is harmless.
	assert.NoError(t, store.Clear(context.Background()))
}

/*
TestFileSessionStore covers round-tripping through the JSON file, the
owner-only permissions, and survival across store instances.
*/
func TestFileSessionStore(t *testing.T) {
	directory := t.TempDir()

	store, err := authflow.NewFileSessionStore(directory)
	require.NoError(t, err)

	_, err = store.Get(context.Background())
	assert.ErrorIs(t, err, authflow.ErrNoSession)

	require.NoError(t, store.Set(context.Background(), sampleSession()))

	// The token-bearing file must not be world readable.
	info, err := os.Stat(filepath.Join(directory, "session.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// A fresh instance over the same directory sees the session.
	reopened, err := authflow.NewFileSessionStore(directory)
	require.NoError(t, err)
	loaded, err := reopened.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleSession(), loaded)

	require.NoError(t, store.Clear(context.Background()))
	_, err = store.Get(context.Background())
	assert.ErrorIs(t, err, authflow.ErrNoSession)
	assert.NoError(t, store.Clear(context.Background()))
}
