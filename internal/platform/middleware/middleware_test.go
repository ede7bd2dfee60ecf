// Copyright (c) 2026 Fixaroo. All rights reserved.
// Author: dev@fixaroo.app

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixaroo/fixaroo/internal/platform/constants"
)

// resetClients empties the shared limiter map so tests don't leak into each
// other.
func resetClients() {
	mu.Lock()
	defer mu.Unlock()
	clients = make(map[string]*rateLimitClient)
}

/*
TestRateLimit_PruneStaleClients tests that the cleanup pass drops limiter
entries idle past the client TTL while keeping active ones.
*/
func TestRateLimit_PruneStaleClients(t *testing.T) {
	resetClients()
	t.Cleanup(resetClients)

	mu.Lock()
	clients["10.0.0.1"] = &rateLimitClient{lastSeen: time.Now().Add(-constants.RateLimitClientTTL - time.Minute)}
	clients["10.0.0.2"] = &rateLimitClient{lastSeen: time.Now()}
	mu.Unlock()

	pruneStaleClients()

	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, clients, "10.0.0.1")
	assert.Contains(t, clients, "10.0.0.2")
}

/*
TestRateLimit_TracksClientsByIP tests that serving a request registers the
client in the limiter map with a fresh activity timestamp. Pruning right
after must keep it: a just-seen client is never stale.
*/
func TestRateLimit_TracksClientsByIP(t *testing.T) {
	resetClients()
	t.Cleanup(resetClients)

	lifetimeCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := RateLimit(lifetimeCtx)(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusNoContent)
	}))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.RemoteAddr = "192.0.2.7:41000"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusNoContent, recorder.Code)

	pruneStaleClients()

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, clients, "192.0.2.7")
}
