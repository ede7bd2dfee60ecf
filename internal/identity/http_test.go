// Copyright (c) 2026 Fixaroo. All rights reserved.
// Author: dev@fixaroo.app

package identity_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixaroo/fixaroo/internal/identity"
	"github.com/fixaroo/fixaroo/internal/platform/constants"
	"github.com/fixaroo/fixaroo/internal/platform/sec"
)

// # Test Harness

type handlerFixture struct {
	*serviceFixture
	router chi.Router
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	services := newServiceFixture(t)
	handler := identity.NewHandler(services.service)
	return &handlerFixture{serviceFixture: services, router: handler.Routes()}
}

// postJSON performs a POST against the mounted auth routes and decodes the
// response body into a generic map for envelope assertions.
func (fixture *handlerFixture) postJSON(t *testing.T, path string, payload any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	fixture.router.ServeHTTP(recorder, request)

	decoded := map[string]any{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &decoded))
	return recorder, decoded
}

// # Login Contract

/*
TestHandler_Login_Success pins the success envelope: HTTP 200 with the access
token and subject identity under "data", plus the refresh token cookie.
*/
func TestHandler_Login_Success(t *testing.T) {
	fixture := newHandlerFixture(t)
	seeded := fixture.seedUser(t, "anna@example.com", "correct horse", sec.RoleCustomer, true)

	recorder, body := fixture.postJSON(t, "/login", map[string]string{
		"identifier": "anna@example.com",
		"secret":     "correct horse",
	})

	require.Equal(t, http.StatusOK, recorder.Code)

	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "success responses carry a data envelope")
	assert.NotEmpty(t, data["access_token"])

	user, ok := data["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(seeded.ID), user["id"])
	assert.Equal(t, "customer", user["role"])
	assert.Equal(t, "Test User", user["display_name"])
	assert.NotContains(t, user, "password_hash")

	// The refresh token travels only in the HttpOnly cookie.
	var refreshCookie *http.Cookie
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == constants.RefreshTokenCookieName {
			refreshCookie = cookie
		}
	}
	require.NotNil(t, refreshCookie)
	assert.NotEmpty(t, refreshCookie.Value)
	assert.True(t, refreshCookie.HttpOnly)
	assert.NotContains(t, data, "refresh_token")
}

/*
TestHandler_Login_Challenges pins the challenge envelope: verification
obstacles ride an HTTP 200 with a machine-readable descriptor code, while a
definitive credential rejection is a 401.
*/
func TestHandler_Login_Challenges(t *testing.T) {
	tests := []struct {
		name       string
		storedCode string
		payload    map[string]string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "verification_required",
			storedCode: "483920",
			payload:    map[string]string{"identifier": "tech@example.com", "secret": "correct"},
			wantStatus: http.StatusOK,
			wantCode:   identity.DescriptorVerificationRequired,
		},
		{
			name:       "invalid_verification_code",
			storedCode: "483920",
			payload:    map[string]string{"identifier": "tech@example.com", "secret": "correct", "verification_code": "000000"},
			wantStatus: http.StatusOK,
			wantCode:   identity.DescriptorInvalidVerificationCode,
		},
		{
			name:       "verification_expired",
			storedCode: "",
			payload:    map[string]string{"identifier": "tech@example.com", "secret": "correct", "verification_code": "483920"},
			wantStatus: http.StatusOK,
			wantCode:   identity.DescriptorVerificationExpired,
		},
		{
			name:       "rejected_credentials",
			storedCode: "",
			payload:    map[string]string{"identifier": "tech@example.com", "secret": "wrong"},
			wantStatus: http.StatusUnauthorized,
			wantCode:   identity.DescriptorInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := newHandlerFixture(t)
			user := fixture.seedUser(t, "tech@example.com", "correct", sec.RoleTechnician, false)
			if tt.storedCode != "" {
				require.NoError(t, fixture.codes.Set(context.Background(), user.ID, tt.storedCode, identity.VerificationCodeTTL))
			}

			recorder, body := fixture.postJSON(t, "/login", tt.payload)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			assert.Equal(t, tt.wantCode, body["code"])
			assert.NotEmpty(t, body["error"])
			assert.NotContains(t, body, "data")
		})
	}
}

/*
TestHandler_Login_Validation verifies that missing fields are refused before
any credential check with a field-level details list.
*/
func TestHandler_Login_Validation(t *testing.T) {
	fixture := newHandlerFixture(t)

	recorder, body := fixture.postJSON(t, "/login", map[string]string{
		"identifier": "",
		"secret":     "",
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	details, ok := body["details"].([]any)
	require.True(t, ok)
	assert.Len(t, details, 2)
}

// # Verification Resend Contract

/*
TestHandler_ResendVerification checks that known and unknown identifiers
produce byte-identical generic responses so the endpoint cannot be used to
probe which emails are registered.
*/
func TestHandler_ResendVerification(t *testing.T) {
	fixture := newHandlerFixture(t)
	fixture.seedUser(t, "tech@example.com", "correct", sec.RoleTechnician, false)

	knownRecorder, knownBody := fixture.postJSON(t, "/resend-verification", map[string]string{
		"identifier": "tech@example.com",
	})
	ghostRecorder, ghostBody := fixture.postJSON(t, "/resend-verification", map[string]string{
		"identifier": "ghost@example.com",
	})

	assert.Equal(t, http.StatusOK, knownRecorder.Code)
	assert.Equal(t, http.StatusOK, ghostRecorder.Code)
	assert.Equal(t, knownBody, ghostBody)

	// Only the registered account actually received a code.
	assert.Len(t, fixture.codes.codes, 1)
}

// # Registration Contract

/*
TestHandler_Register covers the created envelope and role validation.
*/
func TestHandler_Register(t *testing.T) {
	fixture := newHandlerFixture(t)

	recorder, body := fixture.postJSON(t, "/register", map[string]string{
		"email":        "new@example.com",
		"password":     "battery staple",
		"display_name": "New Member",
		"role":         "technician",
	})

	require.Equal(t, http.StatusCreated, recorder.Code)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "technician", data["role"])
	assert.Equal(t, false, data["is_verified"])

	// Admin enrollment is not reachable through the public API.
	recorder, body = fixture.postJSON(t, "/register", map[string]string{
		"email":        "root@example.com",
		"password":     "battery staple",
		"display_name": "Root",
		"role":         "admin",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

// # Refresh Contract

/*
TestHandler_Refresh verifies cookie-driven rotation and the rejection of
requests without a refresh cookie.
*/
func TestHandler_Refresh(t *testing.T) {
	fixture := newHandlerFixture(t)
	fixture.seedUser(t, "anna@example.com", "correct horse", sec.RoleCustomer, true)

	loginRecorder, _ := fixture.postJSON(t, "/login", map[string]string{
		"identifier": "anna@example.com",
		"secret":     "correct horse",
	})
	require.Equal(t, http.StatusOK, loginRecorder.Code)
	cookies := loginRecorder.Result().Cookies()
	require.NotEmpty(t, cookies)

	request := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	fixture.router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	decoded := map[string]any{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &decoded))
	data, ok := decoded["data"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, data["access_token"])
	assert.Equal(t, "Bearer", data["token_type"])

	// No cookie, no rotation.
	bare := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	bareRecorder := httptest.NewRecorder()
	fixture.router.ServeHTTP(bareRecorder, bare)
	assert.Equal(t, http.StatusUnauthorized, bareRecorder.Code)
}
