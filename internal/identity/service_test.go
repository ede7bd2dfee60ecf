// Copyright (c) 2026 Fixaroo. All rights reserved.
// Author: dev@fixaroo.app

package identity_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixaroo/fixaroo/internal/identity"
	"github.com/fixaroo/fixaroo/internal/platform/apperr"
	"github.com/fixaroo/fixaroo/internal/platform/sec"
)

// # In-Memory Fakes

type fakeUserRepo struct {
	nextID int64
	users  map[int64]*identity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: map[int64]*identity.User{}}
}

func (r *fakeUserRepo) FindByID(_ context.Context, id int64) (*identity.User, error) {
	if user, ok := r.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, apperr.NotFound("User")
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*identity.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("User not found with this email")
}

func (r *fakeUserRepo) Create(_ context.Context, user *identity.User) error {
	user.ID = r.nextID
	r.nextID++
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, userID int64, newHash string) error {
	user, ok := r.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.PasswordHash = newHash
	return nil
}

func (r *fakeUserRepo) MarkVerified(_ context.Context, userID int64) error {
	user, ok := r.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.IsVerified = true
	return nil
}

type fakeSessionRepo struct {
	sessions map[string]*identity.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*identity.Session{}}
}

func (r *fakeSessionRepo) Create(_ context.Context, session *identity.Session) error {
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) FindByTokenHash(_ context.Context, tokenHash string) (*identity.Session, error) {
	for _, session := range r.sessions {
		if session.TokenHash == tokenHash && !session.IsRevoked {
			copied := *session
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("Session")
}

func (r *fakeSessionRepo) Revoke(_ context.Context, sessionID string) error {
	if session, ok := r.sessions[sessionID]; ok {
		session.IsRevoked = true
	}
	return nil
}

func (r *fakeSessionRepo) RevokeAll(_ context.Context, userID int64) error {
	for _, session := range r.sessions {
		if session.UserID == userID {
			session.IsRevoked = true
		}
	}
	return nil
}

func (r *fakeSessionRepo) active() []*identity.Session {
	result := []*identity.Session{}
	for _, session := range r.sessions {
		if !session.IsRevoked {
			result = append(result, session)
		}
	}
	return result
}

type fakeCodeRepo struct {
	codes map[int64]string
}

func newFakeCodeRepo() *fakeCodeRepo {
	return &fakeCodeRepo{codes: map[int64]string{}}
}

func (r *fakeCodeRepo) Set(_ context.Context, userID int64, code string, _ time.Duration) error {
	r.codes[userID] = code
	return nil
}

func (r *fakeCodeRepo) Get(_ context.Context, userID int64) (string, error) {
	if code, ok := r.codes[userID]; ok {
		return code, nil
	}
	return "", apperr.NotFound("Verification code is invalid or expired")
}

func (r *fakeCodeRepo) Delete(_ context.Context, userID int64) error {
	delete(r.codes, userID)
	return nil
}

type fakeResetRepo struct {
	tokens map[string]int64
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{tokens: map[string]int64{}}
}

func (r *fakeResetRepo) Set(_ context.Context, token string, userID int64, _ time.Duration) error {
	r.tokens[token] = userID
	return nil
}

func (r *fakeResetRepo) Get(_ context.Context, token string) (int64, error) {
	if userID, ok := r.tokens[token]; ok {
		return userID, nil
	}
	return 0, apperr.NotFound("Reset token is invalid or expired")
}

func (r *fakeResetRepo) Delete(_ context.Context, token string) error {
	delete(r.tokens, token)
	return nil
}

type fakeTokenProvider struct{}

func (fakeTokenProvider) GenerateAccessToken(userID int64, _, _ string, _ time.Duration) (string, error) {
	return fmt.Sprintf("access-token-%d", userID), nil
}

// # Test Harness

type serviceFixture struct {
	service  *identity.Service
	users    *fakeUserRepo
	sessions *fakeSessionRepo
	codes    *fakeCodeRepo
	resets   *fakeResetRepo
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	fixture := &serviceFixture{
		users:    newFakeUserRepo(),
		sessions: newFakeSessionRepo(),
		codes:    newFakeCodeRepo(),
		resets:   newFakeResetRepo(),
	}
	fixture.service = identity.NewService(
		fixture.users,
		fixture.sessions,
		fixture.resets,
		fixture.codes,
		fakeTokenProvider{},
	)
	return fixture
}

// seedUser registers an account directly through the repos with a real bcrypt hash.
func (fixture *serviceFixture) seedUser(t *testing.T, email, password string, role sec.UserRole, verified bool) *identity.User {
	t.Helper()

	hash, err := sec.HashPassword(password)
	require.NoError(t, err)

	user := &identity.User{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  "Test User",
		Role:         role,
		IsVerified:   verified,
	}
	require.NoError(t, fixture.users.Create(context.Background(), user))
	return user
}

// # Authentication

/*
TestService_Login_Success verifies that valid credentials on a verified
account establish a session and return the subject identity.
*/
func TestService_Login_Success(t *testing.T) {
	fixture := newServiceFixture(t)
	seeded := fixture.seedUser(t, "anna@example.com", "correct horse", sec.RoleCustomer, true)

	result, err := fixture.service.Login(context.Background(), identity.LoginInput{
		Identifier: "anna@example.com",
		Secret:     "correct horse",
	})

	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.Nil(t, result.Challenge)

	assert.Equal(t, fmt.Sprintf("access-token-%d", seeded.ID), result.Session.AccessToken)
	assert.NotEmpty(t, result.Session.RefreshToken)
	assert.Equal(t, seeded.ID, result.Session.User.ID)
	assert.Equal(t, sec.RoleCustomer, result.Session.User.Role)

	// Exactly one tracking session was persisted.
	assert.Len(t, fixture.sessions.active(), 1)
}

/*
TestService_Login_InvalidCredentials checks that unknown accounts and wrong
passwords both produce the same INVALID_CREDENTIALS rejection.
*/
func TestService_Login_InvalidCredentials(t *testing.T) {
	fixture := newServiceFixture(t)
	fixture.seedUser(t, "anna@example.com", "correct horse", sec.RoleCustomer, true)

	tests := []struct {
		name       string
		identifier string
		secret     string
	}{
		{"unknown_email", "nobody@example.com", "whatever"},
		{"wrong_password", "anna@example.com", "battery staple"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := fixture.service.Login(context.Background(), identity.LoginInput{
				Identifier: tt.identifier,
				Secret:     tt.secret,
			})

			require.Error(t, err)
			assert.Nil(t, result)

			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, identity.DescriptorInvalidCredentials, ae.Code)

			// Definitive rejections never leave sessions behind.
			assert.Empty(t, fixture.sessions.active())
		})
	}
}

/*
TestService_Login_VerificationChallenge exercises the second-factor gate for
unverified accounts: missing, wrong, and expired codes each surface their
own descriptor, and only the matching code unlocks a session.
*/
func TestService_Login_VerificationChallenge(t *testing.T) {
	tests := []struct {
		name           string
		storedCode     string // empty = no live code in the repo
		suppliedCode   string
		wantDescriptor string
	}{
		{"no_code_supplied", "483920", "", identity.DescriptorVerificationRequired},
		{"wrong_code", "483920", "000000", identity.DescriptorInvalidVerificationCode},
		{"expired_code", "", "483920", identity.DescriptorVerificationExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := newServiceFixture(t)
			user := fixture.seedUser(t, "tech@example.com", "correct", sec.RoleTechnician, false)
			if tt.storedCode != "" {
				require.NoError(t, fixture.codes.Set(context.Background(), user.ID, tt.storedCode, time.Minute))
			}

			result, err := fixture.service.Login(context.Background(), identity.LoginInput{
				Identifier:       "tech@example.com",
				Secret:           "correct",
				VerificationCode: tt.suppliedCode,
			})

			require.NoError(t, err)
			require.NotNil(t, result.Challenge)
			assert.Nil(t, result.Session)
			assert.Equal(t, tt.wantDescriptor, result.Challenge.Descriptor)

			// No session is established while the challenge is pending.
			assert.Empty(t, fixture.sessions.active())
		})
	}

	t.Run("correct_code_unlocks_session", func(t *testing.T) {
		fixture := newServiceFixture(t)
		user := fixture.seedUser(t, "tech@example.com", "correct", sec.RoleTechnician, false)
		require.NoError(t, fixture.codes.Set(context.Background(), user.ID, "483920", time.Minute))

		result, err := fixture.service.Login(context.Background(), identity.LoginInput{
			Identifier:       "tech@example.com",
			Secret:           "correct",
			VerificationCode: "483920",
		})

		require.NoError(t, err)
		require.NotNil(t, result.Session)
		assert.True(t, result.Session.User.IsVerified)

		// The account is promoted and the code is burned.
		assert.True(t, fixture.users.users[user.ID].IsVerified)
		_, err = fixture.codes.Get(context.Background(), user.ID)
		assert.Error(t, err)
	})
}

// # Verification Resend

/*
TestService_ResendVerification covers code reissue for unverified accounts
and the anti-enumeration no-op for unknown or verified ones.
*/
func TestService_ResendVerification(t *testing.T) {
	t.Run("unverified_account_gets_fresh_code", func(t *testing.T) {
		fixture := newServiceFixture(t)
		user := fixture.seedUser(t, "tech@example.com", "correct", sec.RoleTechnician, false)
		require.NoError(t, fixture.codes.Set(context.Background(), user.ID, "111111", time.Minute))

		code, err := fixture.service.ResendVerification(context.Background(), "tech@example.com")

		require.NoError(t, err)
		assert.Len(t, code, sec.VerificationCodeDigits)

		// The fresh code replaced the stale one.
		stored, err := fixture.codes.Get(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, code, stored)
		assert.NotEqual(t, "111111", stored)
	})

	t.Run("unknown_account_is_a_silent_noop", func(t *testing.T) {
		fixture := newServiceFixture(t)

		code, err := fixture.service.ResendVerification(context.Background(), "ghost@example.com")

		require.NoError(t, err)
		assert.Empty(t, code)
		assert.Empty(t, fixture.codes.codes)
	})

	t.Run("verified_account_is_a_silent_noop", func(t *testing.T) {
		fixture := newServiceFixture(t)
		fixture.seedUser(t, "anna@example.com", "correct horse", sec.RoleCustomer, true)

		code, err := fixture.service.ResendVerification(context.Background(), "anna@example.com")

		require.NoError(t, err)
		assert.Empty(t, code)
		assert.Empty(t, fixture.codes.codes)
	})
}

// # Registration

/*
TestService_Register verifies enrollment, the duplicate-email conflict, and
that new accounts start unverified with a pending verification code.
*/
func TestService_Register(t *testing.T) {
	fixture := newServiceFixture(t)

	user, err := fixture.service.Register(context.Background(), identity.RegisterInput{
		Email:       "new@example.com",
		Password:    "battery staple",
		DisplayName: "New Member",
		Role:        sec.RoleCustomer,
	})

	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.False(t, user.IsVerified)
	assert.NotEqual(t, "battery staple", user.PasswordHash)

	// The initial verification code is waiting for the account.
	_, err = fixture.codes.Get(context.Background(), user.ID)
	assert.NoError(t, err)

	// Enrolling the same email again is a conflict.
	_, err = fixture.service.Register(context.Background(), identity.RegisterInput{
		Email:       "new@example.com",
		Password:    "other password",
		DisplayName: "Impostor",
		Role:        sec.RoleTechnician,
	})
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "CONFLICT", ae.Code)
}

// # Session Management

/*
TestService_RefreshSession verifies refresh token rotation: the old session
is revoked and a brand new token pair is issued.
*/
func TestService_RefreshSession(t *testing.T) {
	fixture := newServiceFixture(t)
	fixture.seedUser(t, "anna@example.com", "correct horse", sec.RoleCustomer, true)

	result, err := fixture.service.Login(context.Background(), identity.LoginInput{
		Identifier: "anna@example.com",
		Secret:     "correct horse",
	})
	require.NoError(t, err)
	originalRefresh := result.Session.RefreshToken

	rotated, err := fixture.service.RefreshSession(context.Background(), originalRefresh, "test-agent", "127.0.0.1")
	require.NoError(t, err)
	assert.NotEqual(t, originalRefresh, rotated.RefreshToken)

	// The original token is now unusable (replay protection).
	_, err = fixture.service.RefreshSession(context.Background(), originalRefresh, "test-agent", "127.0.0.1")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
}

/*
TestService_Logout checks revocation and that logging out twice is harmless.
*/
func TestService_Logout(t *testing.T) {
	fixture := newServiceFixture(t)
	fixture.seedUser(t, "anna@example.com", "correct horse", sec.RoleCustomer, true)

	result, err := fixture.service.Login(context.Background(), identity.LoginInput{
		Identifier: "anna@example.com",
		Secret:     "correct horse",
	})
	require.NoError(t, err)

	require.NoError(t, fixture.service.Logout(context.Background(), result.Session.RefreshToken))
	assert.Empty(t, fixture.sessions.active())

	// Idempotent: a second logout with the same token still succeeds.
	assert.NoError(t, fixture.service.Logout(context.Background(), result.Session.RefreshToken))
}

// # Password Recovery

/*
TestService_PasswordReset walks the full forgot/reset flow and verifies the
security cleanup side effects.
*/
func TestService_PasswordReset(t *testing.T) {
	fixture := newServiceFixture(t)
	user := fixture.seedUser(t, "anna@example.com", "old password", sec.RoleCustomer, true)

	// An active session that must be revoked by the reset.
	loginResult, err := fixture.service.Login(context.Background(), identity.LoginInput{
		Identifier: "anna@example.com",
		Secret:     "old password",
	})
	require.NoError(t, err)
	require.NotNil(t, loginResult.Session)

	token, err := fixture.service.RequestPasswordReset(context.Background(), "anna@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, fixture.service.ResetPassword(context.Background(), token, "new password"))

	// The old credential is dead, the new one works.
	_, err = fixture.service.Login(context.Background(), identity.LoginInput{
		Identifier: "anna@example.com",
		Secret:     "old password",
	})
	require.Error(t, err)

	result, err := fixture.service.Login(context.Background(), identity.LoginInput{
		Identifier: "anna@example.com",
		Secret:     "new password",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.Session.User.ID)

	// The token is single-use.
	err = fixture.service.ResetPassword(context.Background(), token, "another password")
	require.Error(t, err)

	// Unknown emails are silently ignored (anti-enumeration).
	ghostToken, err := fixture.service.RequestPasswordReset(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.Empty(t, ghostToken)
}
