// Copyright (c) 2026 Fixaroo. All rights reserved.
// Author: dev@fixaroo.app

package identity

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/fixaroo/fixaroo/internal/platform/apperr"
	"github.com/fixaroo/fixaroo/internal/platform/sec"
	"github.com/fixaroo/fixaroo/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for generating security tokens.
type TokenProvider interface {
	// GenerateAccessToken creates a signed JWT string for the given user.
	//
	// # Parameters
	//   - userID: The ID of the account.
	//   - email: The email of the account.
	//   - role: The role of the account.
	//   - timeToLive: The duration before the token expires.
	//
	// # Returns
	//   - A signed JWT string, or an err if signing fails.
	GenerateAccessToken(userID int64, email, role string, timeToLive time.Duration) (string, error)
}

// Service implements account authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, verification,
// or login logic must be reviewed by the security team.
type Service struct {
	userRepository             UserRepository
	sessionRepository          SessionRepository
	resetTokenRepository       ResetTokenRepository
	verificationCodeRepository VerificationCodeRepository
	tokenProvider              TokenProvider
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	resetRepo ResetTokenRepository,
	verifyRepo VerificationCodeRepository,
	tokenProv TokenProvider,
) *Service {
	return &Service{
		userRepository:             userRepo,
		sessionRepository:          sessionRepo,
		resetTokenRepository:       resetRepo,
		verificationCodeRepository: verifyRepo,
		tokenProvider:              tokenProv,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Role        sec.UserRole
}

/*
Register validates, hashes, and persists a brand new marketplace account.

Description: Enrolls a customer or technician, handling password hashing and
issuing the initial verification code. Accounts start unverified and cannot
establish a session until the verification challenge is answered.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity
  - err: Conflict (if identity exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {

	// Verify email uniqueness. Return a client-safe Conflict err.
	_, err := service.userRepository.FindByEmail(context, input.Email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("identity_service_hash_failed: %w", err)
	}

	// Construct the new User entity. The database assigns the sequential ID.
	user := &User{
		Email:        input.Email,
		PasswordHash: hashedPassword,
		DisplayName:  input.DisplayName,
		Role:         input.Role,
		IsVerified:   false,
	}

	// Persist the user to the database
	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("identity_service_register_failed: %w", err)
	}

	// Generate and store the initial verification code as an async-ready side effect
	code, err := sec.GenerateVerificationCode()
	if err == nil {
		_ = service.verificationCodeRepository.Set(context, user.ID, code, VerificationCodeTTL)
		// TODO: Trigger the notification service to deliver the code
	}

	return user, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Identifier       string // Account email
	Secret           string // Plain-text password
	VerificationCode string // Optional second factor for unverified accounts
	UserAgent        string
	IPAddress        string
}

// LoginSession represents a successfully established user session.
type LoginSession struct {
	AccessToken           string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	User                  *User
}

// Challenge describes a verification obstacle raised during login.
//
// It is delivered to clients inside an HTTP 200 response: the request itself
// succeeded, the account simply needs its second factor resolved. The
// Descriptor is one of the Descriptor* constants.
type Challenge struct {
	Descriptor string
	Message    string
}

// LoginResult is the outcome of a login attempt that was not rejected outright:
// exactly one of Session or Challenge is set.
type LoginResult struct {
	Session   *LoginSession
	Challenge *Challenge
}

/*
Login validates user credentials and issues security tokens.

Description: Verifies identity, performs constant-time password comparison,
gates unverified accounts behind the verification-code challenge, and
initializes a new session with rotated security tokens.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginResult: Session on success, or the pending Challenge
  - err: Unauthorized (INVALID_CREDENTIALS) or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginResult, error) {

	// Look up the account by email.
	// If (err != nil) the user does not exist. Generic message to prevent enumeration.
	user, err := service.userRepository.FindByEmail(context, input.Identifier)
	if err != nil {
		return nil, apperr.New(DescriptorInvalidCredentials, "Invalid login credentials", http.StatusUnauthorized)
	}

	// Verify password hash using constant-time comparison in bcrypt to prevent timing attacks
	if !sec.CheckPasswordHash(input.Secret, user.PasswordHash) {
		return nil, apperr.New(DescriptorInvalidCredentials, "Invalid login credentials", http.StatusUnauthorized)
	}

	// Unverified accounts must answer the verification challenge before any
	// session is established.
	if !user.IsVerified {
		challenge, err := service.resolveVerification(context, user, input.VerificationCode)
		if err != nil {
			return nil, err
		}
		if challenge != nil {
			return &LoginResult{Challenge: challenge}, nil
		}
	}

	session, err := service.establishSession(context, user, input.UserAgent, input.IPAddress)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Session: session}, nil
}

// resolveVerification checks the supplied second-factor code for an unverified
// account. A nil Challenge with a nil error means verification just succeeded
// and login may proceed.
func (service *Service) resolveVerification(context context.Context, user *User, suppliedCode string) (*Challenge, error) {

	// No code supplied: tell the client to collect one.
	if suppliedCode == "" {
		return &Challenge{
			Descriptor: DescriptorVerificationRequired,
			Message:    "Verification code required",
		}, nil
	}

	// Fetch the live code. Absence means the code lapsed (Redis TTL) or was
	// never issued; either way the client needs a fresh one.
	activeCode, err := service.verificationCodeRepository.Get(context, user.ID)
	if err != nil {
		if apperr.IsAppError(err) {
			return &Challenge{
				Descriptor: DescriptorVerificationExpired,
				Message:    "Verification code has expired",
			}, nil
		}
		return nil, fmt.Errorf("identity_service_verification_lookup_failed: %w", err)
	}

	// Constant-time comparison; codes are short, don't leak match prefixes.
	if subtle.ConstantTimeCompare([]byte(activeCode), []byte(suppliedCode)) == 0 {
		return &Challenge{
			Descriptor: DescriptorInvalidVerificationCode,
			Message:    "Invalid verification code",
		}, nil
	}

	// Code accepted: promote the account and burn the code.
	if err := service.userRepository.MarkVerified(context, user.ID); err != nil {
		return nil, fmt.Errorf("identity_service_mark_verified_failed: %w", err)
	}
	user.IsVerified = true
	_ = service.verificationCodeRepository.Delete(context, user.ID)

	return nil, nil
}

// establishSession issues the access/refresh token pair and persists the
// tracking session row.
func (service *Service) establishSession(context context.Context, user *User, userAgent, ipAddress string) (*LoginSession, error) {

	// Generate short-lived Access Token
	accessToken, err := service.tokenProvider.GenerateAccessToken(user.ID, user.Email, string(user.Role), AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("identity_service_token_generation_failed: %w", err)
	}

	// Generate long-lived Refresh Token
	refreshToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("identity_service_refresh_token_failed: %w", err)
	}

	// Create and persist the tracking session
	expiresAt := time.Now().Add(RefreshTokenTTL)
	session := &Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: sec.HashToken(refreshToken),
		UserAgent: userAgent,
		IPAddress: ipAddress,
		ExpiresAt: expiresAt,
		IsRevoked: false,
	}

	if err := service.sessionRepository.Create(context, session); err != nil {
		return nil, fmt.Errorf("identity_service_session_creation_failed: %w", err)
	}

	return &LoginSession{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: expiresAt,
		User:                  user,
	}, nil
}

// # Verification Resend

/*
ResendVerification issues a fresh verification code for an unverified account.

Description: Generates a new numeric code, replacing any previous one, and
stores it with a fresh TTL. Unknown or already-verified accounts return
success with no side effect to prevent account enumeration.

Parameters:
  - context: context.Context
  - identifier: string (account email)

Returns:
  - string: The issued code (empty when nothing was issued)
  - err: Generation or storage failures
*/
func (service *Service) ResendVerification(context context.Context, identifier string) (string, error) {

	// NOTE: We don't return NOT_FOUND if the email doesn't exist to prevent user enumeration.
	user, err := service.userRepository.FindByEmail(context, identifier)
	if err != nil {
		return "", nil
	}

	// Verified accounts have nothing to resend.
	if user.IsVerified {
		return "", nil
	}

	code, err := sec.GenerateVerificationCode()
	if err != nil {
		return "", fmt.Errorf("identity_service_generate_code_failed: %w", err)
	}

	if err := service.verificationCodeRepository.Set(context, user.ID, code, VerificationCodeTTL); err != nil {
		return "", fmt.Errorf("identity_service_save_code_failed: %w", err)
	}

	// TODO: Trigger the notification service to deliver the code

	return code, nil
}

// # Session Management

/*
Logout permanently revokes the user's active session.

Description: Ensures that a tracked refresh token can never be used again.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - err: Revocation failures
*/
func (service *Service) Logout(context context.Context, refreshToken string) error {

	// Hash the refresh token
	tokenHash := sec.HashToken(refreshToken)

	// Find the session by token hash
	session, err := service.sessionRepository.FindByTokenHash(context, tokenHash)

	// If (err != nil) session is already gone or invalid, we consider logout successful (idempotent operation).
	if err != nil {
		return nil
	}

	// If (err == nil) Revoke the session
	if err := service.sessionRepository.Revoke(context, session.ID); err != nil {
		return fmt.Errorf("identity_service_logout_failed: %w", err)
	}

	return nil
}

/*
RefreshSession implements the Refresh Token Rotation mechanism.

Description: Verifies the existing refresh token, revokes it to prevent reuse
(replay attack mitigation), and issues a fresh pair of rotated tokens.

Parameters:
  - context: context.Context
  - refreshToken: string
  - userAgent: string
  - ipAddress: string

Returns:
  - *LoginSession: New session credentials
  - err: Unauthorized or storage failures
*/
func (service *Service) RefreshSession(context context.Context, refreshToken, userAgent, ipAddress string) (*LoginSession, error) {

	// Hash the incoming refresh token to look it up
	tokenHash := sec.HashToken(refreshToken)
	session, err := service.sessionRepository.FindByTokenHash(context, tokenHash)

	// If (err != nil) the token is either expired, already revoked, or completely invalid.
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	// Rotation: Revoke the old session to prevent replay attacks
	if err := service.sessionRepository.Revoke(context, session.ID); err != nil {
		return nil, fmt.Errorf("identity_service_refresh_revoke_failed: %w", err)
	}

	// Fetch the user associated with this session
	user, err := service.userRepository.FindByID(context, session.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("User not found or suspended")
	}

	return service.establishSession(context, user, userAgent, ipAddress)
}

// # Password Recovery

/*
RequestPasswordReset initiates the forgot-password flow.

Description: Generates a secure token and saves it to Redis.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - string: Discovery token
  - err: Generation errors
*/
func (service *Service) RequestPasswordReset(context context.Context, email string) (string, error) {
	// Look up user.
	// NOTE: We don't return NOT_FOUND if the email doesn't exist to prevent user enumeration.
	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		return "", nil
	}

	// Generate reset token
	token, err := sec.GenerateSecureToken(ResetTokenLength)
	if err != nil {
		return "", fmt.Errorf("identity_service_generate_reset_token_failed: %w", err)
	}

	// Save to Redis
	if err := service.resetTokenRepository.Set(context, token, user.ID, ResetTokenTTL); err != nil {
		return "", fmt.Errorf("identity_service_save_reset_token_failed: %w", err)
	}

	return token, nil
}

/*
ResetPassword completes the forgot-password flow.

Description: Verifies the token, hashes the new password, updates the DB,
and revokes all active sessions for security cleanup.

Parameters:
  - context: context.Context
  - token: string
  - newPassword: string

Returns:
  - err: Validation or update failures
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) error {

	// Retrieve the userID associated with the reset token from Redis
	userID, err := service.resetTokenRepository.Get(context, token)
	if err != nil {
		return err
	}

	// Hash the new password securely
	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("identity_service_reset_password_hash_failed: %w", err)
	}

	// Update the user's password in persistent storage
	if err := service.userRepository.UpdatePassword(context, userID, hashedPassword); err != nil {
		return fmt.Errorf("identity_service_reset_password_update_failed: %w", err)
	}

	// Security Cleanup: Revoke EVERY active session for this user
	_ = service.sessionRepository.RevokeAll(context, userID)

	// Delete the used token from Redis
	_ = service.resetTokenRepository.Delete(context, token)

	return nil
}
