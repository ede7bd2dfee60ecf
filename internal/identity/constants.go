// Copyright (c) 2026 Fixaroo. All rights reserved.
// Author: dev@fixaroo.app

package identity

import "time"

// # Authentication Constraints

const (
	// AccessTokenTTL is the duration a JWT access token remains valid.
	// We keep it short (15m) to minimize the impact of a leaked token.
	AccessTokenTTL = 15 * time.Minute

	// RefreshTokenTTL is the duration a session/refresh token remains valid.
	// Long-lived (30 days) to provide a good user experience.
	RefreshTokenTTL = 30 * 24 * time.Hour

	// RefreshTokenLength is the byte length of the random secure token.
	RefreshTokenLength = 32

	// ResetTokenTTL is the duration a password reset token remains valid.
	// Short-lived (1 hour) for security.
	ResetTokenTTL = 1 * time.Hour

	// ResetTokenLength is the byte length of the random password reset token.
	ResetTokenLength = 32

	// VerificationCodeTTL is the duration a second-factor verification code
	// remains valid. Codes are delivered out-of-band and typed back in, so
	// they stay short-lived (10 minutes).
	VerificationCodeTTL = 10 * time.Minute
)

// # Login Outcome Descriptors

// Machine-readable codes carried inside the login response payload. The
// customer and technician clients branch on these exact values, so they are
// part of the public wire contract and must never be renamed casually.
const (
	// DescriptorVerificationRequired signals the account exists but has not
	// completed verification; the client must collect a code and resubmit.
	DescriptorVerificationRequired = "VERIFICATION_REQUIRED"

	// DescriptorInvalidVerificationCode signals the supplied code did not match.
	DescriptorInvalidVerificationCode = "INVALID_VERIFICATION_CODE"

	// DescriptorVerificationExpired signals the code lapsed and a new one is needed.
	DescriptorVerificationExpired = "VERIFICATION_EXPIRED"

	// DescriptorInvalidCredentials signals a definitive credential rejection.
	DescriptorInvalidCredentials = "INVALID_CREDENTIALS"
)
