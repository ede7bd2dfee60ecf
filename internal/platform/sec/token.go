// Copyright (c) 2026 Fixaroo. All rights reserved.
// Author: dev@fixaroo.app

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// # Opaque Tokens

// GenerateSecureToken returns a hex-encoded random token of byteLength random bytes.
//
// It is used for refresh tokens, password reset tokens, and any other opaque
// credential that must be unguessable.
func GenerateSecureToken(byteLength int) (string, error) {
	buffer := make([]byte, byteLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to generate secure token: %w", err)
	}
	return hex.EncodeToString(buffer), nil
}

// HashToken returns the hex-encoded SHA-256 digest of a token.
//
// # Why hash at rest?
//
// Only the digest is persisted. A database leak therefore never exposes a
// usable refresh token, mirroring how passwords are stored as bcrypt hashes.
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}

// # Verification Codes

// VerificationCodeDigits is the length of the numeric second-factor code
// delivered to unverified accounts.
const VerificationCodeDigits = 6

// GenerateVerificationCode returns a zero-padded numeric code suitable for
// out-of-band delivery (email/SMS).
func GenerateVerificationCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < VerificationCodeDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("sec: failed to generate verification code: %w", err)
	}

	return fmt.Sprintf("%0*d", VerificationCodeDigits, n), nil
}
