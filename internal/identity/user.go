// Copyright (c) 2026 Fixaroo. All rights reserved.
// Author: dev@fixaroo.app

/*
Package identity implements the account and session management layer for the
Fixaroo marketplace.

It defines the core domain entities (User, Session) and the logic for
authentication, account verification, and credential recovery for the two
customer-facing populations: customers who post job requests and technicians
who fulfil them.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no external
dependencies and encapsulate all business rules related to user identity.
*/
package identity

import (
	"time"

	"github.com/fixaroo/fixaroo/internal/platform/sec"
)

// # Domain Entities

// User represents a registered member of the Fixaroo marketplace.
//
// IDs are sequential integers (bigserial): the subject id travels over the
// wire inside the login payload and the mobile/web clients persist it as-is.
type User struct {
	ID           int64        `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	DisplayName  string       `json:"display_name"`
	Role         sec.UserRole `json:"role"`
	IsVerified   bool         `json:"is_verified"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Session represents an active refresh-token session.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	TokenHash string    `json:"-"` // Hashed value of the refresh token. Omitted for security.
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	ExpiresAt time.Time `json:"expires_at"`
	IsRevoked bool      `json:"is_revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the identity domain.
const (
	FieldIdentifier       = "identifier"
	FieldSecret           = "secret"
	FieldVerificationCode = "verification_code"
	FieldEmail            = "email"
	FieldPassword         = "password"
	FieldDisplayName      = "display_name"
	FieldRole             = "role"
	FieldToken            = "token"
	FieldAccessToken      = "access_token"
	FieldTokenType        = "token_type"
	FieldExpiresIn        = "expires_in"
	FieldUser             = "user"
	FieldMessage          = "message"
)
