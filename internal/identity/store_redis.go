// Copyright (c) 2026 Fixaroo. All rights reserved.
// Author: dev@fixaroo.app

package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fixaroo/fixaroo/internal/platform/apperr"
	"github.com/fixaroo/fixaroo/internal/platform/constants"
)

// # Verification Code Repository

// RedisVerificationCodeRepository implements VerificationCodeRepository using Redis.
//
// Codes are keyed by account ID so that issuing a new code atomically replaces
// the previous one, and expiry falls out of the Redis TTL for free.
type RedisVerificationCodeRepository struct {
	client *redis.Client
}

// NewVerificationCodeRepository creates a new Redis-backed VerificationCodeRepository.
func NewVerificationCodeRepository(client *redis.Client) *RedisVerificationCodeRepository {
	return &RedisVerificationCodeRepository{client: client}
}

/*
Set stores the active verification code for a userID with a TTL.

Parameters:
  - context: context.Context
  - userID: int64
  - code: string
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (repository *RedisVerificationCodeRepository) Set(context context.Context, userID int64, code string, ttl time.Duration) error {
	key := constants.RedisPrefixVerifyCode + strconv.FormatInt(userID, 10)

	if err := repository.client.Set(context, key, code, ttl).Err(); err != nil {
		return fmt.Errorf("redis_verify_code_set_failed: %w", err)
	}

	return nil
}

/*
Get retrieves the active verification code for a userID.

Description: Returns apperr.NotFound if the code is absent or expired.

Parameters:
  - context: context.Context
  - userID: int64

Returns:
  - string: Active code
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisVerificationCodeRepository) Get(context context.Context, userID int64) (string, error) {
	key := constants.RedisPrefixVerifyCode + strconv.FormatInt(userID, 10)

	code, err := repository.client.Get(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("Verification code is invalid or expired")
		}
		return "", fmt.Errorf("redis_verify_code_get_failed: %w", err)
	}

	return code, nil
}

/*
Delete removes the verification code after successful use.

Parameters:
  - context: context.Context
  - userID: int64

Returns:
  - error: Deletion failures
*/
func (repository *RedisVerificationCodeRepository) Delete(context context.Context, userID int64) error {
	key := constants.RedisPrefixVerifyCode + strconv.FormatInt(userID, 10)

	if err := repository.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_verify_code_delete_failed: %w", err)
	}

	return nil
}

// # Reset Token Repository

// RedisResetTokenRepository implements ResetTokenRepository using Redis.
type RedisResetTokenRepository struct {
	client *redis.Client
}

// NewResetTokenRepository creates a new Redis-backed ResetTokenRepository.
func NewResetTokenRepository(client *redis.Client) *RedisResetTokenRepository {
	return &RedisResetTokenRepository{client: client}
}

/*
Set stores a reset token with its associated userID and TTL.

Parameters:
  - context: context.Context
  - token: string
  - userID: int64
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (repository *RedisResetTokenRepository) Set(context context.Context, token string, userID int64, ttl time.Duration) error {
	key := constants.RedisPrefixResetToken + token

	if err := repository.client.Set(context, key, userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_reset_token_set_failed: %w", err)
	}

	return nil
}

/*
Get retrieves the userID for a given token.

Description: Returns apperr.NotFound if the token is absent or expired.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - int64: Original UserID
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisResetTokenRepository) Get(context context.Context, token string) (int64, error) {
	key := constants.RedisPrefixResetToken + token

	raw, err := repository.client.Get(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, apperr.NotFound("Reset token is invalid or expired")
		}
		return 0, fmt.Errorf("redis_reset_token_get_failed: %w", err)
	}

	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis_reset_token_parse_failed: %w", err)
	}

	return userID, nil
}

/*
Delete removes the token from Redis.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisResetTokenRepository) Delete(context context.Context, token string) error {
	key := constants.RedisPrefixResetToken + token

	if err := repository.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_reset_token_delete_failed: %w", err)
	}

	return nil
}
