package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/planforge/api/pkg/logger"
)

const (
	sessionKeyPrefix = "session"
	actionKeyPrefix  = "action"
)

// TokenStore keeps server-side session state and one-time action tokens.
// Sessions make issued JWTs revocable before expiry; action tokens back
// password reset and email verification links.
type TokenStore struct {
	client *Client
	logger *logger.Logger
}

// NewTokenStore creates a new token store.
func NewTokenStore(client *Client, log *logger.Logger) (*TokenStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}
	return &TokenStore{client: client, logger: log}, nil
}

func sessionKey(userID, sessionID string) string {
	return fmt.Sprintf("%s:%s:%s", sessionKeyPrefix, userID, sessionID)
}

func sessionSetKey(userID string) string {
	return fmt.Sprintf("%s:%s:all", sessionKeyPrefix, userID)
}

// StoreSession records session metadata under the user's session set.
// The hash and the set are written in one transaction so a crash cannot
// leave a session reachable from only one of them.
func (ts *TokenStore) StoreSession(ctx context.Context, userID, sessionID string, data map[string]string, ttl time.Duration) error {
	if userID == "" || sessionID == "" {
		return errors.New("userID and sessionID are required")
	}
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	pipe := ts.client.client.TxPipeline()
	pipe.HSet(ctx, sessionKey(userID, sessionID), data)
	pipe.Expire(ctx, sessionKey(userID, sessionID), ttl)
	pipe.SAdd(ctx, sessionSetKey(userID), sessionID)
	pipe.Expire(ctx, sessionSetKey(userID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session: %w", err)
	}

	ts.logger.Debug("session stored", "user_id", userID, "session_id", sessionID)
	return nil
}

// GetSession returns the metadata of a live session, or ErrKeyNotFound when
// the session was revoked or expired.
func (ts *TokenStore) GetSession(ctx context.Context, userID, sessionID string) (map[string]string, error) {
	if userID == "" || sessionID == "" {
		return nil, errors.New("userID and sessionID are required")
	}

	data, err := ts.client.client.HGetAll(ctx, sessionKey(userID, sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrKeyNotFound
	}
	return data, nil
}

// DeleteSession revokes a single session.
func (ts *TokenStore) DeleteSession(ctx context.Context, userID, sessionID string) error {
	if userID == "" || sessionID == "" {
		return errors.New("userID and sessionID are required")
	}

	pipe := ts.client.client.TxPipeline()
	pipe.Del(ctx, sessionKey(userID, sessionID))
	pipe.SRem(ctx, sessionSetKey(userID), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	ts.logger.Debug("session deleted", "user_id", userID, "session_id", sessionID)
	return nil
}

// DeleteAllUserSessions revokes every session of a user. Used by logout-all
// and after a password reset.
func (ts *TokenStore) DeleteAllUserSessions(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("userID is required")
	}

	sessionIDs, err := ts.client.client.SMembers(ctx, sessionSetKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(sessionIDs) == 0 {
		return nil
	}

	pipe := ts.client.client.TxPipeline()
	for _, sid := range sessionIDs {
		pipe.Del(ctx, sessionKey(userID, sid))
	}
	pipe.Del(ctx, sessionSetKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}

	ts.logger.Info("all sessions deleted", "user_id", userID, "count", len(sessionIDs))
	return nil
}

// CountActiveSessions returns how many sessions a user currently holds.
func (ts *TokenStore) CountActiveSessions(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, errors.New("userID is required")
	}

	count, err := ts.client.client.SCard(ctx, sessionSetKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}

// StoreActionToken records a hashed one-time token for an account action.
// The value is the owning user id; the key carries the purpose so a reset
// token can never redeem a verification.
func (ts *TokenStore) StoreActionToken(ctx context.Context, purpose, tokenHash, userID string, ttl time.Duration) error {
	if purpose == "" || tokenHash == "" || userID == "" {
		return errors.New("purpose, tokenHash and userID are required")
	}
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	key := fmt.Sprintf("%s:%s:%s", actionKeyPrefix, purpose, tokenHash)
	if err := ts.client.client.Set(ctx, key, userID, ttl).Err(); err != nil {
		return fmt.Errorf("store action token: %w", err)
	}

	ts.logger.Debug("action token stored", "purpose", purpose, "user_id", userID)
	return nil
}

// ConsumeActionToken redeems an action token, returning the owning user id.
// GETDEL makes read and invalidation one atomic step, so concurrent redeems
// of the same token cannot both succeed. Returns ErrKeyNotFound for unknown
// or expired tokens.
func (ts *TokenStore) ConsumeActionToken(ctx context.Context, purpose, tokenHash string) (string, error) {
	if purpose == "" || tokenHash == "" {
		return "", errors.New("purpose and tokenHash are required")
	}

	key := fmt.Sprintf("%s:%s:%s", actionKeyPrefix, purpose, tokenHash)
	userID, err := ts.client.client.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("consume action token: %w", err)
	}

	ts.logger.Debug("action token consumed", "purpose", purpose, "user_id", userID)
	return userID, nil
}
