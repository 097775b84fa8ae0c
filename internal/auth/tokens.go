package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sitestack-erp/sitestack-erp/internal/shared"
)

// TokenStore keeps principals in Redis keyed by bearer token. Token
// validity is not re-verified on every read beyond key presence; a stale
// token surfaces as an authentication failure at the next protected call.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

// Put stores the principal under its token for the session lifetime.
func (s *TokenStore) Put(ctx context.Context, p *shared.Principal) error {
	if p == nil || p.Token == "" {
		return errors.New("auth: principal with token required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(p.Token), data, s.ttl).Err()
}

// Get resolves a token to its principal. Missing or expired tokens map to
// ErrAuthentication.
func (s *TokenStore) Get(ctx context.Context, token string) (*shared.Principal, error) {
	if token == "" {
		return nil, shared.ErrAuthentication
	}
	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrAuthentication
		}
		return nil, err
	}
	var principal shared.Principal
	if err := json.Unmarshal(data, &principal); err != nil {
		return nil, err
	}
	principal.Token = token
	return &principal, nil
}

// Delete invalidates a token.
func (s *TokenStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := s.client.Del(ctx, s.key(token)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// TTL exposes the configured session lifetime.
func (s *TokenStore) TTL() time.Duration {
	return s.ttl
}

func (s *TokenStore) key(token string) string {
	return "token:" + token
}
