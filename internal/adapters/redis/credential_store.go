package redis

// Package redis provides Redis-based adapters for the admin console.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/serm-lab/admin-console/internal/ports"
)

// DefaultPrefix namespaces credential keys.
const DefaultPrefix = "console:credential:"

// CredentialStore persists the console's access token in Redis under
// <prefix><clientID>, so several console processes sharing an identity
// also share one login.
type CredentialStore struct {
	client   redis.UniversalClient
	prefix   string
	clientID string
	ttl      time.Duration
}

var _ ports.CredentialStore = (*CredentialStore)(nil)

// CredentialStoreOptions configures CredentialStore.
type CredentialStoreOptions struct {
	Prefix   string
	ClientID string
	// TTL bounds how long a stored credential survives; 0 keeps it until cleared.
	TTL time.Duration
}

// NewCredentialStore creates a Redis-backed credential store.
func NewCredentialStore(client redis.UniversalClient, opts CredentialStoreOptions) (*CredentialStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if opts.ClientID == "" {
		return nil, errors.New("credential client id cannot be empty")
	}
	if opts.TTL < 0 {
		return nil, fmt.Errorf("credential ttl must not be negative: %s", opts.TTL)
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &CredentialStore{
		client:   client,
		prefix:   prefix,
		clientID: opts.ClientID,
		ttl:      opts.TTL,
	}, nil
}

// Key returns the Redis key holding the credential.
func (s *CredentialStore) Key() string {
	return s.prefix + s.clientID
}

// Token returns the stored credential, or "" when none is stored.
func (s *CredentialStore) Token(ctx context.Context) (string, error) {
	tok, err := s.client.Get(ctx, s.Key()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis get credential: %w", err)
	}
	return tok, nil
}

// SetToken stores token, replacing any previous credential. An empty token clears.
func (s *CredentialStore) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return s.ClearToken(ctx)
	}
	if err := s.client.Set(ctx, s.Key(), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set credential: %w", err)
	}
	return nil
}

// ClearToken removes the stored credential. Clearing a missing key is not an error.
func (s *CredentialStore) ClearToken(ctx context.Context) error {
	if err := s.client.Del(ctx, s.Key()).Err(); err != nil {
		return fmt.Errorf("redis delete credential: %w", err)
	}
	return nil
}
