package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCredentialStore_RoundTrip(t *testing.T) {
	_, client := newTestRedis(t)
	store, err := NewCredentialStore(client, CredentialStoreOptions{ClientID: "console-1"})
	require.NoError(t, err)
	ctx := context.Background()

	tok, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok, "missing key reads as no credential")

	require.NoError(t, store.SetToken(ctx, "jwt-abc"))
	tok, err = store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", tok)

	require.NoError(t, store.ClearToken(ctx))
	tok, err = store.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, store.ClearToken(ctx), "clearing twice is fine")
}

func TestCredentialStore_Prefix(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	store, err := NewCredentialStore(client, CredentialStoreOptions{ClientID: "ops"})
	require.NoError(t, err)
	require.NoError(t, store.SetToken(ctx, "a"))
	assert.True(t, mr.Exists(DefaultPrefix+"ops"))

	custom, err := NewCredentialStore(client, CredentialStoreOptions{Prefix: "test-prefix:", ClientID: "ops"})
	require.NoError(t, err)
	require.NoError(t, custom.SetToken(ctx, "b"))
	got, err := mr.Get("test-prefix:ops")
	require.NoError(t, err)
	assert.Equal(t, "b", got)
	assert.Equal(t, "test-prefix:ops", custom.Key())
}

func TestCredentialStore_TTL(t *testing.T) {
	mr, client := newTestRedis(t)
	store, err := NewCredentialStore(client, CredentialStoreOptions{ClientID: "ttl", TTL: time.Minute})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.SetToken(ctx, "jwt-abc"))
	assert.Equal(t, time.Minute, mr.TTL(store.Key()))

	mr.FastForward(2 * time.Minute)
	tok, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestCredentialStore_EmptyTokenClears(t *testing.T) {
	mr, client := newTestRedis(t)
	store, err := NewCredentialStore(client, CredentialStoreOptions{ClientID: "c"})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.SetToken(ctx, "jwt-abc"))
	require.NoError(t, store.SetToken(ctx, ""))
	assert.False(t, mr.Exists(store.Key()))
}

func TestCredentialStore_Errors(t *testing.T) {
	_, err := NewCredentialStore(nil, CredentialStoreOptions{ClientID: "c"})
	require.Error(t, err)

	_, client := newTestRedis(t)
	_, err = NewCredentialStore(client, CredentialStoreOptions{})
	require.Error(t, err)
	_, err = NewCredentialStore(client, CredentialStoreOptions{ClientID: "c", TTL: -time.Second})
	require.Error(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	down := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = down.Close() })
	store, err := NewCredentialStore(down, CredentialStoreOptions{ClientID: "c"})
	require.NoError(t, err)
	mr.Close()

	_, err = store.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis get credential")
}
