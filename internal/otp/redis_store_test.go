package otp

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisClientForTest(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})
	return server, client
}

func TestRedisStorePutGetDeleteAndTTL(t *testing.T) {
	ctx := context.Background()
	server, client := newRedisClientForTest(t)
	store := NewRedisStore(client, "otp_test")

	_, ok, err := store.Get(ctx, PurposeReset, "a@example.com")
	require.NoError(t, err)
	require.False(t, ok)

	entry := Entry{Code: "123456", ExpiresAt: time.Now().Add(time.Minute), Verified: true}
	require.NoError(t, store.Put(ctx, PurposeReset, "a@example.com", entry, time.Minute))
	require.True(t, server.Exists("otp_test:reset:a@example.com"))

	got, ok, err := store.Get(ctx, PurposeReset, "a@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "123456", got.Code)
	require.True(t, got.Verified)

	server.FastForward(2 * time.Minute)
	_, ok, err = store.Get(ctx, PurposeReset, "a@example.com")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Put(ctx, PurposeReset, "a@example.com", entry, time.Minute))
	require.NoError(t, store.Delete(ctx, PurposeReset, "a@example.com"))
	_, ok, err = store.Get(ctx, PurposeReset, "a@example.com")
	require.NoError(t, err)
	require.False(t, ok)

	removed, err := store.PurgeExpired(ctx, PurposeReset, time.Now())
	require.NoError(t, err)
	require.Zero(t, removed)
}

func TestIssuerOverRedisStore(t *testing.T) {
	ctx := context.Background()
	_, client := newRedisClientForTest(t)
	issuer := NewIssuer(NewRedisStore(client, ""), 10*time.Minute)

	code, err := issuer.Issue(ctx, PurposeReset, "b@example.com")
	require.NoError(t, err)
	require.NoError(t, issuer.Verify(ctx, PurposeReset, "b@example.com", code))
	require.NoError(t, issuer.RequireVerified(ctx, PurposeReset, "b@example.com"))
	require.NoError(t, issuer.Discard(ctx, PurposeReset, "b@example.com"))
	require.ErrorIs(t, issuer.RequireVerified(ctx, PurposeReset, "b@example.com"), ErrNotVerified)
}
