package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/user-auth/internal/core/domain"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisTokenRepository(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	repo := NewTokenRepository(client, "forget-password:")

	require.NoError(t, repo.Put(ctx, "abc", "42", 72*time.Hour))
	assert.True(t, mr.Exists("forget-password:abc"))
	assert.Equal(t, 72*time.Hour, mr.TTL("forget-password:abc"))

	val, ok, err := repo.Get(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", val)

	// Reads do not refresh the TTL.
	mr.FastForward(time.Hour)
	_, _, err = repo.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 71*time.Hour, mr.TTL("forget-password:abc"))

	require.NoError(t, repo.Delete(ctx, "abc"))
	_, ok, err = repo.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Delete(ctx, "abc"), "deleting a missing key is fine")
}

func TestRedisTokenRepository_RejectsNonPositiveTTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	repo := NewTokenRepository(client, "forget-password:")

	for _, ttl := range []time.Duration{0, -time.Second} {
		assert.Error(t, repo.Put(ctx, "abc", "42", ttl))
	}
	assert.False(t, mr.Exists("forget-password:abc"))
}

func TestRedisTokenRepository_Take(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	repo := NewTokenRepository(client, "forget-password:")

	_, _, ok, err := repo.Take(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Put(ctx, "abc", "42", 72*time.Hour))
	mr.FastForward(2 * time.Hour)

	val, remaining, ok, err := repo.Take(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", val)
	assert.Equal(t, 70*time.Hour, remaining)
	assert.False(t, mr.Exists("forget-password:abc"))

	_, _, ok, err = repo.Take(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok, "a token can be taken once")
}

func TestRedisTokenRepository_Expiry(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	repo := NewTokenRepository(client, "forget-password:")

	require.NoError(t, repo.Put(ctx, "abc", "42", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok, err := repo.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisTokenRepository_ConnectionError(t *testing.T) {
	mr, client := newRedis(t)
	repo := NewTokenRepository(client, "p:")
	mr.Close()

	_, _, err := repo.Get(context.Background(), "abc")
	assert.Error(t, err)
}

func TestRedisSessionRepository(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	repo := NewSessionRepository(client)

	data, err := repo.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, repo.Set(ctx, "s1", domain.SessionData{UserID: 5}, 24*time.Hour))
	assert.True(t, mr.Exists("sess:s1"))
	assert.Equal(t, 24*time.Hour, mr.TTL("sess:s1"))

	got, err := mr.Get("sess:s1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":5}`, got)

	data, err = repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Equal(t, 5, data.UserID)

	require.NoError(t, repo.Destroy(ctx, "s1"))
	assert.False(t, mr.Exists("sess:s1"))
}

func TestRedisSessionRepository_CorruptRecord(t *testing.T) {
	mr, client := newRedis(t)
	repo := NewSessionRepository(client)
	require.NoError(t, mr.Set("sess:bad", "{not json"))

	data, err := repo.Get(context.Background(), "bad")
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.False(t, mr.Exists("sess:bad"), "corrupt record is discarded")
}

func TestKeyPrefixesDoNotCollide(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	tokens := NewTokenRepository(client, "forget-password:")
	sessions := NewSessionRepository(client)

	require.NoError(t, tokens.Put(ctx, "same", "1", time.Hour))
	require.NoError(t, sessions.Set(ctx, "same", domain.SessionData{UserID: 2}, time.Hour))

	assert.True(t, mr.Exists("forget-password:same"))
	assert.True(t, mr.Exists("sess:same"))

	val, ok, err := tokens.Get(ctx, "same")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", val)
}
