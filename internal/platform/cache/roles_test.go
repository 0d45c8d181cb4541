package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ems/internal/domain/auth"
)

func TestNewWithoutURLDisablesCache(t *testing.T) {
	c, err := New("", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("not-a-redis-url", time.Minute)
	assert.Error(t, err)
}

func TestUnreachableRedisIsAMiss(t *testing.T) {
	c, err := New("redis://127.0.0.1:1/0", time.Minute)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c.Set(ctx, "auth-1", auth.Resolution{Role: auth.RoleHR, Matched: true})
	_, ok := c.Get(ctx, "auth-1")
	assert.False(t, ok)
	c.Invalidate(ctx, "auth-1", "")
}

func TestKeyPrefix(t *testing.T) {
	assert.Equal(t, "ems:role:abc", key("abc"))
}
