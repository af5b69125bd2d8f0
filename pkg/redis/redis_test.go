package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Redis 不可用时 main 传入 nil，所有调用应按降级语义返回
func TestNilClientDegrades(t *testing.T) {
	var c *Client
	ctx := context.Background()

	require.NoError(t, c.BlacklistToken(ctx, "jti", time.Minute))

	blacklisted, err := c.IsBlacklisted(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, blacklisted)

	require.NoError(t, c.RevokeUser(ctx, "user-1", time.Minute))
	revoked, err := c.IsUserRevoked(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	allowed, err := c.CheckRateLimit(ctx, "rate_limit:test", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	lock, err := c.AcquireLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, lock)
	assert.NoError(t, lock.Release(ctx))

	first, err := c.MarkOnce(ctx, "daily-report:2026-01-01", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	require.NoError(t, c.SetImportProgress(ctx, "imp-1", 50))
	_, found, err := c.GetImportProgress(ctx, "imp-1")
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, c.Close())
}

func TestNilLockRelease(t *testing.T) {
	var l *Lock
	assert.NoError(t, l.Release(context.Background()))
}
