package redis

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/internal/testenv"
)

func getTestClient(t *testing.T) *Client {
	t.Helper()
	endpoint := testenv.Redis(t)

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	client, err := NewClient(Config{Host: endpoint.Host, Port: endpoint.Port, Password: endpoint.Password}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestLocker_AcquireRelease(t *testing.T) {
	client := getTestClient(t)
	ctx := context.Background()
	locker := NewLocker(client, "sorrel-test:lock:")
	key := "contacts-" + uuid.NewString()

	lock, err := locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, key, time.Minute)
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	require.NoError(t, lock.Extend(ctx, 2*time.Minute))
	ttl, err := client.TTL(ctx, lock.Key())
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Minute)

	require.NoError(t, lock.Release(ctx))
	assert.ErrorIs(t, lock.Release(ctx), ErrLockNotHeld)

	again, err := locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}
