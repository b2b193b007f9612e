package redisledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	usagedomain "github.com/smallbiznis/staydesk/internal/usage/domain"
	"github.com/stretchr/testify/require"
)

func memoryLedger(t *testing.T) (*Ledger, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr(), PoolSize: 32})
	t.Cleanup(func() { _ = client.Close() })
	return New(client), srv
}

func TestTryIncrementConcurrentHoldsLimit(t *testing.T) {
	l, srv := memoryLedger(t)
	ctx := context.Background()
	tenant := snowflake.ID(7)

	const workers = 100
	const limit = 60

	var applied, refused atomic.Int64
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.TryIncrement(ctx, tenant, usagedomain.ResourceAIResponses, 1, limit)
			switch {
			case err == nil:
				applied.Add(1)
			case errors.Is(err, usagedomain.ErrLimitReached):
				refused.Add(1)
			default:
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.EqualValues(t, limit, applied.Load())
	require.EqualValues(t, workers-limit, refused.Load())

	stored, err := srv.Get(Key(tenant, usagedomain.ResourceAIResponses))
	require.NoError(t, err)
	require.Equal(t, "60", stored)

	value, err := l.CurrentValue(ctx, tenant, usagedomain.ResourceAIResponses)
	require.NoError(t, err)
	require.EqualValues(t, limit, value)
}

func TestTryIncrementRefusalLeavesValue(t *testing.T) {
	l, _ := memoryLedger(t)
	ctx := context.Background()

	value, err := l.TryIncrement(ctx, 1, usagedomain.ResourceAIResponses, 3, 4)
	require.NoError(t, err)
	require.EqualValues(t, 3, value)

	value, err = l.TryIncrement(ctx, 1, usagedomain.ResourceAIResponses, 2, 4)
	require.ErrorIs(t, err, usagedomain.ErrLimitReached)
	require.EqualValues(t, 3, value)

	value, err = l.TryIncrement(ctx, 1, usagedomain.ResourceAIResponses, 1, 4)
	require.NoError(t, err)
	require.EqualValues(t, 4, value)
}

func TestTryIncrementUnlimited(t *testing.T) {
	l, _ := memoryLedger(t)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		_, err := l.TryIncrement(ctx, 2, usagedomain.ResourceAIResponses, 1, -1)
		require.NoError(t, err)
	}
	value, err := l.TryIncrement(ctx, 2, usagedomain.ResourceAIResponses, 1000, -1)
	require.NoError(t, err)
	require.EqualValues(t, 1250, value)
}

func TestResetDeletesCounter(t *testing.T) {
	l, srv := memoryLedger(t)
	ctx := context.Background()
	key := Key(3, usagedomain.ResourceAIResponses)

	_, err := l.Increment(ctx, 3, usagedomain.ResourceAIResponses, 5)
	require.NoError(t, err)
	require.True(t, srv.Exists(key))

	require.NoError(t, l.Reset(ctx, 3, usagedomain.ResourceAIResponses))
	require.False(t, srv.Exists(key))

	value, err := l.CurrentValue(ctx, 3, usagedomain.ResourceAIResponses)
	require.NoError(t, err)
	require.Zero(t, value)

	value, err = l.TryIncrement(ctx, 3, usagedomain.ResourceAIResponses, 1, 1)
	require.NoError(t, err)
	require.EqualValues(t, 1, value)
}

func TestCountersAreTenantScoped(t *testing.T) {
	l, _ := memoryLedger(t)
	ctx := context.Background()

	_, err := l.TryIncrement(ctx, 10, usagedomain.ResourceAIResponses, 1, 1)
	require.NoError(t, err)
	_, err = l.TryIncrement(ctx, 10, usagedomain.ResourceAIResponses, 1, 1)
	require.ErrorIs(t, err, usagedomain.ErrLimitReached)

	_, err = l.TryIncrement(ctx, 11, usagedomain.ResourceAIResponses, 1, 1)
	require.NoError(t, err)
}
