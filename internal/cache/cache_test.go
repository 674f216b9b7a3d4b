package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kpi struct {
	Total int     `json:"total"`
	Rate  float64 `json:"rate"`
}

func newRedisStore(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client), mr
}

func TestGetOrLoad_CachesUntilTTL_Redis(t *testing.T) {
	store, mr := newRedisStore(t)
	c := New(store, zerolog.Nop())
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (kpi, error) {
		calls++
		return kpi{Total: calls, Rate: 12.5}, nil
	}

	v, err := GetOrLoad(ctx, c, "dashboard:kpis", 5*time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, kpi{Total: 1, Rate: 12.5}, v)

	v, err = GetOrLoad(ctx, c, "dashboard:kpis", 5*time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Total, "second call must be served from cache")
	assert.Equal(t, 1, calls)

	mr.FastForward(6 * time.Minute)
	v, err = GetOrLoad(ctx, c, "dashboard:kpis", 5*time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 2, v.Total, "expired entry must reload")
}

func TestGetOrLoad_ErrorsAreNotCached(t *testing.T) {
	c := New(NewMemory(), zerolog.Nop())
	ctx := context.Background()
	boom := errors.New("relation does not exist")

	_, err := GetOrLoad(ctx, c, "k", time.Minute, func(context.Context) (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)

	v, err := GetOrLoad(ctx, c, "k", time.Minute, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestGetOrLoad_DeduplicatesInFlight(t *testing.T) {
	c := New(NewMemory(), zerolog.Nop())
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	load := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "done", nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := GetOrLoad(ctx, c, "slow", time.Minute, load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	// Give the goroutines time to pile onto the same flight.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, "done", r)
	}
}

func TestGetOrLoad_NilCacheAlwaysLoads(t *testing.T) {
	var c *Cache
	calls := 0
	for i := 0; i < 2; i++ {
		_, err := GetOrLoad(context.Background(), c, "k", time.Minute, func(context.Context) (int, error) {
			calls++
			return calls, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
	c.Invalidate(context.Background(), "k") // must not panic
}

func TestGetOrLoad_StoreDownFallsThrough(t *testing.T) {
	store, mr := newRedisStore(t)
	c := New(store, zerolog.Nop())
	mr.Close()

	v, err := GetOrLoad(context.Background(), c, "k", time.Minute, func(context.Context) (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestInvalidate_Prefix(t *testing.T) {
	ctx := context.Background()
	redisStore, _ := newRedisStore(t)

	for name, store := range map[string]Store{"redis": redisStore, "memory": NewMemory()} {
		t.Run(name, func(t *testing.T) {
			c := New(store, zerolog.Nop())
			require.NoError(t, store.Set(ctx, "dashboard:kpis", []byte("1"), time.Minute))
			require.NoError(t, store.Set(ctx, "dashboard:health", []byte("2"), time.Minute))
			require.NoError(t, store.Set(ctx, "contents:k1:distributions", []byte("3"), time.Minute))

			c.Invalidate(ctx, "dashboard:")

			_, ok, err := store.Get(ctx, "dashboard:kpis")
			require.NoError(t, err)
			assert.False(t, ok)
			_, ok, _ = store.Get(ctx, "dashboard:health")
			assert.False(t, ok)
			_, ok, _ = store.Get(ctx, "contents:k1:distributions")
			assert.True(t, ok)
		})
	}
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", []byte("x"), time.Minute))
	require.NoError(t, m.Set(ctx, "forever", []byte("y"), 0))

	now = now.Add(59 * time.Second)
	_, ok, _ := m.Get(ctx, "a")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok, _ = m.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestGetOrLoad_CancelledLeaderDoesNotFailWaiters(t *testing.T) {
	c := New(NewMemory(), zerolog.Nop())
	const key = "dashboard:kpis"

	var calls int32
	var once sync.Once
	started, release := make(chan struct{}), make(chan struct{})
	load := func(ctx context.Context) (kpi, error) {
		atomic.AddInt32(&calls, 1)
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return kpi{}, err
		}
		return kpi{Total: 42, Rate: 0.5}, nil
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := GetOrLoad(leaderCtx, c, key, time.Minute, load)
		leaderErr <- err
	}()
	<-started

	type result struct {
		v   kpi
		err error
	}
	waiter := make(chan result, 1)
	go func() {
		v, err := GetOrLoad(context.Background(), c, key, time.Minute, load)
		waiter <- result{v, err}
	}()
	// Let the waiter join the running load.
	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case err := <-leaderErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("leader kept waiting after its request was cancelled")
	}

	close(release)
	r := <-waiter
	require.NoError(t, r.err)
	assert.Equal(t, kpi{Total: 42, Rate: 0.5}, r.v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	v, err := GetOrLoad(context.Background(), c, key, time.Minute, func(context.Context) (kpi, error) {
		return kpi{}, errors.New("should have been cached")
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v.Total)
}

func TestGetOrLoad_InvalidateDuringLoadKeepsFreshValue(t *testing.T) {
	store := NewMemory()
	c := New(store, zerolog.Nop())
	ctx := context.Background()
	const key = "dashboard:kpis"

	started, release := make(chan struct{}), make(chan struct{})
	stale := make(chan int, 1)
	go func() {
		v, err := GetOrLoad(ctx, c, key, time.Minute, func(context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
		assert.NoError(t, err)
		stale <- v
	}()
	<-started

	c.Invalidate(ctx, "dashboard:")

	// A caller after the invalidation starts its own load.
	v, err := GetOrLoad(ctx, c, key, time.Minute, func(context.Context) (int, error) { return 2, nil })
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	close(release)
	assert.Equal(t, 1, <-stale, "the earlier load still answers its caller")

	b, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2", string(b), "the earlier load must not overwrite the fresh value")

	// Unrelated prefixes are unaffected.
	c.Invalidate(ctx, "contents:")
	_, err = GetOrLoad(ctx, c, key, time.Minute, func(context.Context) (int, error) { return 3, nil })
	require.NoError(t, err)
	b, _, _ = store.Get(ctx, key)
	assert.Equal(t, "2", string(b))
}
