package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestStore(t *testing.T, opts Options) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, opts), mr
}

func TestFetchMissThenHit(t *testing.T) {
	store, _ := newTestStore(t, Options{RevalidateAfter: time.Hour})
	bucket := store.Bucket("vehicles", time.Minute)
	var calls int32
	loader := func(context.Context) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		return []string{"MH-01", "MH-02"}, nil
	}

	ctx := context.Background()
	got, err := Fetch(ctx, bucket, "page:1", loader)
	require.NoError(t, err)
	require.Equal(t, []string{"MH-01", "MH-02"}, got)

	got, err = Fetch(ctx, bucket, "page:1", loader)
	require.NoError(t, err)
	require.Equal(t, []string{"MH-01", "MH-02"}, got)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
	store.Wait()
}

func TestFetchServesStaleAndRevalidates(t *testing.T) {
	ignore := goleak.IgnoreCurrent()
	t.Cleanup(func() { goleak.VerifyNone(t, ignore) })

	store, _ := newTestStore(t, Options{RevalidateAfter: time.Minute})
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	bucket := store.Bucket("expenses", time.Hour)

	var version int32
	loader := func(context.Context) (int32, error) {
		return atomic.AddInt32(&version, 1), nil
	}

	ctx := context.Background()
	got, err := Fetch(ctx, bucket, "all", loader)
	require.NoError(t, err)
	require.EqualValues(t, 1, got)

	clock = clock.Add(2 * time.Minute)
	got, err = Fetch(ctx, bucket, "all", loader)
	require.NoError(t, err)
	require.EqualValues(t, 1, got, "stale value is served while refreshing")
	store.Wait()

	got, err = Fetch(ctx, bucket, "all", loader)
	require.NoError(t, err)
	require.EqualValues(t, 2, got)
	store.Wait()
}

func TestLoadDropsSupersededGeneration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)
	store, mr := newTestStore(t, Options{RevalidateAfter: time.Hour, Metrics: metrics})
	bucket := store.Bucket("employees", time.Hour)
	ctx := context.Background()
	full, err := bucket.Key(ctx, "page:1")
	require.NoError(t, err)

	_, err = load(ctx, bucket, full, func(context.Context) (string, error) {
		// A newer load reserves its generation while this one is in flight.
		_, incrErr := mr.Incr(full+":seq", 1)
		require.NoError(t, incrErr)
		return "stale", nil
	})
	require.NoError(t, err)
	require.False(t, mr.Exists(full))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.dropped.WithLabelValues("employees")))

	_, err = load(ctx, bucket, full, func(context.Context) (string, error) { return "fresh", nil })
	require.NoError(t, err)
	require.True(t, mr.Exists(full))
}

func TestInvalidateBumpsVersion(t *testing.T) {
	store, _ := newTestStore(t, Options{RevalidateAfter: time.Hour})
	bucket := store.Bucket("vehicles", time.Minute)
	ctx := context.Background()

	var calls int32
	loader := func(context.Context) (int32, error) { return atomic.AddInt32(&calls, 1), nil }

	_, err := Fetch(ctx, bucket, "k", loader)
	require.NoError(t, err)
	before, err := bucket.Version(ctx)
	require.NoError(t, err)

	require.NoError(t, bucket.Invalidate(ctx))
	after, err := bucket.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, before+1, after)

	got, err := Fetch(ctx, bucket, "k", loader)
	require.NoError(t, err)
	require.EqualValues(t, 2, got)
}

func TestBucketTTLApplied(t *testing.T) {
	store, mr := newTestStore(t, Options{RevalidateAfter: time.Hour})
	bucket := store.Bucket("fleet", 90*time.Second)
	ctx := context.Background()

	_, err := Fetch(ctx, bucket, "k", func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	full, err := bucket.Key(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, mr.TTL(full))

	require.Equal(t, defaultTTL, store.Bucket("other", 0).TTL())
}

func TestLoaderErrorIsNotCached(t *testing.T) {
	store, _ := newTestStore(t, Options{RevalidateAfter: time.Hour})
	bucket := store.Bucket("expenses", time.Minute)
	boom := errors.New("backend down")

	_, err := Fetch(context.Background(), bucket, "k", func(context.Context) (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)

	got, err := Fetch(context.Background(), bucket, "k", func(context.Context) (int, error) { return 3, nil })
	require.NoError(t, err)
	require.Equal(t, 3, got)
}

func TestNilClientPassesThrough(t *testing.T) {
	store := NewStore(nil, Options{})
	bucket := store.Bucket("vehicles", time.Minute)
	var calls int
	for i := 0; i < 2; i++ {
		_, err := Fetch(context.Background(), bucket, "k", func(context.Context) (int, error) {
			calls++
			return calls, nil
		})
		require.NoError(t, err)
	}
	require.Equal(t, 2, calls)
	require.NoError(t, bucket.Invalidate(context.Background()))

	var nilBucket *Bucket
	got, err := Fetch(context.Background(), nilBucket, "k", func(context.Context) (int, error) { return 9, nil })
	require.NoError(t, err)
	require.Equal(t, 9, got)
}

func TestRedisFailureDegradesToLoader(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	bucket := NewStore(client, Options{}).Bucket("vehicles", time.Minute)

	got, err := Fetch(context.Background(), bucket, "k", func(context.Context) (string, error) { return "direct", nil })
	require.NoError(t, err)
	require.Equal(t, "direct", got)
}

func TestNewMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	require.NoError(t, err)
	second, err := NewMetrics(reg)
	require.NoError(t, err)
	second.hit("vehicles")
	require.Equal(t, 1.0, testutil.ToFloat64(first.hits.WithLabelValues("vehicles")))

	none, err := NewMetrics(nil)
	require.NoError(t, err)
	require.Nil(t, none)
	none.hit("vehicles")
}

func TestNewPingsRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	require.NoError(t, client.Close())

	addr := mr.Addr()
	mr.Close()
	client, err = New(context.Background(), RedisOptions{Addr: addr})
	require.Error(t, err)
	require.NotNil(t, client)
	require.NoError(t, client.Close())
}
