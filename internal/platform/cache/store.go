package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const defaultTTL = 5 * time.Minute

// storeIfLatest writes KEYS[1] only while KEYS[2] still holds the generation
// reserved by the caller.
var storeIfLatest = redis.NewScript(`
local cur = redis.call('GET', KEYS[2])
if cur == ARGV[1] then
  redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
  return 1
end
return 0
`)

// Options tunes a Store.
type Options struct {
	// RevalidateAfter is the age after which a hit triggers a background
	// refresh. Zero refreshes on every hit.
	RevalidateAfter time.Duration
	// RefreshTimeout bounds each background refresh.
	RefreshTimeout time.Duration
	Logger         *slog.Logger
	Metrics        *Metrics
}

// Store is a Redis-backed stale-while-revalidate cache. Entries live in named
// buckets, each with its own TTL and version.
type Store struct {
	client          *redis.Client
	revalidateAfter time.Duration
	refreshTimeout  time.Duration
	logger          *slog.Logger
	metrics         *Metrics
	now             func() time.Time

	group singleflight.Group
	wg    sync.WaitGroup
}

// NewStore wraps client. A nil client turns every fetch into a direct load.
func NewStore(client *redis.Client, opts Options) *Store {
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client:          client,
		revalidateAfter: opts.RevalidateAfter,
		refreshTimeout:  opts.RefreshTimeout,
		logger:          logger,
		metrics:         opts.Metrics,
		now:             time.Now,
	}
}

// Bucket is a cache namespace with its own TTL.
type Bucket struct {
	store *Store
	name  string
	ttl   time.Duration
}

// Bucket returns the namespace name with the given TTL. A non-positive TTL
// falls back to five minutes.
func (s *Store) Bucket(name string, ttl time.Duration) *Bucket {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Bucket{store: s, name: name, ttl: ttl}
}

// Name returns the bucket namespace.
func (b *Bucket) Name() string {
	if b == nil {
		return ""
	}
	return b.name
}

// TTL returns the bucket expiry.
func (b *Bucket) TTL() time.Duration {
	if b == nil {
		return 0
	}
	return b.ttl
}

func (b *Bucket) enabled() bool {
	return b != nil && b.store != nil && b.store.client != nil
}

func (b *Bucket) versionKey() string {
	return "cache:" + b.name + ":version"
}

// Version returns the bucket version, initialising it when missing.
func (b *Bucket) Version(ctx context.Context) (int64, error) {
	if !b.enabled() {
		return 0, nil
	}
	client := b.store.client
	ver, err := client.Get(ctx, b.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		if err := client.SetNX(ctx, b.versionKey(), 1, 0).Err(); err != nil {
			return 0, err
		}
		return client.Get(ctx, b.versionKey()).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Key composes the full Redis key for parts under the current version.
func (b *Bucket) Key(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(parts, ":")
	if !b.enabled() {
		return joined, nil
	}
	ver, err := b.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("cache:%s:v%d:%s", b.name, ver, joined), nil
}

// Invalidate drops every entry of the bucket by bumping its version. The
// version lives in Redis so every instance observes the bump.
func (b *Bucket) Invalidate(ctx context.Context) error {
	if !b.enabled() {
		return nil
	}
	ver, err := b.store.client.Incr(ctx, b.versionKey()).Result()
	if err != nil {
		return err
	}
	b.store.logger.Debug("cache bucket invalidated", slog.String("bucket", b.name), slog.Int64("version", ver))
	return nil
}

type entry struct {
	StoredAt int64           `json:"stored_at"`
	Value    json.RawMessage `json:"value"`
}

// Fetch returns the cached value for key or loads it. A hit is returned
// immediately; when the entry is older than RevalidateAfter a background
// refresh replaces it. Redis failures degrade to a direct load.
func Fetch[T any](ctx context.Context, b *Bucket, key string, loader func(context.Context) (T, error)) (T, error) {
	var zero T
	if loader == nil {
		return zero, errors.New("cache: loader required")
	}
	if !b.enabled() {
		return loader(ctx)
	}
	s := b.store
	full, err := b.Key(ctx, key)
	if err != nil {
		s.metrics.fail(b.name)
		s.logger.Warn("cache key", slog.String("bucket", b.name), slog.Any("error", err))
		return loader(ctx)
	}

	raw, err := s.client.Get(ctx, full).Bytes()
	switch {
	case err == nil:
		var e entry
		var value T
		if decodeErr := json.Unmarshal(raw, &e); decodeErr == nil {
			if decodeErr = json.Unmarshal(e.Value, &value); decodeErr == nil {
				s.metrics.hit(b.name)
				if s.now().Sub(time.UnixMilli(e.StoredAt)) >= s.revalidateAfter {
					revalidate(ctx, b, full, loader)
				}
				return value, nil
			}
		}
		s.logger.Warn("cache entry undecodable, reloading", slog.String("bucket", b.name))
	case errors.Is(err, redis.Nil):
	default:
		s.metrics.fail(b.name)
		s.logger.Warn("cache get", slog.String("bucket", b.name), slog.Any("error", err))
		return loader(ctx)
	}

	s.metrics.miss(b.name)
	v, err, _ := s.group.Do(full, func() (interface{}, error) {
		return load(ctx, b, full, loader)
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// revalidate refreshes full in the background. Concurrent refreshes of the
// same key collapse into one.
func revalidate[T any](ctx context.Context, b *Bucket, full string, loader func(context.Context) (T, error)) {
	s := b.store
	s.metrics.refresh(b.name)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.refreshTimeout)
		defer cancel()
		_, err, _ := s.group.Do("refresh:"+full, func() (interface{}, error) {
			return load(refreshCtx, b, full, loader)
		})
		if err != nil {
			s.logger.Warn("cache revalidate", slog.String("bucket", b.name), slog.Any("error", err))
		}
	}()
}

// load reserves a generation, runs the loader and stores the value only if no
// newer load was issued meanwhile.
func load[T any](ctx context.Context, b *Bucket, full string, loader func(context.Context) (T, error)) (T, error) {
	s := b.store
	seqKey := full + ":seq"
	var gen *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		gen = p.Incr(ctx, seqKey)
		p.PExpire(ctx, seqKey, 2*b.ttl)
		return nil
	})
	if err != nil {
		s.metrics.fail(b.name)
		s.logger.Warn("cache reserve generation", slog.String("bucket", b.name), slog.Any("error", err))
		return loader(ctx)
	}

	value, err := loader(ctx)
	if err != nil {
		return value, err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return value, fmt.Errorf("cache: encode %s: %w", b.name, err)
	}
	raw, err := json.Marshal(entry{StoredAt: s.now().UnixMilli(), Value: payload})
	if err != nil {
		return value, fmt.Errorf("cache: encode entry %s: %w", b.name, err)
	}
	stored, err := storeIfLatest.Run(ctx, s.client, []string{full, seqKey},
		strconv.FormatInt(gen.Val(), 10), raw, b.ttl.Milliseconds()).Int()
	if err != nil {
		s.metrics.fail(b.name)
		s.logger.Warn("cache set", slog.String("bucket", b.name), slog.Any("error", err))
		return value, nil
	}
	if stored == 0 {
		s.metrics.drop(b.name)
	}
	return value, nil
}

// Wait blocks until in-flight background refreshes complete.
func (s *Store) Wait() {
	if s != nil {
		s.wg.Wait()
	}
}
