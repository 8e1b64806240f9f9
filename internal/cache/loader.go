package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"tripledger/internal/log"
)

// Options configures a Loader.
type Options struct {
	// Freshness is how long a value is served without revalidation.
	Freshness time.Duration
	// MaxStale bounds how long a value may be kept at all.
	MaxStale   time.Duration
	MaxEntries int
	Logger     *log.Logger
	// Permanent reports fetch errors that must not be papered over with a
	// cached value, such as a deleted row. The entry is dropped instead.
	Permanent func(error) bool
}

// Result is a value served by a Loader.
type Result[T any] struct {
	Value T
	// Stale is set when the value is older than the freshness window or
	// could not be refreshed.
	Stale bool
	// Warning describes why a stale value was served after a failed read.
	Warning string
}

// Loader serves reads from an LRU cache with stale-while-revalidate:
// fresh values are returned directly, stale values are returned at once
// while one background fetch refreshes them, and invalidated or missing
// values are fetched in the foreground. Concurrent fetches of one key
// share a single call.
type Loader[T any] struct {
	name      string
	lru       *LRUCache[T]
	registry  *Registry
	freshness time.Duration
	permanent func(error) bool
	logger    *log.Logger
	group     singleflight.Group
	wg        sync.WaitGroup

	mu   sync.Mutex
	gens map[string]uint64
	errs map[string]error
}

// NewLoader creates a loader that joins registry for invalidation.
func NewLoader[T any](name string, registry *Registry, opts Options) *Loader[T] {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 500
	}
	if opts.MaxStale < opts.Freshness {
		opts.MaxStale = opts.Freshness
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	l := &Loader[T]{
		name:      name,
		lru:       NewLRUCache[T](opts.MaxEntries, opts.MaxStale),
		registry:  registry,
		freshness: opts.Freshness,
		permanent: opts.Permanent,
		logger:    logger.WithComponent(log.ComponentCache),
		gens:      make(map[string]uint64),
		errs:      make(map[string]error),
	}
	registry.join(l)
	return l
}

// LRU exposes the backing store so a Manager can clean it.
func (l *Loader[T]) LRU() *LRUCache[T] { return l.lru }

// Get returns the value for key, fetching it when needed. tags are the
// invalidation tags the key depends on.
func (l *Loader[T]) Get(ctx context.Context, key string, tags []string, fetch func(context.Context) (T, error)) (Result[T], error) {
	entry, ok := l.lru.Peek(key)
	if ok && !entry.Invalid {
		if l.lru.now().Sub(entry.StoredAt) < l.freshness {
			return Result[T]{Value: entry.Value}, nil
		}
		l.revalidate(ctx, key, tags, fetch)
		return Result[T]{Value: entry.Value, Stale: true, Warning: l.lastError(key)}, nil
	}

	v, err := l.load(ctx, key, tags, fetch)
	if err != nil {
		if l.isPermanent(err) {
			l.lru.Delete(key)
			return Result[T]{}, err
		}
		if ok {
			l.logger.WarnContext(ctx, "Serving invalidated cache entry after failed read",
				log.FieldCacheKey, key, log.FieldError, err)
			return Result[T]{Value: entry.Value, Stale: true, Warning: err.Error()}, nil
		}
		return Result[T]{}, err
	}
	return Result[T]{Value: v}, nil
}

// Wait blocks until all background revalidations have finished.
func (l *Loader[T]) Wait() { l.wg.Wait() }

func (l *Loader[T]) load(ctx context.Context, key string, tags []string, fetch func(context.Context) (T, error)) (T, error) {
	gen := l.generation(key)
	flight := l.name + "|" + key + "#" + strconv.FormatUint(gen, 10)
	v, err, _ := l.group.Do(flight, func() (any, error) {
		val, err := fetch(ctx)
		if err != nil {
			l.setError(key, err)
			return val, err
		}
		l.store(key, gen, tags, val)
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("load %s: %w", key, err)
	}
	return v.(T), nil
}

func (l *Loader[T]) revalidate(ctx context.Context, key string, tags []string, fetch func(context.Context) (T, error)) {
	gen := l.generation(key)
	flight := l.name + "|" + key + "#" + strconv.FormatUint(gen, 10)
	bg := context.WithoutCancel(ctx)

	l.wg.Add(1)
	ch := l.group.DoChan(flight, func() (any, error) {
		val, err := fetch(bg)
		if err != nil {
			if l.isPermanent(err) {
				l.lru.Delete(key)
				return val, err
			}
			l.setError(key, err)
			l.logger.WarnContext(bg, "Background revalidation failed", log.FieldCacheKey, key, log.FieldError, err)
			return val, err
		}
		l.store(key, gen, tags, val)
		return val, nil
	})
	go func() {
		defer l.wg.Done()
		<-ch
	}()
}

// store writes val unless key was invalidated after the fetch started.
func (l *Loader[T]) store(key string, gen uint64, tags []string, val T) {
	l.mu.Lock()
	current := l.gens[key]
	if current == gen {
		delete(l.errs, key)
	}
	l.mu.Unlock()
	if current != gen {
		return
	}
	l.lru.Set(key, val)
	l.registry.Tag(key, tags...)
}

func (l *Loader[T]) invalidate(keys []string) {
	l.mu.Lock()
	for _, k := range keys {
		l.gens[k]++
	}
	l.mu.Unlock()
	for _, k := range keys {
		l.lru.Invalidate(k)
	}
}

func (l *Loader[T]) isPermanent(err error) bool {
	return l.permanent != nil && l.permanent(err)
}

func (l *Loader[T]) generation(key string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gens[key]
}

func (l *Loader[T]) setError(key string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs[key] = err
}

func (l *Loader[T]) lastError(key string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, ok := l.errs[key]; ok {
		return err.Error()
	}
	return ""
}
