// Package cache holds a single time-boxed snapshot with stale-while-revalidate
// refresh.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a computed snapshot is served as fresh.
const DefaultTTL = 5 * time.Minute

const (
	flightKey = "snapshot"
	forceKey  = "force"
)

// LoadFunc computes a new snapshot value.
type LoadFunc[T any] func(ctx context.Context) (T, error)

type State int

const (
	Empty State = iota
	Fresh
	Stale
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "empty"
	}
}

// Stats are cumulative counters for one Snapshot.
type Stats struct {
	Hits            uint64
	StaleServes     uint64
	Misses          uint64
	Refreshes       uint64
	RefreshFailures uint64
}

// Option configures a Snapshot.
type Option func(*options)

type options struct {
	ttl     time.Duration
	now     func() time.Time
	onError func(error)
	onLoad  func(time.Duration)
}

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock injects the time source used for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithRefreshErrorHandler receives errors from background refreshes, which
// are never returned to readers.
func WithRefreshErrorHandler(fn func(error)) Option {
	return func(o *options) { o.onError = fn }
}

// WithLoadObserver receives the duration of every successful load.
func WithLoadObserver(fn func(time.Duration)) Option {
	return func(o *options) { o.onLoad = fn }
}

// Snapshot caches the result of one expensive computation.
//
// Thread Safety:
//
//	Safe for concurrent use. Reads of a present snapshot never wait on a
//	load. At most one background refresh is in flight per Snapshot, and a
//	cold-start load shares the in-flight computation with it. Forced loads
//	run apart from it. A load that finishes after a later-started one is
//	discarded, so the snapshot never moves backwards.
type Snapshot[T any] struct {
	load LoadFunc[T]
	opts options

	mu         sync.RWMutex
	value      T
	computedAt time.Time
	present    bool
	gen        uint64 // generation of the stored value

	started atomic.Uint64

	flight     singleflight.Group
	refreshing atomic.Bool
	bg         sync.WaitGroup

	hits, staleServes, misses, refreshes, failures atomic.Uint64
}

func New[T any](load LoadFunc[T], opts ...Option) *Snapshot[T] {
	o := options{ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Snapshot[T]{load: load, opts: o}
}

// Get returns the cached value.
//
//   - no snapshot yet, or force: load synchronously and return the result;
//     a load error is returned to the caller. A forced load never joins a
//     background refresh, so it starts after the call; concurrent forced
//     calls share one load.
//   - snapshot within TTL: return it without I/O.
//   - snapshot past TTL: return it immediately and start one background
//     refresh unless one is already running.
//
// Cancelling ctx stops the caller from waiting on a synchronous load; the
// load itself runs to completion and still updates the snapshot.
func (s *Snapshot[T]) Get(ctx context.Context, force bool) (T, error) {
	if !force {
		s.mu.RLock()
		value, at, ok := s.value, s.computedAt, s.present
		s.mu.RUnlock()
		if ok {
			if s.opts.now().Sub(at) <= s.opts.ttl {
				s.hits.Add(1)
				return value, nil
			}
			s.staleServes.Add(1)
			s.triggerRefresh(ctx)
			return value, nil
		}
	}

	s.misses.Add(1)
	key := flightKey
	if force {
		key = forceKey
	}
	ch := s.flight.DoChan(key, func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// State reports the lifecycle state at the current clock reading.
func (s *Snapshot[T]) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.present {
		return Empty
	}
	if s.opts.now().Sub(s.computedAt) <= s.opts.ttl {
		return Fresh
	}
	return Stale
}

// ComputedAt returns when the current snapshot was produced.
func (s *Snapshot[T]) ComputedAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.computedAt, s.present
}

// Wait blocks until any background refresh has finished.
func (s *Snapshot[T]) Wait() {
	s.bg.Wait()
}

func (s *Snapshot[T]) Stats() Stats {
	return Stats{
		Hits:            s.hits.Load(),
		StaleServes:     s.staleServes.Load(),
		Misses:          s.misses.Load(),
		Refreshes:       s.refreshes.Load(),
		RefreshFailures: s.failures.Load(),
	}
}

func (s *Snapshot[T]) triggerRefresh(ctx context.Context) {
	if !s.refreshing.CompareAndSwap(false, true) {
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		defer s.refreshing.Store(false)
		_, err, _ := s.flight.Do(flightKey, func() (any, error) {
			return s.refresh(context.WithoutCancel(ctx))
		})
		if err != nil && s.opts.onError != nil {
			s.opts.onError(err)
		}
	}()
}

// refresh runs the loader and swaps in the result. A failed load leaves the
// previous snapshot untouched.
func (s *Snapshot[T]) refresh(ctx context.Context) (any, error) {
	s.refreshes.Add(1)
	gen := s.started.Add(1)
	start := s.opts.now()
	value, err := s.load(ctx)
	if err != nil {
		s.failures.Add(1)
		return nil, err
	}
	computedAt := s.opts.now()
	s.mu.Lock()
	if gen < s.gen {
		// a newer load already landed
		value = s.value
		s.mu.Unlock()
		return value, nil
	}
	s.value = value
	s.computedAt = computedAt
	s.present = true
	s.gen = gen
	s.mu.Unlock()
	if s.opts.onLoad != nil {
		s.opts.onLoad(computedAt.Sub(start))
	}
	return value, nil
}
