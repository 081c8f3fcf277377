// Package cache memoizes query results and invalidates them by tag.
//
// Each query is stored under a key (endpoint plus arguments) together with
// the tags it provides. Invalidating a tag marks every entry providing it
// stale and synchronously re-issues the queries that still have subscribers.
// Fetches of the same key are collapsed into one in-flight request; an
// invalidation that lands while a fetch is in flight makes that fetch run
// again before it commits, so the stored value always comes from a request
// issued after the most recent invalidation.
package cache

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// maxAttempts bounds how often one collapsed fetch restarts because of
// invalidations that arrive while it is in flight.
const maxAttempts = 4

// Tag labels a group of queries for invalidation.
type Tag string

// Fetcher performs the underlying request for a query.
type Fetcher func(ctx context.Context) (any, error)

// Listener receives a snapshot on every state change of a subscribed query.
type Listener func(Snapshot)

// Cache holds query entries. The zero value is not usable; call New.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group
	nextSub int
	log     *slog.Logger
}

type entry struct {
	key   string
	tags  []Tag
	fetch Fetcher
	snap  Snapshot
	stale bool
	epoch uint64
	subs  map[int]Listener
}

// New creates an empty cache. A nil logger discards diagnostics.
func New(log *slog.Logger) *Cache {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{
		entries: make(map[string]*entry),
		log:     log,
	}
}

// entryLocked returns the entry for key, creating it if needed, and records
// the latest tags and fetcher. c.mu must be held.
func (c *Cache) entryLocked(key string, tags []Tag, fetch Fetcher) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{
			key:  key,
			snap: Snapshot{State: StateLoading},
			subs: make(map[int]Listener),
		}
		c.entries[key] = e
	}
	if tags != nil {
		e.tags = tags
	}
	if fetch != nil {
		e.fetch = fetch
	}
	return e
}

func (e *entry) fresh() bool {
	return e.snap.State == StateReady && !e.stale
}

func (e *entry) provides(tags []Tag) bool {
	for _, want := range tags {
		for _, have := range e.tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Query returns the cached value for key when it is fresh, and fetches it
// otherwise.
func (c *Cache) Query(ctx context.Context, key string, tags []Tag, fetch Fetcher) (any, error) {
	c.mu.Lock()
	e := c.entryLocked(key, tags, fetch)
	if e.fresh() {
		v := e.snap.Value
		c.mu.Unlock()
		c.log.Debug("cache hit", "key", key)
		return v, nil
	}
	c.mu.Unlock()

	return c.refetch(ctx, e)
}

// Subscribe registers an active subscriber for key. The listener is called
// with the current snapshot right away and again on every change; if the
// entry is not fresh a fetch is issued before Subscribe returns. The returned
// function removes the subscription.
func (c *Cache) Subscribe(ctx context.Context, key string, tags []Tag, fetch Fetcher, l Listener) func() {
	c.mu.Lock()
	e := c.entryLocked(key, tags, fetch)
	id := c.nextSub
	c.nextSub++
	e.subs[id] = l
	snap := e.snap
	fresh := e.fresh()
	c.mu.Unlock()

	l(snap)
	if !fresh {
		// The outcome reaches the listener through notify.
		_, _ = c.refetch(ctx, e)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(e.subs, id)
			c.mu.Unlock()
		})
	}
}

// Invalidate marks every entry that provides one of tags as stale and
// re-issues the subscribed ones before returning. Entries without
// subscribers are re-fetched on their next Query.
func (c *Cache) Invalidate(ctx context.Context, tags ...Tag) {
	c.mu.Lock()
	var active []*entry
	for _, e := range c.entries {
		if !e.provides(tags) {
			continue
		}
		e.stale = true
		e.epoch++
		if len(e.subs) > 0 {
			active = append(active, e)
		}
	}
	c.mu.Unlock()

	c.log.Debug("cache invalidate", "tags", tags, "refetch", len(active))
	for _, e := range active {
		if _, err := c.refetch(ctx, e); err != nil {
			c.log.Debug("refetch failed", "key", e.key, "err", err)
		}
	}
}

// Peek returns the current snapshot for key without fetching.
func (c *Cache) Peek(key string) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Snapshot{}, false
	}
	return e.snap, true
}

// refetch runs the entry's fetcher, collapsing concurrent callers onto one
// request, and commits the result.
//
// The fetch runs detached from ctx, so one caller's cancellation is never
// committed as the entry's error. A cancelled caller stops waiting and gets
// ctx.Err() while the fetch still commits. Fetchers bound their own duration.
func (c *Cache) refetch(ctx context.Context, e *entry) (any, error) {
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(e.key, func() (any, error) {
		var (
			v   any
			err error
		)
		for attempt := 1; ; attempt++ {
			c.mu.Lock()
			epoch := e.epoch
			fetch := e.fetch
			started := e.snap.State != StateLoading && !e.snap.Fetching
			if started {
				e.snap.Fetching = true
			}
			c.mu.Unlock()
			if started {
				c.notify(e)
			}

			v, err = fetch(fetchCtx)

			c.mu.Lock()
			if e.epoch != epoch && attempt < maxAttempts {
				c.mu.Unlock()
				c.log.Debug("cache refetch superseded", "key", e.key, "attempt", attempt)
				continue
			}
			// Still stale if the last allowed attempt was superseded too.
			e.stale = e.epoch != epoch
			if err != nil {
				e.snap = Snapshot{State: StateError, Err: err}
			} else {
				e.snap = Snapshot{State: StateReady, Value: v}
			}
			c.mu.Unlock()
			c.notify(e)
			return v, err
		}
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.log.Debug("cache fetch shared", "key", e.key)
		}
		return res.Val, res.Err
	case <-ctx.Done():
		c.log.Debug("cache wait abandoned", "key", e.key, "err", ctx.Err())
		return nil, ctx.Err()
	}
}

// notify delivers the current snapshot to every subscriber outside the lock.
func (c *Cache) notify(e *entry) {
	c.mu.Lock()
	snap := e.snap
	listeners := make([]Listener, 0, len(e.subs))
	for _, l := range e.subs {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}
