package shadercache

import (
	"context"
	"sync"
	"sync/atomic"

	"go.trai.ch/shade/internal/core/domain"
)

// Cache is an in-memory table of compiled shader binaries keyed by content
// hash. It is the single synchronization point between worker threads
// compiling identical content: the first caller to miss a key reserves it
// and compiles, every concurrent caller for the same key waits for that one
// result instead of duplicating the work.
//
// Cache is safe for concurrent use. FindOrReserve is the only operation
// that blocks, and only when another caller holds the reservation for the
// requested key.
type Cache struct {
	tag    string
	budget int64 // cumulative blob byte budget, 0 = unlimited

	mu         sync.Mutex
	entries    map[domain.CacheKey]*entry
	order      []*entry // insertion order, eviction scans from the front
	totalBytes int64

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates an empty cache for the given compatibility tag.
// budgetBytes caps the cumulative Ready blob bytes; zero disables eviction.
func New(tag string, budgetBytes int64) *Cache {
	return &Cache{
		tag:     tag,
		budget:  budgetBytes,
		entries: make(map[domain.CacheKey]*entry),
	}
}

// Tag returns the compatibility tag the cache was created for.
func (c *Cache) Tag() string { return c.tag }

// Hit is a terminal result observed for a key. Exactly one of Blob and Err
// is meaningful: Err is non-nil when the compile that owned the key failed.
// Blob is a read-only view owned by the cache; callers must not mutate it.
type Hit struct {
	Blob []byte
	Err  error
}

// Reservation is the obligation handed to the caller that caused a miss.
// The holder must call exactly one of Complete or Fail on every code path;
// abandoning a reservation leaves all waiters for its key blocked.
type Reservation struct {
	cache   *Cache
	entry   *entry
	settled atomic.Bool
}

// Key returns the key the reservation holds.
func (r *Reservation) Key() domain.CacheKey { return r.entry.key }

// FindOrReserve looks up key. Exactly one of hit and reservation is non-nil
// on success:
//
//   - absent key: a Compiling entry is created atomically and a Reservation
//     returned; the caller is now responsible for completing it.
//   - terminal entry: the stored result is returned immediately as a Hit.
//   - entry reserved by another caller: the call blocks until that
//     reservation settles, then returns the terminal result as a Hit.
//
// Cancelling ctx aborts only this caller's wait; the entry and its
// reservation are untouched.
func (c *Cache) FindOrReserve(ctx context.Context, key domain.CacheKey) (*Hit, *Reservation, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = newEntry(key)
		c.entries[key] = e
		c.order = append(c.order, e)
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, &Reservation{cache: c, entry: e}, nil
	}
	c.mu.Unlock()

	e.waiters.Add(1)
	defer e.waiters.Add(-1)
	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}

	c.hits.Add(1)
	if e.state == stateUnavailable {
		return &Hit{Err: e.cause}, nil, nil
	}
	return &Hit{Blob: e.blob}, nil, nil
}

// Complete transitions the reserved entry to Ready, stores the blob and
// wakes every waiter. The blob is copied in; the caller keeps ownership of
// its slice. Completing a reservation twice is a caller defect and panics.
func (r *Reservation) Complete(blob []byte) {
	e := r.entry
	r.settle()
	e.blob = append([]byte(nil), blob...)
	e.state = stateReady
	close(e.done)
	r.cache.accountAndEvict(int64(len(e.blob)))
}

// Fail transitions the reserved entry to Unavailable and wakes every
// waiter. The failure stays visible for this entry's lifetime so repeated
// lookups do not retry a compile known to fail, but a fresh cache or an
// eviction makes the key a plain miss again. A nil cause is recorded as
// the generic compile failure.
func (r *Reservation) Fail(cause error) {
	if cause == nil {
		cause = domain.ErrCompileFailed
	}
	e := r.entry
	r.settle()
	e.cause = cause
	e.state = stateUnavailable
	close(e.done)
	r.cache.accountAndEvict(0)
}

func (r *Reservation) settle() {
	if !r.settled.CompareAndSwap(false, true) {
		panic("shadercache: reservation for key " + r.entry.key.String() + " completed twice")
	}
}

// accountAndEvict records newly stored blob bytes and sweeps the table back
// under budget. Terminal entries are evicted oldest-insertion-first; a
// Compiling entry is never a candidate. Evicting is plain removal: a later
// lookup for the key misses and recompiles.
func (c *Cache) accountAndEvict(added int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalBytes += added
	if c.budget <= 0 {
		return
	}
	for c.totalBytes > c.budget {
		evicted := false
		for i, e := range c.order {
			if e == nil || !e.terminal() {
				continue
			}
			c.totalBytes -= int64(len(e.blob))
			delete(c.entries, e.key)
			c.order[i] = nil
			evicted = true
			break
		}
		if !evicted {
			// Everything left is still compiling.
			return
		}
	}
	c.compactOrderLocked()
}

// compactOrderLocked drops eviction holes once they dominate the slice.
func (c *Cache) compactOrderLocked() {
	if len(c.order) < 2*len(c.entries)+8 {
		return
	}
	kept := c.order[:0]
	for _, e := range c.order {
		if e != nil {
			kept = append(kept, e)
		}
	}
	c.order = kept
}

// Len returns the number of resident entries, including in-flight ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// SizeBytes returns the cumulative Ready blob bytes currently resident.
func (c *Cache) SizeBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalBytes
}

// Stats returns the hit and miss counts since the cache was created.
// A waiter that observes another caller's result counts as a hit.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
