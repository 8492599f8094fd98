package shadercache

import (
	"sync"
	"sync/atomic"

	"go.trai.ch/shade/internal/core/ports"
	"go.trai.ch/zerr"
)

// Options configures the caches a Manager hands out.
type Options struct {
	// BudgetBytes caps cumulative Ready blob bytes per cache. Zero
	// disables eviction.
	BudgetBytes int64
}

// Manager is the process-wide registry of shared caches, one per
// compatibility tag, so unrelated compiles for the same device family share
// one cache instead of each allocating its own. It is an explicitly
// constructed object injected into each compiler context, never ambient
// state: tests build isolated managers freely.
//
// Manager is safe for concurrent use.
type Manager struct {
	images ports.ImageStore // nil disables persistence
	logger ports.Logger
	opts   Options

	mu     sync.Mutex
	caches map[string]*managedCache
}

type managedCache struct {
	cache *Cache
	refs  int
}

// NewManager creates a registry. images may be nil, in which case caches
// live only for the process lifetime.
func NewManager(images ports.ImageStore, logger ports.Logger, opts Options) *Manager {
	return &Manager{
		images: images,
		logger: logger,
		opts:   opts,
		caches: make(map[string]*managedCache),
	}
}

// Handle is a shared, reference-counted grant on a cache. Callers release
// it when their compiler context ends; the manager persists and drops the
// cache when the last holder releases.
type Handle struct {
	manager  *Manager
	cache    *Cache
	released atomic.Bool
}

// Cache returns the shared cache the handle grants access to.
func (h *Handle) Cache() *Cache { return h.cache }

// Release returns the grant. On the last release for a tag the cache is
// persisted (best effort) and removed from the registry. Releasing a handle
// twice is a caller defect and panics.
func (h *Handle) Release() {
	if !h.released.CompareAndSwap(false, true) {
		panic("shadercache: handle for tag " + h.cache.Tag() + " released twice")
	}
	h.manager.release(h.cache.Tag())
}

// Acquire returns the shared cache for the compatibility tag, creating and
// registering it on first use. A new cache is seeded from the persisted
// image for its tag when one exists; a failed or foreign load degrades to
// an empty cache, never an error.
func (m *Manager) Acquire(tag string) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mc, ok := m.caches[tag]; ok {
		mc.refs++
		return &Handle{manager: m, cache: mc.cache}
	}

	cache := New(tag, m.opts.BudgetBytes)
	m.seed(cache)
	m.caches[tag] = &managedCache{cache: cache, refs: 1}
	return &Handle{manager: m, cache: cache}
}

func (m *Manager) seed(cache *Cache) {
	if m.images == nil {
		return
	}
	data, err := m.images.Load(cache.Tag())
	if err != nil {
		m.logger.Error(zerr.Wrap(err, "cache image load failed, starting cold"))
		return
	}
	if len(data) == 0 {
		return
	}
	if n := cache.ImportImage(data); n > 0 {
		m.logger.Info("seeded shader cache", "tag", cache.Tag(), "entries", n)
	}
}

func (m *Manager) release(tag string) {
	m.mu.Lock()
	mc, ok := m.caches[tag]
	if !ok {
		m.mu.Unlock()
		return
	}
	mc.refs--
	if mc.refs > 0 {
		m.mu.Unlock()
		return
	}
	delete(m.caches, tag)
	m.mu.Unlock()

	// Persist outside the registry lock; export snapshots on its own.
	if m.images == nil {
		return
	}
	if err := m.images.Save(tag, mc.cache.ExportImage()); err != nil {
		m.logger.Error(zerr.Wrap(err, "cache image save failed, results not persisted"))
	}
}
