// Package shadercache implements the shader result cache: a concurrent,
// content-addressed table of compiled shader binaries that makes
// compilation idempotent and shareable across callers and process runs.
package shadercache

import (
	"sync/atomic"

	"go.trai.ch/shade/internal/core/domain"
)

// entryState is the lifecycle position of a cache entry.
type entryState uint8

const (
	// stateCompiling is the initial state: the slot is reserved by the
	// caller that caused the miss and a result is on its way.
	stateCompiling entryState = iota
	// stateReady is terminal: the compiled blob is available.
	stateReady
	// stateUnavailable is terminal: compilation for this key produced no
	// usable output.
	stateUnavailable
)

// entry is one cached result. It is owned exclusively by the Cache that
// created it; waiters only ever see it through the done channel, after
// which blob, cause and state are immutable.
type entry struct {
	key domain.CacheKey

	// done is closed exactly once, on the single transition out of
	// stateCompiling. blob, cause and state are written strictly before
	// the close, so any reader that has observed done closed may read
	// them without further synchronization.
	done  chan struct{}
	blob  []byte
	cause error
	state entryState

	// waiters counts callers currently blocked on this entry.
	waiters atomic.Int32
}

func newEntry(key domain.CacheKey) *entry {
	return &entry{
		key:  key,
		done: make(chan struct{}),
	}
}

// terminal reports whether the entry has left stateCompiling. It never
// blocks, so table sweeps (export, eviction) can classify entries while a
// reservation is still in flight.
func (e *entry) terminal() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}
