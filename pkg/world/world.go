// Package world holds the atomically-swapped bundle of descriptors,
// rules, and validators that every call reads exactly once at entry.
//
// This replaces the debounced mutable store pattern used elsewhere in
// this codebase's lineage: a World is never mutated after construction,
// only replaced wholesale.
package world

import (
	"sync/atomic"

	"github.com/wishmock/wishmock/pkg/rules"
	"github.com/wishmock/wishmock/pkg/schema"
	"github.com/wishmock/wishmock/pkg/validation"
)

// World is the immutable snapshot pinned for the lifetime of one call.
type World struct {
	Descriptor *schema.Descriptor
	Rules      *rules.Store
	Validators *validation.Registry
	// Generation increases by one on every successful publish; useful
	// for idempotent-reload comparisons and diagnostics.
	Generation uint64
}

// Registry holds the current World behind a single atomic pointer.
type Registry struct {
	ptr atomic.Pointer[World]
}

// NewRegistry builds a Registry pre-populated with an initial world.
func NewRegistry(initial *World) *Registry {
	r := &Registry{}
	r.ptr.Store(initial)
	return r
}

// Current returns the World pinned for a new call. Callers must not
// retain it across reloads if they want to observe a later snapshot;
// in-flight calls are expected to hold onto the returned pointer for
// their entire lifetime.
func (r *Registry) Current() *World {
	return r.ptr.Load()
}

// Swap atomically replaces the current World and returns the previous
// one (nil on first publish). Swap never blocks readers: Current()
// always returns either the pre- or post-swap pointer, never a partial
// state.
func (r *Registry) Swap(next *World) *World {
	return r.ptr.Swap(next)
}
