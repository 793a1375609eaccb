// Package cache defines the durable result cache consumed by the lookup
// engine. Any store with atomic upsert on the (package_name, version)
// unique key qualifies; the engine never depends on a concrete backend.
package cache

import "github.com/fleetscan/fleetscan-backend/model"

// Store persists lookup results keyed by (package name, version). An
// absent version is stored as the empty string and is a distinct, valid
// key; it must never be conflated with versioned entries for the same
// name.
type Store interface {
	// IsFresh reports whether an entry exists for the key and is younger
	// than the store's freshness window.
	IsFresh(name, version string) bool

	// Get returns the entry for the key, or nil when none exists.
	Get(name, version string) (*model.CacheEntry, error)

	// Put atomically inserts or replaces the entry for its key. A prior
	// entry is replaced entirely; no reader may observe a partial write.
	Put(entry *model.CacheEntry) error

	// Invalidate removes all entries for the package name regardless of
	// version. Used when an external actor renames a package's canonical
	// identity.
	Invalidate(name string) error
}
