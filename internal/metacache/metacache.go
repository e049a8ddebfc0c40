// Package metacache implements C2: two bounded, process-local LRU caches —
// (name, range) -> exactVersion, and (name, exactVersion) -> PackageMetadata.
// Entries are immutable once cached (the registry publishes immutable
// version manifests) so eviction never needs invalidation, only recency.
package metacache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/minpm/minpm/internal/registry"
)

// DefaultCapacity is the default bound for both caches (spec §4.2: "default capacity 500").
const DefaultCapacity = 500

// VersionKey identifies a memoized version-resolution lookup.
type VersionKey struct {
	Name       string
	RangeOrTag string
}

// Caches bundles the two LRUs the version resolver and graph builder share.
type Caches struct {
	versions *lru.Cache[VersionKey, string]
	metadata *lru.Cache[string, *registry.VersionMetadata]
}

// New creates both caches with the given capacity (pass DefaultCapacity in production).
func New(capacity int) *Caches {
	versions, err := lru.New[VersionKey, string](capacity)
	if err != nil {
		// Only returns an error for non-positive size; DefaultCapacity is a
		// package constant, and callers passing their own value get a
		// deterministic panic rather than a silently-disabled cache.
		panic(err)
	}
	metadata, err := lru.New[string, *registry.VersionMetadata](capacity)
	if err != nil {
		panic(err)
	}
	return &Caches{versions: versions, metadata: metadata}
}

// GetVersion returns a memoized (name, rangeOrTag) -> exactVersion resolution.
func (c *Caches) GetVersion(name, rangeOrTag string) (string, bool) {
	return c.versions.Get(VersionKey{Name: name, RangeOrTag: rangeOrTag})
}

// PutVersion memoizes a (name, rangeOrTag) -> exactVersion resolution.
func (c *Caches) PutVersion(name, rangeOrTag, exactVersion string) {
	c.versions.Add(VersionKey{Name: name, RangeOrTag: rangeOrTag}, exactVersion)
}

// GetMetadata returns a cached PackageMetadata for (name, exactVersion).
func (c *Caches) GetMetadata(name, exactVersion string) (*registry.VersionMetadata, bool) {
	return c.metadata.Get(name + "@" + exactVersion)
}

// PutMetadata caches PackageMetadata for (name, exactVersion).
func (c *Caches) PutMetadata(name, exactVersion string, meta *registry.VersionMetadata) {
	c.metadata.Add(name+"@"+exactVersion, meta)
}
