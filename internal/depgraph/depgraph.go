// Package depgraph implements C4: the DFS closure over a manifest's direct
// dependencies, producing a flat DependencyGraph keyed by package identifier.
package depgraph

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/minpm/minpm/internal/identifier"
	"github.com/minpm/minpm/internal/resolver"
)

// maxConcurrentFetches bounds how many registry fetches a single Build call
// may have in flight at once, across child-range resolution and recursive
// descent (mirrors the teacher's own httpSemaphore sizing for downloads).
const maxConcurrentFetches = 64

// PackageNode is one entry of a DependencyGraph.
type PackageNode struct {
	Version            string   `json:"version"`
	TarballURL         string   `json:"tarballUrl"`
	Hash               string   `json:"hash"`
	IsDirectDependency bool     `json:"isDirectDependency"`
	Dependencies       []string `json:"dependencies"`
}

// Graph is a flat adjacency list keyed by package identifier (name@exactVersion).
// It is not a tree: shared subgraphs are shared, and two distinct exact
// versions of the same name may coexist as separate keys.
type Graph struct {
	mu    sync.Mutex
	Nodes map[string]*PackageNode
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{Nodes: make(map[string]*PackageNode)}
}

// Builder resolves child ranges and fetches metadata while constructing a Graph.
type Builder struct {
	resolver *resolver.Resolver
	sem      *semaphore.Weighted
}

// NewBuilder constructs a Builder over the given resolver.
func NewBuilder(r *resolver.Resolver) *Builder {
	return &Builder{resolver: r, sem: semaphore.NewWeighted(maxConcurrentFetches)}
}

// Build mutates graph with the transitive closure rooted at (name, exactVersion).
// direct marks whether this call originates from a manifest entry (as opposed
// to being reached only as someone else's dependency); isDirectDependency is a
// monotonic OR across every path that reaches a given identifier.
func (b *Builder) Build(ctx context.Context, g *Graph, name, exactVersion string, direct bool) error {
	id := identifier.Format(name, exactVersion)

	g.mu.Lock()
	if existing, ok := g.Nodes[id]; ok {
		existing.IsDirectDependency = existing.IsDirectDependency || direct
		g.mu.Unlock()
		return nil
	}
	// Reserve the slot before releasing the lock and recursing, so concurrent
	// callers racing on the same identifier short-circuit instead of both
	// doing the fetch-and-recurse work.
	placeholder := &PackageNode{IsDirectDependency: direct}
	g.Nodes[id] = placeholder
	g.mu.Unlock()

	if err := b.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	meta, err := b.resolver.Metadata(ctx, name, exactVersion)
	b.sem.Release(1)
	if err != nil {
		return err
	}

	// Resolve every child range concurrently (bounded by sem); a single
	// cache miss only serializes that one fetch, not its siblings.
	childIDs := make([]string, len(meta.Dependencies))
	childNames := make([]string, 0, len(meta.Dependencies))
	childRanges := make([]string, 0, len(meta.Dependencies))
	for childName, childRange := range meta.Dependencies {
		childNames = append(childNames, childName)
		childRanges = append(childRanges, childRange)
	}

	group, gctx := errgroup.WithContext(ctx)
	for i := range childNames {
		i := i
		group.Go(func() error {
			if err := b.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer b.sem.Release(1)
			childExact, err := b.resolver.Resolve(gctx, childNames[i], childRanges[i])
			if err != nil {
				return err
			}
			childIDs[i] = identifier.Format(childNames[i], childExact)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	g.mu.Lock()
	placeholder.Version = meta.Version
	placeholder.TarballURL = meta.Dist.Tarball
	placeholder.Hash = meta.Dist.Integrity
	placeholder.Dependencies = childIDs
	g.mu.Unlock()

	descend, dctx := errgroup.WithContext(ctx)
	for _, childID := range childIDs {
		childID := childID
		descend.Go(func() error {
			childName, childExact, err := identifier.Parse(childID)
			if err != nil {
				return err
			}
			return b.Build(dctx, g, childName, childExact, false)
		})
	}
	return descend.Wait()
}

// BuildDirect resolves rangeOrTag for name and builds its closure as a direct
// dependency — the orchestrator's top-level entry point per manifest entry.
func (b *Builder) BuildDirect(ctx context.Context, g *Graph, name, rangeOrTag string) error {
	exact, err := b.resolver.Resolve(ctx, name, rangeOrTag)
	if err != nil {
		return err
	}
	return b.Build(ctx, g, name, exact, true)
}
