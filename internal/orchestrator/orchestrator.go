// Package orchestrator implements C10: the install use case composing the
// reconciler, graph builder, installer, cleanup, and lock store.
package orchestrator

import (
	"context"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/minpm/minpm/internal/cleanup"
	"github.com/minpm/minpm/internal/contentcache"
	"github.com/minpm/minpm/internal/depgraph"
	"github.com/minpm/minpm/internal/identifier"
	"github.com/minpm/minpm/internal/install"
	"github.com/minpm/minpm/internal/lockfile"
	"github.com/minpm/minpm/internal/manifest"
	"github.com/minpm/minpm/internal/metacache"
	"github.com/minpm/minpm/internal/pkgerr"
	"github.com/minpm/minpm/internal/reconcile"
	"github.com/minpm/minpm/internal/registry"
	"github.com/minpm/minpm/internal/resolver"
)

// Layout names the filesystem roots an install run operates under.
type Layout struct {
	OutputRoot string // directory containing package.json and package-lock.json
	ModuleRoot string // node_modules
	CacheRoot  string // .cache
}

// DefaultLayout derives the conventional three roots from an output directory.
func DefaultLayout(outputRoot string) Layout {
	return Layout{
		OutputRoot: outputRoot,
		ModuleRoot: filepath.Join(outputRoot, "node_modules"),
		CacheRoot:  filepath.Join(outputRoot, ".cache"),
	}
}

// Options configures one Install run.
type Options struct {
	Offline bool // read tarballs only from the content cache; a cache miss is fatal (registry metadata is still fetched when the graph is rebuilt)
	Tree    bool // render a dependency tree diagnostic to stdout after install

	// Client overrides the registry client; nil uses the production
	// registry.DefaultBaseURL. Exists for tests to point at a fake registry.
	Client *registry.Client
}

// Install runs the §4.9 sequence: ensure roots, read the manifest, reconcile
// against any existing lock, rebuild the graph if needed, install, clean up,
// and write the lock file.
func Install(ctx context.Context, layout Layout, opts Options, log *logrus.Entry) error {
	for _, dir := range []string{layout.OutputRoot, layout.ModuleRoot, layout.CacheRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &pkgerr.FilesystemError{Path: dir, Err: err}
		}
	}

	manifestPath := filepath.Join(layout.OutputRoot, manifest.DefaultFilename)
	m, err := manifest.Read(manifestPath)
	if err != nil {
		return err
	}

	lockPath := filepath.Join(layout.OutputRoot, lockfile.DefaultPath)
	locked, havelock, err := lockfile.Read(lockPath)
	if err != nil {
		return err
	}

	cache := contentcache.New(layout.CacheRoot)
	client := opts.Client
	if client == nil {
		client = registry.New(registry.DefaultBaseURL, registry.DefaultTimeout)
	}

	if havelock && !reconcile.Changed(m.Dependencies, locked) {
		logInfo(log, "lock file satisfies manifest, reusing %s", lockPath)
		in := install.New(layout.ModuleRoot, cache, client, opts.Offline, log)
		if err := in.Install(ctx, locked); err != nil {
			return err
		}
		if err := cleanup.Run(layout.ModuleRoot, locked); err != nil {
			return err
		}
		if opts.Tree {
			printTree(locked, m)
		}
		return nil
	}

	logInfo(log, "rebuilding dependency graph")
	caches := metacache.New(metacache.DefaultCapacity)
	res := resolver.New(client, caches)
	builder := depgraph.NewBuilder(res)

	g := depgraph.New()
	for name, rangeOrTag := range m.Dependencies {
		if err := builder.BuildDirect(ctx, g, name, rangeOrTag); err != nil {
			return err
		}
	}

	in := install.New(layout.ModuleRoot, cache, client, opts.Offline, log)
	if err := in.Install(ctx, g); err != nil {
		return err
	}
	if err := cleanup.Run(layout.ModuleRoot, g); err != nil {
		return err
	}
	if err := lockfile.Write(lockPath, g); err != nil {
		return err
	}
	if opts.Tree {
		printTree(g, m)
	}
	return nil
}

func printTree(g *depgraph.Graph, m *manifest.Manifest) {
	roots := make([]string, 0, len(m.Dependencies))
	for id, node := range g.Nodes {
		if !node.IsDirectDependency {
			continue
		}
		name, _, err := identifier.Parse(id)
		if err != nil {
			continue
		}
		if _, ok := m.Dependencies[name]; ok {
			roots = append(roots, id)
		}
	}
	os.Stdout.WriteString(depgraph.Render(g, roots))
}

func logInfo(log *logrus.Entry, format string, args ...interface{}) {
	if log == nil {
		return
	}
	log.Infof(format, args...)
}
