// Package cleanup implements C9: removing top-level package-directory entries
// that are no longer present in the final graph, so that e.g. a dropped
// transitive dependency doesn't linger orphaned on disk.
package cleanup

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/minpm/minpm/internal/depgraph"
	"github.com/minpm/minpm/internal/identifier"
	"github.com/minpm/minpm/internal/pkgerr"
)

// Run reads the top-level entries of moduleRoot and recursively deletes any
// entry not present in the set of expected first-path-components derived
// from g. Scope directories (e.g. "@scope") are additionally swept one level
// deeper, so a package dropped from a surviving scope is also removed.
// A missing moduleRoot is treated as already clean.
func Run(moduleRoot string, g *depgraph.Graph) error {
	expectedTop, expectedScoped := expectedEntries(g)

	entries, err := os.ReadDir(moduleRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &pkgerr.FilesystemError{Path: moduleRoot, Err: err}
	}

	for _, entry := range entries {
		name := entry.Name()
		if !expectedTop[name] {
			path := filepath.Join(moduleRoot, name)
			if err := os.RemoveAll(path); err != nil {
				return &pkgerr.FilesystemError{Path: path, Err: err}
			}
			continue
		}
		if strings.HasPrefix(name, "@") {
			if err := sweepScope(moduleRoot, name, expectedScoped); err != nil {
				return err
			}
		}
	}
	return nil
}

func sweepScope(moduleRoot, scope string, expectedScoped map[string]bool) error {
	scopeDir := filepath.Join(moduleRoot, scope)
	entries, err := os.ReadDir(scopeDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &pkgerr.FilesystemError{Path: scopeDir, Err: err}
	}
	for _, entry := range entries {
		full := scope + "/" + entry.Name()
		if expectedScoped[full] {
			continue
		}
		path := filepath.Join(scopeDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return &pkgerr.FilesystemError{Path: path, Err: err}
		}
	}
	return nil
}

// expectedEntries computes (a) the expected top-level directory names — a
// scope directory for scoped names, or the bare name otherwise — and (b) the
// expected full "@scope/name" paths, used to sweep inside a surviving scope
// directory.
func expectedEntries(g *depgraph.Graph) (top, scoped map[string]bool) {
	top = make(map[string]bool)
	scoped = make(map[string]bool)
	for id := range g.Nodes {
		name, _, err := identifier.Parse(id)
		if err != nil {
			continue
		}
		top[identifier.FirstPathComponent(name)] = true
		if identifier.IsScoped(name) {
			scoped[name] = true
		}
	}
	return top, scoped
}
