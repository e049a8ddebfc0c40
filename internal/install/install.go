// Package install implements C8: walking a closed DependencyGraph in
// post-order, materializing each node into the package directory after
// integrity verification.
package install

import (
	"context"
	"crypto/sha1"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"hash"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/minpm/minpm/internal/contentcache"
	"github.com/minpm/minpm/internal/depgraph"
	"github.com/minpm/minpm/internal/extract"
	"github.com/minpm/minpm/internal/identifier"
	"github.com/minpm/minpm/internal/pkgerr"
	"github.com/minpm/minpm/internal/registry"
)

// Installer materializes a DependencyGraph under moduleRoot, using cache as
// the tarball content cache and client for network fetches. offline, when
// true, turns a cache miss into a fatal FilesystemError rather than falling
// back to the network (the --offline supplemented install mode).
type Installer struct {
	moduleRoot string
	cache      *contentcache.Cache
	client     *registry.Client
	offline    bool
	log        *logrus.Entry

	mu        sync.Mutex
	installed map[string]bool
}

// New builds an Installer rooted at moduleRoot (conventionally node_modules).
func New(moduleRoot string, cache *contentcache.Cache, client *registry.Client, offline bool, log *logrus.Entry) *Installer {
	return &Installer{
		moduleRoot: moduleRoot,
		cache:      cache,
		client:     client,
		offline:    offline,
		log:        log,
		installed:  make(map[string]bool),
	}
}

// Install walks every identifier in g's graph to completion. Iteration order
// over the top-level set is unspecified; per-identifier post-order recursion
// guarantees every dependency is extracted before its dependents.
func (in *Installer) Install(ctx context.Context, g *depgraph.Graph) error {
	if err := detectFlatLayoutConflict(g); err != nil {
		return err
	}

	for id := range g.Nodes {
		if err := in.installOne(ctx, g, id); err != nil {
			return err
		}
	}
	return nil
}

// detectFlatLayoutConflict errors if the graph requires materializing two
// distinct exact versions of the same package name into the single flat
// directory that name owns (§3 invariant 6, §9's accepted policy (a): error
// on conflict rather than let "whichever installs last wins" silently
// overwrite).
func detectFlatLayoutConflict(g *depgraph.Graph) error {
	versionsByName := make(map[string][]string)
	for id := range g.Nodes {
		name, exactVersion, err := identifier.Parse(id)
		if err != nil {
			continue
		}
		versionsByName[name] = append(versionsByName[name], exactVersion)
	}

	for name, versions := range versionsByName {
		if len(versions) <= 1 {
			continue
		}
		distinct := make(map[string]bool)
		for _, v := range versions {
			distinct[v] = true
		}
		if len(distinct) > 1 {
			return &pkgerr.FilesystemError{
				Path: name,
				Err:  fmt.Errorf("flat layout conflict: %s required at multiple versions %v", name, versions),
			}
		}
	}
	return nil
}

func (in *Installer) installOne(ctx context.Context, g *depgraph.Graph, id string) error {
	in.mu.Lock()
	if in.installed[id] {
		in.mu.Unlock()
		return nil
	}
	in.mu.Unlock()

	node, ok := g.Nodes[id]
	if !ok {
		return &pkgerr.FilesystemError{Path: id, Err: fmt.Errorf("identifier not present in graph")}
	}

	for _, childID := range node.Dependencies {
		if err := in.installOne(ctx, g, childID); err != nil {
			return err
		}
	}

	name, exactVersion, err := identifier.Parse(id)
	if err != nil {
		return err
	}

	dir := in.packageDir(name)
	data, cached, err := in.acquireTarball(ctx, name, exactVersion, node.TarballURL)
	if err != nil {
		return err
	}

	if err := verifyIntegrity(id, node.Hash, data); err != nil {
		if cached {
			if derr := in.cache.Delete(name, exactVersion); derr != nil {
				in.logf("failed to remove corrupt cache entry for %s: %v", id, derr)
			}
		}
		return err
	}

	if !cached {
		if err := in.cache.Write(name, exactVersion, data); err != nil {
			return err
		}
	}

	if err := extract.TarGz(id, in.cache.Path(name, exactVersion), dir); err != nil {
		return err
	}

	in.mu.Lock()
	in.installed[id] = true
	in.mu.Unlock()
	in.logf("installed %s", id)
	return nil
}

func (in *Installer) packageDir(name string) string {
	if identifier.IsScoped(name) {
		parts := strings.SplitN(name, "/", 2)
		return filepath.Join(in.moduleRoot, parts[0], parts[1])
	}
	return filepath.Join(in.moduleRoot, name)
}

func (in *Installer) acquireTarball(ctx context.Context, name, exactVersion, tarballURL string) ([]byte, bool, error) {
	data, ok, err := in.cache.Read(name, exactVersion)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return data, true, nil
	}

	if in.offline {
		return nil, false, &pkgerr.FilesystemError{
			Path: in.cache.Path(name, exactVersion),
			Err:  fmt.Errorf("offline install: tarball for %s is not cached", identifier.Format(name, exactVersion)),
		}
	}

	resp, err := in.client.FetchTarball(ctx, tarballURL)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, &pkgerr.TransportError{URL: tarballURL, Err: err}
	}
	return body, false, nil
}

func (in *Installer) logf(format string, args ...interface{}) {
	if in.log == nil {
		return
	}
	in.log.Debugf(format, args...)
}

// verifyIntegrity splits the registry's "<algo>-<base64digest>" integrity
// string and compares it in constant time against the hash of data.
func verifyIntegrity(id, integrity string, data []byte) error {
	algo, expectedB64, ok := strings.Cut(integrity, "-")
	if !ok {
		return &pkgerr.IntegrityError{Identifier: id, Expected: integrity, Got: ""}
	}

	h, err := newHash(algo)
	if err != nil {
		return &pkgerr.IntegrityError{Identifier: id, Expected: integrity, Got: ""}
	}
	h.Write(data)
	gotB64 := base64.StdEncoding.EncodeToString(h.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(expectedB64), []byte(gotB64)) != 1 {
		return &pkgerr.IntegrityError{Identifier: id, Expected: integrity, Got: algo + "-" + gotB64}
	}
	return nil
}

func newHash(algo string) (hash.Hash, error) {
	switch algo {
	case "sha512":
		return sha512.New(), nil
	case "sha1":
		return sha1.New(), nil
	default:
		return nil, fmt.Errorf("unsupported integrity algorithm %q", algo)
	}
}
