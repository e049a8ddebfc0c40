// Package resolver implements C3: resolving a (name, rangeOrTag) pair to an
// exact, registry-published version string.
package resolver

import (
	"context"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"

	"github.com/minpm/minpm/internal/metacache"
	"github.com/minpm/minpm/internal/pkgerr"
	"github.com/minpm/minpm/internal/registry"
)

// Resolver turns version ranges into exact versions against the registry,
// memoizing by the input (name, rangeOrTag) pair in the shared caches.
type Resolver struct {
	client *registry.Client
	caches *metacache.Caches
}

// New builds a Resolver over the given registry client and metadata caches.
func New(client *registry.Client, caches *metacache.Caches) *Resolver {
	return &Resolver{client: client, caches: caches}
}

// Resolve returns the greatest published version of name satisfying
// rangeOrTag. The literal tag "latest", or any other published dist-tag
// name, resolves verbatim via the registry's dist-tags map; anything else is
// interpreted as a semver range against the package's published versions.
func (r *Resolver) Resolve(ctx context.Context, name, rangeOrTag string) (string, error) {
	if v, ok := r.caches.GetVersion(name, rangeOrTag); ok {
		return v, nil
	}

	doc, err := r.client.PackageDocument(ctx, name)
	if err != nil {
		return "", err
	}

	if tag, ok := doc.DistTags[rangeOrTag]; ok {
		r.caches.PutVersion(name, rangeOrTag, tag)
		return tag, nil
	}

	exact, err := matchRange(name, rangeOrTag, doc.Versions)
	if err != nil {
		return "", err
	}

	r.caches.PutVersion(name, rangeOrTag, exact)
	return exact, nil
}

// Metadata returns the VersionMetadata for (name, exactVersion), fetching
// from the registry on a cache miss.
func (r *Resolver) Metadata(ctx context.Context, name, exactVersion string) (*registry.VersionMetadata, error) {
	if m, ok := r.caches.GetMetadata(name, exactVersion); ok {
		return m, nil
	}
	meta, err := r.client.VersionMetadata(ctx, name, exactVersion)
	if err != nil {
		return nil, err
	}
	r.caches.PutMetadata(name, exactVersion, meta)
	return meta, nil
}

// matchRange selects the greatest key of versions that satisfies rangeOrTag
// under semver range grammar. Prereleases are excluded unless the range
// itself names a prerelease tag (the standard "greatest satisfying" rule).
func matchRange(name, rangeOrTag string, versions map[string]registry.VersionMetadata) (string, error) {
	constraint, err := semver.NewConstraint(rangeOrTag)
	if err != nil {
		return "", errors.Wrapf(err, "parsing range %q for %s", rangeOrTag, name)
	}

	wantsPrerelease := hasPrereleaseTag(rangeOrTag)

	var candidates []*semver.Version
	for raw := range versions {
		v, err := semver.NewVersion(raw)
		if err != nil {
			continue // skip unparseable version keys rather than abort resolution
		}
		if v.Prerelease() != "" && !wantsPrerelease {
			continue
		}
		if constraint.Check(v) {
			candidates = append(candidates, v)
		}
	}

	if len(candidates) == 0 {
		return "", &pkgerr.ResolutionError{Name: name, Range: rangeOrTag}
	}

	sort.Sort(semver.Collection(candidates))
	return candidates[len(candidates)-1].Original(), nil
}

func hasPrereleaseTag(rangeOrTag string) bool {
	fields := strings.FieldsFunc(rangeOrTag, func(r rune) bool {
		return r == ' ' || r == ',' || r == '|'
	})
	for _, field := range fields {
		v, err := semver.NewVersion(strings.TrimLeft(field, "^~<>=!"))
		if err == nil && v.Prerelease() != "" {
			return true
		}
	}
	return false
}
