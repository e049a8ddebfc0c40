// Package reconcile implements C7: deciding whether the manifest's direct
// dependencies are still satisfied by a previously locked graph.
package reconcile

import (
	"github.com/Masterminds/semver/v3"

	"github.com/minpm/minpm/internal/depgraph"
	"github.com/minpm/minpm/internal/identifier"
)

// Changed reports whether the locked graph g no longer matches the manifest
// dependencies m (name -> range). Only the direct surface of g is checked;
// transitive nodes are trusted as consistent because they came from a prior
// successful build (the accepted "rebuild everything on any direct change"
// simplification).
func Changed(m map[string]string, g *depgraph.Graph) bool {
	direct := directVersions(g)

	for name, rng := range m {
		exact, ok := direct[name]
		if !ok {
			return true
		}
		satisfies, err := rangeSatisfied(rng, exact)
		if err != nil || !satisfies {
			return true
		}
	}

	for name := range direct {
		if _, ok := m[name]; !ok {
			return true
		}
	}

	return false
}

// directVersions projects g to { name -> exactVersion } over nodes where
// IsDirectDependency is true.
func directVersions(g *depgraph.Graph) map[string]string {
	out := make(map[string]string)
	for id, node := range g.Nodes {
		if !node.IsDirectDependency {
			continue
		}
		name, exact, err := identifier.Parse(id)
		if err != nil {
			continue
		}
		out[name] = exact
	}
	return out
}

func rangeSatisfied(rangeOrTag, exactVersion string) (bool, error) {
	v, err := semver.NewVersion(exactVersion)
	if err != nil {
		return false, err
	}
	if rangeOrTag == "latest" {
		// A locked exact version can never be re-verified as "latest"
		// without a registry round trip; treat any dist-tag-style range as
		// unsatisfied so the graph gets rebuilt and re-resolved.
		return false, nil
	}
	constraint, err := semver.NewConstraint(rangeOrTag)
	if err != nil {
		return false, err
	}
	return constraint.Check(v), nil
}
