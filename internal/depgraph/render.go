package depgraph

import (
	"fmt"
	"strings"

	"github.com/minpm/minpm/internal/identifier"
)

// Render draws a box-drawing tree of graph starting at each of roots
// (the manifest's direct identifiers), recursing through Dependencies.
// Shared subgraphs are rendered once per reference path, since the graph
// itself is not a tree; cycles are cut by the set of ancestors on the path.
func Render(g *Graph, roots []string) string {
	var b strings.Builder
	for i, root := range roots {
		renderNode(&b, g, root, "", i == len(roots)-1, map[string]bool{})
	}
	return b.String()
}

func renderNode(b *strings.Builder, g *Graph, id, prefix string, last bool, ancestors map[string]bool) {
	connector := "├── "
	childPrefix := prefix + "│   "
	if last {
		connector = "└── "
		childPrefix = prefix + "    "
	}

	name, version, err := identifier.Parse(id)
	if err != nil {
		name, version = id, ""
	}
	if version != "" {
		fmt.Fprintf(b, "%s%s%s@%s\n", prefix, connector, name, version)
	} else {
		fmt.Fprintf(b, "%s%s%s\n", prefix, connector, name)
	}

	if ancestors[id] {
		fmt.Fprintf(b, "%s(cycle)\n", childPrefix)
		return
	}
	node, ok := g.Nodes[id]
	if !ok || len(node.Dependencies) == 0 {
		return
	}

	nextAncestors := make(map[string]bool, len(ancestors)+1)
	for k := range ancestors {
		nextAncestors[k] = true
	}
	nextAncestors[id] = true

	for i, childID := range node.Dependencies {
		renderNode(b, g, childID, childPrefix, i == len(node.Dependencies)-1, nextAncestors)
	}
}
