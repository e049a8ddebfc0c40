// Package lockfile implements C6: serializing and deserializing a full
// DependencyGraph as canonical, pretty-printed JSON.
package lockfile

import (
	"encoding/json"
	"os"

	"github.com/minpm/minpm/internal/depgraph"
	"github.com/minpm/minpm/internal/pkgerr"
)

// DefaultPath is the conventional lock file name under the output root.
const DefaultPath = "package-lock.json"

// Write serializes g as pretty-printed, 2-space-indented JSON to path,
// replacing any existing file. Identifiers are written in the sorted key
// order encoding/json uses for maps; insertion order is not preserved.
func Write(path string, g *depgraph.Graph) error {
	data, err := json.MarshalIndent(g.Nodes, "", "  ")
	if err != nil {
		return &pkgerr.FilesystemError{Path: path, Err: err}
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &pkgerr.FilesystemError{Path: path, Err: err}
	}
	return nil
}

// Read parses path into a Graph. A missing file is reported via the second
// return value rather than an error.
func Read(path string) (*depgraph.Graph, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, &pkgerr.FilesystemError{Path: path, Err: err}
	}

	nodes := make(map[string]*depgraph.PackageNode)
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, false, &pkgerr.FilesystemError{Path: path, Err: err}
	}
	return &depgraph.Graph{Nodes: nodes}, true, nil
}
