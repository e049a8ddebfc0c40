// Package manifest reads the external package.json file: a mapping from
// package name to version range string. No other field is consumed.
package manifest

import (
	"encoding/json"
	"os"

	"github.com/minpm/minpm/internal/pkgerr"
)

// DefaultFilename is the conventional manifest name under the output root.
const DefaultFilename = "package.json"

// Manifest is the reduced view of package.json this tool consumes.
type Manifest struct {
	Dependencies map[string]string `json:"dependencies"`
}

// Read parses path, failing with a ManifestError if it is absent or
// unparseable (§7: "Manifest-missing").
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &pkgerr.ManifestError{Path: path, Err: err}
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &pkgerr.ManifestError{Path: path, Err: err}
	}
	if m.Dependencies == nil {
		m.Dependencies = make(map[string]string)
	}
	return &m, nil
}

// Add records name -> rangeOrTag in the manifest at path, overwriting any
// existing entry for name, and writes the file back pretty-printed. This is
// the minimal "add" mutation; package.json fields this tool does not
// otherwise consume are preserved by round-tripping through a generic map
// rather than the reduced Manifest struct.
func Add(path, name, rangeOrTag string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &pkgerr.ManifestError{Path: path, Err: err}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return &pkgerr.ManifestError{Path: path, Err: err}
	}

	deps := make(map[string]string)
	if depsRaw, ok := raw["dependencies"]; ok {
		if err := json.Unmarshal(depsRaw, &deps); err != nil {
			return &pkgerr.ManifestError{Path: path, Err: err}
		}
	}
	deps[name] = rangeOrTag

	depsJSON, err := json.Marshal(deps)
	if err != nil {
		return &pkgerr.ManifestError{Path: path, Err: err}
	}
	raw["dependencies"] = depsJSON

	out, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return &pkgerr.ManifestError{Path: path, Err: err}
	}
	out = append(out, '\n')

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return &pkgerr.ManifestError{Path: path, Err: err}
	}
	return nil
}
