// Package identifier implements the package-identifier grammar: a package
// identifier is name + "@" + exactVersion,
// parsed by locating the LAST '@' so that scoped names (@scope/name@1.2.3)
// remain unambiguous.
package identifier

import (
	"fmt"
	"strings"
)

// Format joins a package name and an exact version into a package identifier.
func Format(name, version string) string {
	return name + "@" + version
}

// Parse splits a package identifier into its name and exact version by
// locating the last '@'. The '@' at index 0 (the start of a scope) is never
// treated as the separator.
func Parse(id string) (name, version string, err error) {
	idx := strings.LastIndex(id, "@")
	if idx <= 0 {
		return "", "", fmt.Errorf("invalid package identifier %q: missing version separator", id)
	}
	name, version = id[:idx], id[idx+1:]
	if name == "" || version == "" {
		return "", "", fmt.Errorf("invalid package identifier %q: empty name or version", id)
	}
	return name, version, nil
}

// IsScoped reports whether a package name has the form @scope/name.
func IsScoped(name string) bool {
	return strings.HasPrefix(name, "@") && strings.Contains(name, "/")
}

// ParseSpec splits a CLI-style "name" or "name@rangeOrTag" argument into a
// name and a range, defaulting the range to "latest" when absent. Used by
// the `add` operation (an external collaborator per spec scope) and kept
// deliberately minimal.
func ParseSpec(spec string) (name, rangeOrTag string) {
	idx := strings.LastIndex(spec, "@")
	if idx <= 0 {
		return spec, "latest"
	}
	return spec[:idx], spec[idx+1:]
}

// CacheFilename derives the flat, collision-free-enough on-disk filename
// for a package's tarball in the content cache (§4.5): '/' is flattened to
// '-' and the exact version is appended.
func CacheFilename(name, version string) string {
	flat := strings.ReplaceAll(name, "/", "-")
	return fmt.Sprintf("%s-%s.tgz", flat, version)
}

// FirstPathComponent returns the top-level node_modules entry a package
// name materializes under: the scope directory for scoped names, or the
// bare name otherwise. Used by cleanup (§4.8).
func FirstPathComponent(name string) string {
	if IsScoped(name) {
		return strings.SplitN(name, "/", 2)[0]
	}
	return name
}
