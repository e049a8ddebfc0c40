// Package contentcache implements C5: a flat on-disk store of tarballs keyed
// by filename, read before network and written after successful integrity
// verification.
package contentcache

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/minpm/minpm/internal/identifier"
	"github.com/minpm/minpm/internal/pkgerr"
)

// Cache roots a flat directory of {name-with-slash-to-dash}-{version}.tgz files.
type Cache struct {
	root string
}

// New returns a Cache rooted at dir. The directory is not created until Write
// is first called.
func New(dir string) *Cache {
	return &Cache{root: dir}
}

// Path returns the on-disk path a tarball for (name, exactVersion) would live at.
func (c *Cache) Path(name, exactVersion string) string {
	return filepath.Join(c.root, identifier.CacheFilename(name, exactVersion))
}

// Read returns the cached tarball bytes for (name, exactVersion), and false if
// absent. A missing file is not an error; any other read failure is a
// FilesystemError.
func (c *Cache) Read(name, exactVersion string) ([]byte, bool, error) {
	path := c.Path(name, exactVersion)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, &pkgerr.FilesystemError{Path: path, Err: err}
	}
	return data, true, nil
}

// Write persists data for (name, exactVersion), writing to a temp file in the
// same directory and renaming into place so a partial write is never
// observable at the final path.
func (c *Cache) Write(name, exactVersion string, data []byte) error {
	if err := os.MkdirAll(c.root, 0o755); err != nil {
		return &pkgerr.FilesystemError{Path: c.root, Err: err}
	}

	dest := c.Path(name, exactVersion)
	tmp, err := os.CreateTemp(c.root, ".tmp-*")
	if err != nil {
		return &pkgerr.FilesystemError{Path: c.root, Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &pkgerr.FilesystemError{Path: tmpPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &pkgerr.FilesystemError{Path: tmpPath, Err: err}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return &pkgerr.FilesystemError{Path: dest, Err: errors.Wrap(err, "renaming into cache")}
	}
	return nil
}

// Delete removes a cache entry, e.g. after it fails integrity verification.
// Deleting an already-absent entry is not an error.
func (c *Cache) Delete(name, exactVersion string) error {
	path := c.Path(name, exactVersion)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &pkgerr.FilesystemError{Path: path, Err: err}
	}
	return nil
}
