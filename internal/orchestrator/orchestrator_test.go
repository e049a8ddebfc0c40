package orchestrator

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha512"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minpm/minpm/internal/lockfile"
	"github.com/minpm/minpm/internal/registry"
)

func buildFixtureTarball(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	body := "module.exports = 1;\n"
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "package/index.js", Mode: 0o644, Size: int64(len(body))}))
	_, err := tw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func sha512Integrity(data []byte) string {
	sum := sha512.Sum512(data)
	return "sha512-" + base64.StdEncoding.EncodeToString(sum[:])
}

// TestColdInstallOneDependency exercises the S1 scenario end to end against a
// fake registry and a real system tar extractor.
func TestColdInstallOneDependency(t *testing.T) {
	if _, err := exec.LookPath("tar"); err != nil {
		t.Skip("system tar binary not available")
	}

	tarballBytes := buildFixtureTarball(t)
	integrity := sha512Integrity(tarballBytes)

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/is-thirteen", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"is-thirteen","dist-tags":{"latest":"2.0.0"},"versions":{"2.0.0":{"version":"2.0.0","dist":{"tarball":"` + srv.URL + `/is-thirteen.tgz","integrity":"` + integrity + `"},"dependencies":{}}}}`))
	})
	mux.HandleFunc("/is-thirteen.tgz", func(w http.ResponseWriter, r *http.Request) {
		w.Write(tarballBytes)
	})
	mux.HandleFunc("/is-thirteen/2.0.0", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version":"2.0.0","dist":{"tarball":"` + srv.URL + `/is-thirteen.tgz","integrity":"` + integrity + `"},"dependencies":{}}`))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"),
		[]byte(`{"dependencies":{"is-thirteen":"^2.0.0"}}`), 0o644))

	layout := DefaultLayout(root)
	client := registry.New(srv.URL, registry.DefaultTimeout)
	require.NoError(t, Install(context.Background(), layout, Options{Client: client}, nil))

	data, err := os.ReadFile(filepath.Join(layout.ModuleRoot, "is-thirteen", "index.js"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "module.exports")

	g, ok, err := lockfile.Read(filepath.Join(root, "package-lock.json"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Contains(t, g.Nodes, "is-thirteen@2.0.0")
	assert.True(t, g.Nodes["is-thirteen@2.0.0"].IsDirectDependency)
	assert.Empty(t, g.Nodes["is-thirteen@2.0.0"].Dependencies)

	_, cacheErr := os.Stat(filepath.Join(layout.CacheRoot, "is-thirteen-2.0.0.tgz"))
	assert.NoError(t, cacheErr)
}

// TestReinstallWithUnchangedManifestReusesLock exercises the S2 scenario: a
// second install against the same manifest must not re-resolve the graph
// (the reconciler reports unchanged and the locked graph is installed as-is).
func TestReinstallWithUnchangedManifestReusesLock(t *testing.T) {
	if _, err := exec.LookPath("tar"); err != nil {
		t.Skip("system tar binary not available")
	}

	tarballBytes := buildFixtureTarball(t)
	integrity := sha512Integrity(tarballBytes)

	packageDocHits := 0
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/is-thirteen", func(w http.ResponseWriter, r *http.Request) {
		packageDocHits++
		w.Write([]byte(`{"name":"is-thirteen","dist-tags":{"latest":"2.0.0"},"versions":{"2.0.0":{"version":"2.0.0","dist":{"tarball":"` + srv.URL + `/is-thirteen.tgz","integrity":"` + integrity + `"},"dependencies":{}}}}`))
	})
	mux.HandleFunc("/is-thirteen.tgz", func(w http.ResponseWriter, r *http.Request) {
		w.Write(tarballBytes)
	})
	mux.HandleFunc("/is-thirteen/2.0.0", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version":"2.0.0","dist":{"tarball":"` + srv.URL + `/is-thirteen.tgz","integrity":"` + integrity + `"},"dependencies":{}}`))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"),
		[]byte(`{"dependencies":{"is-thirteen":"^2.0.0"}}`), 0o644))

	layout := DefaultLayout(root)
	client := registry.New(srv.URL, registry.DefaultTimeout)

	require.NoError(t, Install(context.Background(), layout, Options{Client: client}, nil))
	firstLockBytes, err := os.ReadFile(filepath.Join(root, "package-lock.json"))
	require.NoError(t, err)

	require.NoError(t, Install(context.Background(), layout, Options{Client: client}, nil))
	secondLockBytes, err := os.ReadFile(filepath.Join(root, "package-lock.json"))
	require.NoError(t, err)

	assert.Equal(t, string(firstLockBytes), string(secondLockBytes))
	assert.Equal(t, 1, packageDocHits, "a reinstall with an unchanged manifest must not re-resolve against the registry")
}
