package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minpm/minpm/internal/pkgerr"
)

func TestPackageDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/is-thirteen", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"name": "is-thirteen",
			"dist-tags": {"latest": "2.0.0"},
			"versions": {
				"2.0.0": {
					"version": "2.0.0",
					"dist": {"tarball": "https://example.test/is-thirteen-2.0.0.tgz", "integrity": "sha512-abc"},
					"dependencies": {}
				}
			}
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	doc, err := c.PackageDocument(context.Background(), "is-thirteen")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", doc.DistTags["latest"])
	assert.Contains(t, doc.Versions, "2.0.0")
}

func TestVersionMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/@scope/x/1.0.0", r.URL.Path)
		w.Write([]byte(`{"version":"1.0.0","dist":{"tarball":"https://example.test/x.tgz","integrity":"sha512-abc"},"dependencies":{}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	meta, err := c.VersionMetadata(context.Background(), "@scope/x", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", meta.Version)
	assert.Equal(t, "https://example.test/x.tgz", meta.Dist.Tarball)
}

func TestNonOKStatusIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.PackageDocument(context.Background(), "does-not-exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	var transportErr *pkgerr.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusNotFound, transportErr.StatusCode)
}

func TestFetchTarball(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tarball-bytes"))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	resp, err := c.FetchTarball(context.Background(), srv.URL+"/pkg.tgz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
