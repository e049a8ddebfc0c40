package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minpm/minpm/internal/metacache"
	"github.com/minpm/minpm/internal/pkgerr"
	"github.com/minpm/minpm/internal/registry"
)

func newTestResolver(t *testing.T, body string) (*Resolver, *int) {
	t.Helper()
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client := registry.New(srv.URL, time.Second)
	return New(client, metacache.New(metacache.DefaultCapacity)), &hits
}

const fixtureDoc = `{
	"name": "is-thirteen",
	"dist-tags": {"latest": "2.0.0", "next": "3.0.0-beta.1"},
	"versions": {
		"1.0.0": {"version": "1.0.0", "dist": {"tarball": "t1", "integrity": "i1"}, "dependencies": {}},
		"1.5.0": {"version": "1.5.0", "dist": {"tarball": "t2", "integrity": "i2"}, "dependencies": {}},
		"2.0.0": {"version": "2.0.0", "dist": {"tarball": "t3", "integrity": "i3"}, "dependencies": {}},
		"3.0.0-beta.1": {"version": "3.0.0-beta.1", "dist": {"tarball": "t4", "integrity": "i4"}, "dependencies": {}}
	}
}`

func TestResolveLatestTag(t *testing.T) {
	r, _ := newTestResolver(t, fixtureDoc)
	v, err := r.Resolve(context.Background(), "is-thirteen", "latest")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", v)
}

func TestResolveArbitraryDistTag(t *testing.T) {
	r, _ := newTestResolver(t, fixtureDoc)
	v, err := r.Resolve(context.Background(), "is-thirteen", "next")
	require.NoError(t, err)
	assert.Equal(t, "3.0.0-beta.1", v)
}

func TestResolveCaretRange(t *testing.T) {
	r, _ := newTestResolver(t, fixtureDoc)
	v, err := r.Resolve(context.Background(), "is-thirteen", "^1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "1.5.0", v)
}

func TestResolveExcludesPrereleaseUnlessRequested(t *testing.T) {
	r, _ := newTestResolver(t, fixtureDoc)
	v, err := r.Resolve(context.Background(), "is-thirteen", ">=1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", v, "prerelease 3.0.0-beta.1 must not win a plain range")
}

func TestResolveNoSatisfyingVersionIsResolutionError(t *testing.T) {
	r, _ := newTestResolver(t, fixtureDoc)
	_, err := r.Resolve(context.Background(), "is-thirteen", "^9.0.0")
	require.Error(t, err)
	var resErr *pkgerr.ResolutionError
	assert.ErrorAs(t, err, &resErr)
}

func TestResolveMemoizesByInputPair(t *testing.T) {
	r, hits := newTestResolver(t, fixtureDoc)

	_, err := r.Resolve(context.Background(), "is-thirteen", "^1.0.0")
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), "is-thirteen", "^1.0.0")
	require.NoError(t, err)

	assert.Equal(t, 1, *hits, "second call for the same (name, rangeOrTag) must hit the cache, not the registry")
}
