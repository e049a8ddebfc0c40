// Package registry implements C1: the HTTP client for the public registry
// at https://registry.npmjs.org. It performs no caching of its own (that is
// internal/metacache's job, C2) and no retry — an install aborts on the
// first unrecoverable error.
package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/pkg/errors"

	"github.com/minpm/minpm/internal/pkgerr"
)

// DefaultBaseURL is the compile-time registry base URL (spec §6: "Registry
// base URL is a compile-time constant").
const DefaultBaseURL = "https://registry.npmjs.org"

// DefaultTimeout is applied to every registry and tarball request absent an
// explicit override (spec §5: "implementations should apply a reasonable
// default (e.g. 30s)").
const DefaultTimeout = 30 * time.Second

// Dist carries the distribution fields of a published version.
type Dist struct {
	Tarball   string `json:"tarball"`
	Integrity string `json:"integrity"`
}

// VersionMetadata is the per-version document returned by
// GET {REGISTRY}/{name}/{exactVersion} (spec §4.1), reduced to the fields
// this tool consumes.
type VersionMetadata struct {
	Version      string            `json:"version"`
	Dist         Dist              `json:"dist"`
	Dependencies map[string]string `json:"dependencies"`
}

// PackageDocument is the per-package document returned by
// GET {REGISTRY}/{name} (spec §4.1): the full version index plus dist-tags.
type PackageDocument struct {
	Name     string                     `json:"name"`
	DistTags map[string]string          `json:"dist-tags"`
	Versions map[string]VersionMetadata `json:"versions"`
}

// Client fetches package documents and version metadata over HTTPS.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client against the given base URL (pass DefaultBaseURL in
// production) with the given timeout (pass DefaultTimeout in production).
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// PackageDocument fetches GET {baseURL}/{name}.
func (c *Client) PackageDocument(ctx context.Context, name string) (*PackageDocument, error) {
	u := c.resolve(name)
	var doc PackageDocument
	if err := c.getJSON(ctx, u, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// VersionMetadata fetches GET {baseURL}/{name}/{exactVersion}.
func (c *Client) VersionMetadata(ctx context.Context, name, exactVersion string) (*VersionMetadata, error) {
	u := c.resolve(name, exactVersion)
	var meta VersionMetadata
	if err := c.getJSON(ctx, u, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// FetchTarball issues a raw GET against an absolute tarball URL and returns
// the response body for the caller to stream and close.
func (c *Client) FetchTarball(ctx context.Context, tarballURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tarballURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "building tarball request for %s", tarballURL)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &pkgerr.TransportError{URL: tarballURL, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &pkgerr.TransportError{URL: tarballURL, StatusCode: resp.StatusCode, Reason: resp.Status}
	}
	return resp, nil
}

func (c *Client) resolve(segments ...string) string {
	u, _ := url.Parse(c.baseURL)
	p := path.Join("/", u.Path)
	for _, s := range segments {
		p = path.Join(p, s)
	}
	u.Path = p
	return u.String()
}

func (c *Client) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrapf(err, "building request for %s", u)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &pkgerr.TransportError{URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &pkgerr.TransportError{URL: u, StatusCode: resp.StatusCode, Reason: resp.Status}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding response from %s", u)
	}
	return nil
}
