// Package registry implements the Registry Resolver: given a crate name,
// it asks the crates.io sparse index for the highest compatible version and
// its advertised feature list, caching the answer for the lifetime of one
// pipeline invocation.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"

	"thag/internal/logging"
)

// indexEntry mirrors one line of a crates.io sparse-index file: one JSON
// object per published version, newline-delimited.
type indexEntry struct {
	Name     string                       `json:"name"`
	Vers     string                       `json:"vers"`
	Yanked   bool                         `json:"yanked"`
	Features map[string][]string          `json:"features"`
	Features2 map[string][]string         `json:"features2"`
}

// Resolution is what resolve(name, policy) returns per §4.5.
type Resolution struct {
	Version  string
	Features []string
}

// Resolver looks up crate versions against a crates.io-shaped sparse index.
// A Resolver must only be used within a single pipeline invocation; its
// cache is not persisted, matching the spec's "no persistent cache" rule.
type Resolver struct {
	baseURL string
	client  *http.Client

	mu    sync.Mutex
	cache map[string]Resolution
}

// New builds a Resolver against baseURL (e.g. https://index.crates.io) with
// the given per-request timeout.
func New(baseURL string, timeout time.Duration) *Resolver {
	return &Resolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		cache:   make(map[string]Resolution),
	}
}

// Resolve returns the latest version allowed by policy and its feature
// list. A network failure is never fatal here - see Resolve's caller in
// manifest.Synthesise, which downgrades this to a warning and a wildcard
// version.
func (r *Resolver) Resolve(name string, excludePrerelease bool) (string, []string, error) {
	r.mu.Lock()
	if cached, ok := r.cache[name]; ok {
		r.mu.Unlock()
		return cached.Version, cached.Features, nil
	}
	r.mu.Unlock()

	res, err := r.fetch(name, excludePrerelease)
	if err != nil {
		return "", nil, err
	}

	r.mu.Lock()
	r.cache[name] = *res
	r.mu.Unlock()

	return res.Version, res.Features, nil
}

func (r *Resolver) fetch(name string, excludePrerelease bool) (*Resolution, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.client.Timeout)
	defer cancel()

	url := r.indexURL(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", name, err)
	}

	logging.RegistryDebug("fetching index entry for %s from %s", name, url)
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned %d for %s", resp.StatusCode, name)
	}

	decoder := json.NewDecoder(resp.Body)
	var best *semver.Version
	var bestEntry indexEntry

	for decoder.More() {
		var entry indexEntry
		if err := decoder.Decode(&entry); err != nil {
			break
		}
		if entry.Yanked {
			continue
		}
		v, err := semver.NewVersion(entry.Vers)
		if err != nil {
			continue
		}
		if excludePrerelease && v.Prerelease() != "" {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestEntry = entry
		}
	}

	if best == nil {
		return nil, fmt.Errorf("no eligible published version found for %s", name)
	}

	return &Resolution{Version: best.String(), Features: featureNames(bestEntry)}, nil
}

// indexURL follows crates.io's sparse-index sharding convention for crate
// names: 1/2 chars in one directory level, 3 in two, longer split 2/2.
func (r *Resolver) indexURL(name string) string {
	lower := strings.ToLower(name)
	var path string
	switch {
	case len(lower) == 1:
		path = "1/" + lower
	case len(lower) == 2:
		path = "2/" + lower
	case len(lower) == 3:
		path = "3/" + lower[:1] + "/" + lower
	default:
		path = lower[:2] + "/" + lower[2:4] + "/" + lower
	}
	return r.baseURL + "/" + path
}

func featureNames(e indexEntry) []string {
	names := make([]string, 0, len(e.Features)+len(e.Features2))
	for name := range e.Features {
		names = append(names, name)
	}
	for name := range e.Features2 {
		names = append(names, name)
	}
	return names
}
