package registry

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestResolve_PicksHighestNonYankedNonPrerelease(t *testing.T) {
	body := strings.Join([]string{
		`{"name":"demo","vers":"1.0.0","yanked":false,"features":{}}`,
		`{"name":"demo","vers":"1.2.0","yanked":false,"features":{"derive":[]}}`,
		`{"name":"demo","vers":"1.3.0","yanked":true,"features":{}}`,
		`{"name":"demo","vers":"2.0.0-beta.1","yanked":false,"features":{}}`,
	}, "\n")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	r := New(srv.URL, 2*time.Second)
	version, features, err := r.Resolve("demo", true)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if version != "1.2.0" {
		t.Fatalf("Resolve() version = %q, want 1.2.0 (highest non-yanked, non-prerelease)", version)
	}
	found := false
	for _, f := range features {
		if f == "derive" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Resolve() features = %v, want to contain derive", features)
	}
}

func TestResolve_CachesWithinOneResolver(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits++
		fmt.Fprint(w, `{"name":"demo","vers":"1.0.0","yanked":false,"features":{}}`)
	}))
	defer srv.Close()

	r := New(srv.URL, 2*time.Second)
	if _, _, err := r.Resolve("demo", true); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if _, _, err := r.Resolve("demo", true); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if hits != 1 {
		t.Fatalf("registry hit %d times, want exactly 1 (in-run cache)", hits)
	}
}

func TestResolve_PrereleaseAllowedWhenPolicyPermits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{"name":"demo","vers":"2.0.0-beta.1","yanked":false,"features":{}}`)
	}))
	defer srv.Close()

	r := New(srv.URL, 2*time.Second)
	version, _, err := r.Resolve("demo", false)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if version != "2.0.0-beta.1" {
		t.Fatalf("Resolve() version = %q, want the prerelease when exclude_prerelease is false", version)
	}
}
