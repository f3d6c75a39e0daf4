package graph

import (
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultResolverCacheSize is the number of (base, specifier) pairs the
// Resolver remembers.
const DefaultResolverCacheSize = 4096

type resolveKey struct {
	base      string
	specifier string
}

type resolveResult struct {
	url string
	ok  bool
}

// Resolver turns raw import specifiers into absolute URLs relative to the
// importing file. Results, including failures, are cached in an LRU. Safe for
// concurrent use.
type Resolver struct {
	cache *lru.Cache[resolveKey, resolveResult]
}

// NewResolver creates a Resolver with an LRU of the given size. A size <= 0
// uses DefaultResolverCacheSize.
func NewResolver(size int) *Resolver {
	if size <= 0 {
		size = DefaultResolverCacheSize
	}
	cache, err := lru.New[resolveKey, resolveResult](size)
	if err != nil {
		// Only returned for a non-positive size, which is ruled out above.
		panic(err)
	}
	return &Resolver{cache: cache}
}

// Resolve resolves specifier against base. Bare specifiers ("react",
// "@scope/pkg") have no URL meaning in a page without an import map and
// report false, as do malformed ones.
func (r *Resolver) Resolve(base, specifier string) (string, bool) {
	if r == nil {
		return resolveSpecifier(base, specifier)
	}
	key := resolveKey{base: base, specifier: specifier}
	if res, ok := r.cache.Get(key); ok {
		return res.url, res.ok
	}
	u, ok := resolveSpecifier(base, specifier)
	r.cache.Add(key, resolveResult{url: u, ok: ok})
	return u, ok
}

// Purge drops every cached resolution.
func (r *Resolver) Purge() {
	if r != nil {
		r.cache.Purge()
	}
}

func resolveSpecifier(base, specifier string) (string, bool) {
	specifier = strings.TrimSpace(specifier)
	if specifier == "" {
		return "", false
	}

	ref, err := url.Parse(specifier)
	if err != nil {
		return "", false
	}
	if ref.IsAbs() {
		return ref.String(), true
	}
	if !isRelativeSpecifier(specifier) {
		return "", false
	}

	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return "", false
	}
	return b.ResolveReference(ref).String(), true
}

func isRelativeSpecifier(s string) bool {
	return strings.HasPrefix(s, "/") ||
		strings.HasPrefix(s, "./") ||
		strings.HasPrefix(s, "../")
}
