package guard

import (
	"strings"
	"sync/atomic"
)

// Entry binds one (method, path pattern) pair to a required permission name.
// Pattern segments wrapped in braces match any single literal segment.
type Entry struct {
	Method     string
	Path       string
	Permission string
}

// PermissionMap is the immutable routing table of permission requirements
// plus the exempt path prefixes that bypass authorization entirely.
type PermissionMap struct {
	entries        []Entry
	exemptPrefixes []string
}

func NewPermissionMap(entries []Entry, exemptPrefixes []string) *PermissionMap {
	return &PermissionMap{entries: entries, exemptPrefixes: exemptPrefixes}
}

// Exempt reports whether the path starts with a configured exempt prefix. A
// prefix shadows every path under it.
func (m *PermissionMap) Exempt(path string) bool {
	for _, p := range m.exemptPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Resolve returns the permission required for (method, path). An exact path
// match wins over a pattern match. ok is false when no entry matches, which
// callers must treat as requiring no specific permission.
func (m *PermissionMap) Resolve(method, path string) (permission string, ok bool) {
	for _, e := range m.entries {
		if e.Method == method && e.Path == path {
			return e.Permission, true
		}
	}
	for _, e := range m.entries {
		if e.Method == method && patternMatch(e.Path, path) {
			return e.Permission, true
		}
	}
	return "", false
}

// patternMatch compares pattern and path segment by segment. A {placeholder}
// segment matches any literal; segment counts must be equal, so a shorter or
// longer path never matches even when a prefix does.
func patternMatch(pattern, path string) bool {
	ps := strings.Split(strings.Trim(pattern, "/"), "/")
	xs := strings.Split(strings.Trim(path, "/"), "/")
	if len(ps) != len(xs) {
		return false
	}
	for i := range ps {
		if strings.HasPrefix(ps[i], "{") && strings.HasSuffix(ps[i], "}") {
			continue
		}
		if ps[i] != xs[i] {
			return false
		}
	}
	return true
}

// MapProvider holds the active PermissionMap behind an atomic pointer.
// Updates replace the whole map; requests in flight keep the snapshot they
// started with.
type MapProvider struct {
	current atomic.Pointer[PermissionMap]
}

func NewMapProvider(m *PermissionMap) *MapProvider {
	p := &MapProvider{}
	p.current.Store(m)
	return p
}

func (p *MapProvider) Load() *PermissionMap     { return p.current.Load() }
func (p *MapProvider) Replace(m *PermissionMap) { p.current.Store(m) }
