package guard_test

import (
	"testing"

	"github.com/botforge/botforge/internal/access/guard"

	"github.com/stretchr/testify/require"
)

func testMap() *guard.PermissionMap {
	return guard.NewPermissionMap([]guard.Entry{
		{Method: "GET", Path: "/v1/items", Permission: "items:read"},
		{Method: "GET", Path: "/v1/items/{id}", Permission: "items:read"},
		{Method: "DELETE", Path: "/v1/items/{id}", Permission: "items:write"},
		{Method: "GET", Path: "/v1/items/special", Permission: "items:special"},
	}, []string{"/livez", "/docs"})
}

func TestPermissionMap_ExactBeforePattern(t *testing.T) {
	t.Parallel()

	m := testMap()

	// /v1/items/special matches both the exact entry and the {id} pattern;
	// exact wins.
	perm, ok := m.Resolve("GET", "/v1/items/special")
	require.True(t, ok)
	require.Equal(t, "items:special", perm)
}

func TestPermissionMap_PatternSegmentSemantics(t *testing.T) {
	t.Parallel()

	m := testMap()

	tests := []struct {
		name   string
		method string
		path   string
		want   string
		ok     bool
	}{
		{"numeric id", "GET", "/v1/items/42", "items:read", true},
		{"non-numeric id", "GET", "/v1/items/abc", "items:read", true},
		{"collection", "GET", "/v1/items", "items:read", true},
		{"extra segment never matches", "GET", "/v1/items/42/sub", "", false},
		{"method mismatch", "POST", "/v1/items/42", "", false},
		{"delete pattern", "DELETE", "/v1/items/42", "items:write", true},
		{"unmapped path", "GET", "/v1/other", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			perm, ok := m.Resolve(tc.method, tc.path)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, perm)
		})
	}
}

func TestPermissionMap_ExemptIsPrefixBased(t *testing.T) {
	t.Parallel()

	m := testMap()

	require.True(t, m.Exempt("/livez"))
	require.True(t, m.Exempt("/docs"))
	require.True(t, m.Exempt("/docs/anything/below"))
	require.False(t, m.Exempt("/v1/items"))
	require.False(t, m.Exempt("/do"))
}

func TestMapProvider_ReplaceIsAtomicSwap(t *testing.T) {
	t.Parallel()

	p := guard.NewMapProvider(testMap())

	perm, ok := p.Load().Resolve("GET", "/v1/items")
	require.True(t, ok)
	require.Equal(t, "items:read", perm)

	p.Replace(guard.NewPermissionMap([]guard.Entry{
		{Method: "GET", Path: "/v1/items", Permission: "items:audit"},
	}, nil))

	perm, ok = p.Load().Resolve("GET", "/v1/items")
	require.True(t, ok)
	require.Equal(t, "items:audit", perm)
	require.False(t, p.Load().Exempt("/livez"))
}
