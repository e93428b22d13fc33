package app

import "github.com/botforge/botforge/internal/access/guard"

// defaultPermissionMap binds the service's own routes to permission names.
// Routes absent from the table require authentication but no specific
// permission. Loaded once at startup; replaced wholesale via the MapProvider
// if it ever changes at runtime.
func defaultPermissionMap() *guard.PermissionMap {
	return guard.NewPermissionMap([]guard.Entry{
		{Method: "GET", Path: "/v1/sessions", Permission: "sessions:read"},
		{Method: "DELETE", Path: "/v1/sessions/{id}", Permission: "sessions:write"},
		{Method: "POST", Path: "/v1/sessions/{id}/flag", Permission: "sessions:admin"},
		{Method: "GET", Path: "/v1/sessions/{id}/activity", Permission: "sessions:read"},
		{Method: "GET", Path: "/v1/alerts", Permission: "alerts:read"},
		{Method: "POST", Path: "/v1/alerts/{id}/resolve", Permission: "alerts:write"},
		{Method: "POST", Path: "/v1/password/change", Permission: "password:write"},
	}, []string{
		"/livez",
		"/readyz",
		"/swagger/",
	})
}
