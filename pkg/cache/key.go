package cache

import (
	"sort"
	"strings"
)

// Key identifies the token of one app registration in one tenant.
type Key struct {
	TenantID string
	ClientID string
	Scopes   []string
}

// String generates a deterministic key string.
// Format: graph:token:tenant:client:scope1,scope2
//
// Example:
//
//	graph:token:contoso.onmicrosoft.com:11111111-2222:https://graph.microsoft.com/.default
func (k Key) String() string {
	scopes := make([]string, 0, len(k.Scopes))
	for _, s := range k.Scopes {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	sort.Strings(scopes)

	parts := []string{
		"graph",
		"token",
		strings.ToLower(strings.TrimSpace(k.TenantID)),
		strings.ToLower(strings.TrimSpace(k.ClientID)),
		strings.Join(scopes, ","),
	}
	return strings.Join(parts, ":")
}
