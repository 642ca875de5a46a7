package graph

import (
	"context"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/cache"
)

// TokenURL returns the identity platform v2 token endpoint of a tenant.
func TokenURL(tenantID string) string {
	return "https://login.microsoftonline.com/" + url.PathEscape(tenantID) + "/oauth2/v2.0/token"
}

// newAuthHTTPClient returns an HTTP client that attaches a client
// credentials bearer token to every request. With Redis configured the
// token is shared through the token cache.
func newAuthHTTPClient(cfg Config) *http.Client {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = TokenURL(cfg.TenantID)
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       cfg.Scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	// Token requests get their own client so they honor the same timeout.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: cfg.Timeout})

	var ts oauth2.TokenSource = cc.TokenSource(ctx)
	if cfg.Redis != nil {
		key := cache.Key{TenantID: cfg.TenantID, ClientID: cfg.ClientID, Scopes: cfg.Scopes}
		ts = cache.TokenSource(ts, cache.NewManager(cfg.Redis), key)
	}

	httpClient := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(nil, ts))
	httpClient.Timeout = cfg.Timeout
	return httpClient
}
