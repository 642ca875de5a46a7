// Package cache shares OAuth2 access tokens between fetcher processes
// through Redis.
//
// Client-credentials tokens are valid for about an hour. Runs that start
// within that hour reuse the cached token instead of asking the identity
// platform for a new one.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{
//		TenantID: cfg.TenantID,
//		ClientID: cfg.ClientID,
//		Scopes:   []string{"https://graph.microsoft.com/.default"},
//	}
//
//	// Wrap the identity platform token source
//	ts := cache.TokenSource(ccConfig.TokenSource(ctx), manager, key)
//	httpClient := oauth2.NewClient(ctx, ts)
//
// # Metrics
//
//   - graph_token_cache_hits_total - Tokens served from Redis
//   - graph_token_cache_misses_total - Tokens fetched from the identity platform
//   - graph_token_cache_errors_total{operation} - Redis failures by operation
//
// Cache failures never fail a token request; the base source is used instead.
package cache
