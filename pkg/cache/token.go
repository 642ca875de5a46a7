package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// ExpirySkew is subtracted from a token's expiry when caching it, so a
// token read from the cache is never about to expire mid-request.
const ExpirySkew = 2 * time.Minute

// lookupTimeout bounds each Redis round trip made while resolving a token.
const lookupTimeout = 2 * time.Second

// EntryStore is the subset of Manager the token source needs.
type EntryStore interface {
	Get(ctx context.Context, key Key) (*Entry, error)
	Set(ctx context.Context, key Key, entry *Entry) error
}

// TokenSource returns a token source that consults store before asking base
// for a new token, and stores every fresh token it receives. Tokens without
// an expiry are never cached.
func TokenSource(base oauth2.TokenSource, store EntryStore, key Key) oauth2.TokenSource {
	return &cachedSource{base: base, store: store, key: key}
}

type cachedSource struct {
	mu    sync.Mutex
	base  oauth2.TokenSource
	store EntryStore
	key   Key
}

// Token implements oauth2.TokenSource.
func (s *cachedSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tok := s.lookup(); tok != nil {
		return tok, nil
	}

	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.remember(tok)
	return tok, nil
}

func (s *cachedSource) lookup() *oauth2.Token {
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	entry, err := s.store.Get(ctx, s.key)
	if err != nil {
		return nil
	}

	tok, err := entry.Token()
	if err != nil {
		CacheErrors.WithLabelValues("decode").Inc()
		return nil
	}
	if !tok.Valid() {
		return nil
	}
	return tok
}

func (s *cachedSource) remember(tok *oauth2.Token) {
	entry, err := NewTokenEntry(tok, time.Now())
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	// Set counts its own failures; the token is still returned.
	_ = s.store.Set(ctx, s.key, entry)
}
