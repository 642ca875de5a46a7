package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoExpiry is returned for tokens that carry no expiry time.
var ErrNoExpiry = errors.New("token has no expiry")

// Entry is a cached token.
type Entry struct {
	// Data is the JSON encoded oauth2.Token.
	Data []byte `json:"data"`

	// Expires is when the entry stops being served. It is set ahead of the
	// token's own expiry.
	Expires time.Time `json:"expires"`

	// CachedAt is when the entry was stored.
	CachedAt time.Time `json:"cached_at"`
}

// NewTokenEntry wraps tok for caching. The entry expires ExpirySkew
// before the token does.
func NewTokenEntry(tok *oauth2.Token, now time.Time) (*Entry, error) {
	if tok == nil || tok.Expiry.IsZero() {
		return nil, ErrNoExpiry
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return nil, fmt.Errorf("encode token: %w", err)
	}
	return &Entry{
		Data:     data,
		Expires:  tok.Expiry.Add(-ExpirySkew),
		CachedAt: now,
	}, nil
}

// Token decodes the cached token.
func (e *Entry) Token() (*oauth2.Token, error) {
	var tok oauth2.Token
	if err := json.Unmarshal(e.Data, &tok); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &tok, nil
}

// IsExpired reports whether Expires has passed.
func (e *Entry) IsExpired() bool {
	return !time.Now().Before(e.Expires)
}

// TTL is the time left before expiry, never negative.
func (e *Entry) TTL() time.Duration {
	return max(time.Until(e.Expires), 0)
}
