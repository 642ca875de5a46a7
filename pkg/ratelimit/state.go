// Package ratelimit tracks Microsoft Graph throttling and gates requests.
// A 429 or 503 response opens a throttle window that lasts for the
// Retry-After period; the window is kept in Redis so every process sharing
// the same tenant stops sending requests until it closes.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Redis keys for throttle state storage.
const (
	RedisKeyThrottledUntil = "graph:throttle:until"
	RedisKeyLastStatus     = "graph:throttle:last_status"
	RedisKeyLastUpdate     = "graph:throttle:last_update"
)

// DefaultRetryAfter is used when a throttling response carries no usable
// Retry-After header.
const DefaultRetryAfter = 10 * time.Second

// MaxRetryAfter caps the window a single response can open.
const MaxRetryAfter = 10 * time.Minute

// State is the shared Graph throttle state.
type State struct {
	// ThrottledUntil is the end of the current throttle window. Zero when
	// Graph never throttled this tenant or the window has expired.
	ThrottledUntil time.Time `json:"throttled_until"`

	// LastStatus is the HTTP status that opened the window.
	LastStatus int `json:"last_status"`

	// LastUpdate is when the window was recorded.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// IsThrottled reports whether the window is still open.
func (s *State) IsThrottled() bool {
	return time.Now().Before(s.ThrottledUntil)
}

// TimeUntilReset returns the time left in the window, or 0 once it has
// passed.
func (s *State) TimeUntilReset() time.Duration {
	d := time.Until(s.ThrottledUntil)
	if d < 0 {
		return 0
	}
	return d
}

// IsThrottleStatus reports whether Graph uses status to signal throttling.
func IsThrottleStatus(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// ParseRetryAfter reads a Retry-After value given either as delay seconds or
// as an HTTP date. It returns false when the value is missing or unusable.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return clampRetryAfter(time.Duration(secs) * time.Second), true
	}

	if at, err := http.ParseTime(value); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return clampRetryAfter(d), true
	}

	return 0, false
}

func clampRetryAfter(d time.Duration) time.Duration {
	if d > MaxRetryAfter {
		return MaxRetryAfter
	}
	return d
}
