package ratelimit

import (
	"net/http"
	"testing"
	"time"
)

func TestState_IsStale(t *testing.T) {
	tests := []struct {
		name     string
		state    *State
		maxAge   time.Duration
		expected bool
	}{
		{
			name:     "fresh state",
			state:    &State{LastUpdate: time.Now()},
			maxAge:   5 * time.Minute,
			expected: false,
		},
		{
			name:     "stale state",
			state:    &State{LastUpdate: time.Now().Add(-10 * time.Minute)},
			maxAge:   5 * time.Minute,
			expected: true,
		},
		{
			name:     "just under max age",
			state:    &State{LastUpdate: time.Now().Add(-4 * time.Minute)},
			maxAge:   5 * time.Minute,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsStale(tt.maxAge); got != tt.expected {
				t.Errorf("IsStale() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsThrottled(t *testing.T) {
	tests := []struct {
		name     string
		until    time.Time
		expected bool
	}{
		{name: "zero state", until: time.Time{}, expected: false},
		{name: "window open", until: time.Now().Add(30 * time.Second), expected: true},
		{name: "window closed", until: time.Now().Add(-time.Second), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &State{ThrottledUntil: tt.until}
			if got := s.IsThrottled(); got != tt.expected {
				t.Errorf("IsThrottled() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_TimeUntilReset(t *testing.T) {
	past := &State{ThrottledUntil: time.Now().Add(-time.Minute)}
	if got := past.TimeUntilReset(); got != 0 {
		t.Errorf("TimeUntilReset() for past window = %v, want 0", got)
	}

	future := &State{ThrottledUntil: time.Now().Add(time.Minute)}
	got := future.TimeUntilReset()
	if got < 55*time.Second || got > time.Minute {
		t.Errorf("TimeUntilReset() = %v, want about 1m", got)
	}
}

func TestIsThrottleStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected bool
	}{
		{http.StatusOK, false},
		{http.StatusBadRequest, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, false},
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, false},
	}

	for _, tt := range tests {
		if got := IsThrottleStatus(tt.status); got != tt.expected {
			t.Errorf("IsThrottleStatus(%d) = %v, want %v", tt.status, got, tt.expected)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		value  string
		want   time.Duration
		wantOK bool
	}{
		{name: "empty", value: "", wantOK: false},
		{name: "seconds", value: "30", want: 30 * time.Second, wantOK: true},
		{name: "seconds with spaces", value: " 5 ", want: 5 * time.Second, wantOK: true},
		{name: "zero", value: "0", want: 0, wantOK: true},
		{name: "negative", value: "-3", wantOK: false},
		{name: "garbage", value: "soon", wantOK: false},
		{name: "capped", value: "86400", want: MaxRetryAfter, wantOK: true},
		{
			name:   "http date",
			value:  now.Add(2 * time.Minute).Format(http.TimeFormat),
			want:   2 * time.Minute,
			wantOK: true,
		},
		{
			name:   "http date in the past",
			value:  now.Add(-time.Minute).Format(http.TimeFormat),
			want:   0,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRetryAfter(tt.value, now)
			if ok != tt.wantOK {
				t.Fatalf("ParseRetryAfter(%q) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
