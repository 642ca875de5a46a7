package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for throttle tracking.
var (
	graphThrottleEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graph_throttle_events_total",
		Help: "Total throttling responses received from Graph by status",
	}, []string{"status"})

	graphThrottleBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "graph_throttle_blocks_total",
		Help: "Total requests refused locally while a throttle window was open",
	})

	graphThrottleResetSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "graph_throttle_reset_seconds",
		Help: "Seconds until the last recorded throttle window closes",
	})
)

// Tracker records Graph throttle windows in Redis and gates requests on
// them.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewTracker creates a new throttle tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// GetState retrieves the current throttle state from Redis.
// Returns a zero (unthrottled) state if nothing is stored.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	vals, err := t.redis.MGet(ctx, RedisKeyThrottledUntil, RedisKeyLastStatus, RedisKeyLastUpdate).Result()
	if err != nil {
		return nil, fmt.Errorf("get throttle state: %w", err)
	}

	state := &State{}
	if vals[0] == nil {
		return state, nil
	}

	untilMs, err := parseInt(vals[0])
	if err != nil {
		return nil, fmt.Errorf("parse throttled until: %w", err)
	}
	state.ThrottledUntil = time.UnixMilli(untilMs)

	if status, err := parseInt(vals[1]); err == nil {
		state.LastStatus = int(status)
	}
	if updatedMs, err := parseInt(vals[2]); err == nil {
		state.LastUpdate = time.UnixMilli(updatedMs)
	}

	return state, nil
}

func parseInt(v any) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, errors.New("missing value")
	}
	return strconv.ParseInt(s, 10, 64)
}

// UpdateFromResponse opens a throttle window when status is 429 or 503.
// Other statuses are ignored.
func (t *Tracker) UpdateFromResponse(ctx context.Context, status int, headers http.Header) error {
	if !IsThrottleStatus(status) {
		return nil
	}

	now := time.Now()
	wait, ok := ParseRetryAfter(headers.Get("Retry-After"), now)
	if !ok {
		wait = DefaultRetryAfter
	}
	if wait <= 0 {
		return nil
	}
	until := now.Add(wait)

	graphThrottleEventsTotal.WithLabelValues(strconv.Itoa(status)).Inc()

	// Keys expire with the window, so a stale window never outlives Retry-After.
	pipe := t.redis.TxPipeline()
	pipe.Set(ctx, RedisKeyThrottledUntil, until.UnixMilli(), wait)
	pipe.Set(ctx, RedisKeyLastStatus, status, wait)
	pipe.Set(ctx, RedisKeyLastUpdate, now.UnixMilli(), wait)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store throttle state in redis: %w", err)
	}

	graphThrottleResetSeconds.Set(wait.Seconds())

	t.logger.Warn().
		Int("status", status).
		Dur("retry_after", wait).
		Time("throttled_until", until).
		Msg("Graph throttled requests")

	return nil
}

// ShouldAllowRequest reports whether a request may be sent now. It returns
// false while a throttle window is open and never waits.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get throttle state: %w", err)
	}

	if state.IsThrottled() {
		remaining := state.TimeUntilReset()
		graphThrottleResetSeconds.Set(remaining.Seconds())
		graphThrottleBlocksTotal.Inc()

		t.logger.Warn().
			Int("last_status", state.LastStatus).
			Dur("remaining", remaining).
			Msg("Throttle window open - refusing request")
		return false, nil
	}

	return true, nil
}

// Reset clears any recorded throttle window.
func (t *Tracker) Reset(ctx context.Context) error {
	if err := t.redis.Del(ctx, RedisKeyThrottledUntil, RedisKeyLastStatus, RedisKeyLastUpdate).Err(); err != nil {
		return fmt.Errorf("clear throttle state: %w", err)
	}
	graphThrottleResetSeconds.Set(0)
	return nil
}
