// Package graph provides a Microsoft Graph REST client for reading directory
// collections, with shared throttle tracking and error classification.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/logging"
	"github.com/emanuelebuldrini/msgraph-fetcher/pkg/ratelimit"
)

// Prometheus metrics for Graph client operations.
var (
	graphRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graph_requests_total",
		Help: "Total Graph requests by collection and status",
	}, []string{"collection", "status"})

	graphRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "graph_request_duration_seconds",
		Help:    "Graph request duration in seconds by collection",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"collection"})

	graphErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graph_errors_total",
		Help: "Total Graph errors by class",
	}, []string{"class"})
)

// Defaults for Config.
const (
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"
	DefaultScope   = "https://graph.microsoft.com/.default"
	DefaultTimeout = 30 * time.Second

	// MaxPageSize is the largest $top Graph accepts for directory objects.
	MaxPageSize = 999
)

// maxErrorBody bounds how much of a failed response is read.
const maxErrorBody = 64 << 10

// Client is a Microsoft Graph client. Create it once and share it.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	throttle   *ratelimit.Tracker
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the Graph service root including the version segment.
	BaseURL string

	// App registration credentials (client credentials flow).
	TenantID     string
	ClientID     string
	ClientSecret string

	// TokenURL overrides the identity platform token endpoint of TenantID.
	TokenURL string

	// Scopes requested for the token. Default: DefaultScope.
	Scopes []string

	// PageSize sets $top on collection requests; 0 keeps Graph's default.
	PageSize int

	// Timeout per HTTP request.
	Timeout time.Duration

	// UserAgent header sent with every request.
	UserAgent string

	// Redis, when set, shares throttle windows and access tokens between
	// processes.
	Redis *redis.Client
}

// DefaultConfig returns a configuration for the given app registration.
func DefaultConfig(tenantID, clientID, clientSecret string) Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		TenantID:     tenantID,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       []string{DefaultScope},
		PageSize:     100,
		Timeout:      DefaultTimeout,
		UserAgent:    "msgraph-fetcher/1.0",
	}
}

// New creates a client that authenticates with the client credentials flow.
func New(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()

	if strings.TrimSpace(cfg.TenantID) == "" {
		return nil, fmt.Errorf("%w: tenant id is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("%w: client id is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, fmt.Errorf("%w: client secret is required", ErrInvalidConfig)
	}

	return newClient(cfg, newAuthHTTPClient(cfg))
}

// NewWithHTTPClient creates a client that sends requests through httpClient
// as is. Authentication is up to httpClient's transport.
func NewWithHTTPClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("%w: http client is required", ErrInvalidConfig)
	}
	return newClient(cfg.withDefaults(), httpClient)
}

func newClient(cfg Config, httpClient *http.Client) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base url %q must be absolute", ErrInvalidConfig, cfg.BaseURL)
	}
	if cfg.PageSize < 0 || cfg.PageSize > MaxPageSize {
		return nil, fmt.Errorf("%w: page size must be between 0 and %d (got %d)", ErrInvalidConfig, MaxPageSize, cfg.PageSize)
	}

	logger := logging.NewLogger("graph-client")

	c := &Client{
		httpClient: httpClient,
		baseURL:    base,
		config:     cfg,
		logger:     logger,
	}
	if cfg.Redis != nil {
		c.throttle = ratelimit.NewTracker(cfg.Redis, logger)
	}
	return c, nil
}

func (cfg Config) withDefaults() Config {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{DefaultScope}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "msgraph-fetcher/1.0"
	}
	return cfg
}

// Do sends req after the throttle check and returns the response for any
// status below 400. Failed statuses come back as *GraphError with the body
// already consumed; throttling responses also wrap ErrThrottled.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	collection := c.collectionLabel(req.URL)

	startTime := time.Now()
	defer func() {
		graphRequestDuration.WithLabelValues(collection).Observe(time.Since(startTime).Seconds())
	}()

	if c.throttle != nil {
		// Redis is best effort: an unreadable throttle state lets the request through.
		allowed, err := c.throttle.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Str("collection", collection).Msg("Throttle check failed, sending request")
		}
		if err == nil && !allowed {
			graphRequestsTotal.WithLabelValues(collection, "blocked").Inc()
			graphErrorsTotal.WithLabelValues(string(ErrorClassThrottled)).Inc()
			return nil, fmt.Errorf("%w: throttle window still open", ErrThrottled)
		}
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("client-request-id", requestID)

	c.logger.Debug().
		Str("collection", collection).
		Str("method", req.Method).
		Str("request_id", requestID).
		Msg("Executing Graph request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		gerr := c.transportError(err, requestID)
		graphErrorsTotal.WithLabelValues(string(gerr.ErrorClass)).Inc()
		graphRequestsTotal.WithLabelValues(collection, statusLabel(gerr.StatusCode)).Inc()
		c.logger.Error().Err(err).
			Str("collection", collection).
			Str("error_class", string(gerr.ErrorClass)).
			Msg("Graph request failed")
		return nil, gerr
	}

	graphRequestsTotal.WithLabelValues(collection, strconv.Itoa(resp.StatusCode)).Inc()

	if c.throttle != nil {
		if err := c.throttle.UpdateFromResponse(ctx, resp.StatusCode, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to record throttle state")
		}
	}

	if resp.StatusCode < 400 {
		return resp, nil
	}

	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	class := classifyStatus(resp.StatusCode)
	graphErrorsTotal.WithLabelValues(string(class)).Inc()

	code, message := parseErrorBody(body)
	if message == "" {
		message = resp.Status
	}
	gerr := &GraphError{
		StatusCode: resp.StatusCode,
		ErrorClass: class,
		Code:       code,
		Message:    message,
		RequestID:  requestID,
	}
	if class == ErrorClassThrottled {
		gerr.Err = ErrThrottled
	}

	c.logger.Warn().
		Str("collection", collection).
		Int("status", resp.StatusCode).
		Str("error_class", string(class)).
		Str("code", code).
		Str("request_id", requestID).
		Msg("Graph request error")

	return nil, gerr
}

// transportError wraps a failure that produced no Graph response. Token
// endpoint rejections keep their HTTP status.
func (c *Client) transportError(err error, requestID string) *GraphError {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return &GraphError{
			StatusCode: re.Response.StatusCode,
			ErrorClass: classifyStatus(re.Response.StatusCode),
			Code:       re.ErrorCode,
			Message:    "token request failed",
			RequestID:  requestID,
			Err:        err,
		}
	}
	return &GraphError{
		ErrorClass: ErrorClassNetwork,
		Message:    "request failed",
		RequestID:  requestID,
		Err:        err,
	}
}

// classifyStatus categorizes a failed status for observability.
func classifyStatus(status int) ErrorClass {
	switch {
	case ratelimit.IsThrottleStatus(status):
		return ErrorClassThrottled
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

func statusLabel(status int) string {
	if status == 0 {
		return "network_error"
	}
	return strconv.Itoa(status)
}

// collectionLabel returns the first path segment below the service root,
// keeping metric cardinality bounded.
func (c *Client) collectionLabel(u *url.URL) string {
	path := strings.TrimPrefix(u.Path, c.baseURL.Path)
	path = strings.Trim(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "root"
	}
	return path
}

// GetJSON performs a GET request and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// CollectionURL returns the URL of the first page of a collection, with
// $top set when a page size is configured.
func (c *Client) CollectionURL(collection string) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Trim(collection, "/")
	if c.config.PageSize > 0 {
		u.RawQuery = "$top=" + strconv.Itoa(c.config.PageSize)
	}
	return u.String()
}

// checkNextLink ensures a next link targets the configured Graph host, so
// the bearer token is never sent elsewhere.
func (c *Client) checkNextLink(link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrForeignNextLink, err)
	}
	if !strings.EqualFold(u.Scheme, c.baseURL.Scheme) || !strings.EqualFold(u.Host, c.baseURL.Host) {
		return fmt.Errorf("%w: %s", ErrForeignNextLink, u.Redacted())
	}
	return nil
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
