package graph

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/emanuelebuldrini/msgraph-fetcher/internal/testutil"
)

// newTestClient returns a client authenticating against the mock's token
// endpoint.
func newTestClient(t *testing.T, mock *testutil.MockGraph) *Client {
	t.Helper()

	cfg := DefaultConfig("contoso", "app-id", "app-secret")
	cfg.BaseURL = mock.URL() + "/v1.0"
	cfg.TokenURL = mock.TokenURL()
	cfg.Timeout = 5 * time.Second

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNew_Validation(t *testing.T) {
	valid := DefaultConfig("tenant", "client", "secret")

	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:        "missing tenant",
			mutate:      func(c *Config) { c.TenantID = " " },
			expectError: true,
			errorMsg:    "invalid graph configuration: tenant id is required",
		},
		{
			name:        "missing client id",
			mutate:      func(c *Config) { c.ClientID = "" },
			expectError: true,
			errorMsg:    "invalid graph configuration: client id is required",
		},
		{
			name:        "missing secret",
			mutate:      func(c *Config) { c.ClientSecret = "" },
			expectError: true,
			errorMsg:    "invalid graph configuration: client secret is required",
		},
		{
			name:        "relative base url",
			mutate:      func(c *Config) { c.BaseURL = "/v1.0" },
			expectError: true,
			errorMsg:    `invalid graph configuration: base url "/v1.0" must be absolute`,
		},
		{
			name:        "page size too large",
			mutate:      func(c *Config) { c.PageSize = 1000 },
			expectError: true,
			errorMsg:    "invalid graph configuration: page size must be between 0 and 999 (got 1000)",
		},
		{
			name:   "blank base url falls back to default",
			mutate: func(c *Config) { c.BaseURL = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			client, err := New(cfg)

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got nil")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("error %v does not wrap ErrInvalidConfig", err)
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if client == nil {
				t.Fatal("Expected client but got nil")
			}
		})
	}
}

func TestNewWithHTTPClient_NilClient(t *testing.T) {
	if _, err := NewWithHTTPClient(Config{}, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewWithHTTPClient(nil) error = %v, want ErrInvalidConfig", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("t", "c", "s")

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if len(cfg.Scopes) != 1 || cfg.Scopes[0] != DefaultScope {
		t.Errorf("Scopes = %v, want [%s]", cfg.Scopes, DefaultScope)
	}
	if cfg.PageSize != 100 {
		t.Errorf("PageSize = %d, want 100", cfg.PageSize)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, DefaultTimeout)
	}
	if cfg.UserAgent == "" {
		t.Error("UserAgent should not be empty")
	}
}

func TestTokenURL(t *testing.T) {
	want := "https://login.microsoftonline.com/contoso.onmicrosoft.com/oauth2/v2.0/token"
	if got := TokenURL("contoso.onmicrosoft.com"); got != want {
		t.Errorf("TokenURL() = %q, want %q", got, want)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{http.StatusBadRequest, ErrorClassClient},
		{http.StatusUnauthorized, ErrorClassClient},
		{http.StatusForbidden, ErrorClassClient},
		{http.StatusNotFound, ErrorClassClient},
		{http.StatusTooManyRequests, ErrorClassThrottled},
		{http.StatusInternalServerError, ErrorClassServer},
		{http.StatusBadGateway, ErrorClassServer},
		{http.StatusServiceUnavailable, ErrorClassThrottled},
		{http.StatusGatewayTimeout, ErrorClassServer},
		{http.StatusOK, ""},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.want {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestCollectionURL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		pageSize int
		want     string
	}{
		{
			name:     "with page size",
			baseURL:  "https://graph.microsoft.com/v1.0",
			pageSize: 100,
			want:     "https://graph.microsoft.com/v1.0/groups?$top=100",
		},
		{
			name:    "default page size",
			baseURL: "https://graph.microsoft.com/beta/",
			want:    "https://graph.microsoft.com/beta/groups",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewWithHTTPClient(Config{BaseURL: tt.baseURL, PageSize: tt.pageSize}, http.DefaultClient)
			if err != nil {
				t.Fatalf("NewWithHTTPClient() error = %v", err)
			}
			if got := c.CollectionURL(GroupsCollection); got != tt.want {
				t.Errorf("CollectionURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCollectionLabel(t *testing.T) {
	c, err := NewWithHTTPClient(Config{BaseURL: "https://graph.microsoft.com/v1.0"}, http.DefaultClient)
	if err != nil {
		t.Fatalf("NewWithHTTPClient() error = %v", err)
	}

	tests := []struct {
		rawURL string
		want   string
	}{
		{"https://graph.microsoft.com/v1.0/groups?$top=5", "groups"},
		{"https://graph.microsoft.com/v1.0/users/123/memberOf", "users"},
		{"https://graph.microsoft.com/v1.0/", "root"},
	}

	for _, tt := range tests {
		u, _ := url.Parse(tt.rawURL)
		if got := c.collectionLabel(u); got != tt.want {
			t.Errorf("collectionLabel(%q) = %q, want %q", tt.rawURL, got, tt.want)
		}
	}
}

func TestCheckNextLink(t *testing.T) {
	c, err := NewWithHTTPClient(Config{BaseURL: "https://graph.microsoft.com/v1.0"}, http.DefaultClient)
	if err != nil {
		t.Fatalf("NewWithHTTPClient() error = %v", err)
	}

	tests := []struct {
		link    string
		wantErr bool
	}{
		{"https://graph.microsoft.com/v1.0/groups?$skiptoken=abc", false},
		{"https://GRAPH.microsoft.com/v1.0/groups?$skiptoken=abc", false},
		{"https://evil.example.com/v1.0/groups?$skiptoken=abc", true},
		{"http://graph.microsoft.com/v1.0/groups", true},
		{"/v1.0/groups?$skiptoken=abc", true},
		{"://bad", true},
	}

	for _, tt := range tests {
		err := c.checkNextLink(tt.link)
		if (err != nil) != tt.wantErr {
			t.Errorf("checkNextLink(%q) error = %v, wantErr %v", tt.link, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrForeignNextLink) {
			t.Errorf("checkNextLink(%q) error = %v, want ErrForeignNextLink", tt.link, err)
		}
	}
}

func TestDo_HeadersSet(t *testing.T) {
	mock := testutil.NewMockGraph()
	defer mock.Close()
	mock.SetCollection("/v1.0/groups", nil, 0)

	client := newTestClient(t, mock)

	if _, err := client.Groups(context.Background()); err != nil {
		t.Fatalf("Groups() error = %v", err)
	}

	headers := mock.GetLastRequestHeader()
	if got := headers.Get("Accept"); got != "application/json" {
		t.Errorf("Accept = %q, want application/json", got)
	}
	if got := headers.Get("User-Agent"); got != client.config.UserAgent {
		t.Errorf("User-Agent = %q, want %q", got, client.config.UserAgent)
	}
	if got := headers.Get("client-request-id"); len(got) != 36 {
		t.Errorf("client-request-id = %q, want a UUID", got)
	}
	if got := headers.Get("Authorization"); got != "Bearer "+testutil.MockToken {
		t.Errorf("Authorization = %q, want bearer token", got)
	}
}

func TestDo_ErrorResponses(t *testing.T) {
	tests := []struct {
		name          string
		resp          testutil.MockGraphResponse
		wantStatus    int
		wantClass     ErrorClass
		wantCode      string
		wantThrottled bool
	}{
		{
			name:       "forbidden",
			resp:       testutil.NewGraphErrorResponse(http.StatusForbidden, "Authorization_RequestDenied", "Insufficient privileges to complete the operation."),
			wantStatus: http.StatusForbidden,
			wantClass:  ErrorClassClient,
			wantCode:   "Authorization_RequestDenied",
		},
		{
			name:       "server error",
			resp:       testutil.NewServerErrorResponse(),
			wantStatus: http.StatusInternalServerError,
			wantClass:  ErrorClassServer,
			wantCode:   "generalException",
		},
		{
			name:          "throttled",
			resp:          testutil.NewThrottledResponse(30),
			wantStatus:    http.StatusTooManyRequests,
			wantClass:     ErrorClassThrottled,
			wantCode:      "TooManyRequests",
			wantThrottled: true,
		},
		{
			name:       "non graph body",
			resp:       testutil.MockGraphResponse{StatusCode: http.StatusBadGateway, Body: "<html>bad gateway</html>"},
			wantStatus: http.StatusBadGateway,
			wantClass:  ErrorClassServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockGraph()
			defer mock.Close()
			mock.SetResponse("/v1.0/groups", tt.resp)

			client := newTestClient(t, mock)

			var page GroupPage
			err := client.GetJSON(context.Background(), client.CollectionURL(GroupsCollection), &page)
			if err == nil {
				t.Fatal("GetJSON() expected error, got nil")
			}

			var gerr *GraphError
			if !errors.As(err, &gerr) {
				t.Fatalf("error %v is not a *GraphError", err)
			}
			if gerr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", gerr.StatusCode, tt.wantStatus)
			}
			if gerr.ErrorClass != tt.wantClass {
				t.Errorf("ErrorClass = %q, want %q", gerr.ErrorClass, tt.wantClass)
			}
			if gerr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", gerr.Code, tt.wantCode)
			}
			if gerr.Message == "" {
				t.Error("Message should not be empty")
			}
			if gerr.RequestID == "" {
				t.Error("RequestID should echo the client-request-id")
			}
			if got := errors.Is(err, ErrThrottled); got != tt.wantThrottled {
				t.Errorf("errors.Is(err, ErrThrottled) = %v, want %v", got, tt.wantThrottled)
			}
		})
	}
}

func TestDo_NoRetry(t *testing.T) {
	mock := testutil.NewMockGraph()
	defer mock.Close()
	mock.SetResponse("/v1.0/groups", testutil.NewServerErrorResponse())

	client := newTestClient(t, mock)

	if _, err := client.Groups(context.Background()); err == nil {
		t.Fatal("Groups() expected error, got nil")
	}
	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("request count = %d, want 1 (no retries)", got)
	}
}

func TestDo_RedisDownDoesNotBlock(t *testing.T) {
	mock := testutil.NewMockGraph()
	defer mock.Close()
	mock.SetCollection("/v1.0/groups", testutil.AsAny(testutil.FakeGroups(3)), 10)

	// Nothing listens on port 1; every Redis call fails fast.
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	cfg := DefaultConfig("contoso", "app-id", "app-secret")
	cfg.BaseURL = mock.URL() + "/v1.0"
	cfg.TokenURL = mock.TokenURL()
	cfg.Timeout = 5 * time.Second
	cfg.Redis = rdb

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	groups, err := client.Groups(context.Background())
	if err != nil {
		t.Fatalf("Groups() with Redis down error = %v, want success", err)
	}
	if len(groups) != 3 {
		t.Errorf("len(Groups()) = %d, want 3", len(groups))
	}
}

func TestDo_NetworkError(t *testing.T) {
	mock := testutil.NewMockGraph()
	baseURL := mock.URL() + "/v1.0"
	mock.Close()

	client, err := NewWithHTTPClient(Config{BaseURL: baseURL, Timeout: time.Second}, &http.Client{Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewWithHTTPClient() error = %v", err)
	}

	_, err = client.Groups(context.Background())

	var gerr *GraphError
	if !errors.As(err, &gerr) {
		t.Fatalf("error %v is not a *GraphError", err)
	}
	if gerr.ErrorClass != ErrorClassNetwork {
		t.Errorf("ErrorClass = %q, want %q", gerr.ErrorClass, ErrorClassNetwork)
	}
}

func TestDo_TokenRejected(t *testing.T) {
	mock := testutil.NewMockGraph()
	defer mock.Close()
	mock.SetResponse(testutil.TokenPath, testutil.MockGraphResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"error":"invalid_client","error_description":"AADSTS7000215: Invalid client secret provided."}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	})
	mock.SetCollection("/v1.0/users", nil, 0)

	client := newTestClient(t, mock)

	_, err := client.Users(context.Background())

	var gerr *GraphError
	if !errors.As(err, &gerr) {
		t.Fatalf("error %v is not a *GraphError", err)
	}
	if gerr.StatusCode != http.StatusUnauthorized || gerr.ErrorClass != ErrorClassClient {
		t.Errorf("GraphError = %+v, want 401 client error", gerr)
	}
	if gerr.Code != "invalid_client" {
		t.Errorf("Code = %q, want invalid_client", gerr.Code)
	}
	if got := mock.GetRequestCount(); got != 0 {
		t.Errorf("Graph saw %d requests, want 0", got)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	mock := testutil.NewMockGraph()
	defer mock.Close()
	mock.SetCollection("/v1.0/groups", nil, 0)

	client := newTestClient(t, mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Groups(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Groups() error = %v, want context.Canceled", err)
	}
}

func TestGetJSON_DecodeError(t *testing.T) {
	mock := testutil.NewMockGraph()
	defer mock.Close()
	mock.SetResponse("/v1.0/groups", testutil.MockGraphResponse{StatusCode: http.StatusOK, Body: "{not json"})

	client := newTestClient(t, mock)

	var page GroupPage
	err := client.GetJSON(context.Background(), client.CollectionURL(GroupsCollection), &page)
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Errorf("GetJSON() error = %v, want decode error", err)
	}
}
