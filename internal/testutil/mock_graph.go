// Package testutil provides testing utilities for the directory fetcher.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// TokenPath is the token endpoint served by MockGraph.
const TokenPath = "/oauth2/v2.0/token"

// MockToken is the access token MockGraph hands out.
const MockToken = "mock-access-token"

// MockGraphResponse defines the behavior for a mock Graph endpoint response.
type MockGraphResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

type collection struct {
	items    []any
	pageSize int
	failures map[int]MockGraphResponse // keyed by 1-based page number
}

// MockGraph is a configurable mock Microsoft Graph server for testing.
// Collections are served in pages linked by @odata.nextLink.
type MockGraph struct {
	server      *httptest.Server
	mu          sync.RWMutex
	handlers    map[string]func(w http.ResponseWriter, r *http.Request)
	collections map[string]*collection

	// Tracking
	RequestCount      int
	TokenRequests     int
	LastRequestHeader http.Header
}

// NewMockGraph creates a new mock Graph server.
func NewMockGraph() *MockGraph {
	mock := &MockGraph{
		handlers:    make(map[string]func(w http.ResponseWriter, r *http.Request)),
		collections: make(map[string]*collection),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		if r.URL.Path == TokenPath {
			mock.TokenRequests++
		} else {
			mock.RequestCount++
			mock.LastRequestHeader = r.Header.Clone()
		}
		handler, hasHandler := mock.handlers[r.URL.Path]
		coll, hasCollection := mock.collections[r.URL.Path]
		mock.mu.Unlock()

		switch {
		case hasHandler:
			handler(w, r)
		case r.URL.Path == TokenPath:
			mock.tokenHandler(w, r)
		case hasCollection:
			mock.collectionHandler(w, r, coll)
		default:
			writeResponse(w, NewGraphErrorResponse(http.StatusNotFound, "Request_ResourceNotFound",
				fmt.Sprintf("Resource '%s' does not exist.", r.URL.Path)))
		}
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockGraph) URL() string {
	return m.server.URL
}

// TokenURL returns the URL of the mock token endpoint.
func (m *MockGraph) TokenURL() string {
	return m.server.URL + TokenPath
}

// Close shuts down the mock server.
func (m *MockGraph) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockGraph) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.TokenRequests = 0
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockGraph) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockGraph) SetResponse(path string, resp MockGraphResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// SetCollection serves items at path in pages of pageSize. A pageSize below
// one serves everything in a single page.
func (m *MockGraph) SetCollection(path string, items []any, pageSize int) {
	if items == nil {
		items = []any{}
	}
	if pageSize < 1 {
		pageSize = len(items)
		if pageSize == 0 {
			pageSize = 1
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[path] = &collection{
		items:    items,
		pageSize: pageSize,
		failures: make(map[int]MockGraphResponse),
	}
}

// FailPage makes the given 1-based page of the collection at path answer
// with resp instead of its items.
func (m *MockGraph) FailPage(path string, page int, resp MockGraphResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if coll, ok := m.collections[path]; ok {
		coll.failures[page] = resp
	}
}

// GetRequestCount returns the number of Graph requests made to the server,
// token requests excluded.
func (m *MockGraph) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetTokenRequests returns the number of token requests.
func (m *MockGraph) GetTokenRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.TokenRequests
}

// GetLastRequestHeader returns the headers of the last Graph request.
func (m *MockGraph) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

func (m *MockGraph) tokenHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "client_credentials" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "unsupported_grant_type",
			"error_description": "only client_credentials is supported",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": MockToken,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (m *MockGraph) collectionHandler(w http.ResponseWriter, r *http.Request, coll *collection) {
	if r.Header.Get("Authorization") != "Bearer "+MockToken {
		writeResponse(w, NewGraphErrorResponse(http.StatusUnauthorized, "InvalidAuthenticationToken",
			"Access token is empty."))
		return
	}

	offset := 0
	if skip := r.URL.Query().Get("$skiptoken"); skip != "" {
		n, err := strconv.Atoi(skip)
		if err != nil || n < 0 || n > len(coll.items) {
			writeResponse(w, NewGraphErrorResponse(http.StatusBadRequest, "BadRequest", "Invalid skip token."))
			return
		}
		offset = n
	}

	page := offset/coll.pageSize + 1
	m.mu.RLock()
	failure, failing := coll.failures[page]
	m.mu.RUnlock()
	if failing {
		writeResponse(w, failure)
		return
	}

	end := offset + coll.pageSize
	if end > len(coll.items) {
		end = len(coll.items)
	}

	body := map[string]any{
		"@odata.context": m.server.URL + "/v1.0/$metadata" + r.URL.Path,
		"value":          coll.items[offset:end],
	}
	if end < len(coll.items) {
		body["@odata.nextLink"] = fmt.Sprintf("%s%s?$skiptoken=%d", m.server.URL, r.URL.Path, end)
	}
	writeJSON(w, http.StatusOK, body)
}

func writeResponse(w http.ResponseWriter, resp MockGraphResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// NewGraphErrorResponse creates a response carrying a Graph error body.
func NewGraphErrorResponse(status int, code, message string) MockGraphResponse {
	body, _ := json.Marshal(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
	return MockGraphResponse{
		StatusCode: status,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewThrottledResponse creates a 429 Too Many Requests response.
func NewThrottledResponse(retryAfterSeconds int) MockGraphResponse {
	resp := NewGraphErrorResponse(http.StatusTooManyRequests, "TooManyRequests",
		"Too many requests. Please try again later.")
	resp.Headers["Retry-After"] = strconv.Itoa(retryAfterSeconds)
	return resp
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockGraphResponse {
	return NewGraphErrorResponse(http.StatusInternalServerError, "generalException",
		"An unexpected error occurred.")
}
