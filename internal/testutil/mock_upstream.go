// Package testutil provides testing utilities for the partner dashboard.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockUpstreamResponse defines what the mock Apps Script endpoint returns.
type MockUpstreamResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockUpstream is a configurable mock of the Apps Script web app.
type MockUpstream struct {
	server   *httptest.Server
	mu       sync.RWMutex
	response MockUpstreamResponse

	requestCount int
	lastHeader   http.Header
}

// NewMockUpstream creates a mock that serves an empty data set until configured.
func NewMockUpstream() *MockUpstream {
	mock := &MockUpstream{
		response: NewRowsResponse(),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.lastHeader = r.Header.Clone()
		resp := mock.response
		mock.mu.Unlock()

		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockUpstream) Close() {
	m.server.Close()
}

// Reset clears the request counter.
func (m *MockUpstream) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.lastHeader = nil
}

// SetResponse replaces the configured response.
func (m *MockUpstream) SetResponse(resp MockUpstreamResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = resp
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockUpstream) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockUpstream) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

// NewRowsResponse creates a 200 OK `{ "data": [...] }` response.
// Each row is a raw JSON object literal.
func NewRowsResponse(rows ...string) MockUpstreamResponse {
	return MockUpstreamResponse{
		StatusCode: http.StatusOK,
		Body:       `{"data":[` + strings.Join(rows, ",") + `]}`,
	}
}

// NewErrorPayloadResponse creates a 200 OK response carrying `{ "error": msg }`.
func NewErrorPayloadResponse(msg string) MockUpstreamResponse {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return MockUpstreamResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
	}
}

// NewStatusResponse creates a bare response with the given status code.
func NewStatusResponse(status int) MockUpstreamResponse {
	return MockUpstreamResponse{
		StatusCode: status,
		Body:       fmt.Sprintf(`{"status":%d}`, status),
	}
}

// OrderRow renders a typical marketplace order row with the given creation time.
func OrderRow(orderID, createdTime string) string {
	return fmt.Sprintf(
		`{"Order ID":%q,"Created Time":%q,"Product Name":"Kaos Polos","Quantity":1,"db_pk_pesanan":%q,"db_system_created_on":"2026-01-01"}`,
		orderID, createdTime, "pk-"+orderID,
	)
}

// OrderRows renders n order rows sharing the same creation time.
func OrderRows(n int, createdTime string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = OrderRow(fmt.Sprintf("ORD-%03d", i+1), createdTime)
	}
	return out
}
