package db

import (
	"bytes"
	"io"
	"net/http"
	"sync"
)

// MockRESTTransport captures PostgREST calls for testing
type MockRESTTransport struct {
	mu        sync.Mutex
	requests  []CapturedRequest
	responses map[string][]mockResponse
}

// CapturedRequest is a request seen by the transport, with its body read out.
type CapturedRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Header http.Header
	Body   string
}

type mockResponse struct {
	status int
	body   string
}

// NewMockRESTTransport creates a new mock PostgREST HTTP transport
func NewMockRESTTransport() *MockRESTTransport {
	return &MockRESTTransport{
		responses: make(map[string][]mockResponse),
	}
}

// RoundTrip implements http.RoundTripper interface
func (m *MockRESTTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
	}
	m.requests = append(m.requests, CapturedRequest{
		Method: req.Method,
		Path:   req.URL.Path,
		Query:  req.URL.Query(),
		Header: req.Header.Clone(),
		Body:   string(body),
	})

	// Queued responses are consumed in order; the last one repeats.
	key := req.Method + " " + req.URL.Path
	status, respBody := http.StatusOK, "[]"
	if queue := m.responses[key]; len(queue) > 0 {
		status, respBody = queue[0].status, queue[0].body
		if len(queue) > 1 {
			m.responses[key] = queue[1:]
		}
	}

	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(bytes.NewReader([]byte(respBody))),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// QueueResponse appends a response for a specific request
func (m *MockRESTTransport) QueueResponse(method, path string, statusCode int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := method + " " + path
	m.responses[key] = append(m.responses[key], mockResponse{status: statusCode, body: body})
}

// GetRequests returns all captured HTTP requests
func (m *MockRESTTransport) GetRequests() []CapturedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CapturedRequest{}, m.requests...)
}

// Reset clears all captured data
func (m *MockRESTTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.responses = make(map[string][]mockResponse)
}
