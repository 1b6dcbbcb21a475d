package db

import (
	"bytes"
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

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	restPath        = "/rest/v1/"
	defaultPageSize = 1000 // Supabase's default max-rows
	defaultTimeout  = 15 * time.Second
)

// RESTStore is a Store backed by the Supabase REST API (PostgREST).
// Every table it addresses must have an "id" column; updates target rows by it
// and paginated reads are ordered by it.
type RESTStore struct {
	BaseURL  string
	APIKey   string
	PageSize int

	client  *http.Client
	limiter *rate.Limiter
}

type RESTOption func(*RESTStore)

// WithTransport replaces the base HTTP transport. The bearer token is still
// injected on top of it.
func WithTransport(base http.RoundTripper) RESTOption {
	return func(s *RESTStore) {
		s.client.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: s.APIKey}),
			Base:   base,
		}
	}
}

func WithTimeout(d time.Duration) RESTOption {
	return func(s *RESTStore) { s.client.Timeout = d }
}

// WithUpdateRate caps PATCH requests per second. Zero or less disables the cap.
func WithUpdateRate(perSecond float64) RESTOption {
	return func(s *RESTStore) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

func WithPageSize(n int) RESTOption {
	return func(s *RESTStore) {
		if n > 0 {
			s.PageSize = n
		}
	}
}

func NewRESTStore(baseURL, apiKey string, opts ...RESTOption) *RESTStore {
	s := &RESTStore{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		APIKey:   apiKey,
		PageSize: defaultPageSize,
	}
	s.client = oauth2.NewClient(context.Background(),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey}))
	s.client.Timeout = defaultTimeout
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// APIError is the error body PostgREST returns on non-2xx responses.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "postgrest: %d", e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Details != "" {
		fmt.Fprintf(&b, "; %s", e.Details)
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, " (hint: %s)", e.Hint)
	}
	return b.String()
}

// Ping requests the API root, which only answers with a valid key.
func (s *RESTStore) Ping(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodGet, s.BaseURL+restPath, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Select pages through the table until a short page comes back.
func (s *RESTStore) Select(ctx context.Context, q Query) ([]Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	params := selectParams(q)
	var all []Row
	for offset := 0; ; offset += pageSize {
		params.Set("limit", strconv.Itoa(pageSize))
		params.Set("offset", strconv.Itoa(offset))
		endpoint := s.BaseURL + restPath + q.Table + "?" + params.Encode()

		resp, err := s.do(ctx, http.MethodGet, endpoint, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("select from %s: %w", q.Table, err)
		}
		page, err := decodeRows(resp)
		if err != nil {
			return nil, fmt.Errorf("select from %s: %w", q.Table, err)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			break
		}
	}
	return all, nil
}

func (s *RESTStore) Update(ctx context.Context, table, id string, values map[string]any) error {
	if err := validUpdate(table, id, values); err != nil {
		return err
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("update %s %s: %w", table, id, err)
		}
	}
	jsonBody, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode body: %w", err)
	}
	params := url.Values{}
	params.Set("id", "eq."+id)
	endpoint := s.BaseURL + restPath + table + "?" + params.Encode()
	headers := map[string]string{
		"Content-Type": "application/json",
		"Prefer":       "return=representation",
	}

	resp, err := s.do(ctx, http.MethodPatch, endpoint, bytes.NewReader(jsonBody), headers)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", table, id, err)
	}
	if resp.StatusCode == http.StatusNoContent {
		resp.Body.Close()
		return nil
	}
	rows, err := decodeRows(resp)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", table, id, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("update %s %s: %w", table, id, ErrNotFound)
	}
	return nil
}

// do sends the request and converts non-2xx responses into *APIError.
// On success the caller owns resp.Body.
func (s *RESTStore) do(ctx context.Context, method, endpoint string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", s.APIKey)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(raw, apiErr); err != nil || (apiErr.Message == "" && apiErr.Code == "") {
		// Fallback: unknown error format
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = resp.Status
		}
	}
	return nil, apiErr
}

func decodeRows(resp *http.Response) ([]Row, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var rows []Row
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return rows, nil
}

func selectParams(q Query) url.Values {
	params := url.Values{}
	if len(q.Columns) > 0 {
		params.Set("select", strings.Join(q.Columns, ","))
	} else {
		params.Set("select", "*")
	}
	for _, f := range q.Filters {
		params.Add(f.Column, string(f.Op)+"."+filterValue(f.Value))
	}
	params.Set("order", "id.asc")
	return params
}

// filterValue renders a filter operand the way PostgREST parses it.
func filterValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

// IsAPIError reports whether err carries a PostgREST error with the given HTTP status.
func IsAPIError(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
