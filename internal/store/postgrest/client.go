// Package postgrest implements store.Store against a Supabase-style
// PostgREST endpoint. The server is the sole arbiter of consistency;
// predicate guards (deleted_at is null / not null) resolve races there.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// noRowCode is PostgREST's code for "single object requested, zero rows
// matched".
const noRowCode = "PGRST116"

// Client is a minimal PostgREST HTTP client.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewClient creates a client for the given Supabase project URL and
// service key.
func NewClient(baseURL, serviceKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// serverError is the error body PostgREST returns on failure.
type serverError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *serverError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *serverError) noRow() bool {
	return e.Code == noRowCode
}

// request describes one PostgREST call.
type request struct {
	method string
	table  string
	query  url.Values
	body   any

	// single asks for exactly one object; zero matching rows become a
	// noRow serverError.
	single bool

	// returning asks the server to echo affected rows back.
	returning bool
}

// do executes the request and decodes the response into out (when non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	endpoint := c.baseURL + "/rest/v1/" + req.table
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("apikey", c.serviceKey)
	httpReq.Header.Set("Authorization", "Bearer "+c.serviceKey)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.single {
		httpReq.Header.Set("Accept", "application/vnd.pgrst.object+json")
	}
	if req.returning {
		httpReq.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	srvErr := &serverError{Status: resp.StatusCode}
	if err := json.Unmarshal(data, srvErr); err != nil || srvErr.Message == "" {
		srvErr.Message = fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return srvErr
}

// quoteLiteral escapes s for use inside a PostgREST quoted value so that
// wildcard and separator characters stay literal.
func quoteLiteral(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		`%`, `\%`,
		`_`, `\_`,
	)
	return `"` + replacer.Replace(s) + `"`
}

// containsPattern builds the ilike pattern matching s anywhere, with s
// treated as a literal substring.
func containsPattern(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		`%`, `\%`,
		`_`, `\_`,
	)
	return `"*` + replacer.Replace(s) + `*"`
}
