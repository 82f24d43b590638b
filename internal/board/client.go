package board

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// API defines the board endpoints the sync layer consumes.
// This interface is implemented by *Client and can be used for testing.
type API interface {
	CheckUpdates(ctx context.Context) (UpdateBatch, error)
	ToggleReaction(ctx context.Context, req ReactionRequest) (ReactionResult, error)
	DeletePost(ctx context.Context, postID string) error
	FetchPage(ctx context.Context, path string) (Page, error)
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// Client talks to the board HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	jar       http.CookieJar
	userAgent string
	csrfToken string
}

const (
	defaultBaseURL   = "http://127.0.0.1:8000"
	defaultUserAgent = "boardsync/0.1"
	requestTimeout   = 10 * time.Second
	maxErrorBody     = 64 * 1024

	csrfCookie = "csrftoken"
	csrfHeader = "X-CSRFToken"
	pushPath   = "/ws/board/"
)

// NewClient builds a Client for the board at baseURL. An empty value uses
// the local development server.
func NewClient(baseURL string) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
			Jar:     jar,
		},
		jar:       jar,
		userAgent: defaultUserAgent,
	}, nil
}

// SetCSRFToken pins the anti-forgery token instead of reading it from the
// csrftoken cookie.
func (c *Client) SetCSRFToken(token string) {
	c.csrfToken = strings.TrimSpace(token)
}

// Jar returns the cookie jar shared with the push connection.
func (c *Client) Jar() http.CookieJar {
	return c.jar
}

// BaseURL returns a copy of the board's base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// PushURL returns the WebSocket synchronization endpoint for the board.
func (c *Client) PushURL() string {
	u := c.BaseURL()
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = pushPath
	return u.String()
}

// CheckUpdates polls the server for updates. Entries that are not valid
// update objects are counted in Malformed and dropped.
func (c *Client) CheckUpdates(ctx context.Context) (UpdateBatch, error) {
	if c == nil {
		return UpdateBatch{}, fmt.Errorf("client is nil")
	}
	var payload checkUpdatesResponse
	if err := c.do(ctx, http.MethodGet, "/api/check-updates/", nil, &payload); err != nil {
		return UpdateBatch{}, err
	}
	var batch UpdateBatch
	if !payload.HasUpdates {
		return batch, nil
	}
	for _, raw := range payload.Updates {
		update, err := DecodeUpdate(raw)
		if err != nil {
			batch.Malformed++
			continue
		}
		batch.Updates = append(batch.Updates, update)
	}
	return batch, nil
}

// ToggleReaction flips the session's reaction on a post or comment. A reply
// with success:false returns the decoded result and a *RejectedError.
func (c *Client) ToggleReaction(ctx context.Context, req ReactionRequest) (ReactionResult, error) {
	if c == nil {
		return ReactionResult{}, fmt.Errorf("client is nil")
	}
	if _, err := ParseTargetType(string(req.TargetType)); err != nil {
		return ReactionResult{}, err
	}
	if strings.TrimSpace(req.TargetID) == "" {
		return ReactionResult{}, fmt.Errorf("target id required")
	}
	path := fmt.Sprintf("/api/%s/%s/reaction/", req.TargetType, url.PathEscape(req.TargetID))
	var result ReactionResult
	if err := c.do(ctx, http.MethodPost, path, req, &result); err != nil {
		return ReactionResult{}, err
	}
	if !result.Success {
		return result, &RejectedError{Message: result.Error}
	}
	return result, nil
}

// DeletePost removes a post.
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(postID) == "" {
		return fmt.Errorf("post id required")
	}
	path := fmt.Sprintf("/api/post/%s/delete/", url.PathEscape(postID))
	var result DeleteResult
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &result); err != nil {
		return err
	}
	if !result.Success {
		return &RejectedError{Message: result.Error}
	}
	return nil
}

// FetchPage downloads and parses a rendered board page.
func (c *Client) FetchPage(ctx context.Context, path string) (Page, error) {
	if c == nil {
		return Page{}, fmt.Errorf("client is nil")
	}
	rel, err := url.Parse(normalizePath(path))
	if err != nil {
		return Page{}, fmt.Errorf("parse page path %q: %w", path, err)
	}
	resp, err := c.send(ctx, http.MethodGet, rel, nil, "text/html")
	if err != nil {
		return Page{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return Page{}, readAPIError(rel.Path, resp)
	}
	return ParsePage(rel.Path, io.LimitReader(resp.Body, 4*1024*1024))
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	rel := &url.URL{Path: path}
	resp, err := c.send(ctx, method, rel, body, "application/json")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return readAPIError(path, resp)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method string, rel *url.URL, body any, accept string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
		if token := c.csrf(ctx); token != "" {
			req.Header.Set(csrfHeader, token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

// csrf returns the anti-forgery token, priming the cookie jar with a page
// load when the cookie has not been issued yet.
func (c *Client) csrf(ctx context.Context) string {
	if c.csrfToken != "" {
		return c.csrfToken
	}
	if token := c.cookie(csrfCookie); token != "" {
		return token
	}
	c.prime(ctx)
	return c.cookie(csrfCookie)
}

func (c *Client) prime(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.ResolveReference(&url.URL{Path: "/"}).String(), nil)
	if err != nil {
		return
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}

func (c *Client) cookie(name string) string {
	for _, ck := range c.jar.Cookies(c.baseURL) {
		if ck.Name != name {
			continue
		}
		if decoded, err := url.QueryUnescape(ck.Value); err == nil {
			return decoded
		}
		return ck.Value
	}
	return ""
}

func readAPIError(path string, resp *http.Response) error {
	apiErr := &APIError{Path: path, Status: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil && len(raw) > 0 {
		var body struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &body) == nil {
			apiErr.Message = strings.TrimSpace(body.Error)
		}
	}
	return apiErr
}

func normalizePath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "/"
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return trimmed
}

func parseBaseURL(baseURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base_url %q: %w", baseURL, err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return nil, fmt.Errorf("parse base_url %q: unsupported scheme %q", baseURL, u.Scheme)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
