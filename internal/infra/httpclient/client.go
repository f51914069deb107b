// Package httpclient is the typed client of the showcase REST API used by
// showcasectl and integration tooling. It keeps the session token, unwraps
// the response envelope, maps failures to *APIError, and de-duplicates reads
// through a RequestCache.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

const (
	DefaultTimeout       = 15 * time.Second
	DefaultRedirectDelay = 1500 * time.Millisecond
	DefaultCookieName    = "csi_auth_token"
	AdminSecretHeader    = "admin_secret_key"
	LoginPath            = "/login"
)

type Options struct {
	// BaseURL is the API root, e.g. http://localhost:8080/api/v1.
	BaseURL     string
	Timeout     time.Duration
	CookieName  string
	AdminSecret string
	CacheSize   int
	CacheMaxAge time.Duration
	// OnUnauthorized is called with LoginPath after RedirectDelay whenever a
	// call is rejected with 401. The stored token is already cleared by then.
	OnUnauthorized func(path string)
	RedirectDelay  time.Duration
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

type Client struct {
	baseURL     string
	http        *http.Client
	cookieName  string
	adminSecret string
	maxAge      time.Duration
	cache       *RequestCache
	log         *zap.Logger

	onUnauthorized func(string)
	redirectDelay  time.Duration

	mu       sync.Mutex
	token    string
	redirect *time.Timer
}

func New(opts Options) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		http:           opts.HTTPClient,
		cookieName:     opts.CookieName,
		adminSecret:    opts.AdminSecret,
		maxAge:         opts.CacheMaxAge,
		cache:          NewRequestCache(opts.CacheSize, opts.CacheMaxAge),
		log:            opts.Logger,
		onUnauthorized: opts.OnUnauthorized,
		redirectDelay:  opts.RedirectDelay,
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.cookieName == "" {
		c.cookieName = DefaultCookieName
	}
	if c.maxAge <= 0 {
		c.maxAge = DefaultCacheMaxAge
	}
	if c.redirectDelay <= 0 {
		c.redirectDelay = DefaultRedirectDelay
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

func (c *Client) Cache() *RequestCache { return c.cache }

func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

type envelope struct {
	Code  int             `json:"code"`
	Data  json.RawMessage `json:"data"`
	Msg   string          `json:"msg"`
	Error string          `json:"error"`
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func (r request) url() string {
	if len(r.query) == 0 {
		return r.path
	}
	return r.path + "?" + r.query.Encode()
}

// do performs one call and returns the unwrapped data payload.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.url(), r.body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	if tok := c.Token(); tok != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: tok})
	}
	if c.adminSecret != "" && strings.HasPrefix(r.path, "/admin") {
		req.Header.Set(AdminSecretHeader, c.adminSecret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, c.fail(&APIError{Method: r.method, Path: r.path, Msg: err.Error(), kind: ErrNetwork})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(&APIError{Method: r.method, Path: r.path, Status: resp.StatusCode, Msg: err.Error(), kind: ErrNetwork})
	}

	var env envelope
	if len(body) > 0 {
		if err := sonic.Unmarshal(body, &env); err != nil && resp.StatusCode < 400 {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
	}

	if resp.StatusCode >= 400 {
		msg := env.Msg
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, c.fail(&APIError{
			Method: r.method,
			Path:   r.path,
			Status: resp.StatusCode,
			Msg:    msg,
			Data:   env.Data,
			kind:   kindOf(resp.StatusCode),
		})
	}
	return env.Data, nil
}

// fail is the single place HTTP failures surface: it logs the error and
// handles session expiry.
func (c *Client) fail(e *APIError) error {
	c.log.Warn("api request failed",
		zap.String("method", e.Method),
		zap.String("path", e.Path),
		zap.Int("status", e.Status),
		zap.String("msg", e.Msg))

	if errors.Is(e, ErrUnauthorized) {
		c.expireSession()
	}
	return e
}

// expireSession clears the token and schedules one redirect to the login
// page. Further 401s before it fires do not schedule another.
func (c *Client) expireSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.cache.Clear()
	if c.onUnauthorized == nil || c.redirect != nil {
		return
	}
	c.redirect = time.AfterFunc(c.redirectDelay, func() {
		c.mu.Lock()
		c.redirect = nil
		c.mu.Unlock()
		c.onUnauthorized(LoginPath)
	})
}

func (c *Client) decode(data []byte, out any) error {
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	return nil
}

// get reads through the request cache.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	r := request{method: http.MethodGet, path: path, query: query}
	key := CacheKey(r.method, r.url(), nil)
	data, err := c.cache.Do(ctx, key, c.maxAge, func(ctx context.Context) ([]byte, error) {
		return c.do(ctx, r)
	})
	if err != nil {
		return err
	}
	return c.decode(data, out)
}

// getFresh bypasses the cache.
func (c *Client) getFresh(ctx context.Context, path string, query url.Values, out any) error {
	data, err := c.do(ctx, request{method: http.MethodGet, path: path, query: query})
	if err != nil {
		return err
	}
	return c.decode(data, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := sonic.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	data, err := c.do(ctx, request{method: method, path: path, body: body, contentType: "application/json"})
	if err != nil {
		return err
	}
	return c.decode(data, out)
}
