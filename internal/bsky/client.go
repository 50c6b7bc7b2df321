package bsky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// chatProxy is the atproto-proxy header value routing chat.bsky.* calls
// through the Bluesky chat service.
const chatProxy = "did:web:api.bsky.chat#bsky_chat"

// Client is a minimal XRPC client for the Bluesky endpoints the bot needs.
// Safe for concurrent use; the access token is guarded by a mutex.
type Client struct {
	baseURL string
	http    *http.Client

	mu        sync.RWMutex
	accessJWT string
	did       string
	handle    string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a client for the given PDS service URL.
func NewClient(serviceURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(serviceURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Login authenticates with an identifier + app password and stores the
// session token.
func (c *Client) Login(ctx context.Context, identifier, password string) error {
	var out struct {
		AccessJWT string `json:"accessJwt"`
		DID       string `json:"did"`
		Handle    string `json:"handle"`
	}
	in := map[string]string{"identifier": identifier, "password": password}
	if err := c.procedure(ctx, "com.atproto.server.createSession", in, &out); err != nil {
		return fmt.Errorf("bsky: login: %w", err)
	}
	c.mu.Lock()
	c.accessJWT = out.AccessJWT
	c.did = out.DID
	c.handle = out.Handle
	c.mu.Unlock()
	return nil
}

// DID returns the authenticated account's DID.
func (c *Client) DID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.did
}

// Handle returns the authenticated account's handle.
func (c *Client) Handle() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.handle
}

// query performs an XRPC GET.
func (c *Client) query(ctx context.Context, method string, params url.Values, out any) error {
	u := c.baseURL + "/xrpc/" + method
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, method, out)
}

// procedure performs an XRPC POST with a JSON body.
func (c *Client) procedure(ctx context.Context, method string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/xrpc/"+method, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, method, out)
}

func (c *Client) do(req *http.Request, method string, out any) error {
	c.mu.RLock()
	token := c.accessJWT
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if strings.HasPrefix(method, "chat.bsky.") {
		req.Header.Set("atproto-proxy", chatProxy)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Method: method, StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	return nil
}

// APIError is a non-200 XRPC response.
type APIError struct {
	Method     string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Method, e.StatusCode, e.Body)
}
