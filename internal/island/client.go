// Package island is a small client for the Island's REST API. Client.Fetch is
// the authenticated fetch capability handed to the report assembler.
package island

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hakim/islandreport/internal/models"
	"go.uber.org/zap"
)

// API paths served by the Island.
const (
	PathLogin                 = "/api/login"
	PathStolenCredentials     = "/api/propagation-credentials/stolen-credentials"
	PathConfiguredCredentials = "/api/propagation-credentials/configured-credentials"
	PathAgents                = "/api/agents"
	PathMachines              = "/api/machines"
	PathSecurityReport        = "/api/report/security"
	PathAgentEvents           = "/api/agent-events"
)

// TokenHeader carries the session token on every authenticated request.
const TokenHeader = "Authentication-Token"

// ErrNotAuthenticated is returned when a request is attempted without a token.
var ErrNotAuthenticated = errors.New("island: not authenticated")

// FetchFunc performs an authenticated GET of path and decodes the JSON
// response body into out.
type FetchFunc func(ctx context.Context, path string, out any) error

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("island: %s %s returned status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("island: %s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	Token              string
	Timeout            time.Duration
	InsecureSkipVerify bool
	Logger             *zap.Logger
}

// Client talks to a single Island server.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger

	mu    sync.RWMutex
	token string
}

// NewClient creates a client for the Island at baseURL.
func NewClient(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("island: parsing base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("island: base URL %q must be absolute", baseURL)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		// The Island ships with a self-signed certificate.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: opts.Timeout, Transport: transport},
		logger:  logger.Named("island"),
		token:   opts.Token,
	}, nil
}

// BaseURL returns the Island URL the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Token returns the current session token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Response struct {
		User struct {
			AuthenticationToken string `json:"authentication_token"`
		} `json:"user"`
	} `json:"response"`
}

// Login exchanges a username and password for a session token and stores it
// on the client.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return fmt.Errorf("island: marshaling login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(PathLogin, nil), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("island: building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp loginResponse
	if err := c.do(req, PathLogin, &resp); err != nil {
		return err
	}

	token := resp.Response.User.AuthenticationToken
	if token == "" {
		return fmt.Errorf("island: login response carried no authentication token")
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	c.logger.Debug("Logged in to island", zap.String("user", username))
	return nil
}

// Fetch performs an authenticated GET of path and decodes the JSON body into out.
// Its method value satisfies FetchFunc.
func (c *Client) Fetch(ctx context.Context, path string, out any) error {
	return c.fetchQuery(ctx, path, nil, out)
}

func (c *Client) fetchQuery(ctx context.Context, path string, query url.Values, out any) error {
	token := c.Token()
	if token == "" {
		return ErrNotAuthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, query), nil)
	if err != nil {
		return fmt.Errorf("island: building request for %s: %w", path, err)
	}
	req.Header.Set(TokenHeader, token)
	req.Header.Set("Accept", "application/json")

	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, path string, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("island: %s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Island request finished",
		zap.String("method", req.Method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{
			Method:     req.Method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("island: decoding %s response: %w", path, err)
	}
	return nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// SecurityReport fetches the pre-aggregated security report.
func (c *Client) SecurityReport(ctx context.Context) (*models.Report, error) {
	var r models.Report
	if err := c.Fetch(ctx, PathSecurityReport, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
