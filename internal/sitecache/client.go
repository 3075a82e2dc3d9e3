package sitecache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/yanizio/libretv-sites/internal/auth"
	"github.com/yanizio/libretv-sites/internal/respond"
	"github.com/yanizio/libretv-sites/internal/site"
)

// ResourcePath is where the CRUD handler is mounted.
const ResourcePath = "/customer-sites"

// APIError carries a non-success response from the CRUD endpoint.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("customer-sites: %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == status
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithClock replaces time.Now for the `t` parameter (tests).
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// Client speaks the CRUD protocol.  Every call carries the credential as
// `auth` and the current time as `t`.
type Client struct {
	base *url.URL
	http *http.Client
	now  func() time.Time
}

// NewClient returns a Client for the server at baseURL (scheme and host,
// optionally a path prefix).
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("sitecache: base URL is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("sitecache: invalid base URL: %w", err)
	}
	c := &Client{
		base: u,
		http: &http.Client{Timeout: 10 * time.Second},
		now:  time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) List(ctx context.Context, cred string) ([]site.Record, error) {
	var out []site.Record
	err := c.do(ctx, http.MethodGet, cred, "", nil, &out)
	return out, err
}

func (c *Client) Get(ctx context.Context, cred, id string) (*site.Record, error) {
	var out site.Record
	if err := c.do(ctx, http.MethodGet, cred, id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Create(ctx context.Context, cred, id string, e site.Entry) (*site.Record, error) {
	body := map[string]any{"id": id, "api": e.API, "name": e.Name, "adult": e.Adult}
	var out site.Record
	if err := c.do(ctx, http.MethodPost, cred, "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Update(ctx context.Context, cred, id string, e site.Entry) (*site.Record, error) {
	var out site.Record
	if err := c.do(ctx, http.MethodPut, cred, id, e, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, cred, id string) error {
	return c.do(ctx, http.MethodDelete, cred, id, nil, nil)
}

func (c *Client) url(cred, id string) string {
	u := *c.base
	u.Path += ResourcePath
	if id != "" {
		u.Path += "/" + id
		u.RawPath = c.base.EscapedPath() + ResourcePath + "/" + url.PathEscape(id)
	}
	u.RawQuery = url.Values{
		auth.ParamAuth:      {cred},
		auth.ParamTimestamp: {auth.Timestamp(c.now())},
	}.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, cred, id string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("sitecache: encode body: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(cred, id), rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sitecache: %s %s: %w", method, ResourcePath, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("sitecache: read response: %w", err)
	}

	var env respond.Envelope
	if jerr := json.Unmarshal(data, &env); jerr != nil {
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("sitecache: decode response: %w", jerr)
	}
	if resp.StatusCode >= 300 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("sitecache: decode data: %w", err)
		}
	}
	return nil
}
