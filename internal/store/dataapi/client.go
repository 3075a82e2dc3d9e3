// internal/store/dataapi/client.go
//
// Managed document-store adapter (Atlas-style Data API).
//
// Context
// -------
// The Data API is connectionless: every Store method is one POST to
// `{base}/action/{name}` carrying the `api-key` header and a JSON body with
// `dataSource`, `database`, and `collection` plus the action arguments.
// Documents are keyed by `_id`, which maps to Record.ID.
//
// Calls run through a gobreaker circuit breaker so a dead upstream fails
// fast instead of tying up request goroutines until the HTTP timeout.
//
// Notes
// -----
//   - There are no retries; a failed call surfaces as a storage error.
//   - Oxford commas, two spaces after periods.
package dataapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/yanizio/libretv-sites/internal/metrics"
	"github.com/yanizio/libretv-sites/internal/site"
	"github.com/yanizio/libretv-sites/internal/store"
)

var _ store.Store = (*Store)(nil)

// ErrMisconfigured is returned by New when the endpoint or key is missing.
var ErrMisconfigured = errors.New("dataapi: url and api key are required")

// Config names the Data API endpoint and target collection.
type Config struct {
	URL        string
	APIKey     string
	Cluster    string
	Database   string
	Collection string
	Timeout    time.Duration
}

// HTTPError carries a non-2xx upstream response.
type HTTPError struct {
	Action string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("dataapi: %s: upstream status %d: %s", e.Action, e.Status, e.Body)
}

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(s *Store) {
		if h != nil {
			s.http = h
		}
	}
}

// Store implements store.Store over the Data API.
type Store struct {
	base string
	cfg  Config
	http *http.Client
	cb   *gobreaker.CircuitBreaker[[]byte]
}

// New validates cfg, fills defaults, and builds the breaker.
func New(cfg Config, opts ...Option) (*Store, error) {
	if strings.TrimSpace(cfg.URL) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMisconfigured
	}
	if cfg.Cluster == "" {
		cfg.Cluster = store.DefaultCluster
	}
	if cfg.Database == "" {
		cfg.Database = store.DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = store.DefaultCollection
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	s := &Store{
		base: strings.TrimRight(cfg.URL, "/"),
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "dataapi",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		// Upstream 4xx means we sent something bad, not that it is down.
		IsSuccessful: func(err error) bool {
			var he *HTTPError
			return err == nil || (errors.As(err, &he) && he.Status < 500)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			zap.S().Warnw("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.BreakerOpen.WithLabelValues(name).Set(boolGauge(to == gobreaker.StateOpen))
		},
	})
	return s, nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// document is the wire shape of one record.
type document struct {
	ID        string `json:"_id"`
	API       string `json:"api"`
	Name      string `json:"name"`
	Adult     bool   `json:"adult"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

func (d document) record() site.Record {
	return site.Record{ID: d.ID, API: d.API, Name: d.Name, Adult: d.Adult, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
}

func toDocument(r site.Record) document {
	return document{ID: r.ID, API: r.API, Name: r.Name, Adult: r.Adult, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func idFilter(id string) map[string]any { return map[string]any{"_id": id} }

func (s *Store) FindOne(ctx context.Context, id string) (*site.Record, error) {
	var out struct {
		Document *document `json:"document"`
	}
	if err := s.call(ctx, "findOne", map[string]any{"filter": idFilter(id)}, &out); err != nil {
		return nil, err
	}
	if out.Document == nil {
		return nil, store.ErrNotFound
	}
	rec := out.Document.record()
	return &rec, nil
}

func (s *Store) FindAll(ctx context.Context) ([]site.Record, error) {
	var out struct {
		Documents []document `json:"documents"`
	}
	if err := s.call(ctx, "find", map[string]any{"filter": map[string]any{}}, &out); err != nil {
		return nil, err
	}
	recs := make([]site.Record, 0, len(out.Documents))
	for _, d := range out.Documents {
		recs = append(recs, d.record())
	}
	return recs, nil
}

func (s *Store) Insert(ctx context.Context, rec site.Record) error {
	err := s.call(ctx, "insertOne", map[string]any{"document": toDocument(rec)}, nil)
	var he *HTTPError
	if errors.As(err, &he) && isDuplicate(he.Body) {
		return store.ErrConflict
	}
	return err
}

func (s *Store) UpdateFields(ctx context.Context, id string, f site.Fields) error {
	var out struct {
		MatchedCount int `json:"matchedCount"`
	}
	args := map[string]any{
		"filter": idFilter(id),
		"update": map[string]any{"$set": f},
	}
	if err := s.call(ctx, "updateOne", args, &out); err != nil {
		return err
	}
	if out.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	var out struct {
		DeletedCount int `json:"deletedCount"`
	}
	if err := s.call(ctx, "deleteOne", map[string]any{"filter": idFilter(id)}, &out); err != nil {
		return err
	}
	if out.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// EnsureSchema is a no-op: collections are created on first insert.
func (s *Store) EnsureSchema(context.Context) error { return nil }

func (s *Store) Close() error {
	s.http.CloseIdleConnections()
	return nil
}

// call posts one action and decodes the response into out (if non-nil).
func (s *Store) call(ctx context.Context, action string, args map[string]any, out any) error {
	body := map[string]any{
		"dataSource": s.cfg.Cluster,
		"database":   s.cfg.Database,
		"collection": s.cfg.Collection,
	}
	for k, v := range args {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("dataapi: encode %s: %w", action, err)
	}

	data, err := s.cb.Execute(func() ([]byte, error) {
		return s.post(ctx, action, payload)
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("dataapi: decode %s: %w", action, err)
	}
	return nil
}

func (s *Store) post(ctx context.Context, action string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+"/action/"+action, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("dataapi: build %s: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", s.cfg.APIKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dataapi: %s: %w", action, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("dataapi: read %s: %w", action, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Action: action, Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}

func isDuplicate(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "e11000") || strings.Contains(lower, "duplicate key")
}
