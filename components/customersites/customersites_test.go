package customersites_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/yanizio/libretv-sites/components/customersites"
	"github.com/yanizio/libretv-sites/internal/auth"
	"github.com/yanizio/libretv-sites/internal/component"
	"github.com/yanizio/libretv-sites/internal/server"
	"github.com/yanizio/libretv-sites/internal/site"
	"github.com/yanizio/libretv-sites/internal/store"
	"github.com/yanizio/libretv-sites/internal/store/memstore"
)

const secret = "s3cret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

type harness struct {
	t *testing.T
	h http.Handler
}

func newHarness(t *testing.T, s store.Store) *harness {
	t.Helper()
	return newHarnessAt(t, s, nil)
}

// newHarnessAt is newHarness with the handler clock set to now.
func newHarnessAt(t *testing.T, s store.Store, now func() time.Time) *harness {
	t.Helper()
	deps := component.Deps{Store: s, Auth: auth.New(secret), Log: zap.NewNop().Sugar(), Now: now}
	comp, err := customersites.New(deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h, err := server.NewRouter(server.RouterOptions{Deps: deps, Components: []component.Component{comp}})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return &harness{t: t, h: h}
}

func authed(path string) string {
	q := url.Values{"auth": {auth.Digest(secret)}, "t": {strconv.FormatInt(time.Now().UnixMilli(), 10)}}
	return path + "?" + q.Encode()
}

func (h *harness) do(method, target string, body any) (*httptest.ResponseRecorder, envelope) {
	h.t.Helper()
	var rd *bytes.Reader
	if s, ok := body.(string); ok {
		rd = bytes.NewReader([]byte(s))
	} else if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			h.t.Fatalf("%s %s: body is not an envelope: %s", method, target, rec.Body.String())
		}
	}
	return rec, env
}

func expect(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("CORS allow-origin missing")
	}
	if status != http.StatusNoContent && rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("content-type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestLifecycle(t *testing.T) {
	h := newHarness(t, memstore.New())
	qiqi := map[string]any{"id": "qiqi", "api": "https://www.qiqidys.com/api.php/provide/vod", "name": "七七资源"}

	rec, env := h.do(http.MethodPost, authed("/customer-sites"), qiqi)
	expect(t, rec, http.StatusOK)
	var created site.Record
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatal(err)
	}
	if !env.Success || created.ID != "qiqi" || created.Adult || created.CreatedAt == "" || created.UpdatedAt != created.CreatedAt {
		t.Fatalf("created = %+v", created)
	}
	if _, err := time.Parse(site.TimeLayout, created.CreatedAt); err != nil {
		t.Fatalf("createdAt %q: %v", created.CreatedAt, err)
	}

	rec, env = h.do(http.MethodPost, authed("/customer-sites"), qiqi)
	expect(t, rec, http.StatusConflict)
	if env.Success || env.Error != customersites.MsgConflict {
		t.Fatalf("conflict envelope = %+v", env)
	}

	rec, env = h.do(http.MethodGet, authed("/customer-sites/qiqi"), nil)
	expect(t, rec, http.StatusOK)
	var got site.Record
	_ = json.Unmarshal(env.Data, &got)
	if got != created {
		t.Fatalf("get = %+v, want %+v", got, created)
	}

	rec, env = h.do(http.MethodPut, authed("/customer-sites/qiqi"), map[string]any{"api": "https://b.example/api", "name": "B", "adult": true})
	expect(t, rec, http.StatusOK)
	var updated site.Record
	_ = json.Unmarshal(env.Data, &updated)
	if updated.ID != "qiqi" || updated.API != "https://b.example/api" || updated.Name != "B" || !updated.Adult || updated.CreatedAt != created.CreatedAt {
		t.Fatalf("updated = %+v", updated)
	}

	rec, env = h.do(http.MethodDelete, authed("/customer-sites/qiqi"), nil)
	expect(t, rec, http.StatusOK)
	if !env.Success || env.Message != customersites.MsgDeleted {
		t.Fatalf("delete envelope = %+v", env)
	}

	rec, env = h.do(http.MethodGet, authed("/customer-sites/qiqi"), nil)
	expect(t, rec, http.StatusNotFound)
	if env.Error != customersites.MsgNotFound {
		t.Fatalf("not found envelope = %+v", env)
	}

	rec, _ = h.do(http.MethodDelete, authed("/customer-sites/qiqi"), nil)
	expect(t, rec, http.StatusNotFound)
	rec, _ = h.do(http.MethodPut, authed("/customer-sites/qiqi"), map[string]any{"api": "https://b.example", "name": "B"})
	expect(t, rec, http.StatusNotFound)
}

func TestListCountAfterCreatesAndDeletes(t *testing.T) {
	h := newHarness(t, memstore.New())

	rec, env := h.do(http.MethodGet, authed("/customer-sites"), nil)
	expect(t, rec, http.StatusOK)
	if string(env.Data) != "[]" {
		t.Fatalf("empty list data = %s", env.Data)
	}

	const n, m = 6, 2
	for i := 0; i < n; i++ {
		rec, _ := h.do(http.MethodPost, authed("/customer-sites/"), map[string]any{
			"id": fmt.Sprintf("s%d", i), "api": "http://x.example/api", "name": "N",
		})
		expect(t, rec, http.StatusOK)
	}
	for i := 0; i < m; i++ {
		rec, _ := h.do(http.MethodDelete, authed(fmt.Sprintf("/customer-sites/s%d", i)), nil)
		expect(t, rec, http.StatusOK)
	}

	rec, env = h.do(http.MethodGet, authed("/customer-sites"), nil)
	expect(t, rec, http.StatusOK)
	var recs []site.Record
	if err := json.Unmarshal(env.Data, &recs); err != nil {
		t.Fatal(err)
	}
	if len(recs) != n-m {
		t.Fatalf("list len = %d, want %d", len(recs), n-m)
	}
}

func TestBadRequests(t *testing.T) {
	h := newHarness(t, memstore.New())

	cases := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"create missing name", http.MethodPost, "/customer-sites", map[string]any{"id": "a", "api": "https://x"}},
		{"create missing id", http.MethodPost, "/customer-sites", map[string]any{"api": "https://x", "name": "A"}},
		{"create bad api", http.MethodPost, "/customer-sites", map[string]any{"id": "a", "api": "ftp://x", "name": "A"}},
		{"create bad json", http.MethodPost, "/customer-sites", "{not json"},
		{"put without id", http.MethodPut, "/customer-sites", map[string]any{"api": "https://x", "name": "A"}},
		{"put without id trailing slash", http.MethodPut, "/customer-sites/", map[string]any{"api": "https://x", "name": "A"}},
		{"delete without id", http.MethodDelete, "/customer-sites", nil},
		{"put missing api", http.MethodPut, "/customer-sites/a", map[string]any{"name": "A"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec, env := h.do(c.method, authed(c.path), c.body)
			expect(t, rec, http.StatusBadRequest)
			if env.Success || env.Error == "" {
				t.Fatalf("envelope = %+v", env)
			}
		})
	}
}

func TestUnauthorized(t *testing.T) {
	h := newHarness(t, memstore.New())

	stale := url.Values{"auth": {auth.Digest(secret)}, "t": {strconv.FormatInt(time.Now().Add(-11*time.Minute).UnixMilli(), 10)}}
	for name, target := range map[string]string{
		"no params":    "/customer-sites",
		"wrong digest": "/customer-sites?auth=" + auth.Digest("nope"),
		"raw password": "/customer-sites?auth=" + secret,
		"stale":        "/customer-sites?" + stale.Encode(),
	} {
		t.Run(name, func(t *testing.T) {
			rec, env := h.do(http.MethodGet, target, nil)
			expect(t, rec, http.StatusUnauthorized)
			if env.Success || env.Error != customersites.MsgUnauthorized {
				t.Fatalf("envelope = %+v", env)
			}
		})
	}
}

func TestUnconfiguredSecretRejectsEverything(t *testing.T) {
	deps := component.Deps{Store: memstore.New(), Auth: auth.New(""), Log: zap.NewNop().Sugar()}
	comp, _ := customersites.New(deps)
	h, _ := server.NewRouter(server.RouterOptions{Deps: deps, Components: []component.Component{comp}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customer-sites?auth="+auth.Digest(""), nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPreflightAndMethodNotAllowed(t *testing.T) {
	h := newHarness(t, memstore.New())

	rec, _ := h.do(http.MethodOptions, "/customer-sites/anything", nil)
	expect(t, rec, http.StatusNoContent)
	if rec.Header().Get("Access-Control-Max-Age") != "86400" {
		t.Fatal("max-age missing on preflight")
	}

	rec, env := h.do(http.MethodPatch, authed("/customer-sites/qiqi"), nil)
	expect(t, rec, http.StatusMethodNotAllowed)
	if env.Error != customersites.MsgMethod {
		t.Fatalf("envelope = %+v", env)
	}
}

// failingStore fails reads with a backend-specific error.
type failingStore struct{ *memstore.Store }

var errBackend = errors.New("connection refused: secret-host:5432")

func (failingStore) FindAll(context.Context) ([]site.Record, error) { return nil, errBackend }
func (failingStore) FindOne(context.Context, string) (*site.Record, error) {
	return nil, errBackend
}

func TestStorageFailureIsGeneric(t *testing.T) {
	h := newHarness(t, failingStore{Store: memstore.New()})

	for _, path := range []string{"/customer-sites", "/customer-sites/x"} {
		rec, env := h.do(http.MethodGet, authed(path), nil)
		expect(t, rec, http.StatusInternalServerError)
		if env.Error != customersites.MsgStorage || strings.Contains(rec.Body.String(), "secret-host") {
			t.Fatalf("leaky envelope: %s", rec.Body.String())
		}
	}
}

// stepClock returns a clock that starts at start and is advanced by hand.
func stepClock(start time.Time) (now func() time.Time, advance func(time.Duration)) {
	cur := start
	return func() time.Time { return cur }, func(d time.Duration) { cur = cur.Add(d) }
}

func TestUpdateRefreshesUpdatedAtOnly(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 123e6, time.UTC)
	now, advance := stepClock(t0)
	h := newHarnessAt(t, memstore.New(), now)

	rec, env := h.do(http.MethodPost, authed("/customer-sites"), map[string]any{"id": "qiqi", "api": "https://a.example/api", "name": "A"})
	expect(t, rec, http.StatusOK)
	var created site.Record
	_ = json.Unmarshal(env.Data, &created)
	if created.CreatedAt != "2024-06-01T12:00:00.123Z" || created.UpdatedAt != created.CreatedAt {
		t.Fatalf("created = %+v", created)
	}

	advance(90 * time.Second)
	rec, env = h.do(http.MethodPut, authed("/customer-sites/qiqi"), map[string]any{"api": "https://b.example/api", "name": "B"})
	expect(t, rec, http.StatusOK)
	var updated site.Record
	_ = json.Unmarshal(env.Data, &updated)
	if updated.CreatedAt != created.CreatedAt || updated.UpdatedAt != "2024-06-01T12:01:30.123Z" {
		t.Fatalf("updated timestamps = %q / %q", updated.CreatedAt, updated.UpdatedAt)
	}

	rec, env = h.do(http.MethodGet, authed("/customer-sites/qiqi"), nil)
	expect(t, rec, http.StatusOK)
	var stored site.Record
	_ = json.Unmarshal(env.Data, &stored)
	if stored != updated {
		t.Fatalf("stored = %+v, want %+v", stored, updated)
	}
}

func TestConflictKeepsOriginal(t *testing.T) {
	h := newHarness(t, memstore.New())
	orig := map[string]any{"id": "qiqi", "api": "https://a.example/api", "name": "A"}

	rec, env := h.do(http.MethodPost, authed("/customer-sites"), orig)
	expect(t, rec, http.StatusOK)
	var created site.Record
	_ = json.Unmarshal(env.Data, &created)

	rec, _ = h.do(http.MethodPost, authed("/customer-sites"), map[string]any{"id": "qiqi", "api": "https://evil.example/api", "name": "Other", "adult": true})
	expect(t, rec, http.StatusConflict)

	rec, env = h.do(http.MethodGet, authed("/customer-sites/qiqi"), nil)
	expect(t, rec, http.StatusOK)
	var got site.Record
	_ = json.Unmarshal(env.Data, &got)
	if got != created {
		t.Fatalf("record changed by rejected create: %+v, want %+v", got, created)
	}
}

func TestIDsWithReservedCharacters(t *testing.T) {
	h := newHarness(t, memstore.New())

	for _, id := range []string{"a,b", "x;y", "a/b", "a b", "100%"} {
		t.Run(id, func(t *testing.T) {
			path := "/customer-sites/" + url.PathEscape(id)

			rec, _ := h.do(http.MethodPost, authed("/customer-sites"), map[string]any{"id": id, "api": "https://a.example", "name": "A"})
			expect(t, rec, http.StatusOK)

			rec, env := h.do(http.MethodGet, authed(path), nil)
			expect(t, rec, http.StatusOK)
			var got site.Record
			_ = json.Unmarshal(env.Data, &got)
			if got.ID != id {
				t.Fatalf("get id = %q, want %q", got.ID, id)
			}

			rec, env = h.do(http.MethodPut, authed(path), map[string]any{"api": "https://b.example", "name": "B"})
			expect(t, rec, http.StatusOK)
			_ = json.Unmarshal(env.Data, &got)
			if got.ID != id || got.Name != "B" {
				t.Fatalf("updated = %+v", got)
			}

			rec, _ = h.do(http.MethodDelete, authed(path), nil)
			expect(t, rec, http.StatusOK)
			rec, _ = h.do(http.MethodGet, authed(path), nil)
			expect(t, rec, http.StatusNotFound)
		})
	}
}

func TestMalformedEscapeInID(t *testing.T) {
	h := newHarness(t, memstore.New())

	req := httptest.NewRequest(http.MethodDelete, authed("/customer-sites/x"), nil)
	req.URL.Path = "/customer-sites/a%zz"
	req.URL.RawPath = "/customer-sites/a%zz"
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	expect(t, rec, http.StatusBadRequest)
	if !strings.Contains(rec.Body.String(), customersites.MsgBadID) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
