package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/yanizio/libretv-sites/internal/auth"
	"github.com/yanizio/libretv-sites/internal/metrics"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORSPreflight(t *testing.T) {
	called := false
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/customer-sites/x", nil))

	if rec.Code != http.StatusNoContent || called {
		t.Fatalf("status = %d, called = %v", rec.Code, called)
	}
	want := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET, POST, PUT, DELETE, OPTIONS",
		"Access-Control-Allow-Headers": "*",
		"Access-Control-Max-Age":       "86400",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Fatalf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestCORSHeadersOnOrdinaryResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	CORS(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("allow-origin missing without Origin header")
	}
	if rec.Header().Get("Access-Control-Max-Age") != "" {
		t.Fatal("max-age should only be sent on preflight")
	}
}

func TestRequireAuth(t *testing.T) {
	a := auth.New("pw")
	h := RequireAuth(a)(okHandler)

	before := testutil.ToFloat64(metrics.AuthFailuresTotal.WithLabelValues("mismatch"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?auth=nope", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error":"unauthorized"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
	if got := testutil.ToFloat64(metrics.AuthFailuresTotal.WithLabelValues("mismatch")); got != before+1 {
		t.Fatalf("auth failure counter = %v, want %v", got, before+1)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?auth="+url.QueryEscape(auth.Digest("pw")), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("valid credential status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("OPTIONS should pass the gate, got %d", rec.Code)
	}
}

func TestForceHTTPS(t *testing.T) {
	h := ForceHTTPS(true)(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://sites.example.test/customer-sites?auth=x", nil))
	if rec.Code != http.StatusPermanentRedirect {
		t.Fatalf("status = %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://sites.example.test/customer-sites?auth=x" {
		t.Fatalf("location = %q", loc)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://localhost:8080/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("localhost status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "http://sites.example.test/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("proxied TLS status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	ForceHTTPS(false)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://sites.example.test/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("disabled status = %d", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	Security(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("Referrer-Policy") != "no-referrer" {
		t.Fatalf("headers = %v", rec.Header())
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS sent on plain HTTP")
	}
}

func TestAccessLogCountsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(AccessLog(zap.NewNop().Sugar()))
	r.Get("/customer-sites/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	c := metrics.RequestsTotal.WithLabelValues("GET /customer-sites/{id}", "404")
	before := testutil.ToFloat64(c)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/customer-sites/abc", nil))
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Fatalf("requests counter = %v, want %v", got, before+1)
	}
}
