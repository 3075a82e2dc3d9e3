package sitecache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientSendsCredentialAndTimestamp(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"deleted"}`))
	}))
	defer srv.Close()

	fixed := time.UnixMilli(1717243200000)
	c, err := NewClient(srv.URL+"/", WithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(context.Background(), "abc", "a b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if got.Method != http.MethodDelete {
		t.Fatalf("method = %s", got.Method)
	}
	if got.URL.EscapedPath() != "/customer-sites/a%20b" {
		t.Fatalf("path = %s", got.URL.EscapedPath())
	}
	q := got.URL.Query()
	if q.Get("auth") != "abc" || q.Get("t") != "1717243200000" {
		t.Fatalf("query = %v", q)
	}
}

func TestClientMapsErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"success":false,"error":"site id already exists"}`))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL)
	_, err := c.Create(context.Background(), "abc", "qiqi", DefaultEntry)
	ae, ok := err.(*APIError)
	if !ok || ae.Status != http.StatusConflict || ae.Message != "site id already exists" {
		t.Fatalf("err = %#v", err)
	}
}

func TestClientNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL)
	if _, err := c.List(context.Background(), "abc"); !IsStatus(err, http.StatusBadGateway) {
		t.Fatalf("err = %v", err)
	}
}

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected error")
	}
}
