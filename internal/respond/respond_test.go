package respond

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestEnvelopes(t *testing.T) {
	cases := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
		body   string
	}{
		{"ok empty list", func(w http.ResponseWriter) { OK(w, []string{}) }, 200, `{"success":true,"data":[]}`},
		{"message", func(w http.ResponseWriter) { Message(w, "deleted") }, 200, `{"success":true,"message":"deleted"}`},
		{"fail", func(w http.ResponseWriter) { Fail(w, 404, "not found") }, 404, `{"success":false,"error":"not found"}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c.write(rec)
			if rec.Code != c.status {
				t.Fatalf("status = %d", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("content-type = %q", ct)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != c.body {
				t.Fatalf("body = %s, want %s", got, c.body)
			}
		})
	}
}
