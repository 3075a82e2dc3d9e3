package auth

import (
	"errors"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"
)


func check(t *testing.T, a *Authenticator, params url.Values) error {
	t.Helper()
	r := httptest.NewRequest("GET", "/customer-sites?"+params.Encode(), nil)
	return a.Check(r)
}

func TestDigest(t *testing.T) {
	// sha256("password")
	const want = "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"
	if got := Digest("password"); got != want {
		t.Fatalf("Digest = %s", got)
	}
}

func TestCheck(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	good := Digest("s3cret")
	ms := func(d time.Duration) string { return strconv.FormatInt(now.Add(d).UnixMilli(), 10) }

	cases := []struct {
		name   string
		secret string
		opts   []Option
		params url.Values
		want   error
	}{
		{"no secret", "", nil, url.Values{"auth": {good}}, ErrNoSecret},
		{"missing auth", "s3cret", nil, url.Values{}, ErrMissing},
		{"wrong digest", "s3cret", nil, url.Values{"auth": {Digest("other")}}, ErrMismatch},
		{"raw password", "s3cret", nil, url.Values{"auth": {"s3cret"}}, ErrMismatch},
		{"no timestamp", "s3cret", nil, url.Values{"auth": {good}}, nil},
		{"fresh", "s3cret", nil, url.Values{"auth": {good}, "t": {ms(-time.Minute)}}, nil},
		{"edge of window", "s3cret", nil, url.Values{"auth": {good}, "t": {ms(-10 * time.Minute)}}, nil},
		{"stale", "s3cret", nil, url.Values{"auth": {good}, "t": {ms(-11 * time.Minute)}}, ErrStale},
		{"future", "s3cret", nil, url.Values{"auth": {good}, "t": {ms(time.Hour)}}, nil},
		{"malformed t", "s3cret", nil, url.Values{"auth": {good}, "t": {"yesterday"}}, ErrBadTimestamp},
		{"required t absent", "s3cret", []Option{WithRequireTimestamp(true)}, url.Values{"auth": {good}}, ErrNoTimestamp},
		{"custom max age", "s3cret", []Option{WithMaxAge(time.Minute)}, url.Values{"auth": {good}, "t": {ms(-2 * time.Minute)}}, ErrStale},
		{"uppercase hex", "s3cret", nil, url.Values{"auth": {upper(good)}}, ErrMismatch},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a := New(c.secret, append([]Option{WithClock(clock)}, c.opts...)...)
			err := check(t, a, c.params)
			if !errors.Is(err, c.want) || (c.want == nil && err != nil) {
				t.Fatalf("Check = %v, want %v", err, c.want)
			}
			if a.Valid(httptest.NewRequest("GET", "/?"+c.params.Encode(), nil)) != (c.want == nil) {
				t.Fatal("Valid disagrees with Check")
			}
		})
	}
}

func TestReason(t *testing.T) {
	if Reason(ErrStale) != "stale" || Reason(ErrNoTimestamp) != "timestamp" || Reason(nil) != "ok" {
		t.Fatal("unexpected reason labels")
	}
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}
