// internal/auth/auth.go
//
// Shared-secret request authentication.
//
// Context
// -------
// Every non-OPTIONS call to /customer-sites carries two query parameters:
//
//   • `auth`  lowercase hex SHA-256 of the operator password,
//   • `t`     client clock in epoch milliseconds (optional).
//
// `Check` compares the digest in constant time and, when `t` is present,
// rejects requests older than MaxAge.  The credential itself never
// changes, so anyone holding it can replay; the timestamp window only
// narrows that.  `RequireTimestamp` makes `t` mandatory.
//
// Usage
// -----
//
//	a := auth.New(cfg.Auth.Password, auth.WithMaxAge(cfg.Auth.MaxAge))
//	if err := a.Check(r); err != nil { … 401 … }
//
// Notes
// -----
// • No secret configured means every request fails (fail closed).
// • A `t` that does not parse as an integer is rejected.
// • Oxford commas, two spaces after periods.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"time"
)

// Query parameter names.
const (
	ParamAuth      = "auth"
	ParamTimestamp = "t"
)

// DefaultMaxAge is the freshness window for `t`.
const DefaultMaxAge = 10 * time.Minute

var (
	ErrNoSecret     = errors.New("auth: no secret configured")
	ErrMissing      = errors.New("auth: credential missing")
	ErrMismatch     = errors.New("auth: credential mismatch")
	ErrStale        = errors.New("auth: timestamp too old")
	ErrBadTimestamp = errors.New("auth: timestamp malformed")
	ErrNoTimestamp  = errors.New("auth: timestamp required")
)

// Digest returns the credential for secret: lowercase hex SHA-256.
func Digest(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Timestamp formats t as the epoch-millisecond value clients send.
func Timestamp(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithMaxAge overrides DefaultMaxAge.  Non-positive values are ignored.
func WithMaxAge(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.maxAge = d
		}
	}
}

// WithRequireTimestamp rejects requests that omit `t`.
func WithRequireTimestamp(on bool) Option {
	return func(a *Authenticator) { a.requireTS = on }
}

// WithClock replaces time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// Authenticator is immutable after New and safe for concurrent use.
type Authenticator struct {
	digest    []byte // expected hex digest; nil when no secret
	maxAge    time.Duration
	requireTS bool
	now       func() time.Time
}

// New builds an Authenticator for secret.
func New(secret string, opts ...Option) *Authenticator {
	a := &Authenticator{maxAge: DefaultMaxAge, now: time.Now}
	if secret != "" {
		a.digest = []byte(Digest(secret))
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Check returns nil when r carries a valid credential and fresh timestamp.
func (a *Authenticator) Check(r *http.Request) error {
	if a.digest == nil {
		return ErrNoSecret
	}
	q := r.URL.Query()

	got := q.Get(ParamAuth)
	if got == "" {
		return ErrMissing
	}
	if subtle.ConstantTimeCompare([]byte(got), a.digest) != 1 {
		return ErrMismatch
	}

	raw := q.Get(ParamTimestamp)
	if raw == "" {
		if a.requireTS {
			return ErrNoTimestamp
		}
		return nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return ErrBadTimestamp
	}
	// Only age is bounded; a client clock running ahead is accepted.
	if a.now().Sub(time.UnixMilli(ms)) > a.maxAge {
		return ErrStale
	}
	return nil
}

// Valid is Check reduced to a bool.
func (a *Authenticator) Valid(r *http.Request) bool {
	return a.Check(r) == nil
}

// Reason maps a Check error to a short metrics label.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoSecret):
		return "unconfigured"
	case errors.Is(err, ErrMissing):
		return "missing"
	case errors.Is(err, ErrMismatch):
		return "mismatch"
	case errors.Is(err, ErrStale):
		return "stale"
	case errors.Is(err, ErrBadTimestamp), errors.Is(err, ErrNoTimestamp):
		return "timestamp"
	default:
		return "other"
	}
}
