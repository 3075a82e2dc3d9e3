// internal/middleware/gate.go
//
// Credential gate in front of the customer-site handlers.
//
// Context
// -------
// Runs after CORS (so OPTIONS never gets here) and before routing into
// the component.  A failed check answers 401 with the standard envelope,
// logs the reason at warn level, and bumps
// customer_sites_auth_failures_total{reason}.  The credential itself is
// never logged.
//
// Notes
// -----
// • OPTIONS is let through untouched in case the gate is mounted without
//   CORS in front of it.
// • Oxford commas, two spaces after periods.

package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/libretv-sites/internal/auth"
	"github.com/yanizio/libretv-sites/internal/metrics"
	"github.com/yanizio/libretv-sites/internal/requestinfo"
	"github.com/yanizio/libretv-sites/internal/respond"
)

// RequireAuth rejects requests that fail a.Check.
func RequireAuth(a *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			if err := a.Check(r); err != nil {
				reason := auth.Reason(err)
				metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()

				fields := []any{"reason", reason, "method", r.Method, "path", r.URL.Path}
				if ri := requestinfo.FromContext(r.Context()); ri != nil {
					fields = append(fields, "request_id", ri.ID, "ip", ri.Geo.IP)
				}
				zap.S().Warnw("request rejected", fields...)

				respond.Fail(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
