// internal/middleware/accesslog.go
//
// One structured log line and one metrics sample per request.
//
// The op label is "<METHOD> <route pattern>" as resolved by chi, so ids in
// the path never explode metric cardinality.  Requests chi could not route
// are labelled "unmatched".  The `auth` and `t` query parameters are never
// logged; only the path is.

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/libretv-sites/internal/metrics"
	"github.com/yanizio/libretv-sites/internal/requestinfo"
)

// AccessLog logs every request through log and records RequestsTotal.
func AccessLog(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			op := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if p := rc.RoutePattern(); p != "" {
					op = r.Method + " " + p
				}
			}
			metrics.RequestsTotal.WithLabelValues(op, strconv.Itoa(status)).Inc()

			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if ri := requestinfo.FromContext(r.Context()); ri != nil {
				fields = append(fields,
					"request_id", ri.ID,
					"ip", ri.Geo.IP,
					"browser", ri.UA.Browser,
					"device", ri.UA.Device,
					"bot", ri.UA.IsBot,
				)
				if ri.Geo.CountryISO != "" {
					fields = append(fields, "country", ri.Geo.CountryISO)
				}
			}
			log.Infow("request", fields...)
		})
	}
}
