// internal/server/router.go
//
// Root router assembly shared by cmd/web and the integration tests.
//
// Middleware order (outermost first):
//
//  1. requestinfo.Enrich   request id, UA, client IP
//  2. AccessLog            one log line + metrics sample per request
//  3. Recoverer            panics become 500 and still get logged
//  4. ForceHTTPS           optional 308 to https
//  5. Security             response hardening headers
//  6. StripSlashes         "/customer-sites/" == "/customer-sites"
//  7. CORS                 allow headers everywhere, OPTIONS → 204
//
// Components add their own gate (auth) inside their Routes().

package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/libretv-sites/internal/component"
	"github.com/yanizio/libretv-sites/internal/middleware"
	"github.com/yanizio/libretv-sites/internal/requestinfo"
	"github.com/yanizio/libretv-sites/internal/respond"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Deps       component.Deps
	ForceHTTPS bool
	// Components to mount; nil mounts every registered component.
	Components []component.Component
}

// NewRouter builds the root handler.
func NewRouter(o RouterOptions) (http.Handler, error) {
	log := o.Deps.Log
	if log == nil {
		log = zap.S()
	}

	r := chi.NewRouter()
	r.Use(
		requestinfo.Enrich,
		middleware.AccessLog(log),
		chimw.Recoverer,
		middleware.ForceHTTPS(o.ForceHTTPS),
		middleware.Security,
		chimw.StripSlashes,
		middleware.CORS,
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respond.Message(w, "ok")
	})
	r.Handle("/metrics", promhttp.Handler())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respond.Fail(w, http.StatusNotFound, "not found")
	})

	if err := component.Mount(r, o.Deps, o.Components); err != nil {
		return nil, err
	}
	return r, nil
}
