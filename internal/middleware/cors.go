// internal/middleware/cors.go
//
// Open CORS policy for the customer-site API.
//
// Browsers call the API from whatever origin hosts the front end, so every
// response, including errors and the 401 from the auth gate, carries the
// same three headers whether or not the request sent an Origin.  Preflight
// (OPTIONS) is answered here with 204 and never reaches the auth gate.

package middleware

import "net/http"

const (
	allowOrigin  = "*"
	allowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	allowHeaders = "*"
	preflightAge = "86400"
)

// CORS sets the allow headers and short-circuits preflight requests.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", allowOrigin)
		h.Set("Access-Control-Allow-Methods", allowMethods)
		h.Set("Access-Control-Allow-Headers", allowHeaders)

		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Max-Age", preflightAge)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
