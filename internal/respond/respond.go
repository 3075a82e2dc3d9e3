// Package respond writes the JSON envelope every API response uses:
//
//	{"success": true,  "data": …}
//	{"success": true,  "message": "deleted"}
//	{"success": false, "error": "not found"}
package respond

import (
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Envelope is the wire shape of every response body.  Clients decode into
// it; Data stays raw so callers pick the concrete type.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// dataEnvelope always carries "data", even when it is an empty list.
type dataEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// JSON encodes v with status.  Content-Type is always application/json.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnw("response encode failed", "status", status, "err", err)
	}
}

// OK writes {"success":true,"data":data} with 200.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, dataEnvelope{Success: true, Data: data})
}

// Message writes {"success":true,"message":msg} with 200.
func Message(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusOK, Envelope{Success: true, Message: msg})
}

// Fail writes {"success":false,"error":msg} with status.
func Fail(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, Envelope{Success: false, Error: msg})
}
