// Package respond writes the API's JSON bodies and error envelopes.
package respond

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// ErrorResponse is the envelope every error is returned in.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Detail  string `json:"detail,omitempty"`
	} `json:"error"`
}

// WriteJSON sends a cached body. cacheHit only drives the X-Cache header.
func WriteJSON(w http.ResponseWriter, data []byte, etag string, ttl time.Duration, cacheHit bool) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("ETag", etag)
	h.Set("Vary", "Accept-Encoding")
	h.Set("X-Cache", map[bool]string{true: "HIT", false: "MISS"}[cacheHit])
	// Standings move with every settled fixture; keep shared caches short.
	h.Set("Cache-Control", "public, max-age="+strconv.Itoa(int(ttl.Seconds())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func WriteNotModified(w http.ResponseWriter, etag string) {
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusNotModified)
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorDetail(w, status, code, message, "")
}

func WriteErrorDetail(w http.ResponseWriter, status int, code, message, detail string) {
	var body ErrorResponse
	body.Error.Code, body.Error.Message, body.Error.Detail = code, message, detail
	WriteJSONObject(w, status, body)
}

// WriteJSONObject encodes v. Live resources are never cached downstream.
func WriteJSONObject(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
