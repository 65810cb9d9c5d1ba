package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/albapepper/scoracle-games/internal/api/respond"
	"github.com/albapepper/scoracle-games/internal/cache"
)

// InstanceCachePrefix is the prefix of every cached response about one
// instance. Invalidating it drops the detail and standings together.
func InstanceCachePrefix(instanceID string) string {
	return "instance:" + instanceID + "/"
}

func instanceCacheKey(instanceID, part string) string {
	return InstanceCachePrefix(instanceID) + part
}

// serveCached answers from the cache when it can, honouring If-None-Match,
// and otherwise loads, encodes and stores the value.
func (h *Handler) serveCached(w http.ResponseWriter, r *http.Request, key string, ttl time.Duration, load func() (any, error)) {
	if data, etag, ok := h.cache.Get(key); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, ttl, true)
		return
	}

	v, err := load()
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	etag := h.cache.Set(key, data, ttl)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag, ttl, false)
}

// invalidate drops cached responses for an instance after a write.
func (h *Handler) invalidate(instanceID string) {
	h.cache.InvalidatePrefix(InstanceCachePrefix(instanceID))
}
