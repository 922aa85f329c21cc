package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/cache"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/events"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/store"

	"go.uber.org/zap"
)

// EventHistory reads back published snapshot events.
type EventHistory interface {
	History(ctx context.Context, count int64) ([]events.SnapshotEvent, error)
}

// CacheHandler exposes cache maintenance. history and mirror are optional;
// their routes answer 404 when the backing store is disabled.
type CacheHandler struct {
	cache     *cache.Cache
	history   EventHistory
	mirror    store.KV
	mirrorKey string
	logger    *zap.Logger
}

func NewCacheHandler(c *cache.Cache, history EventHistory, mirror store.KV, mirrorKey string, logger *zap.Logger) *CacheHandler {
	return &CacheHandler{cache: c, history: history, mirror: mirror, mirrorKey: mirrorKey, logger: logger}
}

func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear()
	writeJSON(w, http.StatusOK, Ok(h.cache.Status()))
}

// Refresh reloads synchronously, or in the background with ?async=true.
// A failed refresh keeps serving the previous snapshot.
func (h *CacheHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("async") == "true" {
		done := h.cache.RefreshInBackground(r.Context())
		go func() {
			if err := <-done; err != nil {
				h.logger.Warn("Background cache refresh failed", zap.Error(err))
			}
		}()
		writeJSON(w, http.StatusAccepted, Ok(h.cache.Status()))
		return
	}
	if err := h.cache.Refresh(r.Context()); err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		writeJSON(w, status, Result[cache.Status]{
			Code:    ResultError,
			Type:    "error",
			Message: "refresh failed, previous snapshot kept: " + err.Error(),
			Result:  h.cache.Status(),
		})
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.cache.Status()))
}

func (h *CacheHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.cache.Status()))
}

func (h *CacheHandler) Events(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "event stream is disabled")
		return
	}
	evs, err := h.history.History(r.Context(), int64(parseInt(r.URL.Query().Get("count"), 20)))
	if err != nil {
		h.logger.Warn("Failed to read event stream", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to read event stream")
		return
	}
	writeJSON(w, http.StatusOK, Ok(evs))
}

// Mirror summarizes the snapshot last mirrored to the shared store, which
// may have been written by another instance.
func (h *CacheHandler) Mirror(w http.ResponseWriter, r *http.Request) {
	if h.mirror == nil {
		writeError(w, http.StatusNotFound, "snapshot mirror is disabled")
		return
	}
	snap, err := cache.ReadMirror(r.Context(), h.mirror, h.mirrorKey)
	switch {
	case errors.Is(err, store.ErrMiss):
		writeError(w, http.StatusNotFound, "no mirrored snapshot")
		return
	case err != nil:
		h.logger.Warn("Failed to read snapshot mirror", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to read snapshot mirror")
		return
	}
	writeJSON(w, http.StatusOK, Ok(events.NewSnapshotEvent(snap)))
}
