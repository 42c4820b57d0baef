package server

import (
	"errors"
	"net/http"

	"github.com/samber/lo"

	"github.com/omarluq/bizcache/internal/cache"
)

// removedResponse reports how many entries an invalidation removed.
type removedResponse struct {
	Pattern string `json:"pattern,omitempty"`
	Removed int    `json:"removed"`
}

// healthResponse is served by GET /health. The process is healthy while
// it can serve requests, whatever the backend state.
type healthResponse struct {
	Status       string `json:"status"`
	BackendState string `json:"backend_state"`
	BackendInUse string `json:"backend_in_use"`
}

// cacheHandlers serves the operator routes.
type cacheHandlers struct {
	facade      *cache.Facade
	invalidator *cache.Invalidator
}

func (h *cacheHandlers) health(w http.ResponseWriter, r *http.Request) {
	s := h.facade.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		BackendState: s.BackendState,
		BackendInUse: s.BackendInUse,
	})
}

func (h *cacheHandlers) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.facade.Snapshot(r.Context()))
}

func (h *cacheHandlers) clear(w http.ResponseWriter, r *http.Request) {
	n := h.facade.Clear(r.Context())
	writeJSON(w, http.StatusOK, removedResponse{Removed: n})
}

func (h *cacheHandlers) invalidate(w http.ResponseWriter, r *http.Request) {
	patterns := lo.Uniq(lo.Compact(r.URL.Query()["pattern"]))
	if len(patterns) == 0 {
		WriteError(w, http.StatusBadRequest, errTypeInvalid, "pattern query parameter is required")
		return
	}

	total := 0
	for _, p := range patterns {
		n, err := h.facade.Invalidate(r.Context(), p)
		if err != nil {
			writeInvalidateError(w, err)
			return
		}
		total += n
	}

	resp := removedResponse{Removed: total}
	if len(patterns) == 1 {
		resp.Pattern = patterns[0]
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *cacheHandlers) invalidateNamespace(w http.ResponseWriter, r *http.Request) {
	ns := r.PathValue("namespace")
	n, err := h.invalidator.InvalidateNamespace(r.Context(), ns)
	if err != nil {
		writeInvalidateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, removedResponse{Pattern: ns, Removed: n})
}

func writeInvalidateError(w http.ResponseWriter, err error) {
	if errors.Is(err, cache.ErrInvalidNamespace) {
		WriteError(w, http.StatusBadRequest, errTypeInvalid, err.Error())
		return
	}
	WriteError(w, http.StatusInternalServerError, "internal_error", err.Error())
}
