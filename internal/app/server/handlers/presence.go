package handlers

import (
	"encoding/json"
	"net/http"

	"chatrelay/internal/core/contracts"
	"chatrelay/pkg/logging"
)

type PresenceHandler struct {
	registry contracts.PresenceRegistry
	conns    contracts.ConnectionTable
}

func NewPresenceHandler(registry contracts.PresenceRegistry, conns contracts.ConnectionTable) *PresenceHandler {
	return &PresenceHandler{registry: registry, conns: conns}
}

// Online lists the identities currently reachable through the relay.
func (h *PresenceHandler) Online(w http.ResponseWriter, r *http.Request) {
	entries := h.registry.Snapshot()
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.Identity.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{"online": ids})
	logging.FromContext(r.Context()).DebugContext(r.Context(), "presence handler - online - success", "count", len(ids))
}

func (h *PresenceHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": h.conns.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
