package httphandler

import (
	"net/http"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
)

// ListPlugins returns all plugins, optionally filtered by ?context=.
func (h *Handler) ListPlugins(w http.ResponseWriter, r *http.Request) {
	execCtx := model.ExecContext(r.URL.Query().Get("context"))
	if execCtx != "" && !isKnownContext(execCtx) {
		writeError(w, http.StatusBadRequest, "unknown context")
		return
	}

	views, err := h.svc.Plugins.List(r.Context(), execCtx)
	if err != nil {
		h.writeServiceError(w, "list plugins", err)
		return
	}

	resp := make([]PluginResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, toPluginResponse(v))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetPlugin returns a single plugin.
func (h *Handler) GetPlugin(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Plugins.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, "get plugin", err)
		return
	}

	writeJSON(w, http.StatusOK, toPluginResponse(view))
}

// SetPluginEnabled enables or disables a plugin. Core plugins stay enabled.
func (h *Handler) SetPluginEnabled(w http.ResponseWriter, r *http.Request) {
	var req SetEnabledRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	view, err := h.svc.Plugins.SetEnabled(r.Context(), r.PathValue("id"), *req.Enabled)
	if err != nil {
		h.writeServiceError(w, "set plugin enabled", err)
		return
	}

	writeJSON(w, http.StatusOK, toPluginResponse(view))
}

// UpdatePluginSettings merges settings into a plugin's stored settings.
func (h *Handler) UpdatePluginSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdatePluginSettingsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	view, err := h.svc.Plugins.UpdateSettings(r.Context(), r.PathValue("id"), req.Settings)
	if err != nil {
		h.writeServiceError(w, "update plugin settings", err)
		return
	}

	writeJSON(w, http.StatusOK, toPluginResponse(view))
}

func isKnownContext(c model.ExecContext) bool {
	for _, known := range model.AllContexts() {
		if c == known {
			return true
		}
	}
	return false
}
