package httphandler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
)

// ListLinks returns all quick-access links ordered by position.
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.svc.Links.List(r.Context())
	if err != nil {
		h.writeServiceError(w, "list links", err)
		return
	}

	resp := make([]LinkResponse, 0, len(links))
	for _, l := range links {
		resp = append(resp, toLinkResponse(l))
	}

	writeJSON(w, http.StatusOK, resp)
}

// AddLink creates a quick-access link.
func (h *Handler) AddLink(w http.ResponseWriter, r *http.Request) {
	var req AddLinkRequest
	if !decodeBody(w, r, &req) {
		return
	}

	link, err := h.svc.Links.Add(r.Context(), model.Link{
		Title:       req.Title,
		URL:         req.URL,
		Description: req.Description,
		Position:    req.Position,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		h.writeServiceError(w, "add link", err)
		return
	}

	writeJSON(w, http.StatusCreated, toLinkResponse(link))
}

// RemoveLink deletes a quick-access link.
func (h *Handler) RemoveLink(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid link id")
		return
	}

	if err := h.svc.Links.Remove(r.Context(), id); err != nil {
		h.writeServiceError(w, "remove link", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetSettings returns the runtime settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.Settings.Get(r.Context())
	if err != nil {
		h.writeServiceError(w, "get settings", err)
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(settings))
}

// UpdateSettings applies a partial settings update. Omitted or zero fields are unchanged.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsResponse
	if !decodeBody(w, r, &req) {
		return
	}

	settings, err := h.svc.Settings.Update(r.Context(), model.Settings{
		MaxTraces:       req.MaxTraces,
		RetentionHours:  req.RetentionHours,
		ValidateTimeout: time.Duration(req.ValidateTimeoutSeconds * float64(time.Second)),
	})
	if err != nil {
		h.writeServiceError(w, "update settings", err)
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(settings))
}
