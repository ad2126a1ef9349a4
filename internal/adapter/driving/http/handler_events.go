package httphandler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
)

// ListNotifications returns notifications newest first. Supports ?limit=.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	items := h.svc.Notifications.List(limit)
	resp := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		resp = append(resp, toNotificationResponse(n))
	}

	writeJSON(w, http.StatusOK, resp)
}

// DismissNotification removes a single notification.
func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Notifications.Dismiss(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearNotifications removes every notification.
func (h *Handler) ClearNotifications(w http.ResponseWriter, _ *http.Request) {
	h.svc.Notifications.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// SendEvent posts an event to the vendor event stream.
func (h *Handler) SendEvent(w http.ResponseWriter, r *http.Request) {
	var req SendEventRequest
	if !decodeBody(w, r, &req) {
		return
	}

	created, err := h.svc.Alerts.SendEvent(r.Context(), model.Event{
		Title:     req.Title,
		Text:      req.Text,
		AlertType: req.AlertType,
		Priority:  req.Priority,
		Tags:      req.Tags,
		Source:    "setoolkit",
	})
	if err != nil {
		h.writeServiceError(w, "send event", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEventResponse(created))
}

// PollEvents forces an immediate event poll and returns the notifications.
func (h *Handler) PollEvents(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Alerts.Refresh(r.Context()); err != nil {
		h.writeServiceError(w, "poll events", err)
		return
	}

	h.ListNotifications(w, r)
}

// HandleMessage dispatches a message envelope. Failures are reported inside
// the envelope with a 200 status; only an unreadable envelope is a 400.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBytes)

	var msg model.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid message envelope")
		return
	}
	if msg.Type == "" {
		writeError(w, http.StatusBadRequest, "message type is required")
		return
	}

	writeJSON(w, http.StatusOK, h.svc.Router.Handle(r.Context(), msg))
}
