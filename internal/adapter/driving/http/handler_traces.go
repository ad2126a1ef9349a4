package httphandler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
)

// Trace event kinds accepted by the ingest endpoint.
const (
	eventKindRequest   = "request"
	eventKindCompleted = "completed"
	eventKindError     = "error"
)

// ListTraces returns trace records newest first. Supports ?domain=, ?trace_id=
// and ?limit=.
func (h *Handler) ListTraces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.TraceFilter{
		Domain:  q.Get("domain"),
		TraceID: q.Get("trace_id"),
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	records := h.svc.Traces.List(filter)
	resp := make([]TraceResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toTraceResponse(rec))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetTrace returns a single trace record.
func (h *Handler) GetTrace(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Traces.Get(r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, "get trace", err)
		return
	}

	writeJSON(w, http.StatusOK, toTraceResponse(rec))
}

// TraceStats returns correlator statistics.
func (h *Handler) TraceStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toTraceStatsResponse(h.svc.Traces.Stats()))
}

// ClearTraces drops every trace record.
func (h *Handler) ClearTraces(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Traces.Clear(r.Context()); err != nil {
		h.writeServiceError(w, "clear traces", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PruneTraces removes records past retention. ?force=true bypasses the hourly gate.
func (h *Handler) PruneTraces(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	removed, err := h.svc.Traces.Prune(r.Context(), force)
	if err != nil {
		h.writeServiceError(w, "prune traces", err)
		return
	}

	writeJSON(w, http.StatusOK, PruneResponse{Removed: removed})
}

// IngestTraceEvent feeds one request lifecycle event into the correlator.
func (h *Handler) IngestTraceEvent(w http.ResponseWriter, r *http.Request) {
	var req TraceEventRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RequestID == "" {
		writeError(w, http.StatusBadRequest, "request_id is required")
		return
	}

	var ts time.Time
	if req.TimestampMS > 0 {
		ts = time.UnixMilli(req.TimestampMS).UTC()
	}

	var (
		tracked bool
		err     error
	)
	switch req.Kind {
	case eventKindRequest:
		tracked = h.svc.Traces.OnRequest(r.Context(), model.RequestEvent{
			RequestID: req.RequestID,
			URL:       req.URL,
			Method:    req.Method,
			TabID:     req.TabID,
			Headers:   req.Headers,
			Timestamp: ts,
		})
	case eventKindCompleted:
		tracked, err = h.svc.Traces.OnCompleted(r.Context(), model.CompletionEvent{
			RequestID:  req.RequestID,
			Status:     req.Status,
			StatusText: req.StatusText,
			Headers:    req.Headers,
			Timestamp:  ts,
		})
	case eventKindError:
		tracked, err = h.svc.Traces.OnError(r.Context(), model.ErrorEvent{
			RequestID: req.RequestID,
			Error:     req.Error,
			Timestamp: ts,
		})
	default:
		writeError(w, http.StatusBadRequest, "kind must be request, completed or error")
		return
	}
	if err != nil {
		h.writeServiceError(w, "ingest trace event", err)
		return
	}

	writeJSON(w, http.StatusAccepted, TraceEventResponse{Tracked: tracked})
}
