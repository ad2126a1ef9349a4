// Package httphandler is the HTTP driving adapter that serves the toolkit's
// REST API to browser extension pages and the admin CLI.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/setoolkit/internal/application"
	"github.com/ericfisherdev/setoolkit/internal/domain/model"
	"github.com/ericfisherdev/setoolkit/internal/domain/port/driven"
)

const (
	ingestPath = "/api/v1/traces/events"

	maxBodyBytes = 1 << 20
	// Page HTML posted to the message endpoint for RUM extraction can be large.
	maxMessageBytes = 8 << 20
)

// Services bundles the application services the handler serves.
type Services struct {
	Credentials   *application.CredentialService
	Plugins       *application.PluginService
	Traces        *application.TraceService
	Alerts        *application.AlertService
	Notifications *application.NotificationService
	Links         *application.LinkService
	Settings      *application.SettingsService
	Router        *application.MessageRouter
	Provider      *application.VendorClientProvider
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	svc    Services
	logger *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(svc Services, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with CORS, logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/regions", h.ListRegions)

	mux.HandleFunc("GET /api/v1/credentials", h.GetCredentials)
	mux.HandleFunc("PUT /api/v1/credentials", h.SaveCredentials)
	mux.HandleFunc("DELETE /api/v1/credentials", h.ClearCredentials)
	mux.HandleFunc("POST /api/v1/credentials/validate", h.ValidateCredentials)

	mux.HandleFunc("GET /api/v1/links", h.ListLinks)
	mux.HandleFunc("POST /api/v1/links", h.AddLink)
	mux.HandleFunc("DELETE /api/v1/links/{id}", h.RemoveLink)

	mux.HandleFunc("GET /api/v1/plugins", h.ListPlugins)
	mux.HandleFunc("GET /api/v1/plugins/{id}", h.GetPlugin)
	mux.HandleFunc("PUT /api/v1/plugins/{id}/enabled", h.SetPluginEnabled)
	mux.HandleFunc("PUT /api/v1/plugins/{id}/settings", h.UpdatePluginSettings)

	mux.HandleFunc("GET /api/v1/traces", h.ListTraces)
	mux.HandleFunc("GET /api/v1/traces/stats", h.TraceStats)
	mux.HandleFunc("GET /api/v1/traces/{id}", h.GetTrace)
	mux.HandleFunc("DELETE /api/v1/traces", h.ClearTraces)
	mux.HandleFunc("POST /api/v1/traces/prune", h.PruneTraces)
	mux.HandleFunc("POST "+ingestPath, h.IngestTraceEvent)

	mux.HandleFunc("GET /api/v1/settings", h.GetSettings)
	mux.HandleFunc("PUT /api/v1/settings", h.UpdateSettings)

	mux.HandleFunc("GET /api/v1/notifications", h.ListNotifications)
	mux.HandleFunc("DELETE /api/v1/notifications", h.ClearNotifications)
	mux.HandleFunc("DELETE /api/v1/notifications/{id}", h.DismissNotification)

	mux.HandleFunc("POST /api/v1/events", h.SendEvent)
	mux.HandleFunc("POST /api/v1/events/poll", h.PollEvents)

	mux.HandleFunc("POST /api/v1/messages", h.HandleMessage)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = corsMiddleware(wrapped)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}
	if region, ok := h.svc.Provider.ActiveRegion(); ok {
		resp.ActiveRegion = region.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRegions returns the vendor regions in validation priority order.
func (h *Handler) ListRegions(w http.ResponseWriter, _ *http.Request) {
	active, hasActive := h.svc.Provider.ActiveRegion()

	regions := h.svc.Credentials.Regions()
	resp := make([]RegionResponse, 0, len(regions))
	for _, r := range regions {
		resp = append(resp, toRegionResponse(r, hasActive && r.ID == active.ID))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetCredentials returns the masked credential status.
func (h *Handler) GetCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.svc.Credentials.Get(r.Context())
	if err != nil {
		h.writeServiceError(w, "get credentials", err)
		return
	}

	writeJSON(w, http.StatusOK, application.NewCredentialStatus(creds))
}

// SaveCredentials stores a key pair without validating it.
func (h *Handler) SaveCredentials(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.svc.Credentials.Save(r.Context(), req.APIKey, req.AppKey); err != nil {
		h.writeServiceError(w, "save credentials", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearCredentials removes stored credentials.
func (h *Handler) ClearCredentials(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Credentials.Clear(r.Context()); err != nil {
		h.writeServiceError(w, "clear credentials", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ValidateCredentials probes the regions with the posted key pair, or with the
// stored pair when the body is empty.
func (h *Handler) ValidateCredentials(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if r.ContentLength != 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}

	var (
		result model.ValidationResult
		err    error
	)
	if req.APIKey == "" && req.AppKey == "" {
		result, err = h.svc.Credentials.ValidateStored(r.Context())
	} else {
		result, err = h.svc.Credentials.Validate(r.Context(), req.APIKey, req.AppKey)
	}
	if err != nil {
		h.writeServiceError(w, "validate credentials", err)
		return
	}

	writeJSON(w, http.StatusOK, toValidationResponse(result))
}

// decodeBody decodes a size-limited JSON body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeServiceError maps application errors to HTTP status codes. Unexpected
// errors are logged and reported as 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case application.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, application.ErrMissingKeys),
		errors.Is(err, application.ErrInvalidLink),
		errors.Is(err, application.ErrInvalidSettings),
		errors.Is(err, application.ErrBadPayload),
		errors.Is(err, application.ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, driven.ErrEncryptionKeyNotSet):
		writeError(w, http.StatusServiceUnavailable, "credential storage is not configured")
	case errors.Is(err, application.ErrNoActiveClient):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("request failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
