package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status       string `json:"status"`
	Time         string `json:"time"`
	ActiveRegion string `json:"active_region,omitempty"`
}

// CredentialsRequest is the JSON body for saving or validating credentials.
type CredentialsRequest struct {
	APIKey string `json:"api_key"`
	AppKey string `json:"app_key"`
}

// ValidationResponse is the JSON representation of a validation outcome.
type ValidationResponse struct {
	IsValid  bool   `json:"is_valid"`
	Region   string `json:"region"`
	Attempts int    `json:"attempts"`
}

// RegionResponse is the JSON representation of a vendor region.
type RegionResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Site   string `json:"site"`
	APIURL string `json:"api_url"`
	Active bool   `json:"active"`
}

// LinkResponse is the JSON representation of a quick-access link.
type LinkResponse struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	URL             string `json:"url"`
	Description     string `json:"description"`
	DescriptionHTML string `json:"description_html"`
	Position        int    `json:"position"`
	CreatedAt       string `json:"created_at"`
}

// AddLinkRequest is the JSON body for the add link endpoint.
type AddLinkRequest struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Position    int    `json:"position"`
}

// PluginResponse is the JSON representation of a plugin and its runtime state.
type PluginResponse struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Description     string            `json:"description"`
	DescriptionHTML string            `json:"description_html"`
	Core            bool              `json:"core"`
	Enabled         bool              `json:"enabled"`
	Contexts        []string          `json:"contexts"`
	Permissions     []string          `json:"permissions"`
	Matches         []string          `json:"matches"`
	Settings        map[string]string `json:"settings"`
	UpdatedAt       string            `json:"updated_at"`
}

// SetEnabledRequest is the JSON body for toggling a plugin.
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// UpdatePluginSettingsRequest is the JSON body for updating plugin settings.
type UpdatePluginSettingsRequest struct {
	Settings map[string]string `json:"settings"`
}

// TraceResponse is the JSON representation of a trace record.
type TraceResponse struct {
	ID              string            `json:"id"`
	RequestID       string            `json:"request_id"`
	TraceID         string            `json:"trace_id"`
	SpanID          string            `json:"span_id,omitempty"`
	ParentID        string            `json:"parent_id,omitempty"`
	Domain          string            `json:"domain"`
	URL             string            `json:"url"`
	Method          string            `json:"method"`
	Status          int               `json:"status"`
	StatusText      string            `json:"status_text,omitempty"`
	Error           string            `json:"error,omitempty"`
	TabID           int               `json:"tab_id"`
	StartTime       string            `json:"start_time"`
	EndTime         string            `json:"end_time"`
	DurationMS      float64           `json:"duration_ms"`
	RequestHeaders  map[string]string `json:"request_headers"`
	ResponseHeaders map[string]string `json:"response_headers"`
}

// TraceStatsResponse is the JSON representation of correlator statistics.
type TraceStatsResponse struct {
	Records    int    `json:"records"`
	Pending    int    `json:"pending"`
	Domains    int    `json:"domains"`
	LastPruned string `json:"last_pruned,omitempty"`
}

// TraceEventRequest is one request lifecycle event posted for ingestion.
// Kind is "request", "completed" or "error".
type TraceEventRequest struct {
	Kind       string            `json:"kind"`
	RequestID  string            `json:"request_id"`
	URL        string            `json:"url"`
	Method     string            `json:"method"`
	TabID      int               `json:"tab_id"`
	Status     int               `json:"status"`
	StatusText string            `json:"status_text"`
	Error      string            `json:"error"`
	Headers    map[string]string `json:"headers"`
	// Timestamp in milliseconds since the Unix epoch; zero means now.
	TimestampMS int64 `json:"timestamp_ms"`
}

// TraceEventResponse reports whether an ingested event was tracked.
type TraceEventResponse struct {
	Tracked bool `json:"tracked"`
}

// PruneResponse reports how many records a prune removed.
type PruneResponse struct {
	Removed int `json:"removed"`
}

// SettingsResponse is the JSON representation of runtime settings.
type SettingsResponse struct {
	MaxTraces              int     `json:"max_traces"`
	RetentionHours         int     `json:"retention_hours"`
	ValidateTimeoutSeconds float64 `json:"validate_timeout_seconds"`
}

// NotificationResponse is the JSON representation of a notification.
type NotificationResponse struct {
	ID        string `json:"id"`
	EventID   int64  `json:"event_id,omitempty"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	AlertType string `json:"alert_type"`
	Source    string `json:"source,omitempty"`
	CreatedAt string `json:"created_at"`
}

// SendEventRequest is the JSON body for posting an event.
type SendEventRequest struct {
	Title     string   `json:"title"`
	Text      string   `json:"text"`
	AlertType string   `json:"alert_type"`
	Priority  string   `json:"priority"`
	Tags      []string `json:"tags"`
}

// EventResponse is the JSON representation of a vendor event.
type EventResponse struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Text      string   `json:"text"`
	AlertType string   `json:"alert_type"`
	Priority  string   `json:"priority,omitempty"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"created_at,omitempty"`
}

// formatTime renders t as RFC3339 in UTC, or empty for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toValidationResponse(r model.ValidationResult) ValidationResponse {
	return ValidationResponse{IsValid: r.IsValid, Region: r.Region, Attempts: r.Attempts}
}

func toRegionResponse(r model.Region, active bool) RegionResponse {
	return RegionResponse{ID: r.ID, Name: r.Name, Site: r.Site, APIURL: r.APIURL, Active: active}
}

func toLinkResponse(l model.Link) LinkResponse {
	return LinkResponse{
		ID:              l.ID,
		Title:           l.Title,
		URL:             l.URL,
		Description:     l.Description,
		DescriptionHTML: RenderMarkdown(l.Description),
		Position:        l.Position,
		CreatedAt:       formatTime(l.CreatedAt),
	}
}

func toPluginResponse(v model.PluginView) PluginResponse {
	contexts := make([]string, 0, 3)
	for _, c := range v.Manifest.Contexts.List() {
		contexts = append(contexts, string(c))
	}
	settings := v.Entry.Settings
	if settings == nil {
		settings = map[string]string{}
	}

	return PluginResponse{
		ID:              v.Manifest.ID,
		Name:            v.Manifest.Name,
		Version:         v.Manifest.Version,
		Description:     v.Manifest.Description,
		DescriptionHTML: RenderMarkdown(v.Manifest.Description),
		Core:            v.Manifest.Core,
		Enabled:         v.Entry.Enabled,
		Contexts:        contexts,
		Permissions:     nonNil(v.Manifest.Permissions),
		Matches:         nonNil(v.Manifest.Matches),
		Settings:        settings,
		UpdatedAt:       formatTime(v.Entry.UpdatedAt),
	}
}

func toTraceResponse(r model.TraceRecord) TraceResponse {
	return TraceResponse{
		ID:              r.ID,
		RequestID:       r.RequestID,
		TraceID:         r.TraceID,
		SpanID:          r.SpanID,
		ParentID:        r.ParentID,
		Domain:          r.Domain,
		URL:             r.URL,
		Method:          r.Method,
		Status:          r.Status,
		StatusText:      r.StatusText,
		Error:           r.Error,
		TabID:           r.TabID,
		StartTime:       r.StartTime.UTC().Format(time.RFC3339Nano),
		EndTime:         r.EndTime.UTC().Format(time.RFC3339Nano),
		DurationMS:      float64(r.Duration) / float64(time.Millisecond),
		RequestHeaders:  nonNilMap(r.RequestHeaders),
		ResponseHeaders: nonNilMap(r.ResponseHeaders),
	}
}

func toTraceStatsResponse(s model.TraceStats) TraceStatsResponse {
	return TraceStatsResponse{
		Records:    s.Records,
		Pending:    s.Pending,
		Domains:    s.Domains,
		LastPruned: formatTime(s.LastPruned),
	}
}

func toSettingsResponse(s model.Settings) SettingsResponse {
	return SettingsResponse{
		MaxTraces:              s.MaxTraces,
		RetentionHours:         s.RetentionHours,
		ValidateTimeoutSeconds: s.ValidateTimeout.Seconds(),
	}
}

func toNotificationResponse(n model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		EventID:   n.EventID,
		Title:     n.Title,
		Text:      n.Text,
		AlertType: n.AlertType,
		Source:    n.Source,
		CreatedAt: formatTime(n.CreatedAt),
	}
}

func toEventResponse(e model.Event) EventResponse {
	return EventResponse{
		ID:        e.ID,
		Title:     e.Title,
		Text:      e.Text,
		AlertType: e.AlertType,
		Priority:  e.Priority,
		Tags:      nonNil(e.Tags),
		CreatedAt: formatTime(e.CreatedAt),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
