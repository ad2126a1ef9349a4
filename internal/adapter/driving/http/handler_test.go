package httphandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/ericfisherdev/setoolkit/internal/adapter/driving/http"
	"github.com/ericfisherdev/setoolkit/internal/application"
	"github.com/ericfisherdev/setoolkit/internal/domain/model"
	"github.com/ericfisherdev/setoolkit/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockCredentialStore struct {
	creds      *model.Credentials
	noKey      bool
	unreadable bool
}

func (m *mockCredentialStore) Save(_ context.Context, c model.Credentials) error {
	if m.noKey {
		return driven.ErrEncryptionKeyNotSet
	}
	m.creds = &c
	return nil
}

func (m *mockCredentialStore) Load(_ context.Context) (*model.Credentials, error) {
	if m.noKey {
		return nil, driven.ErrEncryptionKeyNotSet
	}
	if m.unreadable {
		return nil, fmt.Errorf("decrypt api key: %w", driven.ErrCredentialsUnreadable)
	}
	return m.creds, nil
}

func (m *mockCredentialStore) Clear(_ context.Context) error {
	m.creds = nil
	return nil
}

type mockSettingsStore struct{ s model.Settings }

func (m *mockSettingsStore) Get(_ context.Context) (model.Settings, error) { return m.s, nil }
func (m *mockSettingsStore) Set(_ context.Context, s model.Settings) error {
	m.s = s
	return nil
}

type mockTraceStore struct{}

func (mockTraceStore) Load(_ context.Context) ([]model.TraceRecord, error) { return nil, nil }
func (mockTraceStore) Save(_ context.Context, _ []model.TraceRecord) error { return nil }

type mockPluginStore struct {
	mu      sync.Mutex
	entries map[string]model.PluginEntry
}

func (m *mockPluginStore) Get(_ context.Context, id string) (*model.PluginEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok {
		return &e, nil
	}
	return nil, nil
}

func (m *mockPluginStore) ListAll(_ context.Context) ([]model.PluginEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PluginEntry
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

func (m *mockPluginStore) Upsert(_ context.Context, e model.PluginEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return nil
}

type mockLinkStore struct {
	links []model.Link
}

func (m *mockLinkStore) Add(_ context.Context, l model.Link) (model.Link, error) {
	l.ID = int64(len(m.links) + 1)
	m.links = append(m.links, l)
	return l, nil
}

func (m *mockLinkStore) Remove(_ context.Context, id int64) error {
	for i, l := range m.links {
		if l.ID == id {
			m.links = append(m.links[:i], m.links[i+1:]...)
			return nil
		}
	}
	return driven.ErrLinkNotFound
}

func (m *mockLinkStore) ListAll(_ context.Context) ([]model.Link, error) { return m.links, nil }

type mockVendorClient struct {
	region model.Region
	ok     bool
}

func (m *mockVendorClient) Region() model.Region                         { return m.region }
func (m *mockVendorClient) ValidateKeys(_ context.Context) (bool, error) { return m.ok, nil }
func (m *mockVendorClient) ListEvents(_ context.Context, _, _ time.Time) ([]model.Event, error) {
	return []model.Event{{ID: 1, Title: "Disk full", AlertType: "error"}}, nil
}
func (m *mockVendorClient) PostEvent(_ context.Context, e model.Event) (model.Event, error) {
	e.ID = 500
	return e, nil
}

// --- Test fixture ---

type fixture struct {
	server    http.Handler
	services  httphandler.Services
	credStore *mockCredentialStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	regions := model.DefaultRegions()
	// Only eu1 accepts the keys.
	factory := func(region model.Region, _, _ string) driven.VendorClient {
		return &mockVendorClient{region: region, ok: region.ID == "eu1"}
	}

	settingsStore := &mockSettingsStore{s: model.DefaultSettings()}
	credStore := &mockCredentialStore{}
	provider := application.NewVendorClientProvider(nil)

	registry := application.NewRegistry()
	registry.Load(application.BuiltinManifests())
	plugins := application.NewPluginService(registry, &mockPluginStore{entries: map[string]model.PluginEntry{}})
	require.NoError(t, plugins.Sync(context.Background()))

	creds := application.NewCredentialService(credStore, settingsStore, factory, provider, regions)
	traces := application.NewTraceService(mockTraceStore{}, settingsStore, application.WithTraceGate(plugins.Gate(application.PluginAPMTracer)))
	notifications := application.NewNotificationService(10)
	alerts := application.NewAlertService(provider, plugins, notifications, time.Hour)
	links := application.NewLinkService(&mockLinkStore{})
	settings := application.NewSettingsService(settingsStore)
	router := application.NewMessageRouter(creds, plugins, traces, alerts, notifications, links, settings)

	svc := httphandler.Services{
		Credentials:   creds,
		Plugins:       plugins,
		Traces:        traces,
		Alerts:        alerts,
		Notifications: notifications,
		Links:         links,
		Settings:      settings,
		Router:        router,
		Provider:      provider,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &fixture{
		server:    httphandler.NewServeMux(httphandler.NewHandler(svc, logger), logger),
		services:  svc,
		credStore: credStore,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

// --- Tests ---

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	resp := decode[httphandler.HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.ActiveRegion)
}

func TestListRegions(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/regions", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	regions := decode[[]httphandler.RegionResponse](t, rec)
	require.Len(t, regions, 6)
	assert.Equal(t, "us1", regions[0].ID)
	assert.Equal(t, "us1-fed", regions[5].ID)
}

func TestValidateCredentials_DiscoversRegion(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/credentials/validate", httphandler.CredentialsRequest{APIKey: "api", AppKey: "app"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[httphandler.ValidationResponse](t, rec)
	assert.True(t, resp.IsValid)
	assert.Equal(t, "eu1", resp.Region)
	assert.Equal(t, 2, resp.Attempts)

	health := decode[httphandler.HealthResponse](t, f.do(t, http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, "eu1", health.ActiveRegion)
}

func TestValidateCredentials_MissingKeys(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/credentials/validate", httphandler.CredentialsRequest{APIKey: "api"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateCredentials_EmptyBodyUsesStored(t *testing.T) {
	f := newFixture(t)
	f.credStore.creds = &model.Credentials{APIKey: "api", AppKey: "app"}

	rec := f.do(t, http.MethodPost, "/api/v1/credentials/validate", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "eu1", decode[httphandler.ValidationResponse](t, rec).Region)
}

func TestCredentials_SaveGetClear(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/v1/credentials", httphandler.CredentialsRequest{APIKey: "abcd1234wxyz", AppKey: "app"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/credentials", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "abcd1234wxyz")
	status := decode[application.CredentialStatus](t, rec)
	assert.True(t, status.Configured)
	assert.Equal(t, "****wxyz", status.APIKeyHint)

	rec = f.do(t, http.MethodDelete, "/api/v1/credentials", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, f.credStore.creds)
}

func TestCredentials_NoEncryptionKey(t *testing.T) {
	f := newFixture(t)
	f.credStore.noKey = true

	rec := f.do(t, http.MethodGet, "/api/v1/credentials", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[application.CredentialStatus](t, rec).IsValid)

	rec = f.do(t, http.MethodPut, "/api/v1/credentials", httphandler.CredentialsRequest{APIKey: "a", AppKey: "b"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCredentials_UnreadableAreReportedInvalid(t *testing.T) {
	f := newFixture(t)
	f.credStore.unreadable = true

	rec := f.do(t, http.MethodGet, "/api/v1/credentials", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[application.CredentialStatus](t, rec).IsValid)
}

func TestPlugins_ListAndToggle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/plugins", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	plugins := decode[[]httphandler.PluginResponse](t, rec)
	assert.Len(t, plugins, len(application.BuiltinManifests()))

	rec = f.do(t, http.MethodGet, "/api/v1/plugins?context=content", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	content := decode[[]httphandler.PluginResponse](t, rec)
	require.Len(t, content, 1)
	assert.Contains(t, content[0].DescriptionHTML, "<strong>RUM</strong>")

	rec = f.do(t, http.MethodGet, "/api/v1/plugins?context=devtools", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/v1/plugins/event-alerts/enabled", map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[httphandler.PluginResponse](t, rec).Enabled)
}

func TestPlugins_CoreCannotBeDisabled(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/v1/plugins/credentials/enabled", map[string]bool{"enabled": false})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[httphandler.PluginResponse](t, rec).Enabled)
}

func TestPlugins_Errors(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/plugins/ghost", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/api/v1/plugins/apm-tracer/enabled", map[string]string{}).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPut, "/api/v1/plugins/ghost/settings", map[string]any{"settings": map[string]string{"a": "b"}}).Code)
}

func TestTraces_IngestAndList(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	rec := f.do(t, http.MethodPost, "/api/v1/traces/events", httphandler.TraceEventRequest{
		Kind:        "request",
		RequestID:   "42",
		URL:         "https://shop.example.com/api/cart",
		Method:      "POST",
		Headers:     map[string]string{"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"},
		TimestampMS: start.UnixMilli(),
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, decode[httphandler.TraceEventResponse](t, rec).Tracked)

	rec = f.do(t, http.MethodPost, "/api/v1/traces/events", httphandler.TraceEventRequest{
		Kind:        "completed",
		RequestID:   "42",
		Status:      201,
		TimestampMS: start.Add(250 * time.Millisecond).UnixMilli(),
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/traces?domain=shop.example.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	traces := decode[[]httphandler.TraceResponse](t, rec)
	require.Len(t, traces, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", traces[0].TraceID)
	assert.Equal(t, 201, traces[0].Status)
	assert.InDelta(t, 250.0, traces[0].DurationMS, 0.001)

	rec = f.do(t, http.MethodGet, "/api/v1/traces/"+traces[0].ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/traces/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[httphandler.TraceStatsResponse](t, rec).Records)

	rec = f.do(t, http.MethodDelete, "/api/v1/traces", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/traces/"+traces[0].ID, nil).Code)
}

func TestTraces_IngestValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/traces/events", httphandler.TraceEventRequest{Kind: "request"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/traces/events", httphandler.TraceEventRequest{Kind: "teleport", RequestID: "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/traces?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTraces_Prune(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/traces/prune?force=true", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[httphandler.PruneResponse](t, rec).Removed)
}

func TestLinks_CRUD(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/links", httphandler.AddLinkRequest{
		Title:       "Demo dashboard",
		URL:         "https://app.datadoghq.com/dashboard/abc",
		Description: "Use for **APM** demos",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[httphandler.LinkResponse](t, rec)
	assert.Contains(t, created.DescriptionHTML, "<strong>APM</strong>")
	assert.Equal(t, 1, created.Position)

	rec = f.do(t, http.MethodGet, "/api/v1/links", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]httphandler.LinkResponse](t, rec), 1)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/v1/links/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/v1/links/1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodDelete, "/api/v1/links/abc", nil).Code)
}

func TestLinks_InvalidURL(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/links", httphandler.AddLinkRequest{Title: "x", URL: "javascript:alert(1)"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettings_GetAndUpdate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[httphandler.SettingsResponse](t, rec)
	assert.Equal(t, 1000, got.MaxTraces)
	assert.InDelta(t, 10.0, got.ValidateTimeoutSeconds, 0.001)

	rec = f.do(t, http.MethodPut, "/api/v1/settings", map[string]any{"max_traces": 250, "validate_timeout_seconds": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[httphandler.SettingsResponse](t, rec)
	assert.Equal(t, 250, got.MaxTraces)
	assert.Equal(t, 24, got.RetentionHours)
	assert.InDelta(t, 5.0, got.ValidateTimeoutSeconds, 0.001)

	rec = f.do(t, http.MethodPut, "/api/v1/settings", map[string]any{"max_traces": -5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvents_SendRequiresClient(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/events", httphandler.SendEventRequest{Title: "Demo"})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEvents_SendAndPoll(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/credentials/validate", httphandler.CredentialsRequest{APIKey: "a", AppKey: "b"}).Code)

	rec := f.do(t, http.MethodPost, "/api/v1/events", httphandler.SendEventRequest{Title: "Demo", Tags: []string{"team:se"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(500), decode[httphandler.EventResponse](t, rec).ID)

	rec = f.do(t, http.MethodPost, "/api/v1/events", httphandler.SendEventRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, err := f.services.Plugins.SetEnabled(context.Background(), application.PluginEventAlerts, true)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.services.Alerts.Start(ctx)

	rec = f.do(t, http.MethodPost, "/api/v1/events/poll", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	notifications := decode[[]httphandler.NotificationResponse](t, rec)
	require.Len(t, notifications, 1)
	assert.Equal(t, "Disk full", notifications[0].Title)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/v1/notifications/"+notifications[0].ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/v1/notifications/"+notifications[0].ID, nil).Code)
}

func TestMessages_Envelope(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/messages", map[string]any{"type": "ping"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[model.MessageResponse](t, rec)
	assert.True(t, resp.Success)

	rec = f.do(t, http.MethodPost, "/api/v1/messages", map[string]any{
		"type":     "pluginAction",
		"pluginId": "rum-extractor",
		"context":  "content",
		"action":   "extract",
		"payload":  map[string]string{"html": `<script>DD_RUM.init({applicationId: 'app-9', clientToken: 'tok'})</script>`},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[model.MessageResponse](t, rec)
	require.True(t, resp.Success, resp.Error)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "app-9", data["applicationId"])

	rec = f.do(t, http.MethodPost, "/api/v1/messages", map[string]any{"type": "nope"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[model.MessageResponse](t, rec).Success)
}

func TestMessages_BadEnvelope(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/messages", map[string]any{}).Code)
}

func TestCORS_ExtensionOriginOnly(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/plugins", nil)
	req.Header.Set("Origin", "chrome-extension://abcdefghijklmnop")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "chrome-extension://abcdefghijklmnop", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
