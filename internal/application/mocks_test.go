package application_test

import (
	"context"
	"sync"
	"time"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
	"github.com/ericfisherdev/setoolkit/internal/domain/port/driven"
)

// --- Vendor client ---

type mockVendorClient struct {
	region     model.Region
	validate   func(ctx context.Context) (bool, error)
	listEvents func(ctx context.Context, start, end time.Time) ([]model.Event, error)
	postEvent  func(ctx context.Context, event model.Event) (model.Event, error)
}

func (m *mockVendorClient) Region() model.Region { return m.region }

func (m *mockVendorClient) ValidateKeys(ctx context.Context) (bool, error) {
	if m.validate == nil {
		return false, nil
	}
	return m.validate(ctx)
}

func (m *mockVendorClient) ListEvents(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	if m.listEvents == nil {
		return nil, nil
	}
	return m.listEvents(ctx, start, end)
}

func (m *mockVendorClient) PostEvent(ctx context.Context, event model.Event) (model.Event, error) {
	if m.postEvent == nil {
		return event, nil
	}
	return m.postEvent(ctx, event)
}

// --- Credential store ---

type mockCredentialStore struct {
	creds   *model.Credentials
	saveErr error
	loadErr error
	saves   []model.Credentials
	cleared bool
}

func (m *mockCredentialStore) Save(_ context.Context, creds model.Credentials) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves = append(m.saves, creds)
	c := creds
	m.creds = &c
	return nil
}

func (m *mockCredentialStore) Load(_ context.Context) (*model.Credentials, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.creds, nil
}

func (m *mockCredentialStore) Clear(_ context.Context) error {
	m.creds = nil
	m.cleared = true
	return nil
}

// --- Settings store ---

type mockSettingsStore struct {
	mu       sync.Mutex
	settings model.Settings
	err      error
}

func newMockSettingsStore() *mockSettingsStore {
	return &mockSettingsStore{settings: model.DefaultSettings()}
}

func (m *mockSettingsStore) Get(_ context.Context) (model.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings, m.err
}

func (m *mockSettingsStore) Set(_ context.Context, s model.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s
	return nil
}

// --- Trace store ---

type mockTraceStore struct {
	mu      sync.Mutex
	records []model.TraceRecord
	saves   int
	saveErr error
}

func (m *mockTraceStore) Load(_ context.Context) ([]model.TraceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.TraceRecord(nil), m.records...), nil
}

func (m *mockTraceStore) Save(_ context.Context, records []model.TraceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records = append([]model.TraceRecord(nil), records...)
	return nil
}

// --- Plugin store ---

type mockPluginStore struct {
	mu      sync.Mutex
	entries map[string]model.PluginEntry
	upserts []model.PluginEntry
}

func newMockPluginStore() *mockPluginStore {
	return &mockPluginStore{entries: make(map[string]model.PluginEntry)}
}

func (m *mockPluginStore) Get(_ context.Context, id string) (*model.PluginEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *mockPluginStore) ListAll(_ context.Context) ([]model.PluginEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.PluginEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

func (m *mockPluginStore) Upsert(_ context.Context, entry model.PluginEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = entry
	m.upserts = append(m.upserts, entry)
	return nil
}

// --- Link store ---

type mockLinkStore struct {
	links  []model.Link
	nextID int64
}

func (m *mockLinkStore) Add(_ context.Context, link model.Link) (model.Link, error) {
	m.nextID++
	link.ID = m.nextID
	m.links = append(m.links, link)
	return link, nil
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

func (m *mockLinkStore) ListAll(_ context.Context) ([]model.Link, error) {
	return m.links, nil
}
