package application

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/samber/lo"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
	"github.com/ericfisherdev/setoolkit/internal/domain/port/driven"
)

// PluginService manages plugin runtime state on top of the registry. It is the
// only writer of plugin entries, and every write passes through normalize.
type PluginService struct {
	registry *Registry
	store    driven.PluginStore
	now      func() time.Time
}

// NewPluginService creates a PluginService.
func NewPluginService(registry *Registry, store driven.PluginStore) *PluginService {
	return &PluginService{
		registry: registry,
		store:    store,
		now:      time.Now,
	}
}

// normalize applies the runtime invariants of a plugin entry: core plugins are
// always enabled and settings are never nil.
func normalize(m model.PluginManifest, entry model.PluginEntry) model.PluginEntry {
	if m.Core {
		entry.Enabled = true
	}
	if entry.Settings == nil {
		entry.Settings = map[string]string{}
	}
	return entry
}

func (s *PluginService) defaultEntry(m model.PluginManifest) model.PluginEntry {
	now := s.now().UTC()
	return normalize(m, model.PluginEntry{
		ID:        m.ID,
		Enabled:   m.DefaultEnabled,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Sync creates entries for newly registered plugins and re-asserts the core
// invariant on existing ones.
func (s *PluginService) Sync(ctx context.Context) error {
	var created, repaired int

	for _, m := range s.registry.All() {
		entry, err := s.store.Get(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("get plugin %s: %w", m.ID, err)
		}

		if entry == nil {
			if err := s.store.Upsert(ctx, s.defaultEntry(m)); err != nil {
				return fmt.Errorf("create plugin %s: %w", m.ID, err)
			}
			created++
			continue
		}

		fixed := normalize(m, *entry)
		if fixed.Enabled != entry.Enabled {
			fixed.UpdatedAt = s.now().UTC()
			if err := s.store.Upsert(ctx, fixed); err != nil {
				return fmt.Errorf("repair plugin %s: %w", m.ID, err)
			}
			repaired++
		}
	}

	slog.Info("plugins synced", "created", created, "repaired", repaired)
	return nil
}

// List returns the merged view of every plugin, or only those declaring
// execCtx when it is non-empty.
func (s *PluginService) List(ctx context.Context, execCtx model.ExecContext) ([]model.PluginView, error) {
	manifests := s.registry.All()
	if execCtx != "" {
		manifests = s.registry.ForContext(execCtx)
	}

	entries, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plugins: %w", err)
	}
	byID := lo.KeyBy(entries, func(e model.PluginEntry) string { return e.ID })

	views := make([]model.PluginView, 0, len(manifests))
	for _, m := range manifests {
		entry, ok := byID[m.ID]
		if !ok {
			entry = s.defaultEntry(m)
		}
		views = append(views, model.PluginView{Manifest: m, Entry: normalize(m, entry)})
	}
	return views, nil
}

// Get returns the merged view of a single plugin.
func (s *PluginService) Get(ctx context.Context, id string) (model.PluginView, error) {
	m, entry, err := s.load(ctx, id)
	if err != nil {
		return model.PluginView{}, err
	}
	return model.PluginView{Manifest: m, Entry: entry}, nil
}

// SetEnabled toggles a plugin. Disabling a core plugin leaves it enabled.
func (s *PluginService) SetEnabled(ctx context.Context, id string, enabled bool) (model.PluginView, error) {
	return s.update(ctx, id, func(e *model.PluginEntry) {
		e.Enabled = enabled
	})
}

// UpdateSettings merges settings into the plugin's stored settings. A key with
// an empty value is removed.
func (s *PluginService) UpdateSettings(ctx context.Context, id string, settings map[string]string) (model.PluginView, error) {
	return s.update(ctx, id, func(e *model.PluginEntry) {
		merged := maps.Clone(e.Settings)
		if merged == nil {
			merged = map[string]string{}
		}
		for k, v := range settings {
			if v == "" {
				delete(merged, k)
				continue
			}
			merged[k] = v
		}
		e.Settings = merged
	})
}

// IsEnabled reports whether a plugin is enabled.
func (s *PluginService) IsEnabled(ctx context.Context, id string) (bool, error) {
	_, entry, err := s.load(ctx, id)
	if err != nil {
		return false, err
	}
	return entry.Enabled, nil
}

// Settings returns a plugin's settings.
func (s *PluginService) Settings(ctx context.Context, id string) (map[string]string, error) {
	_, entry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return entry.Settings, nil
}

// Gate returns a TraceGate-compatible check for a plugin. Lookup errors close
// the gate.
func (s *PluginService) Gate(id string) func(ctx context.Context) bool {
	return func(ctx context.Context) bool {
		enabled, err := s.IsEnabled(ctx, id)
		if err != nil {
			slog.Warn("plugin state unavailable", "plugin", id, "error", err)
			return false
		}
		return enabled
	}
}

func (s *PluginService) update(ctx context.Context, id string, mutate func(*model.PluginEntry)) (model.PluginView, error) {
	m, entry, err := s.load(ctx, id)
	if err != nil {
		return model.PluginView{}, err
	}

	mutate(&entry)
	entry = normalize(m, entry)
	entry.UpdatedAt = s.now().UTC()

	if err := s.store.Upsert(ctx, entry); err != nil {
		return model.PluginView{}, fmt.Errorf("update plugin %s: %w", id, err)
	}

	slog.Info("plugin updated", "plugin", id, "enabled", entry.Enabled)
	return model.PluginView{Manifest: m, Entry: entry}, nil
}

func (s *PluginService) load(ctx context.Context, id string) (model.PluginManifest, model.PluginEntry, error) {
	m, ok := s.registry.Get(id)
	if !ok {
		return model.PluginManifest{}, model.PluginEntry{}, fmt.Errorf("%w: %s", driven.ErrPluginNotFound, id)
	}

	stored, err := s.store.Get(ctx, id)
	if err != nil {
		return model.PluginManifest{}, model.PluginEntry{}, fmt.Errorf("get plugin %s: %w", id, err)
	}
	if stored == nil {
		return m, s.defaultEntry(m), nil
	}
	return m, normalize(m, *stored), nil
}
