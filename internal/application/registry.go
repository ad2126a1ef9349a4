package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
	"github.com/ericfisherdev/setoolkit/internal/domain/port/driven"
)

// Manifest validation errors.
var (
	ErrNoContexts        = errors.New("manifest declares no execution context")
	ErrInvalidVersion    = errors.New("manifest version is not semver")
	ErrInvalidPermission = errors.New("permission not allowed in declared contexts")
	ErrInvalidMatch      = errors.New("invalid match pattern")
	ErrMissingMatches    = errors.New("content plugins must declare at least one match pattern")
)

// contextPermissions is the allowlist of permissions each execution context may request.
var contextPermissions = map[model.ExecContext][]string{
	model.ContextBackground: {
		"alarms", "contextMenus", "cookies", "debugger", "notifications",
		"scripting", "storage", "tabs", "webNavigation", "webRequest",
	},
	model.ContextContent: {"activeTab", "clipboardWrite", "storage"},
	model.ContextOptions: {"storage", "tabs"},
}

var (
	pluginIDPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
	hostPattern     = regexp.MustCompile(`^(\*|(\*\.)?[A-Za-z0-9-]+(\.[A-Za-z0-9-]+)*)(:\d+)?$`)
	matchSchemes    = []string{"*", "http", "https", "ws", "wss", "file"}
)

// Registry holds the validated plugin manifests. Manifests are fixed once
// loaded; adding plugins requires a restart.
type Registry struct {
	validate *validator.Validate

	mu        sync.RWMutex
	manifests []model.PluginManifest
	byID      map[string]int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	v := validator.New()
	_ = v.RegisterValidation("pluginid", func(fl validator.FieldLevel) bool {
		return pluginIDPattern.MatchString(fl.Field().String())
	})
	return &Registry{
		validate: v,
		byID:     make(map[string]int),
	}
}

// Load validates and registers manifests in order. Invalid manifests and
// duplicate IDs are logged and skipped. It returns the number registered.
func (r *Registry) Load(manifests []model.PluginManifest) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var loaded int
	for _, m := range manifests {
		if err := r.Validate(m); err != nil {
			slog.Error("skipping invalid plugin manifest", "plugin", m.ID, "error", err)
			continue
		}
		if _, dup := r.byID[m.ID]; dup {
			slog.Warn("skipping duplicate plugin manifest", "plugin", m.ID)
			continue
		}
		r.byID[m.ID] = len(r.manifests)
		r.manifests = append(r.manifests, m)
		loaded++
	}

	slog.Info("plugin registry loaded", "registered", loaded, "total", len(r.manifests))
	return loaded
}

// LoadFrom registers the manifests provided by src. Manifests already
// registered keep precedence over ones with the same ID from src.
func (r *Registry) LoadFrom(ctx context.Context, src driven.ManifestSource) (int, error) {
	manifests, err := src.Manifests(ctx)
	if err != nil {
		return 0, fmt.Errorf("read plugin manifests: %w", err)
	}
	return r.Load(manifests), nil
}

// Validate checks a manifest without registering it.
func (r *Registry) Validate(m model.PluginManifest) error {
	if err := r.validate.Struct(m); err != nil {
		return fmt.Errorf("validate manifest fields: %w", err)
	}
	if _, err := semver.StrictNewVersion(m.Version); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidVersion, m.Version, err)
	}

	contexts := m.Contexts.List()
	if len(contexts) == 0 {
		return ErrNoContexts
	}

	allowed := lo.Uniq(lo.FlatMap(contexts, func(c model.ExecContext, _ int) []string {
		return contextPermissions[c]
	}))
	for _, p := range m.Permissions {
		if !lo.Contains(allowed, p) {
			return fmt.Errorf("%w: %q", ErrInvalidPermission, p)
		}
	}

	if m.Contexts.Content && len(m.Matches) == 0 {
		return ErrMissingMatches
	}
	for _, pattern := range m.Matches {
		if err := ValidateMatchPattern(pattern); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the manifest with the given ID.
func (r *Registry) Get(id string) (model.PluginManifest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byID[id]
	if !ok {
		return model.PluginManifest{}, false
	}
	return r.manifests[idx], true
}

// All returns every registered manifest in registration order.
func (r *Registry) All() []model.PluginManifest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.PluginManifest(nil), r.manifests...)
}

// ForContext returns the manifests that declare ctx, in registration order.
func (r *Registry) ForContext(ctx model.ExecContext) []model.PluginManifest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Filter(r.manifests, func(m model.PluginManifest, _ int) bool {
		return m.Contexts.Has(ctx)
	})
}

// ValidateMatchPattern checks a browser match pattern of the form
// <scheme>://<host><path>, or the special pattern <all_urls>.
func ValidateMatchPattern(pattern string) error {
	if pattern == "<all_urls>" {
		return nil
	}

	scheme, rest, ok := strings.Cut(pattern, "://")
	if !ok || !lo.Contains(matchSchemes, scheme) {
		return fmt.Errorf("%w: %q: bad scheme", ErrInvalidMatch, pattern)
	}

	host, _, ok := strings.Cut(rest, "/")
	if !ok {
		return fmt.Errorf("%w: %q: missing path", ErrInvalidMatch, pattern)
	}

	if scheme == "file" {
		if host != "" {
			return fmt.Errorf("%w: %q: file patterns take no host", ErrInvalidMatch, pattern)
		}
		return nil
	}
	if !hostPattern.MatchString(host) {
		return fmt.Errorf("%w: %q: bad host", ErrInvalidMatch, pattern)
	}
	return nil
}
