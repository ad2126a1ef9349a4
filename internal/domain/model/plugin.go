package model

import "time"

// ExecContext identifies one of the browser execution contexts a plugin can run in.
type ExecContext string

// Execution contexts.
const (
	ContextBackground ExecContext = "background"
	ContextContent    ExecContext = "content"
	ContextOptions    ExecContext = "options"
)

// AllContexts returns every known execution context.
func AllContexts() []ExecContext {
	return []ExecContext{ContextBackground, ContextContent, ContextOptions}
}

// PluginContexts declares which execution contexts a plugin supports.
type PluginContexts struct {
	Background bool `json:"background" toml:"background"`
	Content    bool `json:"content" toml:"content"`
	Options    bool `json:"options" toml:"options"`
}

// Has reports whether the given context is declared.
func (c PluginContexts) Has(ctx ExecContext) bool {
	switch ctx {
	case ContextBackground:
		return c.Background
	case ContextContent:
		return c.Content
	case ContextOptions:
		return c.Options
	default:
		return false
	}
}

// List returns the declared contexts in a stable order.
func (c PluginContexts) List() []ExecContext {
	var out []ExecContext
	for _, ctx := range AllContexts() {
		if c.Has(ctx) {
			out = append(out, ctx)
		}
	}
	return out
}

// PluginManifest is the static definition of a plugin.
type PluginManifest struct {
	ID             string         `json:"id" toml:"id" validate:"required,max=64,pluginid"`
	Name           string         `json:"name" toml:"name" validate:"required"`
	Version        string         `json:"version" toml:"version" validate:"required"`
	Description    string         `json:"description" toml:"description"`
	Core           bool           `json:"core" toml:"core"`
	DefaultEnabled bool           `json:"defaultEnabled" toml:"default_enabled"`
	Contexts       PluginContexts `json:"contexts" toml:"contexts"`
	Permissions    []string       `json:"permissions" toml:"permissions" validate:"dive,required"`
	Matches        []string       `json:"matches" toml:"matches" validate:"dive,required"`
}

// PluginEntry is the persisted runtime state of a plugin.
type PluginEntry struct {
	ID        string            `json:"id"`
	Enabled   bool              `json:"enabled"`
	Settings  map[string]string `json:"settings"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// PluginView merges a manifest with its runtime entry.
type PluginView struct {
	Manifest PluginManifest `json:"manifest"`
	Entry    PluginEntry    `json:"entry"`
}
