package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
)

// ErrPluginNotFound indicates the requested plugin is unknown to the registry
// or has no persisted runtime entry.
var ErrPluginNotFound = errors.New("plugin not found")

// PluginStore defines the driven port for plugin runtime entries.
type PluginStore interface {
	// Get returns the entry for id, or (nil, nil) when none is stored.
	Get(ctx context.Context, id string) (*model.PluginEntry, error)
	ListAll(ctx context.Context) ([]model.PluginEntry, error)
	// Upsert stores the entry. The caller is responsible for domain invariants.
	Upsert(ctx context.Context, entry model.PluginEntry) error
}
