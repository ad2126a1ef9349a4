package driven

import (
	"context"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
)

// ManifestSource provides plugin manifests discovered outside the built-in table.
// Implementations skip unreadable entries rather than failing the whole load;
// the returned error is reserved for a source that cannot be read at all.
type ManifestSource interface {
	Manifests(ctx context.Context) ([]model.PluginManifest, error)
}
