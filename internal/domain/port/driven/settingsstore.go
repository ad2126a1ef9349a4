package driven

import (
	"context"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
)

// SettingsStore defines the driven port for runtime settings.
type SettingsStore interface {
	// Get returns the stored settings, falling back to model.DefaultSettings()
	// for any missing key.
	Get(ctx context.Context) (model.Settings, error)
	Set(ctx context.Context, settings model.Settings) error
}
