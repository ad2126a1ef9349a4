// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
)

// VendorClient defines the driven port for the vendor REST API in a single region.
type VendorClient interface {
	// Region returns the region this client talks to.
	Region() model.Region
	// ValidateKeys asks the region whether the bound key pair is accepted. A
	// non-nil error means the region could not be asked; (false, nil) means it
	// answered without an "ok" status.
	ValidateKeys(ctx context.Context) (bool, error)
	// ListEvents returns events created in [start, end].
	ListEvents(ctx context.Context, start, end time.Time) ([]model.Event, error)
	// PostEvent creates an event and returns it as stored by the vendor.
	PostEvent(ctx context.Context, event model.Event) (model.Event, error)
}

// VendorClientFactory builds a VendorClient bound to a region and key pair.
type VendorClientFactory func(region model.Region, apiKey, appKey string) VendorClient
