package application

import (
	"sync"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
	"github.com/ericfisherdev/setoolkit/internal/domain/port/driven"
)

// VendorClientProvider enables runtime hot-swap of the vendor client.
// It holds a mutex-protected reference to the current driven.VendorClient,
// allowing a successful validation against a new region to take effect
// without restarting the application.
type VendorClientProvider struct {
	mu     sync.RWMutex
	client driven.VendorClient
}

// NewVendorClientProvider creates a new provider with the given initial client.
// client may be nil if no valid credentials are available at startup.
func NewVendorClientProvider(client driven.VendorClient) *VendorClientProvider {
	return &VendorClientProvider{client: client}
}

// Get returns the current vendor client. Callers should check for nil
// if the provider was created without initial credentials.
func (p *VendorClientProvider) Get() driven.VendorClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client
}

// Replace swaps the current client. Passing nil deactivates the client, which
// happens when credentials are cleared or fail validation.
func (p *VendorClientProvider) Replace(client driven.VendorClient) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = client
}

// HasClient returns true if a non-nil client is currently held.
func (p *VendorClientProvider) HasClient() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.client != nil
}

// ActiveRegion returns the region of the current client.
func (p *VendorClientProvider) ActiveRegion() (model.Region, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.client == nil {
		return model.Region{}, false
	}
	return p.client.Region(), true
}
