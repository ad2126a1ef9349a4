package application_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/setoolkit/internal/application"
	"github.com/ericfisherdev/setoolkit/internal/domain/model"
)

func TestVendorClientProvider_GetReturnsInitialClient(t *testing.T) {
	client := &mockVendorClient{}
	provider := application.NewVendorClientProvider(client)

	got := provider.Get()
	assert.Same(t, client, got)
}

func TestVendorClientProvider_ReplaceSwapsClient(t *testing.T) {
	original := &mockVendorClient{}
	replacement := &mockVendorClient{}

	provider := application.NewVendorClientProvider(original)
	assert.Same(t, original, provider.Get())

	provider.Replace(replacement)
	assert.Same(t, replacement, provider.Get())
}

func TestVendorClientProvider_HasClientReturnsFalseForNil(t *testing.T) {
	provider := application.NewVendorClientProvider(nil)

	require.False(t, provider.HasClient())
	_, ok := provider.ActiveRegion()
	require.False(t, ok)

	provider.Replace(&mockVendorClient{region: model.Region{ID: "eu1"}})

	require.True(t, provider.HasClient())
	region, ok := provider.ActiveRegion()
	require.True(t, ok)
	assert.Equal(t, "eu1", region.ID)
}

func TestVendorClientProvider_ConcurrentGetReplaceSafety(t *testing.T) {
	client1 := &mockVendorClient{}
	client2 := &mockVendorClient{}
	provider := application.NewVendorClientProvider(client1)

	const goroutines = 100
	var wg sync.WaitGroup
	wg.Add(goroutines * 2)

	// Half the goroutines read, half write.
	for range goroutines {
		go func() {
			defer wg.Done()
			assert.NotNil(t, provider.Get())
		}()
		go func() {
			defer wg.Done()
			provider.Replace(client2)
		}()
	}

	wg.Wait()

	assert.Same(t, client2, provider.Get())
}
