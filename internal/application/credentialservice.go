package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
	"github.com/ericfisherdev/setoolkit/internal/domain/port/driven"
)

// ErrMissingKeys is returned when validation is requested without both keys.
var ErrMissingKeys = errors.New("api key and application key are required")

// CredentialService owns the vendor key pair: storage, region discovery and
// activation of the vendor client.
type CredentialService struct {
	store    driven.CredentialStore
	settings driven.SettingsStore
	factory  driven.VendorClientFactory
	provider *VendorClientProvider
	regions  []model.Region
	now      func() time.Time
}

// NewCredentialService creates a CredentialService. regions is probed in order.
func NewCredentialService(
	store driven.CredentialStore,
	settings driven.SettingsStore,
	factory driven.VendorClientFactory,
	provider *VendorClientProvider,
	regions []model.Region,
) *CredentialService {
	return &CredentialService{
		store:    store,
		settings: settings,
		factory:  factory,
		provider: provider,
		regions:  regions,
		now:      time.Now,
	}
}

// Regions returns the probed regions in priority order.
func (s *CredentialService) Regions() []model.Region {
	return append([]model.Region(nil), s.regions...)
}

// Get returns the stored credentials. A store without an encryption key, one
// whose contents no longer decrypt, or one holding nothing yields empty
// credentials that are not valid.
func (s *CredentialService) Get(ctx context.Context) (model.Credentials, error) {
	creds, err := s.store.Load(ctx)
	if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
		return model.Credentials{}, nil
	}
	if errors.Is(err, driven.ErrCredentialsUnreadable) {
		slog.Warn("stored credentials unreadable, treating as invalid", "error", err)
		return model.Credentials{}, nil
	}
	if err != nil {
		return model.Credentials{}, fmt.Errorf("load credentials: %w", err)
	}
	if creds == nil {
		return model.Credentials{}, nil
	}
	return *creds, nil
}

// Save stores a key pair without validating it. The pair is marked invalid and
// the active vendor client is dropped until the next successful validation.
func (s *CredentialService) Save(ctx context.Context, apiKey, appKey string) error {
	apiKey, appKey = strings.TrimSpace(apiKey), strings.TrimSpace(appKey)
	if apiKey == "" || appKey == "" {
		return ErrMissingKeys
	}

	if err := s.store.Save(ctx, model.Credentials{APIKey: apiKey, AppKey: appKey}); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	s.provider.Replace(nil)
	return nil
}

// Clear removes stored credentials and deactivates the vendor client.
func (s *CredentialService) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	s.provider.Replace(nil)
	slog.Info("credentials cleared")
	return nil
}

// Validate probes each region in priority order until one accepts the key pair.
// Regions are tried sequentially, once each; a region that errors or times out
// counts as an attempt and the next one is tried. The outcome is persisted and,
// on success, the vendor client is switched to the accepting region.
//
// A store without an encryption key cannot persist the outcome; the result is
// still returned and the client activated for this process only.
func (s *CredentialService) Validate(ctx context.Context, apiKey, appKey string) (model.ValidationResult, error) {
	apiKey, appKey = strings.TrimSpace(apiKey), strings.TrimSpace(appKey)
	if apiKey == "" || appKey == "" {
		return model.ValidationResult{}, ErrMissingKeys
	}

	timeout := model.DefaultSettings().ValidateTimeout
	if settings, err := s.settings.Get(ctx); err == nil && settings.ValidateTimeout > 0 {
		timeout = settings.ValidateTimeout
	}

	result, client, err := s.probe(ctx, apiKey, appKey, timeout)
	if err != nil {
		return result, err
	}

	creds := model.Credentials{
		APIKey:          apiKey,
		AppKey:          appKey,
		Region:          result.Region,
		IsValid:         result.IsValid,
		LastValidatedAt: s.now().UTC(),
	}
	if err := s.store.Save(ctx, creds); err != nil {
		if !errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			return result, fmt.Errorf("save validation result: %w", err)
		}
		slog.Warn("validation result not persisted", "error", err)
	}

	s.provider.Replace(client)

	slog.Info("credential validation complete",
		"valid", result.IsValid,
		"region", result.Region,
		"attempts", result.Attempts,
	)
	return result, nil
}

// ValidateStored re-validates the stored key pair.
func (s *CredentialService) ValidateStored(ctx context.Context) (model.ValidationResult, error) {
	creds, err := s.Get(ctx)
	if err != nil {
		return model.ValidationResult{}, err
	}
	return s.Validate(ctx, creds.APIKey, creds.AppKey)
}

// Restore activates the vendor client from stored credentials that were valid
// at their last validation. It does not contact the vendor.
func (s *CredentialService) Restore(ctx context.Context) (bool, error) {
	creds, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	if !creds.IsValid || creds.IsEmpty() {
		return false, nil
	}

	region, ok := model.FindRegion(s.regions, creds.Region)
	if !ok {
		slog.Warn("stored credentials reference unknown region", "region", creds.Region)
		return false, nil
	}

	s.provider.Replace(s.factory(region, creds.APIKey, creds.AppKey))
	slog.Info("vendor client restored", "region", region.ID)
	return true, nil
}

// probe returns the accepting region's client, or nil when none accepted.
// Only cancellation of ctx itself aborts the scan.
func (s *CredentialService) probe(ctx context.Context, apiKey, appKey string, timeout time.Duration) (model.ValidationResult, driven.VendorClient, error) {
	var result model.ValidationResult

	for _, region := range s.regions {
		if err := ctx.Err(); err != nil {
			return result, nil, err
		}

		result.Attempts++
		client := s.factory(region, apiKey, appKey)

		regionCtx, cancel := context.WithTimeout(ctx, timeout)
		ok, err := client.ValidateKeys(regionCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return result, nil, ctx.Err()
			}
			slog.Warn("region validation failed", "region", region.ID, "error", err)
			continue
		}
		if ok {
			result.IsValid = true
			result.Region = region.ID
			return result, client, nil
		}
		slog.Debug("region rejected keys", "region", region.ID)
	}

	return result, nil, nil
}
