package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations when
// SETOOLKIT_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set SETOOLKIT_SECRET_KEY")

// ErrCredentialsUnreadable is returned by Load when stored credentials exist but
// cannot be decrypted, typically because SETOOLKIT_SECRET_KEY changed.
var ErrCredentialsUnreadable = errors.New("stored credentials cannot be decrypted")

// CredentialStore defines the driven port for encrypted credential persistence.
// The adapter layer is responsible for encryption/decryption; this interface
// operates on plaintext values at the domain boundary.
type CredentialStore interface {
	// Save stores or replaces the single credentials document.
	// Returns ErrEncryptionKeyNotSet if the adapter was constructed without an encryption key.
	Save(ctx context.Context, creds model.Credentials) error

	// Load retrieves the stored credentials.
	// Returns (nil, nil) if nothing has been stored.
	// Returns ErrEncryptionKeyNotSet if the adapter was constructed without an encryption key,
	// and ErrCredentialsUnreadable if the stored values do not decrypt with the configured key.
	Load(ctx context.Context) (*model.Credentials, error)

	// Clear removes the stored credentials. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
