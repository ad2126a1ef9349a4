package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
	"github.com/ericfisherdev/setoolkit/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port interface.
// The API and application keys are encrypted with AES-256-GCM before write and
// decrypted after read. Region and validation state are stored in the clear.
type CredentialRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is disabled.
}

// NewCredentialRepo creates a new CredentialRepo. key must be 32 bytes for AES-256-GCM,
// or nil to disable credential storage (Save and Load return driven.ErrEncryptionKeyNotSet).
func NewCredentialRepo(db *DB, key []byte) *CredentialRepo {
	return &CredentialRepo{db: db, key: key}
}

// Save stores or replaces the credentials document.
func (r *CredentialRepo) Save(ctx context.Context, creds model.Credentials) error {
	apiKey, err := r.encrypt(creds.APIKey)
	if err != nil {
		return err
	}
	appKey, err := r.encrypt(creds.AppKey)
	if err != nil {
		return err
	}

	const query = `INSERT OR REPLACE INTO credentials (id, api_key, app_key, region, is_valid, last_validated_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`
	_, err = r.db.Writer.ExecContext(ctx, query,
		apiKey, appKey, creds.Region, boolToInt(creds.IsValid), formatTime(creds.LastValidatedAt))
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

// Load retrieves the stored credentials. Returns (nil, nil) if none exist.
func (r *CredentialRepo) Load(ctx context.Context) (*model.Credentials, error) {
	if r.key == nil {
		return nil, driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT api_key, app_key, region, is_valid, last_validated_at FROM credentials WHERE id = 1`
	var (
		encAPIKey, encAppKey string
		creds                model.Credentials
		isValid              int
		lastValidated        string
	)
	err := r.db.Reader.QueryRowContext(ctx, query).Scan(&encAPIKey, &encAppKey, &creds.Region, &isValid, &lastValidated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	if creds.APIKey, err = r.decrypt(encAPIKey); err != nil {
		return nil, fmt.Errorf("decrypt api key: %w: %w", driven.ErrCredentialsUnreadable, err)
	}
	if creds.AppKey, err = r.decrypt(encAppKey); err != nil {
		return nil, fmt.Errorf("decrypt app key: %w: %w", driven.ErrCredentialsUnreadable, err)
	}
	creds.IsValid = isValid != 0
	if creds.LastValidatedAt, err = parseTime(lastValidated); err != nil {
		return nil, fmt.Errorf("parse last_validated_at: %w", err)
	}

	return &creds, nil
}

// Clear removes the stored credentials.
func (r *CredentialRepo) Clear(ctx context.Context) error {
	const query = `DELETE FROM credentials`
	if _, err := r.db.Writer.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// encrypt encrypts plaintext using AES-256-GCM and returns a base64-encoded string
// containing the nonce (12 bytes) prepended to the ciphertext.
func (r *CredentialRepo) encrypt(plaintext string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	gcm, err := r.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *CredentialRepo) decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	gcm, err := r.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}

func (r *CredentialRepo) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(r.key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
