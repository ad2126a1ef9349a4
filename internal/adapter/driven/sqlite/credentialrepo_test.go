package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
	"github.com/ericfisherdev/setoolkit/internal/domain/port/driven"
)

func TestCredentialRepo_SaveAndLoad(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey)
	ctx := context.Background()

	validatedAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	err := repo.Save(ctx, model.Credentials{
		APIKey:          "api-123",
		AppKey:          "app-456",
		Region:          "eu1",
		IsValid:         true,
		LastValidatedAt: validatedAt,
	})
	require.NoError(t, err)

	creds, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "api-123", creds.APIKey)
	assert.Equal(t, "app-456", creds.AppKey)
	assert.Equal(t, "eu1", creds.Region)
	assert.True(t, creds.IsValid)
	assert.True(t, validatedAt.Equal(creds.LastValidatedAt))
}

func TestCredentialRepo_LoadMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey)

	creds, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestCredentialRepo_SaveOverwrites(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, model.Credentials{APIKey: "old", AppKey: "old"}))
	require.NoError(t, repo.Save(ctx, model.Credentials{APIKey: "new", AppKey: "newer"}))

	creds, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "new", creds.APIKey)
	assert.Equal(t, "newer", creds.AppKey)
	assert.False(t, creds.IsValid)
	assert.True(t, creds.LastValidatedAt.IsZero())
}

func TestCredentialRepo_ValuesAreEncryptedAtRest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, model.Credentials{APIKey: "plain-api", AppKey: "plain-app"}))

	var apiKey, appKey string
	err := db.Reader.QueryRowContext(ctx, `SELECT api_key, app_key FROM credentials WHERE id = 1`).Scan(&apiKey, &appKey)
	require.NoError(t, err)
	assert.NotContains(t, apiKey, "plain-api")
	assert.NotContains(t, appKey, "plain-app")
}

func TestCredentialRepo_Clear(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, model.Credentials{APIKey: "a", AppKey: "b"}))
	require.NoError(t, repo.Clear(ctx))

	creds, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds)

	assert.NoError(t, repo.Clear(ctx), "clearing an empty store should not error")
}

func TestCredentialRepo_NoKey(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, nil)
	ctx := context.Background()

	err := repo.Save(ctx, model.Credentials{APIKey: "a", AppKey: "b"})
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)

	_, err = repo.Load(ctx)
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
}

func TestCredentialRepo_WrongKeyFailsToDecrypt(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, NewCredentialRepo(db, testKey).Save(ctx, model.Credentials{APIKey: "a", AppKey: "b"}))

	other := NewCredentialRepo(db, []byte("fedcba9876543210fedcba9876543210"))
	_, err := other.Load(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrCredentialsUnreadable)
	assert.Contains(t, err.Error(), "decrypt api key")
}
