package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
)

func TestSettingsRepo_DefaultsWhenEmpty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSettingsRepo(db)

	settings, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), settings)
}

func TestSettingsRepo_SetAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSettingsRepo(db)
	ctx := context.Background()

	want := model.Settings{MaxTraces: 250, RetentionHours: 6, ValidateTimeout: 3 * time.Second}
	require.NoError(t, repo.Set(ctx, want))

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSettingsRepo_InvalidValuesFallBack(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSettingsRepo(db)
	ctx := context.Background()

	_, err := db.Writer.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES ('max_traces', 'lots'), ('retention_hours', '-3')`)
	require.NoError(t, err)

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings().MaxTraces, got.MaxTraces)
	assert.Equal(t, model.DefaultSettings().RetentionHours, got.RetentionHours)
}
