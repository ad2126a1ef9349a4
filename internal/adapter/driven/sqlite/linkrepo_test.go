package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
	"github.com/ericfisherdev/setoolkit/internal/domain/port/driven"
)

func TestLinkRepo_AddAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLinkRepo(db)
	ctx := context.Background()

	second, err := repo.Add(ctx, model.Link{Title: "Docs", URL: "https://docs.datadoghq.com", Position: 2})
	require.NoError(t, err)
	first, err := repo.Add(ctx, model.Link{Title: "Status", URL: "https://status.datadoghq.com", Description: "**status**", Position: 1})
	require.NoError(t, err)

	assert.NotZero(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.CreatedAt.IsZero())

	links, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "Status", links[0].Title)
	assert.Equal(t, "**status**", links[0].Description)
	assert.Equal(t, "Docs", links[1].Title)
}

func TestLinkRepo_Remove(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLinkRepo(db)
	ctx := context.Background()

	link, err := repo.Add(ctx, model.Link{Title: "Docs", URL: "https://docs.datadoghq.com"})
	require.NoError(t, err)

	require.NoError(t, repo.Remove(ctx, link.ID))

	links, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestLinkRepo_RemoveNonexistent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLinkRepo(db)

	err := repo.Remove(context.Background(), 999)
	assert.ErrorIs(t, err, driven.ErrLinkNotFound)
}
