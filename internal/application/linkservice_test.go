package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/setoolkit/internal/application"
	"github.com/ericfisherdev/setoolkit/internal/domain/model"
	"github.com/ericfisherdev/setoolkit/internal/domain/port/driven"
)

func TestLinkService_AddAppendsPosition(t *testing.T) {
	store := &mockLinkStore{}
	svc := application.NewLinkService(store)
	ctx := context.Background()

	first, err := svc.Add(ctx, model.Link{Title: " Docs ", URL: "https://docs.datadoghq.com"})
	require.NoError(t, err)
	assert.Equal(t, "Docs", first.Title)
	assert.Equal(t, 1, first.Position)

	second, err := svc.Add(ctx, model.Link{Title: "Status", URL: "https://status.datadoghq.com"})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Position)

	pinned, err := svc.Add(ctx, model.Link{Title: "Pinned", URL: "https://app.datadoghq.com", Position: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, pinned.Position)
}

func TestLinkService_AddValidates(t *testing.T) {
	svc := application.NewLinkService(&mockLinkStore{})
	ctx := context.Background()

	for _, l := range []model.Link{
		{Title: "", URL: "https://x.test"},
		{Title: "x", URL: "not a url"},
		{Title: "x", URL: "javascript:alert(1)"},
		{Title: "x", URL: "/relative"},
	} {
		_, err := svc.Add(ctx, l)
		assert.ErrorIs(t, err, application.ErrInvalidLink, l.URL)
	}
}

func TestLinkService_Remove(t *testing.T) {
	store := &mockLinkStore{}
	svc := application.NewLinkService(store)
	ctx := context.Background()
	l, err := svc.Add(ctx, model.Link{Title: "Docs", URL: "https://docs.datadoghq.com"})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, l.ID))
	assert.ErrorIs(t, svc.Remove(ctx, l.ID), driven.ErrLinkNotFound)

	links, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, links)
}
