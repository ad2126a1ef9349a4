package manifest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/ericfisherdev/setoolkit/internal/adapter/driven/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const screenshotManifest = `
id = "screenshot"
name = "Screenshot Helper"
version = "1.2.0"
description = "Captures the **visible** tab."
default_enabled = true
permissions = ["tabs", "activeTab"]
matches = ["https://*.datadoghq.com/*"]

[contexts]
background = true
content = true
`

func TestParse(t *testing.T) {
	m, err := manifest.Parse([]byte(screenshotManifest))

	require.NoError(t, err)
	assert.Equal(t, "screenshot", m.ID)
	assert.Equal(t, "Screenshot Helper", m.Name)
	assert.Equal(t, "1.2.0", m.Version)
	assert.True(t, m.DefaultEnabled)
	assert.False(t, m.Core)
	assert.True(t, m.Contexts.Background)
	assert.True(t, m.Contexts.Content)
	assert.False(t, m.Contexts.Options)
	assert.Equal(t, []string{"tabs", "activeTab"}, m.Permissions)
	assert.Equal(t, []string{"https://*.datadoghq.com/*"}, m.Matches)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := manifest.Parse([]byte("id = \"x\"\nnmae = \"typo\"\n"))

	require.Error(t, err)
}

func TestParse_Syntax(t *testing.T) {
	_, err := manifest.Parse([]byte("id = \n"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse manifest")
}

func TestManifests_SkipsInvalidAndNonTOML(t *testing.T) {
	fsys := fstest.MapFS{
		"b-screenshot.toml": {Data: []byte(screenshotManifest)},
		"a-broken.toml":     {Data: []byte("id = ")},
		"README.md":         {Data: []byte("# plugins")},
		"nested/c.toml":     {Data: []byte(screenshotManifest)},
	}
	loader := manifest.NewFSLoader(fsys, "mem")

	got, err := loader.Manifests(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "screenshot", got[0].ID)
}

func TestManifests_OrderedByFileName(t *testing.T) {
	fsys := fstest.MapFS{
		"20-second.toml": {Data: []byte("id = \"second\"\nname = \"Second\"\nversion = \"1.0.0\"\n")},
		"10-first.toml":  {Data: []byte("id = \"first\"\nname = \"First\"\nversion = \"1.0.0\"\n")},
	}

	got, err := manifest.NewFSLoader(fsys, "mem").Manifests(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "second", got[1].ID)
}

func TestManifests_DirOnDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shot.toml"), []byte(screenshotManifest), 0o600))

	got, err := manifest.NewDirLoader(dir).Manifests(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestManifests_MissingDir(t *testing.T) {
	got, err := manifest.NewDirLoader(filepath.Join(t.TempDir(), "absent")).Manifests(context.Background())

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestManifests_EmptyDir(t *testing.T) {
	got, err := manifest.NewDirLoader("").Manifests(context.Background())

	require.NoError(t, err)
	assert.Nil(t, got)
}
