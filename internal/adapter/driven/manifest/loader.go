// Package manifest reads plugin manifests from TOML files on disk.
package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
	"github.com/ericfisherdev/setoolkit/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ManifestSource = (*DirLoader)(nil)

const fileExt = ".toml"

// DirLoader reads every *.toml file in a single directory (non-recursive).
// A file that fails to parse is logged and skipped.
type DirLoader struct {
	fsys fs.FS
	name string
}

// NewDirLoader creates a loader rooted at dir. An empty dir yields a loader
// that returns no manifests.
func NewDirLoader(dir string) *DirLoader {
	if dir == "" {
		return &DirLoader{}
	}
	return &DirLoader{fsys: os.DirFS(dir), name: dir}
}

// NewFSLoader creates a loader over an arbitrary filesystem. Intended for
// embedded manifests and tests.
func NewFSLoader(fsys fs.FS, name string) *DirLoader {
	return &DirLoader{fsys: fsys, name: name}
}

// Manifests returns the manifests found in the directory, ordered by file name.
// A missing directory is not an error.
func (l *DirLoader) Manifests(ctx context.Context) ([]model.PluginManifest, error) {
	if l.fsys == nil {
		return nil, nil
	}

	entries, err := fs.ReadDir(l.fsys, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("manifest directory does not exist", "dir", l.name)
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest dir %s: %w", l.name, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var manifests []model.PluginManifest
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), fileExt) {
			continue
		}

		m, err := l.parseFile(entry.Name())
		if err != nil {
			slog.Error("skipping manifest file", "dir", l.name, "file", entry.Name(), "error", err)
			continue
		}
		manifests = append(manifests, m)
	}

	slog.Info("manifest files loaded", "dir", l.name, "count", len(manifests))
	return manifests, nil
}

func (l *DirLoader) parseFile(name string) (model.PluginManifest, error) {
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return model.PluginManifest{}, fmt.Errorf("read %s: %w", name, err)
	}
	return Parse(data)
}

// Parse decodes a single TOML manifest. Unknown keys are rejected.
func Parse(data []byte) (model.PluginManifest, error) {
	var m model.PluginManifest
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return model.PluginManifest{}, fmt.Errorf("parse manifest at %d:%d: %w", row, col, err)
		}
		return model.PluginManifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}
