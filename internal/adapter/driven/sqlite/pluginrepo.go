package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
	"github.com/ericfisherdev/setoolkit/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PluginStore = (*PluginRepo)(nil)

// PluginRepo is the SQLite implementation of the PluginStore port interface.
type PluginRepo struct {
	db *DB
}

// NewPluginRepo creates a new PluginRepo backed by the given DB.
func NewPluginRepo(db *DB) *PluginRepo {
	return &PluginRepo{db: db}
}

// Get returns the runtime entry for id, or (nil, nil) if none is stored.
func (r *PluginRepo) Get(ctx context.Context, id string) (*model.PluginEntry, error) {
	const query = `SELECT id, enabled, settings, created_at, updated_at FROM plugins WHERE id = ?`

	entry, err := scanPluginEntry(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plugin %q: %w", id, err)
	}
	return &entry, nil
}

// ListAll returns all runtime entries ordered by id.
func (r *PluginRepo) ListAll(ctx context.Context) ([]model.PluginEntry, error) {
	const query = `SELECT id, enabled, settings, created_at, updated_at FROM plugins ORDER BY id`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list plugins: %w", err)
	}
	defer rows.Close()

	var entries []model.PluginEntry
	for rows.Next() {
		entry, err := scanPluginEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plugin: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plugins: %w", err)
	}

	return entries, nil
}

// Upsert inserts or updates a runtime entry. CreatedAt is kept from the first insert.
func (r *PluginRepo) Upsert(ctx context.Context, entry model.PluginEntry) error {
	settings := entry.Settings
	if settings == nil {
		settings = map[string]string{}
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings for plugin %q: %w", entry.ID, err)
	}

	now := time.Now().UTC()
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := entry.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	const query = `INSERT INTO plugins (id, enabled, settings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			enabled = excluded.enabled,
			settings = excluded.settings,
			updated_at = excluded.updated_at`

	_, err = r.db.Writer.ExecContext(ctx, query,
		entry.ID, boolToInt(entry.Enabled), string(data), formatTime(createdAt), formatTime(updatedAt))
	if err != nil {
		return fmt.Errorf("upsert plugin %q: %w", entry.ID, err)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPluginEntry(row rowScanner) (model.PluginEntry, error) {
	var (
		entry                model.PluginEntry
		enabled              int
		settings             string
		createdAt, updatedAt string
	)
	if err := row.Scan(&entry.ID, &enabled, &settings, &createdAt, &updatedAt); err != nil {
		return model.PluginEntry{}, err
	}

	entry.Enabled = enabled != 0
	if err := json.Unmarshal([]byte(settings), &entry.Settings); err != nil {
		return model.PluginEntry{}, fmt.Errorf("decode settings: %w", err)
	}

	var err error
	if entry.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.PluginEntry{}, fmt.Errorf("parse created_at: %w", err)
	}
	if entry.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.PluginEntry{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return entry, nil
}
