package sqlite

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
	"github.com/ericfisherdev/setoolkit/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SettingsStore = (*SettingsRepo)(nil)

const (
	settingMaxTraces       = "max_traces"
	settingRetentionHours  = "retention_hours"
	settingValidateTimeout = "validate_timeout"
)

// SettingsRepo is the SQLite implementation of the SettingsStore port interface.
// Each setting is one key/value row.
type SettingsRepo struct {
	db *DB
}

// NewSettingsRepo creates a new SettingsRepo backed by the given DB.
func NewSettingsRepo(db *DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get returns the stored settings. Missing or unparsable keys fall back to
// model.DefaultSettings().
func (r *SettingsRepo) Get(ctx context.Context) (model.Settings, error) {
	const query = `SELECT key, value FROM settings`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return model.DefaultSettings(), fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	settings := model.DefaultSettings()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return model.DefaultSettings(), fmt.Errorf("scan settings row: %w", err)
		}
		switch key {
		case settingMaxTraces:
			if v, err := strconv.Atoi(value); err == nil && v > 0 {
				settings.MaxTraces = v
			}
		case settingRetentionHours:
			if v, err := strconv.Atoi(value); err == nil && v > 0 {
				settings.RetentionHours = v
			}
		case settingValidateTimeout:
			if v, err := time.ParseDuration(value); err == nil && v > 0 {
				settings.ValidateTimeout = v
			}
		}
	}
	if err := rows.Err(); err != nil {
		return model.DefaultSettings(), fmt.Errorf("iterate settings: %w", err)
	}

	return settings, nil
}

// Set persists all settings in a single transaction.
func (r *SettingsRepo) Set(ctx context.Context, settings model.Settings) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const upsert = `INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`

	values := map[string]string{
		settingMaxTraces:       strconv.Itoa(settings.MaxTraces),
		settingRetentionHours:  strconv.Itoa(settings.RetentionHours),
		settingValidateTimeout: settings.ValidateTimeout.String(),
	}
	for key, value := range values {
		if _, err := tx.ExecContext(ctx, upsert, key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settings: %w", err)
	}
	return nil
}
