package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
	"github.com/ericfisherdev/setoolkit/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.LinkStore = (*LinkRepo)(nil)

// LinkRepo is the SQLite implementation of the LinkStore port interface.
type LinkRepo struct {
	db *DB
}

// NewLinkRepo creates a new LinkRepo backed by the given DB.
func NewLinkRepo(db *DB) *LinkRepo {
	return &LinkRepo{db: db}
}

// Add inserts a link and returns it with its assigned ID and creation time.
func (r *LinkRepo) Add(ctx context.Context, link model.Link) (model.Link, error) {
	const query = `INSERT INTO links (title, url, description, position, created_at) VALUES (?, ?, ?, ?, ?)`

	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		link.Title, link.URL, link.Description, link.Position, formatTime(link.CreatedAt))
	if err != nil {
		return model.Link{}, fmt.Errorf("add link %q: %w", link.URL, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.Link{}, fmt.Errorf("read link id: %w", err)
	}
	link.ID = id

	return link, nil
}

// Remove deletes a link by ID. Returns driven.ErrLinkNotFound if it does not exist.
func (r *LinkRepo) Remove(ctx context.Context, id int64) error {
	const query = `DELETE FROM links WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("remove link %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return driven.ErrLinkNotFound
	}

	return nil
}

// ListAll returns all links ordered by position, then ID.
func (r *LinkRepo) ListAll(ctx context.Context) ([]model.Link, error) {
	const query = `SELECT id, title, url, description, position, created_at FROM links ORDER BY position, id`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var links []model.Link
	for rows.Next() {
		var link model.Link
		var createdAt string
		if err := rows.Scan(&link.ID, &link.Title, &link.URL, &link.Description, &link.Position, &createdAt); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}

		link.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}

		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}

	return links, nil
}
