package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
	"github.com/ericfisherdev/setoolkit/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TraceStore = (*TraceRepo)(nil)

// TraceRepo is the SQLite implementation of the TraceStore port interface.
// Insertion order is preserved through the autoincrement seq column.
type TraceRepo struct {
	db *DB
}

// NewTraceRepo creates a new TraceRepo backed by the given DB.
func NewTraceRepo(db *DB) *TraceRepo {
	return &TraceRepo{db: db}
}

// Load returns all persisted records ordered oldest first.
func (r *TraceRepo) Load(ctx context.Context) ([]model.TraceRecord, error) {
	const query = `SELECT id, request_id, trace_id, span_id, parent_id, domain, url, method,
		status, status_text, error, tab_id, start_time, end_time, duration_ns,
		request_headers, response_headers
		FROM traces ORDER BY seq`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load traces: %w", err)
	}
	defer rows.Close()

	var records []model.TraceRecord
	for rows.Next() {
		var (
			rec                  model.TraceRecord
			startTime, endTime   string
			durationNS           int64
			reqHeaders, respHdrs string
		)
		if err := rows.Scan(&rec.ID, &rec.RequestID, &rec.TraceID, &rec.SpanID, &rec.ParentID,
			&rec.Domain, &rec.URL, &rec.Method, &rec.Status, &rec.StatusText, &rec.Error,
			&rec.TabID, &startTime, &endTime, &durationNS, &reqHeaders, &respHdrs); err != nil {
			return nil, fmt.Errorf("scan trace: %w", err)
		}

		if rec.StartTime, err = parseTime(startTime); err != nil {
			return nil, fmt.Errorf("parse start_time for trace %q: %w", rec.ID, err)
		}
		if rec.EndTime, err = parseTime(endTime); err != nil {
			return nil, fmt.Errorf("parse end_time for trace %q: %w", rec.ID, err)
		}
		rec.Duration = time.Duration(durationNS)

		if err := json.Unmarshal([]byte(reqHeaders), &rec.RequestHeaders); err != nil {
			return nil, fmt.Errorf("decode request headers for trace %q: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(respHdrs), &rec.ResponseHeaders); err != nil {
			return nil, fmt.Errorf("decode response headers for trace %q: %w", rec.ID, err)
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate traces: %w", err)
	}

	return records, nil
}

// Save replaces all persisted records with the given list in a single transaction.
func (r *TraceRepo) Save(ctx context.Context, records []model.TraceRecord) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM traces`); err != nil {
		return fmt.Errorf("delete traces: %w", err)
	}

	const insert = `INSERT INTO traces (id, request_id, trace_id, span_id, parent_id, domain, url, method,
		status, status_text, error, tab_id, start_time, end_time, duration_ns,
		request_headers, response_headers)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare trace insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		reqHeaders, err := encodeHeaders(rec.RequestHeaders)
		if err != nil {
			return fmt.Errorf("encode request headers for trace %q: %w", rec.ID, err)
		}
		respHeaders, err := encodeHeaders(rec.ResponseHeaders)
		if err != nil {
			return fmt.Errorf("encode response headers for trace %q: %w", rec.ID, err)
		}

		if _, err := stmt.ExecContext(ctx,
			rec.ID, rec.RequestID, rec.TraceID, rec.SpanID, rec.ParentID, rec.Domain, rec.URL, rec.Method,
			rec.Status, rec.StatusText, rec.Error, rec.TabID,
			formatTime(rec.StartTime), formatTime(rec.EndTime), int64(rec.Duration),
			reqHeaders, respHeaders,
		); err != nil {
			return fmt.Errorf("insert trace %q: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit traces: %w", err)
	}
	return nil
}

func encodeHeaders(h map[string]string) (string, error) {
	if h == nil {
		h = map[string]string{}
	}
	data, err := json.Marshal(h)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
