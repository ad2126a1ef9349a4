package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
	"github.com/ericfisherdev/setoolkit/internal/domain/port/driven"
)

// PruneInterval is the minimum time between unforced prunes.
const PruneInterval = time.Hour

// pruneTolerance lets an hourly tick that fires marginally early still count
// as a full interval.
const pruneTolerance = time.Minute

// TraceGate reports whether request monitoring is currently active.
type TraceGate func(ctx context.Context) bool

// pendingRequest is a tracked request awaiting completion.
type pendingRequest struct {
	event model.RequestEvent
	trace TraceContext
}

// TraceService correlates request lifecycle events carrying trace headers into
// finalized trace records. Pending requests and the record list live in memory;
// the record list is written back in full after every append, prune or clear.
// All methods are safe for concurrent use.
type TraceService struct {
	store    driven.TraceStore
	settings driven.SettingsStore
	gate     TraceGate
	now      func() time.Time
	newID    func() string

	mu         sync.Mutex
	pending    map[string]pendingRequest
	records    []model.TraceRecord
	lastPruned time.Time
}

// TraceOption configures a TraceService.
type TraceOption func(*TraceService)

// WithTraceGate installs a gate consulted for every new request. Requests seen
// while the gate is closed are dropped.
func WithTraceGate(gate TraceGate) TraceOption {
	return func(s *TraceService) {
		s.gate = gate
	}
}

// WithTraceClock overrides the time source. Intended for tests.
func WithTraceClock(now func() time.Time) TraceOption {
	return func(s *TraceService) {
		s.now = now
	}
}

// NewTraceService creates a TraceService with an empty in-memory state.
// Call Load to restore persisted records.
func NewTraceService(store driven.TraceStore, settings driven.SettingsStore, opts ...TraceOption) *TraceService {
	s := &TraceService{
		store:    store,
		settings: settings,
		now:      time.Now,
		newID:    uuid.NewString,
		pending:  make(map[string]pendingRequest),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load restores persisted records, trimming them to the configured capacity.
func (s *TraceService) Load(ctx context.Context) error {
	records, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load traces: %w", err)
	}

	settings := s.currentSettings(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = evictOldest(records, settings.MaxTraces)

	slog.Info("traces restored", "count", len(s.records))
	return nil
}

// OnRequest starts tracking a request if it carries a recognized trace header.
// It reports whether the request is now tracked.
func (s *TraceService) OnRequest(ctx context.Context, evt model.RequestEvent) bool {
	if evt.RequestID == "" {
		return false
	}
	if s.gate != nil && !s.gate(ctx) {
		return false
	}

	tc, ok := ExtractTraceContext(evt.Headers)
	if !ok {
		return false
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[evt.RequestID] = pendingRequest{event: evt, trace: tc}
	return true
}

// OnCompleted finalizes a tracked request with its response. Untracked request
// IDs are ignored and return (false, nil).
func (s *TraceService) OnCompleted(ctx context.Context, evt model.CompletionEvent) (bool, error) {
	return s.finalize(ctx, evt.RequestID, evt.Timestamp, func(rec *model.TraceRecord) {
		rec.Status = evt.Status
		rec.StatusText = evt.StatusText
		rec.ResponseHeaders = copyHeaders(evt.Headers)
	})
}

// OnError finalizes a tracked request that failed before completing.
// Untracked request IDs are ignored and return (false, nil).
func (s *TraceService) OnError(ctx context.Context, evt model.ErrorEvent) (bool, error) {
	return s.finalize(ctx, evt.RequestID, evt.Timestamp, func(rec *model.TraceRecord) {
		rec.Error = evt.Error
		if rec.Error == "" {
			rec.Error = "request failed"
		}
	})
}

func (s *TraceService) finalize(ctx context.Context, requestID string, end time.Time, apply func(*model.TraceRecord)) (bool, error) {
	settings := s.currentSettings(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[requestID]
	if !ok {
		return false, nil
	}
	delete(s.pending, requestID)

	if end.IsZero() {
		end = s.now()
	}

	rec := model.TraceRecord{
		ID:             s.newID(),
		RequestID:      requestID,
		TraceID:        p.trace.TraceID,
		SpanID:         p.trace.SpanID,
		ParentID:       p.trace.ParentID,
		Domain:         domainOf(p.event.URL),
		URL:            p.event.URL,
		Method:         p.event.Method,
		TabID:          p.event.TabID,
		StartTime:      p.event.Timestamp,
		EndTime:        end,
		Duration:       max(end.Sub(p.event.Timestamp), 0),
		RequestHeaders: copyHeaders(p.event.Headers),
	}
	apply(&rec)

	s.records = evictOldest(append(s.records, rec), settings.MaxTraces)

	if err := s.store.Save(ctx, s.records); err != nil {
		return true, fmt.Errorf("save traces: %w", err)
	}
	return true, nil
}

// Prune drops records and stale pending requests older than the retention
// window. Unless force is set it runs at most once per PruneInterval; a skipped
// prune returns (0, nil).
func (s *TraceService) Prune(ctx context.Context, force bool) (int, error) {
	settings := s.currentSettings(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !force && !s.lastPruned.IsZero() && now.Sub(s.lastPruned) < PruneInterval-pruneTolerance {
		return 0, nil
	}
	s.lastPruned = now

	cutoff := now.Add(-settings.Retention())
	kept := lo.Filter(s.records, func(r model.TraceRecord, _ int) bool {
		return !r.StartTime.Before(cutoff)
	})
	removed := len(s.records) - len(kept)

	for id, p := range s.pending {
		if p.event.Timestamp.Before(cutoff) {
			delete(s.pending, id)
		}
	}

	if removed == 0 {
		return 0, nil
	}

	s.records = kept
	if err := s.store.Save(ctx, s.records); err != nil {
		return removed, fmt.Errorf("save traces: %w", err)
	}

	slog.Info("traces pruned", "removed", removed, "remaining", len(kept))
	return removed, nil
}

// List returns records matching filter, newest first.
func (s *TraceService) List(filter model.TraceFilter) []model.TraceRecord {
	s.mu.Lock()
	matched := lo.Filter(s.records, func(r model.TraceRecord, _ int) bool {
		if filter.Domain != "" && r.Domain != filter.Domain {
			return false
		}
		if filter.TraceID != "" && r.TraceID != filter.TraceID {
			return false
		}
		return true
	})
	s.mu.Unlock()

	matched = lo.Reverse(matched)
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched
}

// Get returns the record with the given ID.
func (s *TraceService) Get(id string) (model.TraceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := lo.Find(s.records, func(r model.TraceRecord) bool { return r.ID == id })
	if !ok {
		return model.TraceRecord{}, driven.ErrTraceNotFound
	}
	return rec, nil
}

// Clear drops every record and pending request.
func (s *TraceService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.pending = make(map[string]pendingRequest)

	if err := s.store.Save(ctx, nil); err != nil {
		return fmt.Errorf("clear traces: %w", err)
	}
	return nil
}

// Stats summarizes the correlator state.
func (s *TraceService) Stats() model.TraceStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	domains := lo.Uniq(lo.Map(s.records, func(r model.TraceRecord, _ int) string { return r.Domain }))
	return model.TraceStats{
		Records:    len(s.records),
		Pending:    len(s.pending),
		Domains:    len(domains),
		LastPruned: s.lastPruned,
	}
}

// Domains returns the distinct domains seen in stored records, sorted.
func (s *TraceService) Domains() []string {
	s.mu.Lock()
	domains := lo.Uniq(lo.Map(s.records, func(r model.TraceRecord, _ int) string { return r.Domain }))
	s.mu.Unlock()

	sort.Strings(domains)
	return domains
}

func (s *TraceService) currentSettings(ctx context.Context) model.Settings {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		slog.Warn("settings unavailable, using defaults", "error", err)
		return model.DefaultSettings()
	}
	return settings
}

// evictOldest keeps the last limit records. A non-positive limit keeps all.
func evictOldest(records []model.TraceRecord, limit int) []model.TraceRecord {
	if limit <= 0 || len(records) <= limit {
		return records
	}
	return append([]model.TraceRecord(nil), records[len(records)-limit:]...)
}

func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func copyHeaders(h map[string]string) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
