package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
)

// Alert service errors.
var (
	ErrNoActiveClient = errors.New("no validated credentials")
	ErrInvalidEvent   = errors.New("event title is required")
)

const (
	// AlertTypesSetting is the event-alerts plugin setting listing alert types to surface.
	AlertTypesSetting = "alert_types"
	defaultAlertTypes = "error,warning"

	// maxSeenEvents bounds the event ID dedup set.
	maxSeenEvents = 1000
)

// AlertService polls the vendor event stream and raises notifications for
// matching events. Polling is skipped while the event-alerts plugin is
// disabled or no validated client is active.
type AlertService struct {
	provider      *VendorClientProvider
	plugins       *PluginService
	notifications *NotificationService
	interval      time.Duration
	refreshCh     chan chan error
	now           func() time.Time

	mu       sync.Mutex
	lastPoll time.Time
	seen     map[int64]struct{}
	seenFIFO []int64
}

// NewAlertService creates a new AlertService with all required dependencies.
func NewAlertService(
	provider *VendorClientProvider,
	plugins *PluginService,
	notifications *NotificationService,
	interval time.Duration,
) *AlertService {
	return &AlertService{
		provider:      provider,
		plugins:       plugins,
		notifications: notifications,
		interval:      interval,
		refreshCh:     make(chan chan error),
		now:           time.Now,
		seen:          make(map[int64]struct{}),
	}
}

// Start begins the polling loop. It runs an immediate poll, then polls on the
// configured interval. It also listens for manual refresh requests. Start blocks
// until the context is canceled.
func (s *AlertService) Start(ctx context.Context) {
	if _, err := s.Poll(ctx); err != nil {
		slog.Error("initial event poll failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("alert service stopped")
			return
		case <-ticker.C:
			if _, err := s.Poll(ctx); err != nil {
				slog.Error("event poll failed", "error", err)
			}
		case done := <-s.refreshCh:
			_, err := s.Poll(ctx)
			done <- err
		}
	}
}

// Refresh triggers an immediate poll through the running loop, bypassing the
// polling interval. It blocks until the poll completes or the context is canceled.
func (s *AlertService) Refresh(ctx context.Context) error {
	done := make(chan error, 1)

	select {
	case s.refreshCh <- done:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poll fetches events since the previous poll and raises a notification for
// each new event whose alert type is configured. It returns the number of
// notifications raised.
func (s *AlertService) Poll(ctx context.Context) (int, error) {
	enabled, err := s.plugins.IsEnabled(ctx, PluginEventAlerts)
	if err != nil {
		return 0, fmt.Errorf("check event-alerts state: %w", err)
	}
	if !enabled {
		return 0, nil
	}

	client := s.provider.Get()
	if client == nil {
		slog.Debug("event poll skipped, no active client")
		return 0, nil
	}

	settings, err := s.plugins.Settings(ctx, PluginEventAlerts)
	if err != nil {
		return 0, err
	}
	types := parseAlertTypes(settings[AlertTypesSetting])

	s.mu.Lock()
	defer s.mu.Unlock()

	end := s.now()
	start := s.lastPoll
	if start.IsZero() {
		start = end.Add(-s.interval)
	}

	events, err := client.ListEvents(ctx, start, end)
	if err != nil {
		return 0, fmt.Errorf("list events: %w", err)
	}
	s.lastPoll = end

	var raised int
	for _, e := range events {
		if !lo.Contains(types, strings.ToLower(e.AlertType)) {
			continue
		}
		if !s.markSeen(e.ID) {
			continue
		}
		s.notifications.Push(model.Notification{
			EventID:   e.ID,
			Title:     e.Title,
			Text:      e.Text,
			AlertType: e.AlertType,
			Source:    e.Source,
			CreatedAt: e.CreatedAt,
		})
		raised++
	}

	slog.Info("event poll complete",
		"region", client.Region().ID,
		"events", len(events),
		"raised", raised,
	)
	return raised, nil
}

// SendEvent posts an event through the active client.
func (s *AlertService) SendEvent(ctx context.Context, event model.Event) (model.Event, error) {
	client := s.provider.Get()
	if client == nil {
		return model.Event{}, ErrNoActiveClient
	}
	if strings.TrimSpace(event.Title) == "" {
		return model.Event{}, ErrInvalidEvent
	}
	if event.AlertType == "" {
		event.AlertType = "info"
	}

	created, err := client.PostEvent(ctx, event)
	if err != nil {
		return model.Event{}, fmt.Errorf("post event: %w", err)
	}
	return created, nil
}

// markSeen records an event ID and reports whether it was new. Events without
// an ID are always new.
func (s *AlertService) markSeen(id int64) bool {
	if id == 0 {
		return true
	}
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.seenFIFO = append(s.seenFIFO, id)
	if len(s.seenFIFO) > maxSeenEvents {
		delete(s.seen, s.seenFIFO[0])
		s.seenFIFO = s.seenFIFO[1:]
	}
	return true
}

func parseAlertTypes(v string) []string {
	if strings.TrimSpace(v) == "" {
		v = defaultAlertTypes
	}
	return lo.FilterMap(strings.Split(v, ","), func(s string, _ int) (string, bool) {
		s = strings.ToLower(strings.TrimSpace(s))
		return s, s != ""
	})
}
