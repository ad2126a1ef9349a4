// Package cdp is a driving adapter that attaches to a running Chrome over the
// DevTools Protocol and feeds network request lifecycle events into the trace
// correlator.
package cdp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
)

const (
	// eventBuffer bounds the queue between the CDP listeners and the correlator.
	eventBuffer = 512
	// targetScanInterval is how often the browser is checked for opened or closed tabs.
	targetScanInterval = 2 * time.Second

	targetTypePage = "page"
)

// Correlator receives request lifecycle events.
type Correlator interface {
	OnRequest(ctx context.Context, evt model.RequestEvent) bool
	OnCompleted(ctx context.Context, evt model.CompletionEvent) (bool, error)
	OnError(ctx context.Context, evt model.ErrorEvent) (bool, error)
}

// attachFunc starts listening on one page target and returns a function that
// stops listening.
type attachFunc func(browserCtx context.Context, id target.ID, tabID int) (context.CancelFunc, error)

// response holds the status of a received response until its body finishes loading.
type response struct {
	status     int
	statusText string
	headers    map[string]string
}

type tab struct {
	id     int
	cancel context.CancelFunc
}

type tabEvent struct {
	tabID int
	ev    any
}

// Monitor translates Network domain events from every open page into
// correlator calls.
type Monitor struct {
	url        string
	correlator Correlator
	now        func() time.Time
	attach     attachFunc

	mu        sync.Mutex
	tabs      map[target.ID]tab
	nextTab   int
	tracked   map[network.RequestID]int
	responses map[network.RequestID]response

	events  chan tabEvent
	dropped int
}

// NewMonitor creates a Monitor for the DevTools websocket URL.
func NewMonitor(url string, correlator Correlator) *Monitor {
	m := &Monitor{
		url:        url,
		correlator: correlator,
		now:        time.Now,
		tabs:       make(map[target.ID]tab),
		tracked:    make(map[network.RequestID]int),
		responses:  make(map[network.RequestID]response),
		events:     make(chan tabEvent, eventBuffer),
	}
	m.attach = m.attachTarget
	return m
}

// Run connects to the browser, attaches to every open page and keeps the set
// of attached pages in sync until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, m.url)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	if err := chromedp.Run(browserCtx); err != nil {
		return fmt.Errorf("connect to browser: %w", err)
	}
	var own target.ID
	if c := chromedp.FromContext(browserCtx); c != nil && c.Target != nil {
		own = c.Target.TargetID
	}
	defer m.reset()

	if err := m.refreshTargets(browserCtx, own); err != nil {
		return err
	}
	slog.Info("cdp monitor attached", "url", m.url, "tabs", m.tabCount())

	ticker := time.NewTicker(targetScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("cdp monitor stopped", "dropped", m.droppedCount())
			return nil
		case <-browserCtx.Done():
			return fmt.Errorf("cdp connection closed: %w", context.Cause(browserCtx))
		case <-ticker.C:
			if err := m.refreshTargets(browserCtx, own); err != nil {
				slog.Warn("cdp target scan failed", "error", err)
			}
		case te := <-m.events:
			m.handle(ctx, te.tabID, te.ev)
		}
	}
}

// refreshTargets lists the browser's pages and syncs the attached set.
// own is the blank page chromedp opened for the browser connection.
func (m *Monitor) refreshTargets(browserCtx context.Context, own target.ID) error {
	var targets []*target.Info
	if err := chromedp.Run(browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			targets, err = target.GetTargets().Do(ctx)
			return err
		}),
	); err != nil {
		return fmt.Errorf("get targets: %w", err)
	}

	pages := make([]*target.Info, 0, len(targets))
	for _, t := range targets {
		if t.Type == targetTypePage && t.TargetID != own {
			pages = append(pages, t)
		}
	}
	m.syncTargets(browserCtx, pages)
	return nil
}

// syncTargets attaches to pages not seen before and detaches from pages that
// have closed. Requests still in flight on a closed page are forgotten.
func (m *Monitor) syncTargets(browserCtx context.Context, pages []*target.Info) {
	open := make(map[target.ID]bool, len(pages))
	for _, p := range pages {
		open[p.TargetID] = true

		m.mu.Lock()
		_, known := m.tabs[p.TargetID]
		m.mu.Unlock()
		if known {
			continue
		}

		m.mu.Lock()
		m.nextTab++
		tabID := m.nextTab
		m.mu.Unlock()

		cancel, err := m.attach(browserCtx, p.TargetID, tabID)
		if err != nil {
			slog.Warn("cdp attach failed", "target", p.TargetID, "url", p.URL, "error", err)
			continue
		}

		m.mu.Lock()
		m.tabs[p.TargetID] = tab{id: tabID, cancel: cancel}
		m.mu.Unlock()
		slog.Debug("cdp tab attached", "tab_id", tabID, "url", p.URL)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.tabs {
		if open[id] {
			continue
		}
		t.cancel()
		delete(m.tabs, id)
		for req, owner := range m.tracked {
			if owner == t.id {
				delete(m.tracked, req)
				delete(m.responses, req)
			}
		}
		slog.Debug("cdp tab detached", "tab_id", t.id)
	}
}

func (m *Monitor) attachTarget(browserCtx context.Context, id target.ID, tabID int) (context.CancelFunc, error) {
	tabCtx, cancel := chromedp.NewContext(browserCtx, chromedp.WithTargetID(id))
	chromedp.ListenTarget(tabCtx, func(ev any) {
		m.enqueue(tabID, ev)
	})
	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		cancel()
		return nil, fmt.Errorf("enable network domain: %w", err)
	}
	return cancel, nil
}

// reset forgets all tabs and in-flight requests. Tab contexts end with the
// browser context.
func (m *Monitor) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tabs = make(map[target.ID]tab)
	m.tracked = make(map[network.RequestID]int)
	m.responses = make(map[network.RequestID]response)
}

func (m *Monitor) tabCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tabs)
}

// enqueue is the ListenTarget callback. It must not block the CDP reader, so
// events are dropped when the queue is full.
func (m *Monitor) enqueue(tabID int, ev any) {
	switch ev.(type) {
	case *network.EventRequestWillBeSent, *network.EventResponseReceived,
		*network.EventLoadingFinished, *network.EventLoadingFailed:
	default:
		return
	}

	select {
	case m.events <- tabEvent{tabID: tabID, ev: ev}:
	default:
		m.mu.Lock()
		m.dropped++
		m.mu.Unlock()
	}
}

func (m *Monitor) droppedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// handle maps a single Network domain event onto the correlator. Responses and
// completions are only followed for requests the correlator accepted.
func (m *Monitor) handle(ctx context.Context, tabID int, ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		if e.Request == nil {
			return
		}
		accepted := m.correlator.OnRequest(ctx, model.RequestEvent{
			RequestID: string(e.RequestID),
			URL:       e.Request.URL,
			Method:    e.Request.Method,
			TabID:     tabID,
			Headers:   headerMap(e.Request.Headers),
			Timestamp: m.now(),
		})
		if accepted {
			m.mu.Lock()
			m.tracked[e.RequestID] = tabID
			m.mu.Unlock()
		}

	case *network.EventResponseReceived:
		if e.Response == nil {
			return
		}
		m.mu.Lock()
		if _, ok := m.tracked[e.RequestID]; ok {
			m.responses[e.RequestID] = response{
				status:     int(e.Response.Status),
				statusText: e.Response.StatusText,
				headers:    headerMap(e.Response.Headers),
			}
		}
		m.mu.Unlock()

	case *network.EventLoadingFinished:
		resp, ok := m.finish(e.RequestID)
		if !ok {
			return
		}
		if _, err := m.correlator.OnCompleted(ctx, model.CompletionEvent{
			RequestID:  string(e.RequestID),
			Status:     resp.status,
			StatusText: resp.statusText,
			Headers:    resp.headers,
			Timestamp:  m.now(),
		}); err != nil {
			slog.Error("record completed request", "request_id", e.RequestID, "error", err)
		}

	case *network.EventLoadingFailed:
		if _, ok := m.finish(e.RequestID); !ok {
			return
		}
		msg := e.ErrorText
		if e.Canceled {
			msg = "canceled"
		}
		if _, err := m.correlator.OnError(ctx, model.ErrorEvent{
			RequestID: string(e.RequestID),
			Error:     msg,
			Timestamp: m.now(),
		}); err != nil {
			slog.Error("record failed request", "request_id", e.RequestID, "error", err)
		}
	}
}

// finish stops tracking id and returns its buffered response, if any.
func (m *Monitor) finish(id network.RequestID) (response, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tracked[id]; !ok {
		return response{}, false
	}
	resp := m.responses[id]
	delete(m.tracked, id)
	delete(m.responses, id)
	return resp, true
}

// headerMap flattens CDP headers. Values are strings on the wire; anything else
// is formatted with %v.
func headerMap(h network.Headers) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}
