package application

import (
	"time"

	"github.com/ericfisherdev/setoolkit/internal/domain/model"
)

// TraceView is a trace record as sent to message clients. Durations are
// reported in milliseconds, matching the REST API.
type TraceView struct {
	ID              string            `json:"id"`
	RequestID       string            `json:"requestId"`
	TraceID         string            `json:"traceId"`
	SpanID          string            `json:"spanId,omitempty"`
	ParentID        string            `json:"parentId,omitempty"`
	Domain          string            `json:"domain"`
	URL             string            `json:"url"`
	Method          string            `json:"method"`
	Status          int               `json:"status"`
	StatusText      string            `json:"statusText,omitempty"`
	Error           string            `json:"error,omitempty"`
	TabID           int               `json:"tabId"`
	StartTime       time.Time         `json:"startTime"`
	EndTime         time.Time         `json:"endTime"`
	DurationMS      float64           `json:"durationMs"`
	RequestHeaders  map[string]string `json:"requestHeaders"`
	ResponseHeaders map[string]string `json:"responseHeaders"`
}

func toTraceView(r model.TraceRecord) TraceView {
	return TraceView{
		ID:              r.ID,
		RequestID:       r.RequestID,
		TraceID:         r.TraceID,
		SpanID:          r.SpanID,
		ParentID:        r.ParentID,
		Domain:          r.Domain,
		URL:             r.URL,
		Method:          r.Method,
		Status:          r.Status,
		StatusText:      r.StatusText,
		Error:           r.Error,
		TabID:           r.TabID,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		DurationMS:      float64(r.Duration) / float64(time.Millisecond),
		RequestHeaders:  r.RequestHeaders,
		ResponseHeaders: r.ResponseHeaders,
	}
}
