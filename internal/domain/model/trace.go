package model

import "time"

// TraceRecord is a completed (or failed) HTTP request that carried a
// recognized trace header.
type TraceRecord struct {
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
	Duration        time.Duration     `json:"duration"`
	RequestHeaders  map[string]string `json:"requestHeaders"`
	ResponseHeaders map[string]string `json:"responseHeaders"`
}

// RequestEvent is emitted when a request is about to be sent.
type RequestEvent struct {
	RequestID string            `json:"requestId"`
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	TabID     int               `json:"tabId"`
	Headers   map[string]string `json:"headers"`
	Timestamp time.Time         `json:"timestamp"`
}

// CompletionEvent is emitted when a response has been fully received.
type CompletionEvent struct {
	RequestID  string            `json:"requestId"`
	Status     int               `json:"status"`
	StatusText string            `json:"statusText,omitempty"`
	Headers    map[string]string `json:"headers"`
	Timestamp  time.Time         `json:"timestamp"`
}

// ErrorEvent is emitted when a request fails before a response completes.
type ErrorEvent struct {
	RequestID string    `json:"requestId"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TraceFilter narrows a trace listing. Zero values match everything.
type TraceFilter struct {
	Domain  string
	TraceID string
	Limit   int
}

// TraceStats summarizes the correlator's current state.
type TraceStats struct {
	Records    int       `json:"records"`
	Pending    int       `json:"pending"`
	Domains    int       `json:"domains"`
	LastPruned time.Time `json:"lastPruned"`
}
