package application

import (
	"strconv"
	"strings"
)

// Recognized trace propagation headers, lower-cased.
const (
	headerDatadogTraceID  = "x-datadog-trace-id"
	headerDatadogParentID = "x-datadog-parent-id"
	headerTraceparent     = "traceparent"
	headerB3TraceID       = "x-b3-traceid"
	headerB3SpanID        = "x-b3-spanid"
	headerB3ParentSpanID  = "x-b3-parentspanid"
	headerB3Single        = "b3"
)

// TraceContext is the trace identity carried by a request.
type TraceContext struct {
	TraceID  string
	SpanID   string
	ParentID string
}

// ExtractTraceContext finds the first recognized trace header set in headers.
// Header names are matched case-insensitively. Precedence: Datadog, W3C
// traceparent, B3 multi-header, B3 single header.
func ExtractTraceContext(headers map[string]string) (TraceContext, bool) {
	if len(headers) == 0 {
		return TraceContext{}, false
	}
	h := lowerKeys(headers)

	if tc, ok := parseDatadog(h); ok {
		return tc, true
	}
	if tc, ok := parseTraceparent(h[headerTraceparent]); ok {
		return tc, true
	}
	if tc, ok := parseB3Multi(h); ok {
		return tc, true
	}
	if tc, ok := parseB3Single(h[headerB3Single]); ok {
		return tc, true
	}
	return TraceContext{}, false
}

// HasTraceHeader reports whether headers carry any recognized trace context.
func HasTraceHeader(headers map[string]string) bool {
	_, ok := ExtractTraceContext(headers)
	return ok
}

func lowerKeys(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[strings.ToLower(k)] = strings.TrimSpace(v)
	}
	return out
}

// parseDatadog reads the decimal 64-bit IDs used by Datadog propagation.
func parseDatadog(h map[string]string) (TraceContext, bool) {
	traceID := h[headerDatadogTraceID]
	if !isNonZeroUint64(traceID) {
		return TraceContext{}, false
	}
	tc := TraceContext{TraceID: traceID}
	if parent := h[headerDatadogParentID]; isNonZeroUint64(parent) {
		tc.ParentID = parent
	}
	return tc, true
}

// parseTraceparent reads a W3C traceparent: 00-<32hex>-<16hex>-<2hex>.
func parseTraceparent(v string) (TraceContext, bool) {
	parts := strings.Split(strings.ToLower(v), "-")
	if len(parts) < 4 {
		return TraceContext{}, false
	}
	version, traceID, parentID, flags := parts[0], parts[1], parts[2], parts[3]
	if !isHex(version, 2) || version == "ff" {
		return TraceContext{}, false
	}
	// Version 00 has exactly four fields; later versions may append more.
	if version == "00" && len(parts) != 4 {
		return TraceContext{}, false
	}
	if !isHex(traceID, 32) || isAllZero(traceID) {
		return TraceContext{}, false
	}
	if !isHex(parentID, 16) || isAllZero(parentID) {
		return TraceContext{}, false
	}
	if !isHex(flags, 2) {
		return TraceContext{}, false
	}
	return TraceContext{TraceID: traceID, ParentID: parentID}, true
}

func parseB3Multi(h map[string]string) (TraceContext, bool) {
	traceID := strings.ToLower(h[headerB3TraceID])
	if !isB3TraceID(traceID) {
		return TraceContext{}, false
	}
	tc := TraceContext{TraceID: traceID}
	if span := strings.ToLower(h[headerB3SpanID]); isHex(span, 16) {
		tc.SpanID = span
	}
	if parent := strings.ToLower(h[headerB3ParentSpanID]); isHex(parent, 16) {
		tc.ParentID = parent
	}
	return tc, true
}

// parseB3Single reads {traceid}-{spanid}[-{sampled}[-{parentspanid}]]. A bare
// sampling decision ("0", "1", "d") carries no trace identity.
func parseB3Single(v string) (TraceContext, bool) {
	parts := strings.Split(strings.ToLower(v), "-")
	if len(parts) < 2 || len(parts) > 4 {
		return TraceContext{}, false
	}
	if !isB3TraceID(parts[0]) || !isHex(parts[1], 16) {
		return TraceContext{}, false
	}
	tc := TraceContext{TraceID: parts[0], SpanID: parts[1]}
	if len(parts) == 4 && isHex(parts[3], 16) {
		tc.ParentID = parts[3]
	}
	return tc, true
}

func isB3TraceID(v string) bool {
	return (isHex(v, 16) || isHex(v, 32)) && !isAllZero(v)
}

func isHex(v string, n int) bool {
	if len(v) != n {
		return false
	}
	for _, c := range v {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func isAllZero(v string) bool {
	return strings.Trim(v, "0") == ""
}

func isNonZeroUint64(v string) bool {
	n, err := strconv.ParseUint(v, 10, 64)
	return err == nil && n != 0
}
