package http

import (
	"time"

	"github.com/tidwall/gjson"
)

// Tag classifies the outcome of a single execution attempt. Exactly one tag
// is assigned per attempt; the executor never lets a failure escape as an
// error value.
type Tag string

const (
	// TagOK is a 2xx response received within the deadline.
	TagOK Tag = "ok"
	// TagHTTPError is a non-2xx response, or a local fault while building
	// or parsing the request.
	TagHTTPError Tag = "http_error"
	// TagNetworkError covers unreachable hosts, DNS failures and resets.
	TagNetworkError Tag = "network_error"
	// TagTimeout means no response arrived within the per-call deadline.
	TagTimeout Tag = "timeout"
	// TagCancelled marks attempts stopped by the caller before starting.
	TagCancelled Tag = "cancelled"
)

// ExecutionResult is the immutable record of one attempt. It is handed to
// the log sink and the caller as-is.
type ExecutionResult struct {
	Tag        Tag
	StatusCode int    // 0 when no response was received
	Body       []byte // raw response body, nil for network-level failures
	Detail     string // diagnostic text for error tags
	Elapsed    time.Duration
	Timestamp  time.Time
}

// BodyString returns the raw response body as text.
func (r *ExecutionResult) BodyString() string {
	return string(r.Body)
}

// JSON parses the body with gjson. The result is the zero value when the
// body is not valid JSON; check IsJSON first when it matters.
func (r *ExecutionResult) JSON() gjson.Result {
	if !r.IsJSON() {
		return gjson.Result{}
	}
	return gjson.ParseBytes(r.Body)
}

// IsJSON reports whether the body parses as JSON.
func (r *ExecutionResult) IsJSON() bool {
	return len(r.Body) > 0 && gjson.ValidBytes(r.Body)
}

// OK reports whether the attempt succeeded.
func (r *ExecutionResult) OK() bool {
	return r.Tag == TagOK
}
