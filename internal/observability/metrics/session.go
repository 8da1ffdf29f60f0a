package metrics

import (
	"time"

	obserrors "github.com/serm-lab/admin-console/internal/observability/errors"
	"github.com/serm-lab/admin-console/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	// ResultStale marks a completed call whose outcome was discarded because a
	// newer session transition had already been applied.
	ResultStale = "stale"
)

// SessionMetric captures one session operation for metric emission.
type SessionMetric struct {
	Operation string // load, login, logout, reset_password, activate, ...
	Result    string
	Duration  time.Duration
	Err       error
}

// EmitSessionTransition emits standardised session operation metrics.
func EmitSessionTransition(sink statsd.Sink, in SessionMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"operation": in.Operation,
		"result":    in.Result,
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("session.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("session.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
