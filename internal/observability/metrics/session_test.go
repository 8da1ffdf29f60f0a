package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/serm-lab/admin-console/internal/errors"
	"github.com/serm-lab/admin-console/internal/observability/statsd"
)

func TestEmitSessionTransition_Success(t *testing.T) {
	var rec statsd.Recorder

	EmitSessionTransition(&rec, SessionMetric{Operation: "login", Result: ResultSuccess, Duration: 20 * time.Millisecond})

	points := rec.Points()
	require.Len(t, points, 2)
	assert.Equal(t, "session.transition", points[0].Name)
	assert.Equal(t, map[string]string{"operation": "login", "result": "success"}, points[0].Tags)
	assert.Equal(t, "session.duration", points[1].Name)
	assert.InDelta(t, 20.0, points[1].Value, 0.001)
}

func TestEmitSessionTransition_ErrorClass(t *testing.T) {
	var rec statsd.Recorder

	EmitSessionTransition(&rec, SessionMetric{
		Operation: "login",
		Result:    ResultError,
		Err:       apperrors.InvalidCredential("Invalid password"),
	})

	counts := rec.Counts("session.transition")
	require.Len(t, counts, 1)
	assert.Equal(t, "invalid_credential", counts[0].Tags["error_class"])
	assert.Empty(t, rec.Counts("session.duration"))
}

func TestEmitSessionTransition_ErrorIgnoredOnSuccess(t *testing.T) {
	var rec statsd.Recorder

	EmitSessionTransition(&rec, SessionMetric{Operation: "load", Result: ResultStale, Err: errors.New("x")})

	counts := rec.Counts("session.transition")
	require.Len(t, counts, 1)
	_, ok := counts[0].Tags["error_class"]
	assert.False(t, ok)
}

func TestEmitSessionTransition_NilSink(t *testing.T) {
	assert.NotPanics(t, func() {
		EmitSessionTransition(nil, SessionMetric{Operation: "load", Result: ResultSuccess})
	})
}

func TestCloneTags(t *testing.T) {
	assert.Nil(t, CloneTags(nil))

	src := map[string]string{"a": "1", "": "x"}
	cp := CloneTags(src)
	cp["a"] = "2"
	assert.Equal(t, "1", src["a"])
	_, ok := cp[""]
	assert.False(t, ok)
}
