package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hbruhn/devprobe/packages/core/config"
	"github.com/hbruhn/devprobe/packages/http"
	"github.com/hbruhn/devprobe/packages/payload"
	"github.com/hbruhn/devprobe/packages/preset"
)

type stubExecutor struct {
	results []*http.ExecutionResult
	calls   []*http.Descriptor
}

func (s *stubExecutor) Execute(ctx context.Context, d *http.Descriptor) *http.ExecutionResult {
	s.calls = append(s.calls, d)
	i := len(s.calls) - 1
	if i < len(s.results) {
		return s.results[i]
	}
	return &http.ExecutionResult{Tag: http.TagOK, StatusCode: 200}
}

type stubLoader struct {
	err error
}

func (s stubLoader) LoadPayload(p preset.Preset) (json.RawMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(`{"CallId":"Out-18-18-SIP"}`), nil
}

type stubRecorder struct {
	names []string
	err   error
}

func (r *stubRecorder) Record(presetName string, d *http.Descriptor, res *http.ExecutionResult) error {
	r.names = append(r.names, presetName)
	return r.err
}

func testPresets(n int) []preset.Preset {
	out := make([]preset.Preset, n)
	for i := range out {
		out[i] = preset.Preset{
			Name:     fmt.Sprintf("preset_%d", i),
			Endpoint: "/api/call",
			Method:   "GetCallStatus",
			Format:   payload.PathStyle,
			Mode:     preset.Happy,
		}
	}
	return out
}

func testSettings() *config.Settings {
	s := config.Default()
	s.DeviceIP = "10.27.35.4"
	s.Username = "admin"
	return s
}

func TestRunner_CompletesInOrder(t *testing.T) {
	exec := &stubExecutor{}
	runner := NewRunner(exec, stubLoader{}, testSettings())

	summary := runner.Run(context.Background(), testPresets(3), NewToken())

	assert.Equal(t, Completed, summary.State)
	require.Len(t, summary.Steps, 3)
	for i, step := range summary.Steps {
		assert.Equal(t, i, step.Index)
		assert.Equal(t, fmt.Sprintf("preset_%d", i), step.Preset.Name)
		assert.NotNil(t, step.Descriptor)
		assert.NotNil(t, step.Result)
	}
	assert.Equal(t, 3, summary.OK)
	assert.Equal(t, 0, summary.Errors)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, int64(3), summary.Latency.Count)
}

func TestRunner_StepFailureDoesNotAbort(t *testing.T) {
	exec := &stubExecutor{results: []*http.ExecutionResult{
		{Tag: http.TagOK, StatusCode: 200},
		{Tag: http.TagNetworkError, Detail: "connection refused"},
		{Tag: http.TagOK, StatusCode: 200},
	}}
	runner := NewRunner(exec, stubLoader{}, testSettings())

	summary := runner.Run(context.Background(), testPresets(3), NewToken())

	assert.Equal(t, Completed, summary.State)
	assert.Len(t, summary.Steps, 3)
	assert.Equal(t, 2, summary.OK)
	assert.Equal(t, 1, summary.Errors)
}

func TestRunner_CancelStopsBeforeNextStep(t *testing.T) {
	exec := &stubExecutor{}
	token := NewToken()
	runner := NewRunner(exec, stubLoader{}, testSettings(),
		WithObserver(func(s *Step) {
			if s.Index == 1 {
				token.Cancel()
			}
		}))

	summary := runner.Run(context.Background(), testPresets(5), token)

	assert.Equal(t, Cancelled, summary.State)
	assert.Len(t, summary.Steps, 2)
	assert.Len(t, exec.calls, 2)
}

func TestRunner_CancelBeforeSecondStep(t *testing.T) {
	exec := &stubExecutor{}
	token := NewToken()
	runner := NewRunner(exec, stubLoader{}, testSettings(),
		WithObserver(func(s *Step) { token.Cancel() }))

	summary := runner.Run(context.Background(), testPresets(5), token)

	assert.Equal(t, Cancelled, summary.State)
	assert.Len(t, summary.Steps, 1)
	assert.Len(t, exec.calls, 1)
}

func TestRunner_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(&stubExecutor{}, stubLoader{}, testSettings())
	summary := runner.Run(ctx, testPresets(3), NewToken())

	assert.Equal(t, Cancelled, summary.State)
	assert.Empty(t, summary.Steps)
}

func TestRunner_UnresolvablePresetFailsRun(t *testing.T) {
	loadErr := errors.New("payload file missing")
	runner := NewRunner(&stubExecutor{}, stubLoader{err: loadErr}, testSettings())

	summary := runner.Run(context.Background(), testPresets(3), NewToken())

	assert.Equal(t, Failed, summary.State)
	assert.ErrorIs(t, summary.FailErr, loadErr)
	assert.Empty(t, summary.Steps)
}

func TestRunner_PartialResultsKeptOnFailure(t *testing.T) {
	presets := testPresets(3)
	presets[1].Endpoint = "no-slash" // resolves fine until step 1

	runner := NewRunner(&stubExecutor{}, stubLoader{}, testSettings())
	summary := runner.Run(context.Background(), presets, NewToken())

	assert.Equal(t, Failed, summary.State)
	assert.Error(t, summary.FailErr)
	assert.Len(t, summary.Steps, 1)
	assert.Equal(t, 1, summary.OK)
}

func TestRunner_RecordersSeeEveryStep(t *testing.T) {
	rec1 := &stubRecorder{}
	rec2 := &stubRecorder{}
	runner := NewRunner(&stubExecutor{}, stubLoader{}, testSettings(),
		WithRecorder(rec1), WithRecorder(rec2))

	summary := runner.Run(context.Background(), testPresets(2), NewToken())

	assert.Equal(t, Completed, summary.State)
	assert.Equal(t, []string{"preset_0", "preset_1"}, rec1.names)
	assert.Equal(t, []string{"preset_0", "preset_1"}, rec2.names)
}

func TestRunner_RecorderErrorDoesNotStopRun(t *testing.T) {
	rec := &stubRecorder{err: errors.New("disk full")}
	runner := NewRunner(&stubExecutor{}, stubLoader{}, testSettings(), WithRecorder(rec))

	summary := runner.Run(context.Background(), testPresets(2), NewToken())

	assert.Equal(t, Completed, summary.State)
	assert.Len(t, summary.Steps, 2)
	assert.Contains(t, summary.Steps[0].Result.Detail, "disk full")
}

func TestRunner_ObserverOrdering(t *testing.T) {
	var seen []int
	runner := NewRunner(&stubExecutor{}, stubLoader{}, testSettings(),
		WithObserver(func(s *Step) { seen = append(seen, s.Index) }))

	runner.Run(context.Background(), testPresets(4), NewToken())

	assert.Equal(t, []int{0, 1, 2, 3}, seen)
}

func TestRunner_WithRunID(t *testing.T) {
	runner := NewRunner(&stubExecutor{}, stubLoader{}, testSettings(), WithRunID("run-42"))

	summary := runner.Run(context.Background(), testPresets(1), NewToken())

	assert.Equal(t, "run-42", summary.RunID)
}

func TestToken(t *testing.T) {
	token := NewToken()
	assert.False(t, token.Cancelled())

	token.Cancel()
	assert.True(t, token.Cancelled())

	token.Cancel() // idempotent
	assert.True(t, token.Cancelled())
}
