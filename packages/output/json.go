package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/hbruhn/devprobe/packages/batch"
)

// JSONOutput is the complete machine-readable run report.
type JSONOutput struct {
	RunID    string      `json:"runId"`
	State    string      `json:"state"`
	Summary  JSONSummary `json:"summary"`
	Steps    []JSONStep  `json:"steps"`
	Duration float64     `json:"duration"`
	Time     string      `json:"time"`
	Error    string      `json:"error,omitempty"`
}

// JSONSummary aggregates step outcomes.
type JSONSummary struct {
	Total  int `json:"total"`
	OK     int `json:"ok"`
	Errors int `json:"errors"`
}

// JSONStep is one attempt in the report.
type JSONStep struct {
	Preset     string  `json:"preset"`
	Method     string  `json:"method"`
	Format     string  `json:"format"`
	URL        string  `json:"url"`
	Tag        string  `json:"tag"`
	StatusCode int     `json:"statusCode,omitempty"`
	Detail     string  `json:"detail,omitempty"`
	Body       string  `json:"body,omitempty"`
	Duration   float64 `json:"duration"`
}

// JSONFormatter accumulates steps and writes a single document on Flush.
type JSONFormatter struct {
	writer io.Writer
	steps  []JSONStep
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		steps:  make([]JSONStep, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatStep(step *batch.Step) {
	res := step.Result
	f.steps = append(f.steps, JSONStep{
		Preset:     step.Preset.Name,
		Method:     step.Preset.Method,
		Format:     step.Preset.Format.String(),
		URL:        step.Descriptor.URL,
		Tag:        string(res.Tag),
		StatusCode: res.StatusCode,
		Detail:     res.Detail,
		Body:       res.BodyString(),
		Duration:   float64(res.Elapsed.Milliseconds()),
	})
}

// Flush writes the accumulated report for the run.
func (f *JSONFormatter) Flush(summary *batch.Summary) error {
	out := JSONOutput{
		RunID: summary.RunID,
		State: string(summary.State),
		Summary: JSONSummary{
			Total:  len(summary.Steps),
			OK:     summary.OK,
			Errors: summary.Errors,
		},
		Steps:    f.steps,
		Duration: float64(summary.Elapsed.Milliseconds()),
		Time:     time.Now().Format(time.RFC3339),
	}
	if summary.FailErr != nil {
		out.Error = summary.FailErr.Error()
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
