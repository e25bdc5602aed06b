package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/hbruhn/devprobe/packages/batch"
	"github.com/hbruhn/devprobe/packages/http"
)

// truncate shortens long response bodies for terminal display.
func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// FormatStep prints one attempt as it completes.
func (f *ConsoleFormatter) FormatStep(step *batch.Step) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	res := step.Result

	symbol := green("✓")
	switch res.Tag {
	case http.TagOK:
	case http.TagTimeout, http.TagCancelled:
		symbol = yellow("-")
	default:
		symbol = red("✗")
	}

	fmt.Fprintf(f.writer, "  %s %s %s", symbol, step.Preset.Name,
		cyan(fmt.Sprintf("(%dms)", res.Elapsed.Milliseconds())))
	if res.StatusCode > 0 {
		fmt.Fprintf(f.writer, " [%d]", res.StatusCode)
	}
	if !res.OK() {
		fmt.Fprintf(f.writer, " %s", red(string(res.Tag)))
	}
	fmt.Fprintf(f.writer, "\n")

	if res.Detail != "" && !res.OK() {
		fmt.Fprintf(f.writer, "    %s\n", res.Detail)
	}

	if f.verbose {
		fmt.Fprintf(f.writer, "    URL: %s\n", step.Descriptor.URL)
		if len(res.Body) > 0 {
			fmt.Fprintf(f.writer, "    Body: %s\n", truncate(res.BodyString(), 200))
		}
	}
}

// FormatSummary prints the aggregate outcome after a run.
func (f *ConsoleFormatter) FormatSummary(summary *batch.Summary) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "%s ", bold("Run:"))
	switch summary.State {
	case batch.Completed:
		fmt.Fprintf(f.writer, "%s", green(string(summary.State)))
	case batch.Cancelled:
		fmt.Fprintf(f.writer, "%s", yellow(string(summary.State)))
	default:
		fmt.Fprintf(f.writer, "%s", red(string(summary.State)))
	}
	fmt.Fprintf(f.writer, "\n")

	if summary.FailErr != nil {
		fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), summary.FailErr)
	}

	fmt.Fprintf(f.writer, "Steps: ")
	if summary.OK > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d ok", summary.OK)))
	}
	if summary.Errors > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", summary.Errors)))
	}
	fmt.Fprintf(f.writer, "%d total\n", len(summary.Steps))
	fmt.Fprintf(f.writer, "Time:  %dms\n", summary.Elapsed.Milliseconds())

	if summary.Latency != nil && summary.Latency.Count > 0 {
		l := summary.Latency
		fmt.Fprintf(f.writer, "Latency: min %dms / p50 %dms / p95 %dms / max %dms\n",
			l.Min.Milliseconds(), l.P50.Milliseconds(), l.P95.Milliseconds(), l.Max.Milliseconds())
	}
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(label, value string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold(label), value)
}
