// Package execlog durably records every execution attempt: a human-readable
// log file per run, plus a line-delimited JSON stream with the same
// information for machine consumption.
package execlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/hbruhn/devprobe/packages/http"
)

const timestampLayout = "20060102_150405"

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SafeName replaces anything that is not alphanumeric, dot, underscore or
// dash so run names can become filenames.
func SafeName(name string) string {
	if name == "" {
		name = "request"
	}
	return unsafeChars.ReplaceAllString(name, "_")
}

// Sink appends one block per attempt to a text log and one line per attempt
// to a JSONL file, flushing after each record so the runner never outruns
// durable output by more than one append.
type Sink struct {
	mu    sync.Mutex
	text  *os.File
	jsonl *os.File
	multi bool
	path  string
}

// New opens a sink under dir named from the run name and a start timestamp:
// logs/log_<name>_<YYYYMMDD_HHMMSS>.log and the matching .jsonl. multi adds
// a per-preset separator header, used for batches sharing one file.
func New(dir, name string, start time.Time, multi bool) (*Sink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}

	base := fmt.Sprintf("log_%s_%s", SafeName(name), start.Format(timestampLayout))
	path := filepath.Join(dir, base+".log")

	text, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	jsonl, err := os.OpenFile(filepath.Join(dir, base+".jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		text.Close()
		return nil, fmt.Errorf("opening jsonl file: %w", err)
	}

	return &Sink{text: text, jsonl: jsonl, multi: multi, path: path}, nil
}

// Path returns the text log file path.
func (s *Sink) Path() string { return s.path }

// entry is the structured form of one attempt.
type entry struct {
	Timestamp  string          `json:"timestamp"`
	Preset     string          `json:"preset"`
	Tag        http.Tag        `json:"tag"`
	URL        string          `json:"url"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	StatusCode int             `json:"statusCode,omitempty"`
	Body       string          `json:"body,omitempty"`
	Detail     string          `json:"detail,omitempty"`
	ElapsedMS  int64           `json:"elapsedMs"`
}

// Record appends one attempt to both files and flushes them. Write order
// matches call order; the runner calls Record sequentially.
func (s *Sink) Record(presetName string, d *http.Descriptor, res *http.ExecutionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := res.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	if err := s.writeText(presetName, d, res, ts); err != nil {
		return err
	}

	e := entry{
		Timestamp:  ts.Format(time.RFC3339),
		Preset:     presetName,
		Tag:        res.Tag,
		URL:        d.URL,
		StatusCode: res.StatusCode,
		Body:       res.BodyString(),
		Detail:     res.Detail,
		ElapsedMS:  res.Elapsed.Milliseconds(),
	}
	if json.Valid(d.Body) {
		e.Payload = d.Body
	}

	line, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := s.jsonl.Write(append(line, '\n')); err != nil {
		return err
	}
	return s.jsonl.Sync()
}

func (s *Sink) writeText(presetName string, d *http.Descriptor, res *http.ExecutionResult, ts time.Time) error {
	if s.multi {
		if _, err := fmt.Fprintf(s.text, "\n--- Preset: %s ---\n", presetName); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.text, "\n--- %s ---\n", ts.Format("2006-01-02 15:04:05")); err != nil {
		return err
	}

	fmt.Fprintf(s.text, "Tag: %s\n", res.Tag)
	fmt.Fprintf(s.text, "URL: %s\n", d.URL)
	fmt.Fprintf(s.text, "Payload: %s\n", prettyPayload(d.Body))
	if res.StatusCode > 0 {
		fmt.Fprintf(s.text, "Status Code: %d\n", res.StatusCode)
	}
	if res.Detail != "" {
		fmt.Fprintf(s.text, "Detail: %s\n", res.Detail)
	}
	if len(res.Body) > 0 {
		fmt.Fprintf(s.text, "%s\n", res.BodyString())
	}

	return s.text.Sync()
}

func prettyPayload(body []byte) string {
	if len(body) == 0 {
		return "(none)"
	}
	var buf map[string]any
	if err := json.Unmarshal(body, &buf); err == nil {
		if out, err := json.MarshalIndent(buf, "", "  "); err == nil {
			return string(out)
		}
	}
	return string(body)
}

// Close closes both files.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.text.Close()
	if jerr := s.jsonl.Close(); err == nil {
		err = jerr
	}
	return err
}
