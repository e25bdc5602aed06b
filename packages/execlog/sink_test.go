package execlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hbruhn/devprobe/packages/http"
)

func TestSafeName(t *testing.T) {
	assert.Equal(t, "GetContacts_path", SafeName("GetContacts_path"))
	assert.Equal(t, "a_b_c", SafeName("a/b c"))
	assert.Equal(t, "request", SafeName(""))
}

func TestSink_FileNaming(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2026, 8, 23, 14, 30, 5, 0, time.Local)

	sink, err := New(dir, "GetContacts_path", start, false)
	require.NoError(t, err)
	defer sink.Close()

	assert.Equal(t, filepath.Join(dir, "log_GetContacts_path_20260823_143005.log"), sink.Path())
	_, err = os.Stat(filepath.Join(dir, "log_GetContacts_path_20260823_143005.jsonl"))
	assert.NoError(t, err)
}

func testAttempt() (*http.Descriptor, *http.ExecutionResult) {
	d := &http.Descriptor{
		URL:    "http://10.27.35.4/api/call/GetCallStatus",
		Method: "POST",
		Body:   []byte(`{"CallId":"Out-18-18-SIP"}`),
	}
	res := &http.ExecutionResult{
		Tag:        http.TagOK,
		StatusCode: 200,
		Body:       []byte(`{"result":"ok"}`),
		Elapsed:    42 * time.Millisecond,
		Timestamp:  time.Now(),
	}
	return d, res
}

func TestSink_RecordText(t *testing.T) {
	dir := t.TempDir()
	sink, err := New(dir, "single", time.Now(), false)
	require.NoError(t, err)

	d, res := testAttempt()
	require.NoError(t, sink.Record("GetCallStatus_path", d, res))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(sink.Path())
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "Tag: ok")
	assert.Contains(t, text, "URL: http://10.27.35.4/api/call/GetCallStatus")
	assert.Contains(t, text, "Status Code: 200")
	assert.Contains(t, text, `"result":"ok"`)
	assert.NotContains(t, text, "--- Preset:")
}

func TestSink_MultiPresetSeparators(t *testing.T) {
	dir := t.TempDir()
	sink, err := New(dir, "batch", time.Now(), true)
	require.NoError(t, err)

	d, res := testAttempt()
	require.NoError(t, sink.Record("first", d, res))
	require.NoError(t, sink.Record("second", d, res))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(sink.Path())
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "--- Preset: first ---")
	assert.Contains(t, text, "--- Preset: second ---")
	assert.Less(t, strings.Index(text, "first"), strings.Index(text, "second"))
}

func TestSink_JSONLOneLinePerAttempt(t *testing.T) {
	dir := t.TempDir()
	sink, err := New(dir, "batch", time.Now(), true)
	require.NoError(t, err)

	d, res := testAttempt()
	failed := &http.ExecutionResult{
		Tag:     http.TagNetworkError,
		Detail:  "connection refused",
		Elapsed: 5 * time.Millisecond,
	}
	require.NoError(t, sink.Record("ok_preset", d, res))
	require.NoError(t, sink.Record("bad_preset", d, failed))
	require.NoError(t, sink.Close())

	jsonlPath := strings.TrimSuffix(sink.Path(), ".log") + ".jsonl"
	f, err := os.Open(jsonlPath)
	require.NoError(t, err)
	defer f.Close()

	var entries []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, entries, 2)

	assert.Equal(t, "ok_preset", entries[0]["preset"])
	assert.Equal(t, "ok", entries[0]["tag"])
	assert.Equal(t, float64(200), entries[0]["statusCode"])

	assert.Equal(t, "bad_preset", entries[1]["preset"])
	assert.Equal(t, "network_error", entries[1]["tag"])
	assert.Equal(t, "connection refused", entries[1]["detail"])
}
