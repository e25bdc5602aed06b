package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hbruhn/devprobe/packages/payload"
)

const presetsDoc = `[
  {
    "name": "GetContacts_path",
    "endpoint": "/api/intercom",
    "method": "GetContacts",
    "format": "path",
    "mode": "happy"
  },
  {
    "name": "SetSIPAccount_rpc",
    "endpoint": "/api/call",
    "method": "SetSIPAccount",
    "payloadFile": "set/SetSIPAccount.json",
    "format": "rpc",
    "mode": "happy"
  },
  {
    "name": "SetSIPAccount_unhappy_no_data",
    "endpoint": "/api/call",
    "method": "SetSIPAccount",
    "payloadFile": "set/unhappy/SetSIPAccount_unhappy_no_data.json",
    "format": "path",
    "mode": "unhappy"
  }
]`

func newTestStore(t *testing.T, doc string) *Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "presets.json")
	if doc != "" {
		require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
	}
	return NewStore(path, filepath.Join(dir, "json_configs"))
}

func TestStore_Load(t *testing.T) {
	store := newTestStore(t, presetsDoc)

	require.NoError(t, store.Load())
	assert.Len(t, store.All(), 3)

	p, ok := store.Get("SetSIPAccount_rpc")
	require.True(t, ok)
	assert.Equal(t, "/api/call", p.Endpoint)
	assert.Equal(t, "SetSIPAccount", p.Method)
	assert.Equal(t, payload.JSONRPC, p.Format)
	assert.Equal(t, Happy, p.Mode)
}

func TestStore_LoadMissingFileIsEmpty(t *testing.T) {
	store := newTestStore(t, "")

	require.NoError(t, store.Load())
	assert.Empty(t, store.All())
}

func TestStore_LoadMalformedDocument(t *testing.T) {
	// method missing
	store := newTestStore(t, `[{"name":"x","endpoint":"/api/call","format":"path","mode":"happy"}]`)
	assert.Error(t, store.Load())

	// not JSON at all
	store = newTestStore(t, `{broken`)
	assert.Error(t, store.Load())

	// unknown format name
	store = newTestStore(t, `[{"name":"x","endpoint":"/api/call","method":"M","format":"xml","mode":"happy"}]`)
	assert.Error(t, store.Load())
}

func TestStore_Names(t *testing.T) {
	store := newTestStore(t, presetsDoc)
	require.NoError(t, store.Load())

	assert.Equal(t, []string{
		"GetContacts_path",
		"SetSIPAccount_rpc",
		"SetSIPAccount_unhappy_no_data",
	}, store.Names())
}

func TestStore_Filter(t *testing.T) {
	store := newTestStore(t, presetsDoc)
	require.NoError(t, store.Load())

	happy := store.Filter(Happy, "")
	assert.Len(t, happy, 2)

	unhappy := store.Filter(Unhappy, "")
	require.Len(t, unhappy, 1)
	assert.Equal(t, "SetSIPAccount_unhappy_no_data", unhappy[0].Name)

	matched := store.Filter(Happy, "sipaccount")
	require.Len(t, matched, 1)
	assert.Equal(t, "SetSIPAccount_rpc", matched[0].Name)
}

func TestStore_AddReplacesByName(t *testing.T) {
	store := newTestStore(t, presetsDoc)
	require.NoError(t, store.Load())

	require.NoError(t, store.Add(Preset{
		Name:     "GetContacts_path",
		Endpoint: "/api/intercom",
		Method:   "GetContacts",
		Format:   payload.GoogleJSON,
		Mode:     Happy,
	}))

	assert.Len(t, store.All(), 3)
	p, _ := store.Get("GetContacts_path")
	assert.Equal(t, payload.GoogleJSON, p.Format)
}

func TestStore_SaveRoundTrip(t *testing.T) {
	store := newTestStore(t, presetsDoc)
	require.NoError(t, store.Load())
	require.NoError(t, store.Save())

	reloaded := NewStore(store.Path(), "unused")
	require.NoError(t, reloaded.Load())
	assert.Equal(t, store.All(), reloaded.All())
}

func TestStore_LoadPayload(t *testing.T) {
	dir := t.TempDir()
	configsDir := filepath.Join(dir, "json_configs")
	require.NoError(t, os.MkdirAll(filepath.Join(configsDir, "set"), 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(configsDir, "set", "SetSIPAccount.json"),
		[]byte(`{"SIPAccount":{"UserId":"user1"}}`), 0644))

	store := NewStore(filepath.Join(dir, "presets.json"), configsDir)

	params, err := store.LoadPayload(Preset{
		Name: "p", Endpoint: "/api/call", Method: "SetSIPAccount",
		PayloadFile: "set/SetSIPAccount.json", Mode: Happy,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"SIPAccount":{"UserId":"user1"}}`, string(params))
}

func TestStore_LoadPayloadEmptyIsNil(t *testing.T) {
	store := newTestStore(t, "")

	params, err := store.LoadPayload(Preset{Name: "p", Endpoint: "/api/call", Method: "M", Mode: Happy})
	require.NoError(t, err)
	assert.Nil(t, params)
}

func TestStore_LoadPayloadRejectsTraversal(t *testing.T) {
	store := newTestStore(t, "")

	_, err := store.LoadPayload(Preset{
		Name: "p", Endpoint: "/api/call", Method: "M", Mode: Happy,
		PayloadFile: "../presets.json",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "escapes configs dir")

	_, err = store.LoadPayload(Preset{
		Name: "p", Endpoint: "/api/call", Method: "M", Mode: Happy,
		PayloadFile: "/etc/passwd",
	})
	assert.Error(t, err)
}

func TestStore_LoadPayloadRejectsInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	configsDir := filepath.Join(dir, "json_configs")
	require.NoError(t, os.MkdirAll(configsDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(configsDir, "bad.json"), []byte(`{broken`), 0644))

	store := NewStore(filepath.Join(dir, "presets.json"), configsDir)

	_, err := store.LoadPayload(Preset{
		Name: "p", Endpoint: "/api/call", Method: "M", Mode: Happy,
		PayloadFile: "bad.json",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}
