package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := Default()

	assert.Equal(t, 10000, s.TimeoutMS)
	assert.False(t, s.GetUseTLS())
	assert.False(t, s.GetSimpleFormat())
	assert.Equal(t, "presets.json", s.PresetsFile)
	assert.Equal(t, "json_configs", s.ConfigsDir)
	assert.Equal(t, "logs", s.LogsDir)
	assert.Equal(t, "http", s.Scheme())
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devprobe.config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"deviceIP": "10.27.35.4",
		"username": "admin",
		"password": "secret",
		"timeout": 5000,
		"useTLS": true
	}`), 0644))

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.27.35.4", s.DeviceIP)
	assert.Equal(t, "admin", s.Username)
	assert.Equal(t, 5000, s.TimeoutMS)
	assert.True(t, s.GetUseTLS())
	assert.Equal(t, "https", s.Scheme())
	// untouched fields keep their defaults
	assert.Equal(t, "presets.json", s.PresetsFile)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devprobe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
deviceIP: 10.27.35.4
username: admin
timeout: 2500
simpleFormat: true
`), 0644))

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.27.35.4", s.DeviceIP)
	assert.Equal(t, 2500, s.TimeoutMS)
	assert.True(t, s.GetSimpleFormat())
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devprobe.config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestFindAndLoad_MissingYieldsDefaults(t *testing.T) {
	s, err := FindAndLoad(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestFindAndLoad_SearchOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".devprobe.config.json"),
		[]byte(`{"deviceIP":"1.1.1.1"}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "devprobe.yaml"),
		[]byte(`deviceIP: 2.2.2.2`), 0644))

	s, err := FindAndLoad(dir)
	require.NoError(t, err)
	assert.Equal(t, "1.1.1.1", s.DeviceIP)
}

func TestMerge(t *testing.T) {
	base := Default()
	base.DeviceIP = "10.27.35.4"
	base.Username = "admin"

	useTLS := true
	merged := base.Merge(&Settings{
		Password:  "override",
		TimeoutMS: 3000,
		UseTLS:    &useTLS,
	})

	assert.Equal(t, "10.27.35.4", merged.DeviceIP)
	assert.Equal(t, "admin", merged.Username)
	assert.Equal(t, "override", merged.Password)
	assert.Equal(t, 3000, merged.TimeoutMS)
	assert.True(t, merged.GetUseTLS())

	// base is untouched
	assert.Empty(t, base.Password)
	assert.Equal(t, 10000, base.TimeoutMS)
}

func TestMerge_NilIsNoop(t *testing.T) {
	base := Default()
	assert.Equal(t, base, base.Merge(nil))
}

func TestValidateDevice(t *testing.T) {
	s := Default()
	assert.Error(t, s.ValidateDevice())

	s.DeviceIP = "10.27.35.4"
	assert.Error(t, s.ValidateDevice()) // still no username

	s.Username = "admin"
	assert.NoError(t, s.ValidateDevice())

	s.DeviceIP = "device.lab.local:8080"
	assert.NoError(t, s.ValidateDevice())

	s.DeviceIP = "not a host"
	assert.Error(t, s.ValidateDevice())
}

func TestSaveRoundTrip(t *testing.T) {
	s := Default()
	s.DeviceIP = "10.27.35.4"
	s.Username = "admin"

	path := filepath.Join(t.TempDir(), "devprobe.config.json")
	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}
