package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/airbladder/parameter"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, parameter.DefaultCapacity, cfg.Bladder.Capacity)
	assert.Equal(t, parameter.DefaultDischargeRate, cfg.Bladder.DischargeRate)
	assert.Equal(t, parameter.DefaultRechargeRate, cfg.Bladder.RechargeRate)
	assert.Equal(t, parameter.AnchorRetryAttempts, cfg.Anchor.RetryAttempts)
	assert.Equal(t, parameter.AnchorRetryInterval, cfg.Anchor.RetryInterval)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
}

func TestLoad_TOMLOverridesOnlyPresentKeys(t *testing.T) {
	path := writeConfig(t, "airbladder.toml", `
[bladder]
recharge_rate = 40.0
buoyancy_force = 4200.0

[anchor]
retry_interval = "250ms"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 40.0, cfg.Bladder.RechargeRate)
	assert.Equal(t, 4200.0, cfg.Bladder.BuoyancyForce)
	assert.Equal(t, parameter.DefaultDischargeRate, cfg.Bladder.DischargeRate, "absent key keeps default")
	assert.Equal(t, 250*time.Millisecond, cfg.Anchor.RetryInterval)
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "airbladder.yaml", `
bladder:
  capacity: 150
storage:
  backend: sqlite
  path: ${AIRBLADDER_TEST_DB}
`)
	t.Setenv("AIRBLADDER_TEST_DB", "/tmp/air.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 150.0, cfg.Bladder.Capacity)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/air.db", cfg.Storage.Path)
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	path := writeConfig(t, "airbladder.toml", `
[bladder]
discharge_rate = 12.0
`)
	t.Setenv("AIRBLADDER_DISCHARGE_RATE", "15")
	t.Setenv("AIRBLADDER_AUDIO_ENABLED", "false")
	t.Setenv("AIRBLADDER_STORAGE_BACKEND", "memory")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 15.0, cfg.Bladder.DischargeRate)
	assert.False(t, cfg.Audio.Enabled)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		env  map[string]string
	}{
		{name: "unknown extension", file: "c.ini", body: "x=1"},
		{name: "zero capacity", file: "c.toml", body: "[bladder]\ncapacity = 0.0\n"},
		{name: "negative recharge", file: "c.toml", body: "[bladder]\nrecharge_rate = -1.0\n"},
		{name: "bad backend", file: "c.toml", body: "[storage]\nbackend = \"s3\"\n"},
		{name: "bad interval", file: "c.toml", body: "[anchor]\nretry_interval = \"soon\"\n"},
		{name: "bad env float", file: "c.toml", body: "", env: map[string]string{"AIRBLADDER_CAPACITY": "lots"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.file, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestClampedForce(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1000, parameter.MinBuoyancyForce},
		{2000, 2000},
		{3500, 3500},
		{5000, 5000},
		{9000, parameter.MaxBuoyancyForce},
	}
	for _, tt := range tests {
		got := BladderConfig{BuoyancyForce: tt.in}.ClampedForce()
		assert.Equal(t, tt.want, got, "force %g", tt.in)
	}
}
