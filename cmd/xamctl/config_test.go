package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xautometrics/pkg/observability/xslo"
)

const sampleConfig = `
service:
  name: shop
  version: 1.2.3
metrics:
  exporter: none
  debug_log: true
listen: "127.0.0.1:0"
shutdown_timeout: 2s
log:
  level: debug
  format: json
objectives:
  - name: api
    success_rate: "99.9"
    latency:
      threshold: 250ms
      percentile: "99"
  - name: batch
    success_rate: "95"
demo:
  objective: api
  traffic_interval: 500ms
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xamctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	conf, app, err := loadConfig("")
	require.NoError(t, err)
	assert.Empty(t, conf.Path())
	assert.Equal(t, "xamctl", app.Service.Name)
	assert.Equal(t, "prometheus", app.Metrics.Exporter)
	assert.Equal(t, ":9464", app.Listen)
	assert.Equal(t, defaultShutdownTimeout, app.ShutdownTimeout)
	assert.Equal(t, "info", app.Log.Level)
	assert.Empty(t, app.Objectives)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	conf, app, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, conf.Path())

	assert.Equal(t, "shop", app.Service.Name)
	assert.Equal(t, "none", app.Metrics.Exporter)
	assert.True(t, app.Metrics.DebugLog)
	assert.Equal(t, 2*time.Second, app.ShutdownTimeout)
	assert.Equal(t, 500*time.Millisecond, app.Demo.TrafficInterval)
	assert.Equal(t, "json", app.Log.Format)

	exp := app.exportConfig()
	assert.Equal(t, "shop", exp.ServiceName)
	assert.Equal(t, "1.2.3", exp.ServiceVersion)

	reg, err := app.registry()
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "batch"}, reg.Names())
	api, ok := reg.Lookup("api")
	require.True(t, ok)
	th, p, ok := api.LatencyTarget()
	require.True(t, ok)
	assert.Equal(t, xslo.Ms250, th)
	assert.Equal(t, xslo.P99, p)
}

func TestLoadConfig_InvalidObjective(t *testing.T) {
	path := writeConfig(t, "objectives:\n  - name: api\n    success_rate: \"42\"\n")
	_, app, err := loadConfig(path)
	require.NoError(t, err)
	_, err = app.registry()
	assert.ErrorIs(t, err, xslo.ErrInvalidPercentile)
}

func TestLoadConfig_Missing(t *testing.T) {
	_, _, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
