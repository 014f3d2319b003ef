package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xautometrics/pkg/observability/xlog"
)

func testLogger(t *testing.T) (xlog.LoggerWithLevel, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, cleanup, err := xlog.New().SetOutput(&buf).SetFormat("json").SetLevel(xlog.LevelInfo).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })
	return l, &buf
}

func newTestServer(t *testing.T, app appConfig) *server {
	t.Helper()
	logger, _ := testLogger(t)
	srv, err := newServer(t.Context(), app, logger, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.shutdown(context.Background()) })
	return srv
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_Endpoints(t *testing.T) {
	_, app, err := loadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	srv := newTestServer(t, app)

	rec := get(t, srv.handler, "/products/1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "keyboard")

	assert.Equal(t, http.StatusNotFound, get(t, srv.handler, "/products/42").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, srv.handler, "/products/abc").Code)
	assert.Equal(t, http.StatusOK, get(t, srv.handler, "/products").Code)
	assert.Equal(t, http.StatusNoContent, get(t, srv.handler, "/healthz").Code)
	// none exporter 不挂载 /metrics。
	assert.Equal(t, http.StatusNotFound, get(t, srv.handler, "/metrics").Code)

	rm, err := srv.provider.Collect(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, rm.ScopeMetrics)
	names := map[string]bool{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names[m.Name] = true
	}
	assert.True(t, names["function.calls.count"])
	assert.True(t, names["function.calls.duration"])
	assert.True(t, names["function.calls.concurrent"])
}

func TestServer_PrometheusEndpoint(t *testing.T) {
	_, app, err := loadConfig("")
	require.NoError(t, err)
	srv := newTestServer(t, app)

	require.Equal(t, http.StatusOK, get(t, srv.handler, "/products/3").Code)
	rec := get(t, srv.handler, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `function="GET /products/{id}"`)
	assert.Contains(t, body, `function="loadProduct"`)
	assert.Contains(t, body, `caller="GET /products/{id}"`)
}

func TestServer_UnknownDemoObjective(t *testing.T) {
	_, app, err := loadConfig("")
	require.NoError(t, err)
	app.Demo.Objective = "missing"
	logger, _ := testLogger(t)
	_, err = newServer(t.Context(), app, logger, 0)
	assert.True(t, isUsageError(err))
}

func TestServer_Services(t *testing.T) {
	_, app, err := loadConfig("")
	require.NoError(t, err)
	app.Demo.TrafficInterval = time.Second
	srv := newTestServer(t, app)

	services, err := srv.services(nil)
	require.NoError(t, err)
	names := make([]string, 0, len(services))
	for _, s := range services {
		named, ok := s.(interface{ Name() string })
		require.True(t, ok)
		names = append(names, named.Name())
	}
	assert.Equal(t, []string{"http", "traffic"}, names)
}

func TestServer_GenerateTraffic(t *testing.T) {
	_, app, err := loadConfig("")
	require.NoError(t, err)
	app.Metrics.Exporter = "none"
	srv := newTestServer(t, app)
	require.NoError(t, srv.generateTraffic(t.Context()))
	// id 0 在读取前被拒绝，1 到 4 各读取一次。
	assert.EqualValues(t, 4, srv.catalog.reads.Load())
}

func TestServer_OnConfigChange(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	conf, app, err := loadConfig(path)
	require.NoError(t, err)
	app.Log.Level = "info"
	srv := newTestServer(t, app)
	require.Equal(t, xlog.LevelInfo, srv.log.GetLevel())

	// 配置文件中的 level 是 debug。
	srv.onConfigChange(conf, nil)
	assert.Equal(t, xlog.LevelDebug, srv.log.GetLevel())

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o600))
	require.NoError(t, conf.Reload())
	srv.onConfigChange(conf, nil)
	assert.Equal(t, xlog.LevelDebug, srv.log.GetLevel())

	srv.onConfigChange(conf, assert.AnError)
	assert.Equal(t, xlog.LevelDebug, srv.log.GetLevel())
}

func TestLogBackend(t *testing.T) {
	logger, buf := testLogger(t)
	logger.SetLevel(xlog.LevelDebug)
	b := logBackend{log: logger}
	require.NoError(t, b.RecordCall(t.Context(), demoCounter("f", "", demoOK)))
	require.NoError(t, b.ObserveLatency(t.Context(), time.Millisecond, demoCounter("f", "", demoOK)))
	require.NoError(t, b.SetConcurrency(t.Context(), 1, demoCounter("f", "", demoOK)))
	out, err := io.ReadAll(buf)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"msg":"metric call"`)
	assert.Contains(t, string(out), `"delta":1`)
}

func TestCmdServe_StopsOnCancel(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	conf, app, err := loadConfig(path)
	require.NoError(t, err)
	app.Log.File = ""
	app.Log.Level = "error"
	t.Cleanup(xlog.ResetDefault)

	ctx, cancel := context.WithCancel(t.Context())
	stop := time.AfterFunc(300*time.Millisecond, cancel)
	defer stop.Stop()
	assert.NoError(t, cmdServe(ctx, conf, app, 0))
}
