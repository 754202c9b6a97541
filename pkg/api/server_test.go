package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasniffing/caramelo/pkg/metrics"
	"github.com/datasniffing/caramelo/pkg/models"
	"github.com/datasniffing/caramelo/pkg/registry"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// newTestServer wires a Server whose crawls block until release is closed
func newTestServer(t *testing.T, run registry.RunFunc) (*httptest.Server, *registry.Registry) {
	t.Helper()
	reg := registry.New(context.Background(), registry.Options{ErrorLabel: "Error processing URL"}, testLogger())

	promReg := prometheus.NewRegistry()
	metrics.New(promReg).TrackTasks(reg.Len, reg.Pending)
	srv := NewServer(":0", reg, run, promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}), testLogger())

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		reg.Wait()
	})
	return ts, reg
}

func postRun(t *testing.T, ts *httptest.Server, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/run-crawler", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func getResult(t *testing.T, ts *httptest.Server, id string) (int, string) {
	t.Helper()
	resp, err := http.Get(ts.URL + "/crawler-result/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestRunCrawler_Lifecycle(t *testing.T) {
	release := make(chan struct{})
	ts, reg := newTestServer(t, func(ctx context.Context, url string) []models.CheckResult {
		<-release
		return []models.CheckResult{
			models.NewCheckResult("Privacy Policy", true),
			models.NewCheckResult("Option to refuse cookie collection", false),
		}
	})

	resp, out := postRun(t, ts, `{"url":"https://shop.example/"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, true, out["success"])
	id, _ := out["task_id"].(string)
	require.NotEmpty(t, id)

	code, body := getResult(t, ts, id)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"ready":false}`, body)

	close(release)
	reg.Wait()

	expected := `{"ready":true,"results":[
		{"check":"Privacy Policy","passed":true,"error":null},
		{"check":"Option to refuse cookie collection","passed":false,"error":null}]}`
	for i := 0; i < 2; i++ {
		code, body = getResult(t, ts, id)
		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, expected, body)
	}
}

func TestRunCrawler_BadBody(t *testing.T) {
	ts, reg := newTestServer(t, func(ctx context.Context, url string) []models.CheckResult { return nil })

	for _, body := range []string{`not json`, `{"url": 42}`, ``} {
		t.Run(body, func(t *testing.T) {
			resp, out := postRun(t, ts, body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, false, out["success"])
			assert.NotEmpty(t, out["error"])
		})
	}
	assert.Equal(t, 0, reg.Len(), "no task for a rejected request")
}

func TestRunCrawler_InvalidURLStillCreatesTask(t *testing.T) {
	ts, reg := newTestServer(t, func(ctx context.Context, url string) []models.CheckResult {
		return []models.CheckResult{models.NewCheckResult("Error processing URL", false)}
	})

	resp, out := postRun(t, ts, `{"url":"not a url"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["success"])
	reg.Wait()

	code, body := getResult(t, ts, out["task_id"].(string))
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"ready":true`)
}

func TestCrawlerResult_NotFound(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	code, body := getResult(t, ts, "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, http.StatusNotFound, code)
	assert.JSONEq(t, `{"error":"Task not found"}`, body)
}

func TestHealthz(t *testing.T) {
	ts, reg := newTestServer(t, nil)
	reg.Create()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, 1.0, out["tasks"])
	assert.Equal(t, 1.0, out["tasks_pending"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts, reg := newTestServer(t, nil)
	reg.Create()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "caramelo_tasks 1")
}

func TestWrongMethod(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/run-crawler")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_StartShutdown(t *testing.T) {
	reg := registry.New(context.Background(), registry.Options{}, testLogger())
	srv := NewServer("127.0.0.1:0", reg, nil, nil, testLogger())

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	time.Sleep(20 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
