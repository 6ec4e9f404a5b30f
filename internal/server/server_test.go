package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"github.com/aristath/signalist/internal/config"
	"github.com/aristath/signalist/internal/di"
	"github.com/aristath/signalist/internal/events"
)

func newTestServer(t *testing.T) (*Server, *di.Container) {
	t.Helper()

	cfg := &config.Config{
		DataDir: t.TempDir(),
		Port:    8080,
		Digest:  config.DigestConfig{Cron: "0 12 * * *", Concurrency: 2},
		Mail:    config.MailConfig{Provider: config.MailProviderLog, FromAddress: "signalist@example.com"},
		LLM:     config.LLMConfig{Summarizer: config.SummarizerTemplate},
	}

	container, jobs, err := di.Wire(context.Background(), cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	return New(Config{Log: zerolog.Nop(), Port: cfg.Port, DevMode: true, Container: container, Jobs: jobs}), container
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, map[string]interface{}{"signalist": "ok", "client_data": "ok"}, body["databases"])
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s.Handler(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "signalist_users")
}

func TestSignUpTriggersWelcomeLocally(t *testing.T) {
	s, container := newTestServer(t)

	sent := make(chan *events.EmailData, 1)
	container.EventBus.Subscribe(events.EmailSent, func(e *events.Event) {
		if d, ok := e.Data.(*events.EmailData); ok {
			sent <- d
		}
	})

	rec := do(t, s.Handler(), http.MethodPost, "/api/users",
		`{"email":"ada@example.com","name":"Ada","investmentGoals":"Growth","riskTolerance":"High","preferredIndustry":"Technology"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	select {
	case d := <-sent:
		assert.Equal(t, "ada@example.com", d.Recipient)
		assert.Equal(t, "welcome", d.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("welcome email was not sent")
	}
}

func TestRunDigest(t *testing.T) {
	s, container := newTestServer(t)

	requested := make(chan string, 1)
	container.EventBus.Subscribe(events.DigestRequested, func(e *events.Event) {
		requested <- e.Data.(*events.DigestRequestedData).Reason
	})

	rec := do(t, s.Handler(), http.MethodPost, "/api/digest/run", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case reason := <-requested:
		assert.Equal(t, "manual", reason)
	case <-time.After(time.Second):
		t.Fatal("digest was not requested")
	}
}

func TestSystemStatus(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s.Handler(), http.MethodGet, "/api/system/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "local", status.Mode)
	assert.Equal(t, 0, status.Users)
}

func TestDatabaseStats(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s.Handler(), http.MethodGet, "/api/system/database/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Databases []DBInfo `json:"databases"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Databases, 2)
	assert.Equal(t, "signalist", body.Databases[0].Name)
	assert.Equal(t, "client_data", body.Databases[1].Name)
}

func TestJobs(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s.Handler(), http.MethodGet, "/api/system/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "deliveries_cleanup")
	assert.Contains(t, rec.Body.String(), "news_cache_cleanup")

	assert.Equal(t, http.StatusOK, do(t, s.Handler(), http.MethodPost, "/api/system/jobs/check_wal_checkpoints", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s.Handler(), http.MethodPost, "/api/system/jobs/deliveries_cleanup", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s.Handler(), http.MethodPost, "/api/system/jobs/news_cache_cleanup", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s.Handler(), http.MethodPost, "/api/system/jobs/unknown", "").Code)
}

func TestModuleRoutesMounted(t *testing.T) {
	s, _ := newTestServer(t)

	assert.Equal(t, http.StatusOK, do(t, s.Handler(), http.MethodGet, "/api/users", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s.Handler(), http.MethodGet, "/api/settings", "").Code)
	assert.Equal(t, http.StatusOK, do(t, s.Handler(), http.MethodGet, "/api/deliveries", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s.Handler(), http.MethodGet, "/api/watchlist/ghost@example.com", "").Code)
	// the engine endpoint only exists when the engine is enabled
	assert.Equal(t, http.StatusNotFound, do(t, s.Handler(), http.MethodGet, "/api/inngest", "").Code)
}

func TestEventStreamSSE(t *testing.T) {
	s, container := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events/stream?types=DIGEST_COMPLETED", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readData := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			}
		}
	}

	assert.Contains(t, readData(), `"connected"`)

	// filtered out
	container.EventBus.Emit(events.EmailSent, "test", &events.EmailData{Recipient: "ada@example.com"})
	container.EventBus.Emit(events.DigestCompleted, "test", &events.DigestCompletedData{Users: 2, Sent: 2})

	data := readData()
	assert.Contains(t, data, `"DIGEST_COMPLETED"`)
	assert.Contains(t, data, `"sent":2`)
}

func TestEventStreamWebSocket(t *testing.T) {
	s, container := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/events/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	_, msg, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"connected"`)

	container.EventBus.Emit(events.SettingsChanged, "settings", &events.SettingsChangedData{Key: "finnhub_api_key"})

	_, msg, err = conn.Read(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"SETTINGS_CHANGED"`)
	assert.Contains(t, string(msg), `"finnhub_api_key"`)
}
