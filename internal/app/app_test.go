package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/medops/opsdesk/api/openapi"
	"github.com/medops/opsdesk/internal/config"
	"github.com/medops/opsdesk/internal/domain"
	"github.com/medops/opsdesk/internal/escalation"
	"github.com/medops/opsdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Feed.Enabled = false
	cfg.Feed.SeedDemoData = false
	return &cfg
}

func newTestClient(t *testing.T, cfg *config.Config) (*App, *testutil.Client) {
	t.Helper()

	a, err := New(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(a.Router())
	t.Cleanup(srv.Close)

	validator := testutil.NewOpenAPIValidator(t, openapi.Spec)
	return a, testutil.NewClientWithValidator(t, srv.URL, validator)
}

func ingest(t *testing.T, client *testutil.Client, body map[string]string) escalation.IngestResult {
	t.Helper()

	resp, err := client.POST("/api/v1/notifications", body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result escalation.IngestResult
	testutil.DecodeData(t, resp, &result)
	return result
}

func TestAPI_IngestEscalatesCriticalNotification(t *testing.T) {
	_, client := newTestClient(t, testConfig())

	result := ingest(t, client, map[string]string{
		"priority": "Kritis",
		"title":    "Stok darah O- kritis",
		"location": "RSPAU Hardjolukito",
	})

	assert.Equal(t, "NTF-1", result.Notification.ID)
	assert.Equal(t, domain.LifecycleNew, result.Notification.Lifecycle)
	assert.Equal(t, "Baru saja", result.Notification.Time)
	require.Len(t, result.Escalations, 1)

	e := result.Escalations[0]
	assert.Equal(t, "INC-2", e.Incident.ID)
	assert.Equal(t, "TI-2", e.Task.ID)
	assert.Equal(t, "NTF-1", e.Incident.SourceNotificationID)
	assert.Equal(t, escalation.SLAMinutesKritis, e.Incident.SLAMinutes)
	assert.Equal(t, escalation.TeamPriorityResponse, e.Incident.Team)
	assert.Equal(t, e.Incident.ID, e.Task.LinkedIncidentID)

	t.Run("low priority does not escalate", func(t *testing.T) {
		result := ingest(t, client, map[string]string{"priority": "Rendah", "title": "Pengiriman tiba"})
		assert.Empty(t, result.Escalations)
	})

	t.Run("rerun creates nothing", func(t *testing.T) {
		resp, err := client.POST("/api/v1/escalation/run", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var run escalation.RunEscalationResponse
		testutil.DecodeData(t, resp, &run)
		assert.Equal(t, 0, run.Created)
		assert.Empty(t, run.Escalations)
	})

	t.Run("incident is listed with deadline and target", func(t *testing.T) {
		resp, err := client.GET("/api/v1/incidents")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var incidents []escalation.IncidentView
		testutil.DecodeData(t, resp, &incidents)
		require.Len(t, incidents, 1)
		assert.Equal(t, domain.ModuleMedicalServices, incidents[0].Target)
		assert.Equal(t, incidents[0].CreatedAt.Add(time.Hour), incidents[0].Deadline)
	})

	t.Run("task board", func(t *testing.T) {
		resp, err := client.GET("/api/v1/tasks")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var board []domain.TaskBoardColumn
		testutil.DecodeData(t, resp, &board)
		require.Len(t, board, 3)
		assert.Equal(t, domain.TaskColumnNew, board[0].Column)
		require.Len(t, board[0].Tasks, 1)
		assert.Equal(t, "TI-2", board[0].Tasks[0].ID)
		assert.NotNil(t, board[1].Tasks)
	})
}

func TestAPI_ListNotifications(t *testing.T) {
	_, client := newTestClient(t, testConfig())

	ingest(t, client, map[string]string{"priority": "Rendah", "title": "Pengiriman alkes"})
	ingest(t, client, map[string]string{"priority": "Tinggi", "title": "Ruang ICU penuh"})

	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{"all newest first", "", []string{"NTF-2", "NTF-1"}},
		{"critical only", "?critical_only=true", []string{"NTF-2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.GET("/api/v1/notifications" + tt.query)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var notifications []domain.Notification
			testutil.DecodeData(t, resp, &notifications)

			got := make([]string, 0, len(notifications))
			for _, n := range notifications {
				got = append(got, n.ID)
			}
			assert.Equal(t, tt.expected, got)
		})
	}

	t.Run("invalid flag", func(t *testing.T) {
		resp, err := client.WithoutValidation().GET("/api/v1/notifications?critical_only=maybe")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		_ = resp.Body.Close()
	})
}

func TestAPI_CreateNotificationValidation(t *testing.T) {
	_, client := newTestClient(t, testConfig())
	raw := client.WithoutValidation()

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"empty body", "", "empty body"},
		{"malformed", "{", "invalid json"},
		{"unknown priority", `{"priority":"Darurat","title":"x"}`, "validation error"},
		{"missing title", `{"priority":"Kritis"}`, "validation error"},
		{"unknown category", `{"priority":"Kritis","title":"x","category":"Keuangan"}`, "validation error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := raw.RawPOST("/api/v1/notifications", tt.body)
			require.NoError(t, err)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body struct {
				Error struct {
					Message string `json:"message"`
				} `json:"error"`
			}
			testutil.DecodeJSON(t, resp, &body)
			assert.Equal(t, tt.message, body.Error.Message)
		})
	}
}

func TestAPI_NotificationLifecycle(t *testing.T) {
	_, client := newTestClient(t, testConfig())
	ingest(t, client, map[string]string{"priority": "Sedang", "title": "Jadwal pemeliharaan"})

	patch := func(t *testing.T, lc string) *http.Response {
		t.Helper()
		resp, err := client.PATCH("/api/v1/notifications/NTF-1/lifecycle", map[string]string{"lifecycle": lc})
		require.NoError(t, err)
		return resp
	}

	resp := patch(t, "resolved")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var n domain.Notification
	testutil.DecodeData(t, resp, &n)
	assert.Equal(t, domain.LifecycleResolved, n.Lifecycle)

	resp = patch(t, "new")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err := client.GET("/api/v1/notifications/NTF-1")
	require.NoError(t, err)
	testutil.DecodeData(t, resp, &n)
	assert.Equal(t, domain.LifecycleResolved, n.Lifecycle, "rejected transition must not change state")

	resp, err = client.PATCH("/api/v1/notifications/NTF-9/lifecycle", map[string]string{"lifecycle": "resolved"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestAPI_QuickActionAndRoute(t *testing.T) {
	_, client := newTestClient(t, testConfig())
	ingest(t, client, map[string]string{
		"priority":     "Sedang",
		"title":        "Pengiriman alkes tertunda",
		"action_label": "Lacak kiriman",
	})

	resp, err := client.POST("/api/v1/notifications/NTF-1/quick-action", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result escalation.QuickActionResult
	testutil.DecodeData(t, resp, &result)
	assert.Equal(t, domain.LifecycleAcknowledged, result.Notification.Lifecycle)
	assert.True(t, result.Routed)
	assert.Equal(t, domain.ModuleDistribution, result.Target)
	assert.Equal(t, "Aksi dijalankan: Lacak kiriman → Distribusi", result.Message)

	resp, err = client.GET("/api/v1/notifications/NTF-1/route")
	require.NoError(t, err)
	var route escalation.RouteResponse
	testutil.DecodeData(t, resp, &route)
	assert.Equal(t, escalation.RouteResponse{Target: domain.ModuleDistribution, Routed: true}, route)

	tests := []struct {
		text     string
		expected escalation.RouteResponse
	}{
		{"Stok masker menipis", escalation.RouteResponse{Target: domain.ModuleLogistics, Routed: true}},
		{"ICU PENUH", escalation.RouteResponse{Target: domain.ModuleMedicalServices, Routed: true}},
		{"rapat mingguan", escalation.RouteResponse{Routed: false}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			resp, err := client.GET("/api/v1/route?text=" + strings.ReplaceAll(tt.text, " ", "+"))
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var got escalation.RouteResponse
			testutil.DecodeData(t, resp, &got)
			assert.Equal(t, tt.expected, got)
		})
	}

	resp, err = client.WithoutValidation().GET("/api/v1/route")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestAPI_IncidentStatusSummaryAndCountdown(t *testing.T) {
	_, client := newTestClient(t, testConfig())
	ingest(t, client, map[string]string{"priority": "Tinggi", "title": "Ruang ICU penuh"})

	resp, err := client.PATCH("/api/v1/incidents/INC-2/status", map[string]string{"status": "in-progress"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var inc escalation.IncidentView
	testutil.DecodeData(t, resp, &inc)
	assert.Equal(t, domain.IncidentStatusInProgress, inc.Status)

	resp, err = client.GET("/api/v1/incidents/summary")
	require.NoError(t, err)
	var summary map[string]int
	testutil.DecodeData(t, resp, &summary)
	assert.Equal(t, map[string]int{
		"open": 0, "triage": 0, "in-progress": 1, "resolved": 0, "closed": 0,
	}, summary)

	resp, err = client.GET("/api/v1/incidents/INC-2/countdown")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var countdown escalation.CountdownResponse
	testutil.DecodeData(t, resp, &countdown)
	assert.False(t, countdown.Overdue)
	assert.True(t, strings.HasPrefix(countdown.Text, "Sisa "), countdown.Text)

	resp, err = client.GET("/api/v1/incidents?severity=Kritis")
	require.NoError(t, err)
	var incidents []escalation.IncidentView
	testutil.DecodeData(t, resp, &incidents)
	assert.Empty(t, incidents)

	resp, err = client.GET("/api/v1/incidents/INC-404")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestAPI_SeedDemoData(t *testing.T) {
	cfg := testConfig()
	cfg.Feed.SeedDemoData = true
	_, client := newTestClient(t, cfg)

	resp, err := client.GET("/api/v1/notifications")
	require.NoError(t, err)
	var notifications []domain.Notification
	testutil.DecodeData(t, resp, &notifications)
	require.Len(t, notifications, 4)
	assert.Equal(t, "Kebutuhan Darah Segera", notifications[0].Title)

	resp, err = client.GET("/api/v1/tasks")
	require.NoError(t, err)
	var board []domain.TaskBoardColumn
	testutil.DecodeData(t, resp, &board)
	require.Len(t, board, 3)
	assert.Len(t, board[0].Tasks, 3)
	assert.Len(t, board[1].Tasks, 1)
	assert.Len(t, board[2].Tasks, 1)
}

func TestAPI_SystemEndpoints(t *testing.T) {
	_, client := newTestClient(t, testConfig())

	tests := []struct {
		path        string
		contentType string
		contains    string
	}{
		{"/healthz", "text/plain", "OK"},
		{"/readyz", "text/plain", "OK"},
		{"/version", "application/json", `"version"`},
		{"/api/openapi.yaml", "application/x-yaml", "openapi: 3.0.3"},
		{"/docs", "text/html", "swagger-ui"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := client.GET(tt.path)
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Type"), tt.contentType)
			assert.Contains(t, testutil.ReadBody(t, resp), tt.contains)
		})
	}
}

func TestAPI_CORSPreflight(t *testing.T) {
	_, client := newTestClient(t, testConfig())

	req, err := http.NewRequest(http.MethodOptions, client.BaseURL+"/api/v1/notifications", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := client.HTTPClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestApp_ShutdownClosesStore(t *testing.T) {
	a, client := newTestClient(t, testConfig())
	a.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Shutdown(ctx))

	resp, err := client.GET("/readyz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = client.WithoutValidation().GET("/api/v1/notifications")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()
}

type webhookRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (r *webhookRecorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.bodies = append(r.bodies, string(body))
	r.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (r *webhookRecorder) received() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.bodies...)
}

func TestApp_PagesTeamOnIncident(t *testing.T) {
	recorder := &webhookRecorder{}
	webhook := httptest.NewServer(recorder)
	t.Cleanup(webhook.Close)

	cfg := testConfig()
	cfg.Paging.Enabled = true
	cfg.Paging.BaseURL = "https://opsdesk.example"
	cfg.Paging.Worker.PollInterval = 10 * time.Millisecond
	cfg.Paging.Teams = []config.TeamChannels{
		{Team: escalation.TeamPriorityResponse, Mattermost: []string{webhook.URL}},
	}

	a, client := newTestClient(t, cfg)
	require.NotNil(t, a.PagingQueue())
	a.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Shutdown(ctx)
	})

	ingest(t, client, map[string]string{"priority": "Tinggi", "title": "Ruang ICU penuh"})
	ingest(t, client, map[string]string{"priority": "Kritis", "title": "Stok darah O- kritis"})

	require.Eventually(t, func() bool {
		return len(recorder.received()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	body := recorder.received()[0]
	assert.Contains(t, body, "INC-4")
	assert.Contains(t, body, "https://opsdesk.example/incidents/INC-4")

	stats, err := a.PagingQueue().Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)
}

func TestNew_PagingDisabledHasNoQueue(t *testing.T) {
	a, err := New(testConfig())
	require.NoError(t, err)
	assert.Nil(t, a.PagingQueue())
}

func TestTeamChannels(t *testing.T) {
	channels := teamChannels([]config.TeamChannels{
		{Team: "a", Mattermost: []string{"https://hooks/1"}, Telegram: []string{"-100"}},
		{Team: "b", Telegram: []string{"42"}},
	})

	require.Len(t, channels["a"], 2)
	assert.Equal(t, domain.ChannelTypeMattermost, channels["a"][0].Type)
	assert.Equal(t, domain.ChannelTypeTelegram, channels["a"][1].Type)
	assert.Equal(t, []domain.PagingChannel{{Team: "b", Type: domain.ChannelTypeTelegram, Target: "42"}}, channels["b"])
}
