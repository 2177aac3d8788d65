package escalation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/medops/opsdesk/internal/domain"
	"github.com/medops/opsdesk/internal/escalation"
	"github.com/medops/opsdesk/internal/escalation/memory"
	"github.com/medops/opsdesk/internal/feed"
	"github.com/medops/opsdesk/internal/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu        sync.Mutex
	incidents []domain.Incident
	err       error
}

func (r *recordingNotifier) OnIncidentCreated(_ context.Context, incident domain.Incident, _ domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.incidents = append(r.incidents, incident)
	return r.err
}

func newTestService(t *testing.T, opts ...escalation.Option) (*escalation.Service, *memory.Repository) {
	t.Helper()
	repo := memory.NewRepository(memory.Config{})
	t.Cleanup(repo.Close)

	opts = append([]escalation.Option{escalation.WithClock(func() time.Time { return fixedNow })}, opts...)
	return escalation.NewService(repo, escalation.NewSequenceSeeds(0), opts...), repo
}

func addRaw(t *testing.T, repo *memory.Repository, id string, priority domain.Priority) {
	t.Helper()
	require.NoError(t, repo.AddNotification(context.Background(), domain.Notification{
		ID:        id,
		Priority:  priority,
		Title:     "notif " + id,
		Lifecycle: domain.LifecycleNew,
	}))
}

func TestService_RunEscalation_Batch(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	addRaw(t, repo, "k1", domain.PriorityKritis)
	addRaw(t, repo, "k2", domain.PriorityKritis)
	addRaw(t, repo, "t1", domain.PriorityTinggi)
	addRaw(t, repo, "s1", domain.PrioritySedang)
	addRaw(t, repo, "r1", domain.PriorityRendah)

	created, err := svc.RunEscalation(ctx)
	require.NoError(t, err)
	assert.Len(t, created, 3)

	again, err := svc.RunEscalation(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)

	incidents, err := svc.ListIncidents(ctx, nil)
	require.NoError(t, err)
	require.Len(t, incidents, 3)

	sources := make(map[string]bool)
	for _, inc := range incidents {
		assert.False(t, sources[inc.SourceNotificationID], "duplicate incident for %s", inc.SourceNotificationID)
		sources[inc.SourceNotificationID] = true
		assert.Equal(t, fixedNow, inc.CreatedAt)
	}
	assert.False(t, sources["s1"])
	assert.False(t, sources["r1"])

	board, err := svc.ListTaskColumns(ctx)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, domain.TaskColumnNew, board[0].Column)
	require.Len(t, board[0].Tasks, 3)
	for i, task := range board[0].Tasks {
		assert.Equal(t, incidents[i].ID, task.LinkedIncidentID)
	}
}

func TestService_RunEscalation_BatchOrderAtHead(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	addRaw(t, repo, "old", domain.PriorityKritis)
	_, err := svc.RunEscalation(ctx)
	require.NoError(t, err)

	addRaw(t, repo, "a", domain.PriorityTinggi)
	addRaw(t, repo, "b", domain.PriorityKritis)
	created, err := svc.RunEscalation(ctx)
	require.NoError(t, err)
	require.Len(t, created, 2)

	incidents, err := svc.ListIncidents(ctx, nil)
	require.NoError(t, err)
	require.Len(t, incidents, 3)
	// notification list is newest first, so b is evaluated before a
	assert.Equal(t, "b", incidents[0].SourceNotificationID)
	assert.Equal(t, "a", incidents[1].SourceNotificationID)
	assert.Equal(t, "old", incidents[2].SourceNotificationID)
}

func TestService_RunEscalation_DistinctIDs(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	for _, id := range []string{"a", "b", "c", "d"} {
		addRaw(t, repo, id, domain.PriorityKritis)
	}

	created, err := svc.RunEscalation(ctx)
	require.NoError(t, err)

	incidentIDs := make(map[string]bool)
	taskIDs := make(map[string]bool)
	for _, e := range created {
		assert.False(t, incidentIDs[e.Incident.ID])
		assert.False(t, taskIDs[e.Task.ID])
		incidentIDs[e.Incident.ID] = true
		taskIDs[e.Task.ID] = true
	}
	assert.Len(t, incidentIDs, 4)
}

func TestService_RunEscalation_Concurrent(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	for _, id := range []string{"a", "b", "c"} {
		addRaw(t, repo, id, domain.PriorityTinggi)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RunEscalation(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	incidents, err := svc.ListIncidents(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, incidents, 3)
}

func TestService_RunEscalation_IgnoresLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	addRaw(t, repo, "k1", domain.PriorityKritis)
	_, err := svc.UpdateNotificationLifecycle(ctx, "k1", domain.LifecycleResolved)
	require.NoError(t, err)

	created, err := svc.RunEscalation(ctx)
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

func TestService_Ingest(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	svc, _ := newTestService(t, escalation.WithNotifier(notifier))

	res, err := svc.Ingest(ctx, escalation.IngestInput{
		Priority: domain.PriorityKritis,
		Title:    "Kebutuhan Darah Segera",
		Location: "RS Sardjito",
	})
	require.NoError(t, err)

	assert.Equal(t, "NTF-1", res.Notification.ID)
	assert.Equal(t, "Baru saja", res.Notification.Time)
	assert.Equal(t, domain.LifecycleNew, res.Notification.Lifecycle)
	require.Len(t, res.Escalations, 1)
	assert.Equal(t, "INC-2", res.Escalations[0].Incident.ID)
	assert.Equal(t, "TI-2", res.Escalations[0].Task.ID)
	assert.Equal(t, 60, res.Escalations[0].Incident.SLAMinutes)

	require.Len(t, notifier.incidents, 1)
	assert.Equal(t, "INC-2", notifier.incidents[0].ID)

	low, err := svc.Ingest(ctx, escalation.IngestInput{Priority: domain.PriorityRendah, Title: "Info"})
	require.NoError(t, err)
	assert.Empty(t, low.Escalations)
	assert.Len(t, notifier.incidents, 1)
}

func TestService_Ingest_NotifierErrorDoesNotFail(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("paging down")}
	svc, _ := newTestService(t, escalation.WithNotifier(notifier))

	res, err := svc.Ingest(context.Background(), escalation.IngestInput{Priority: domain.PriorityTinggi, Title: "x"})
	require.NoError(t, err)
	assert.Len(t, res.Escalations, 1)
}

func TestService_Ingest_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name  string
		input escalation.IngestInput
		err   error
	}{
		{"missing title", escalation.IngestInput{Priority: domain.PriorityKritis}, escalation.ErrTitleRequired},
		{"bad priority", escalation.IngestInput{Priority: "Darurat", Title: "x"}, escalation.ErrInvalidPriority},
		{"bad category", escalation.IngestInput{Priority: domain.PriorityRendah, Title: "x", Category: "Keuangan"}, escalation.ErrInvalidCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Ingest(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestService_ListNotifications_CriticalOnly(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	addRaw(t, repo, "k1", domain.PriorityKritis)
	addRaw(t, repo, "t1", domain.PriorityTinggi)
	addRaw(t, repo, "s1", domain.PrioritySedang)
	_, err := svc.UpdateNotificationLifecycle(ctx, "t1", domain.LifecycleResolved)
	require.NoError(t, err)

	all, err := svc.ListNotifications(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	critical, err := svc.ListNotifications(ctx, true)
	require.NoError(t, err)
	require.Len(t, critical, 1)
	assert.Equal(t, "k1", critical[0].ID)
}

func TestService_UpdateNotificationLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	addRaw(t, repo, "n1", domain.PriorityRendah)

	n, err := svc.UpdateNotificationLifecycle(ctx, "n1", domain.LifecycleEscalated)
	require.NoError(t, err)
	assert.Equal(t, domain.LifecycleEscalated, n.Lifecycle)

	n, err = svc.UpdateNotificationLifecycle(ctx, "n1", domain.LifecycleAcknowledged)
	assert.ErrorIs(t, err, escalation.ErrIllegalTransition)
	assert.Equal(t, domain.LifecycleEscalated, n.Lifecycle)

	_, err = svc.UpdateNotificationLifecycle(ctx, "n1", "archived")
	assert.ErrorIs(t, err, escalation.ErrInvalidLifecycle)

	_, err = svc.UpdateNotificationLifecycle(ctx, "missing", domain.LifecycleResolved)
	assert.ErrorIs(t, err, escalation.ErrNotificationNotFound)
}

func TestService_QuickAction(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	res, err := svc.Ingest(ctx, escalation.IngestInput{
		Priority:    domain.PrioritySedang,
		Title:       "Stok masker menipis di gudang",
		ActionLabel: "Pesan ulang stok",
	})
	require.NoError(t, err)

	qa, err := svc.QuickAction(ctx, res.Notification.ID)
	require.NoError(t, err)
	assert.True(t, qa.Routed)
	assert.Equal(t, domain.ModuleLogistics, qa.Target)
	assert.Equal(t, domain.LifecycleAcknowledged, qa.Notification.Lifecycle)
	assert.Equal(t, "Aksi dijalankan: Pesan ulang stok → Logistik & Stok", qa.Message)
}

func TestService_QuickAction_ResolvedKeepsState(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	addRaw(t, repo, "n1", domain.PriorityRendah)

	_, err := svc.UpdateNotificationLifecycle(ctx, "n1", domain.LifecycleResolved)
	require.NoError(t, err)

	qa, err := svc.QuickAction(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, domain.LifecycleResolved, qa.Notification.Lifecycle)
	assert.False(t, qa.Routed)
	assert.Equal(t, "Aksi dijalankan: Tindak cepat", qa.Message)

	_, err = svc.QuickAction(ctx, "missing")
	assert.ErrorIs(t, err, escalation.ErrNotificationNotFound)
}

func TestService_IncidentStatusAndSummary(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	addRaw(t, repo, "k1", domain.PriorityKritis)
	addRaw(t, repo, "t1", domain.PriorityTinggi)

	created, err := svc.RunEscalation(ctx)
	require.NoError(t, err)
	require.Len(t, created, 2)
	id := created[0].Incident.ID

	inc, err := svc.UpdateIncidentStatus(ctx, id, domain.IncidentStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusClosed, inc.Status)

	// incident statuses are not ordered
	inc, err = svc.UpdateIncidentStatus(ctx, id, domain.IncidentStatusOpen)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusOpen, inc.Status)

	_, err = svc.UpdateIncidentStatus(ctx, id, "paused")
	assert.ErrorIs(t, err, escalation.ErrInvalidIncidentStatus)

	_, err = svc.UpdateIncidentStatus(ctx, "INC-missing", domain.IncidentStatusTriage)
	assert.ErrorIs(t, err, escalation.ErrIncidentNotFound)

	_, err = svc.UpdateIncidentStatus(ctx, created[1].Incident.ID, domain.IncidentStatusTriage)
	require.NoError(t, err)

	summary, err := svc.IncidentSummary(ctx)
	require.NoError(t, err)
	assert.Len(t, summary, len(domain.IncidentStatuses))
	assert.Equal(t, 1, summary[domain.IncidentStatusOpen])
	assert.Equal(t, 1, summary[domain.IncidentStatusTriage])
	assert.Equal(t, 0, summary[domain.IncidentStatusResolved])

	kritis := domain.PriorityKritis
	filtered, err := svc.ListIncidents(ctx, &kritis)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, domain.PriorityKritis, filtered[0].Severity)
}

func TestService_IncidentCountdown(t *testing.T) {
	ctx := context.Background()
	now := fixedNow
	svc, repo := newTestService(t, escalation.WithClock(func() time.Time { return now }))
	addRaw(t, repo, "k1", domain.PriorityKritis)

	created, err := svc.RunEscalation(ctx)
	require.NoError(t, err)
	require.Len(t, created, 1)

	now = fixedNow.Add(90 * time.Minute)
	c, err := svc.IncidentCountdown(ctx, created[0].Incident.ID)
	require.NoError(t, err)
	assert.True(t, c.Overdue)
	assert.Equal(t, 0, c.Hours)
	assert.Equal(t, 30, c.Minutes)
	assert.Equal(t, "Terlambat 0j 30m", c.Text())
}

func TestService_ClosedStore(t *testing.T) {
	svc, repo := newTestService(t)
	repo.Close()

	_, err := svc.RunEscalation(context.Background())
	assert.ErrorIs(t, err, escalation.ErrStoreClosed)

	_, err = svc.ListNotifications(context.Background(), false)
	assert.ErrorIs(t, err, escalation.ErrStoreClosed)
}

func TestService_Ingest_ReportsOnlyOwnEscalation(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)
	// stored but not yet escalated, as when another ingest is mid-flight
	addRaw(t, repo, "other", domain.PriorityKritis)

	res, err := svc.Ingest(ctx, escalation.IngestInput{Priority: domain.PriorityKritis, Title: "Kebutuhan Darah Segera"})
	require.NoError(t, err)

	require.Len(t, res.Escalations, 1)
	assert.Equal(t, res.Notification.ID, res.Escalations[0].Incident.SourceNotificationID)

	incidents, err := svc.ListIncidents(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, incidents, 2, "the run still escalates every eligible notification")
}

func TestService_StockAlertIncidentRoutesLikeNotification(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	prev := feed.StockItem{ID: "AK-002", Name: "Oksigen Portabel", Unit: "unit", Stock: 40, Threshold: 30, Status: feed.StockPerluPerhatian}
	next := prev
	next.Stock = 25
	next.Status = feed.StockKritis
	input, ok := feed.StockAlert(prev, next)
	require.True(t, ok)

	res, err := svc.Ingest(ctx, input)
	require.NoError(t, err)
	require.Len(t, res.Escalations, 1)

	notificationTarget, routed, err := svc.RouteNotification(ctx, res.Notification.ID)
	require.NoError(t, err)
	require.True(t, routed)

	action, err := svc.QuickAction(ctx, res.Notification.ID)
	require.NoError(t, err)

	incident, err := svc.GetIncident(ctx, res.Escalations[0].Incident.ID)
	require.NoError(t, err)
	incidentTarget, routed := routing.ForIncident(incident)
	require.True(t, routed)

	assert.Equal(t, domain.ModuleLogistics, notificationTarget)
	assert.Equal(t, notificationTarget, action.Target)
	assert.Equal(t, notificationTarget, incidentTarget)
}
