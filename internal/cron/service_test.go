package cron

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/attoclaw/gateway/internal/observability"
)

func newTestService(t *testing.T, onJob OnJob) *Service {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cron.json")
	svc, err := New(path, onJob, observability.NewNop(), observability.NewMetrics())
	require.NoError(t, err)
	return svc
}

func TestService_AddJob_EverySecondsTakesPrecedenceOverCronExpr(t *testing.T) {
	svc := newTestService(t, nil)
	msg, err := svc.AddJob("ping", 60, "0 0 * * *", 0, "hi", false, "cli", "chat1")
	require.NoError(t, err)
	require.Contains(t, msg, "ping")

	require.Len(t, svc.jobs, 1)
	require.Equal(t, "every", svc.jobs[0].Schedule.Kind)
}

func TestService_AddJob_InvalidCronExprRejected(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.AddJob("bad", 0, "not a cron expr", 0, "hi", false, "cli", "chat1")
	require.Error(t, err)
}

func TestService_AddJob_RequiresASchedule(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.AddJob("nothing", 0, "", 0, "hi", false, "cli", "chat1")
	require.Error(t, err)
}

func TestService_RemoveJob(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.AddJob("ping", 60, "", 0, "hi", false, "cli", "chat1")
	require.NoError(t, err)
	id := svc.jobs[0].ID

	require.NoError(t, svc.RemoveJob(id))
	require.Empty(t, svc.jobs)
	require.Error(t, svc.RemoveJob(id))
}

func TestService_EnableJob_TogglesNextRun(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.AddJob("ping", 60, "", 0, "hi", false, "cli", "chat1")
	require.NoError(t, err)
	id := svc.jobs[0].ID

	require.NoError(t, svc.EnableJob(id, false))
	require.Zero(t, svc.jobs[0].State.NextRunAtMs)
	require.False(t, svc.jobs[0].Enabled)

	require.NoError(t, svc.EnableJob(id, true))
	require.True(t, svc.jobs[0].Enabled)
	require.NotZero(t, svc.jobs[0].State.NextRunAtMs)
}

func TestService_RunJobNow_FiresAndRearmsRecurring(t *testing.T) {
	fired := 0
	svc := newTestService(t, func(Job) error {
		fired++
		return nil
	})
	_, err := svc.AddJob("ping", 60, "", 0, "hi", false, "cli", "chat1")
	require.NoError(t, err)
	id := svc.jobs[0].ID

	require.NoError(t, svc.RunJobNow(id))
	require.Equal(t, 1, fired)
	require.Equal(t, "ok", svc.jobs[0].State.LastStatus)
	require.NotZero(t, svc.jobs[0].State.NextRunAtMs)
}

func TestService_RunJobNow_AtJobDisablesUnlessDeleteAfterRun(t *testing.T) {
	svc := newTestService(t, func(Job) error { return nil })
	future := nowMs() + 3_600_000
	_, err := svc.AddJob("once", 0, "", future, "hi", false, "cli", "chat1")
	require.NoError(t, err)
	id := svc.jobs[0].ID

	require.NoError(t, svc.RunJobNow(id))
	require.False(t, svc.jobs[0].Enabled)
	require.Zero(t, svc.jobs[0].State.NextRunAtMs)
}

func TestService_ListJobsSummary_EmptyAndPopulated(t *testing.T) {
	svc := newTestService(t, nil)
	require.Equal(t, "No scheduled jobs.", svc.ListJobsSummary())

	_, err := svc.AddJob("ping", 60, "", 0, "hi", false, "cli", "chat1")
	require.NoError(t, err)
	require.Contains(t, svc.ListJobsSummary(), "ping")
}

func TestService_PersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cron.json")
	svc, err := New(path, nil, observability.NewNop(), observability.NewMetrics())
	require.NoError(t, err)
	_, err = svc.AddJob("ping", 60, "", 0, "hi", false, "cli", "chat1")
	require.NoError(t, err)

	reloaded, err := New(path, nil, observability.NewNop(), observability.NewMetrics())
	require.NoError(t, err)
	require.Len(t, reloaded.jobs, 1)
	require.Equal(t, "ping", reloaded.jobs[0].Name)
}
