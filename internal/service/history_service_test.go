package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/models"
	"github.com/noah-isme/training-crm-console/internal/repository"
	appErrors "github.com/noah-isme/training-crm-console/pkg/errors"
	"github.com/noah-isme/training-crm-console/pkg/jobs"
	"github.com/noah-isme/training-crm-console/pkg/upstream"
)

type recordingDispatcher struct {
	jobs []jobs.Job
}

func (d *recordingDispatcher) Enqueue(job jobs.Job) error {
	d.jobs = append(d.jobs, job)
	return nil
}

type recordingInvalidator struct {
	days []time.Time
}

func (r *recordingInvalidator) InvalidateWeek(ctx context.Context, day time.Time) {
	r.days = append(r.days, day)
}

func trialEntry(id string, status models.CustomerStatus) models.StatusHistoryEntry {
	return models.StatusHistoryEntry{
		ID:                id,
		ToStatus:          status,
		TrialScheduleDate: strPtr("2024-06-05"),
		TrialStartTime:    strPtr("10:00"),
		TrialEndTime:      strPtr("10:30"),
		TrialCoachID:      strPtr("c-1"),
		TrialStudentName:  strPtr("Xiaoming"),
	}
}

func newHistoryFixture() (*HistoryLedgerService, *fakeUpstream, *recordingDispatcher, *recordingInvalidator) {
	up := newFakeUpstream()
	queue := &recordingDispatcher{}
	weeks := &recordingInvalidator{}
	svc := NewHistoryLedgerService(up, repository.NewHistoryProjection(), queue, weeks, nil, nil)
	return svc, up, queue, weeks
}

func TestDeriveStatus(t *testing.T) {
	assert.Equal(t, models.StatusUnknown, DeriveStatus(nil))

	history := []models.StatusHistoryEntry{
		{ID: "e1", ToStatus: models.StatusNew, CreatedAt: fakeEpoch},
		{ID: "e3", ToStatus: models.StatusSold, CreatedAt: fakeEpoch.Add(2 * time.Hour)},
		{ID: "e2", ToStatus: models.StatusVisited, CreatedAt: fakeEpoch.Add(time.Hour)},
	}
	assert.Equal(t, models.StatusSold, DeriveStatus(history))
}

func TestDeleteRederivesStatus(t *testing.T) {
	ctx := context.Background()
	svc, up, _, _ := newHistoryFixture()
	up.seedHistory("cus-1",
		models.StatusHistoryEntry{ID: "e1", ToStatus: models.StatusNew},
		models.StatusHistoryEntry{ID: "e2", ToStatus: models.StatusVisited},
		models.StatusHistoryEntry{ID: "e3", ToStatus: models.StatusSold},
	)

	view, err := svc.List(ctx, "cus-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSold, view.CurrentStatus)
	assert.Equal(t, "e3", view.Entries[0].ID)

	view, err = svc.Delete(ctx, "cus-1", "e3")
	require.NoError(t, err)
	assert.Equal(t, models.StatusVisited, view.CurrentStatus)

	_, err = svc.Delete(ctx, "cus-1", "e2")
	require.NoError(t, err)
	view, err = svc.Delete(ctx, "cus-1", "e1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnknown, view.CurrentStatus)
	assert.Empty(t, view.Entries)
}

func TestDeleteFallsBackToProjectionWhenRefetchFails(t *testing.T) {
	ctx := context.Background()
	svc, up, _, _ := newHistoryFixture()
	up.seedHistory("cus-1",
		models.StatusHistoryEntry{ID: "e1", ToStatus: models.StatusNew},
		models.StatusHistoryEntry{ID: "e2", ToStatus: models.StatusSold},
	)
	_, err := svc.List(ctx, "cus-1")
	require.NoError(t, err)

	up.historyErr = appErrors.Clone(appErrors.ErrUpstream, "unavailable")
	view, err := svc.Delete(ctx, "cus-1", "e2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, view.CurrentStatus)
}

func TestCancelAndCompleteAreExclusive(t *testing.T) {
	ctx := upstream.WithToken(context.Background(), "token-1")
	svc, up, queue, weeks := newHistoryFixture()
	up.seedHistory("cus-1", trialEntry("e1", models.StatusScheduled), trialEntry("e2", models.StatusReExperience))

	cancelled, err := svc.CancelTrial(ctx, "cus-1", "e1")
	require.NoError(t, err)
	assert.True(t, cancelled.TrialCancelled)
	_, err = svc.CompleteTrial(ctx, "cus-1", "e1")
	assert.ErrorIs(t, err, appErrors.ErrTrialTerminal)
	_, err = svc.CancelTrial(ctx, "cus-1", "e1")
	assert.ErrorIs(t, err, appErrors.ErrTrialTerminal)

	completed, err := svc.CompleteTrial(ctx, "cus-1", "e2")
	require.NoError(t, err)
	assert.True(t, completed.TrialCompleted)
	_, err = svc.CancelTrial(ctx, "cus-1", "e2")
	assert.ErrorIs(t, err, appErrors.ErrTrialTerminal)

	assert.Equal(t, 1, up.callCount("CancelTrial"))
	assert.Equal(t, 1, up.callCount("CompleteTrial"))

	require.Len(t, queue.jobs, 2)
	payload, ok := queue.jobs[0].Payload.(LedgerRefreshPayload)
	require.True(t, ok)
	assert.Equal(t, "cus-1", payload.CustomerID)
	assert.Equal(t, "token-1", payload.Token)
	assert.Len(t, weeks.days, 1, "only cancellation frees a timetable slot")

	view, err := svc.List(ctx, "cus-1")
	require.NoError(t, err)
	for _, row := range view.Entries {
		assert.False(t, row.CanCancelTrial)
		assert.False(t, row.CanCompleteTrial)
		assert.False(t, row.CanEditTrial)
	}
}

func TestUpdateTrialTimeRejectsTerminalTrials(t *testing.T) {
	ctx := context.Background()
	svc, up, _, weeks := newHistoryFixture()
	up.seedHistory("cus-1", trialEntry("e1", models.StatusScheduled))

	updated, err := svc.UpdateTrialTime(ctx, "cus-1", "e1", dto.UpdateTrialRequest{Date: "2024-06-12", StartTime: "14:00", EndTime: "15:00"})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-12", *updated.TrialScheduleDate)
	assert.Equal(t, "14:00", *updated.TrialStartTime)
	assert.Len(t, weeks.days, 2, "old and new weeks are invalidated")

	_, err = svc.UpdateTrialTime(ctx, "cus-1", "e1", dto.UpdateTrialRequest{Date: "2024-06-12", StartTime: "15:00", EndTime: "14:00"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.CompleteTrial(ctx, "cus-1", "e1")
	require.NoError(t, err)
	_, err = svc.UpdateTrialTime(ctx, "cus-1", "e1", dto.UpdateTrialRequest{Date: "2024-06-13", StartTime: "14:00", EndTime: "15:00"})
	assert.ErrorIs(t, err, appErrors.ErrTrialTerminal)
	assert.Equal(t, 1, up.callCount("UpdateHistoryTrial"))
}

func TestUpdateNotes(t *testing.T) {
	ctx := context.Background()
	svc, up, _, _ := newHistoryFixture()
	up.seedHistory("cus-1", models.StatusHistoryEntry{ID: "e1", ToStatus: models.StatusContacted})

	entry, err := svc.UpdateNotes(ctx, "cus-1", "e1", dto.UpdateNotesRequest{Notes: "prefers weekends"})
	require.NoError(t, err)
	assert.Equal(t, "prefers weekends", entry.Notes)

	_, err = svc.UpdateNotes(ctx, "cus-1", "missing", dto.UpdateNotesRequest{Notes: "x"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.UpdateNotes(ctx, "cus-1", "e1", dto.UpdateNotesRequest{Notes: strings.Repeat("x", 2001)})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestLedgerRefreshWorker(t *testing.T) {
	up := newFakeUpstream()
	projection := repository.NewHistoryProjection()
	up.seedHistory("cus-1", models.StatusHistoryEntry{ID: "e1", ToStatus: models.StatusNew})
	worker := NewLedgerRefreshWorker(up, projection, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "j1", Type: JobTypeLedgerRefresh, Payload: LedgerRefreshPayload{CustomerID: "cus-1", Token: "t"}})
	require.NoError(t, err)
	entries, ok := projection.Get("cus-1")
	require.True(t, ok)
	assert.Len(t, entries, 1)

	assert.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "j2", Type: "other"}))
	assert.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "j3", Type: JobTypeLedgerRefresh, Payload: "cus-1"}))
}

func TestExportLedger(t *testing.T) {
	ctx := context.Background()
	svc, up, _, _ := newHistoryFixture()
	up.seedHistory("cus-1", models.StatusHistoryEntry{ID: "e1", ToStatus: models.StatusNew}, trialEntry("e2", models.StatusScheduled))

	csvOut, err := svc.Export(ctx, "cus-1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "status_history_cus-1.csv", csvOut.Filename)
	assert.Contains(t, string(csvOut.Body), "SCHEDULED")
	assert.Contains(t, string(csvOut.Body), "10:00-10:30")

	pdfOut, err := svc.Export(ctx, "cus-1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdfOut.ContentType)
	assert.True(t, bytes.HasPrefix(pdfOut.Body, []byte("%PDF")))

	_, err = svc.Export(ctx, "cus-1", "xlsx")
	assert.ErrorIs(t, err, appErrors.ErrUnsupportedType)
}
