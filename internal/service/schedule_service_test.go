package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/training-crm-console/internal/models"
	"github.com/noah-isme/training-crm-console/internal/repository"
	appErrors "github.com/noah-isme/training-crm-console/pkg/errors"
)

func TestWeekStart(t *testing.T) {
	for raw, want := range map[string]string{
		"2024-06-03": "2024-06-03",
		"2024-06-05": "2024-06-03",
		"2024-06-09": "2024-06-03",
		"2024-06-10": "2024-06-10",
	} {
		day, err := models.ParseDate(raw)
		require.NoError(t, err)
		assert.Equal(t, want, WeekStart(day).Format(models.DateLayout), raw)
	}
}

func TestWeeklySchedulesCachedUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	up := newFakeUpstream()
	up.week = []models.TimetableSlot{{ID: "slot-1", CoachID: "c-1", Date: "2024-06-05", StartTime: "10:00", EndTime: "11:00"}}
	cache := NewCacheService(repository.NewMemoryCacheRepository(), nil, time.Minute, nil, true)
	svc := NewScheduleService(up, cache, 30*time.Second, 5*time.Minute, nil)

	week, hit, err := svc.WeeklySchedules(ctx, "2024-06-05")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "2024-06-03", week.WeekStart)
	require.Len(t, week.Slots, 1)

	_, hit, err = svc.WeeklySchedules(ctx, "2024-06-07")
	require.NoError(t, err)
	assert.True(t, hit, "same week shares a key")
	assert.Equal(t, 1, up.callCount("WeekSchedules"))

	day, _ := models.ParseDate("2024-06-06")
	svc.InvalidateWeek(ctx, day)
	_, hit, err = svc.WeeklySchedules(ctx, "2024-06-05")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, up.callCount("WeekSchedules"))

	_, _, err = svc.WeeklySchedules(ctx, "June 5th")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestWeeklyTemplatesAndInvalidateAll(t *testing.T) {
	ctx := context.Background()
	up := newFakeUpstream()
	up.templates = []models.WeeklyTemplate{{ID: "tpl-1", CoachID: "c-1", DayOfWeek: 2, StartTime: "18:00", EndTime: "19:00"}}
	cache := NewCacheService(repository.NewMemoryCacheRepository(), nil, time.Minute, nil, true)
	svc := NewScheduleService(up, cache, 30*time.Second, 5*time.Minute, nil)

	templates, hit, err := svc.WeeklyTemplates(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, templates, 1)

	_, hit, err = svc.WeeklyTemplates(ctx)
	require.NoError(t, err)
	assert.True(t, hit)

	require.NoError(t, svc.InvalidateAll(ctx))
	_, hit, err = svc.WeeklyTemplates(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, up.callCount("WeeklyTemplates"))
}
