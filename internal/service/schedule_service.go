package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/models"
	appErrors "github.com/noah-isme/training-crm-console/pkg/errors"
)

const (
	scheduleCachePrefix = "schedules:"
	templatesCacheKey   = scheduleCachePrefix + "templates"
)

type scheduleReader interface {
	WeekSchedules(ctx context.Context, weekStart string) ([]models.TimetableSlot, error)
	WeeklyTemplates(ctx context.Context) ([]models.WeeklyTemplate, error)
}

// ScheduleService serves this week's timetable and weekly templates through the short-TTL cache.
type ScheduleService struct {
	upstream    scheduleReader
	cache       *CacheService
	weekTTL     time.Duration
	templateTTL time.Duration
	logger      *zap.Logger
}

// NewScheduleService wires the timetable cache.
func NewScheduleService(upstream scheduleReader, cache *CacheService, weekTTL, templateTTL time.Duration, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{upstream: upstream, cache: cache, weekTTL: weekTTL, templateTTL: templateTTL, logger: logger}
}

// WeekStart returns the Monday of the week containing day.
func WeekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	y, m, d := day.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, day.Location())
}

func weekCacheKey(weekStart string) string {
	return scheduleCachePrefix + "week:" + weekStart
}

// WeeklySchedules returns the timetable of the week containing rawDate (today when empty).
func (s *ScheduleService) WeeklySchedules(ctx context.Context, rawDate string) (*dto.WeekSchedule, bool, error) {
	day := time.Now()
	if rawDate != "" {
		parsed, err := models.ParseDate(rawDate)
		if err != nil {
			return nil, false, appErrors.FieldError("start", "start must be a date (YYYY-MM-DD)")
		}
		day = parsed
	}
	weekStart := WeekStart(day).Format(models.DateLayout)

	var slots []models.TimetableSlot
	hit, err := s.cache.Get(ctx, weekCacheKey(weekStart), s.weekTTL, &slots, func(ctx context.Context) (interface{}, error) {
		return s.upstream.WeekSchedules(ctx, weekStart)
	})
	if err != nil {
		return nil, false, err
	}
	if slots == nil {
		slots = []models.TimetableSlot{}
	}
	return &dto.WeekSchedule{WeekStart: weekStart, Slots: slots}, hit, nil
}

// WeeklyTemplates returns the recurring weekly templates.
func (s *ScheduleService) WeeklyTemplates(ctx context.Context) ([]models.WeeklyTemplate, bool, error) {
	var templates []models.WeeklyTemplate
	hit, err := s.cache.Get(ctx, templatesCacheKey, s.templateTTL, &templates, func(ctx context.Context) (interface{}, error) {
		return s.upstream.WeeklyTemplates(ctx)
	})
	if err != nil {
		return nil, false, err
	}
	if templates == nil {
		templates = []models.WeeklyTemplate{}
	}
	return templates, hit, nil
}

// InvalidateWeek drops the cached timetable of the week containing day.
func (s *ScheduleService) InvalidateWeek(ctx context.Context, day time.Time) {
	key := weekCacheKey(WeekStart(day).Format(models.DateLayout))
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.logger.Warn("failed to invalidate week schedule", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateAll drops every cached timetable and template.
func (s *ScheduleService) InvalidateAll(ctx context.Context) error {
	return s.cache.InvalidatePattern(ctx, scheduleCachePrefix+"*")
}
