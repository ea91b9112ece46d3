package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/models"
	appErrors "github.com/noah-isme/training-crm-console/pkg/errors"
)

const availabilityFailedNotice = "查询可用教练失败，请稍后重试"

type coachAvailabilityReader interface {
	AvailableCoaches(ctx context.Context, date, startTime, endTime string) ([]models.Coach, error)
}

// TrialScheduleResolver decides whether a trial slot differs from the last persisted booking
// and looks up free coaches for modified slots.
type TrialScheduleResolver struct {
	upstream coachAvailabilityReader
	logger   *zap.Logger
}

// NewTrialScheduleResolver constructs a resolver.
func NewTrialScheduleResolver(upstream coachAvailabilityReader, logger *zap.Logger) *TrialScheduleResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrialScheduleResolver{upstream: upstream, logger: logger}
}

// IsModified reports whether the candidate slot differs from original. A missing original
// always counts as modified; otherwise the calendar day and both endpoints must match.
func IsModified(candidateDate time.Time, candidate models.TimeRange, original *models.TrialBooking) bool {
	if original == nil {
		return true
	}
	if !models.SameDay(candidateDate, original.Date) {
		return true
	}
	return !candidate.Equal(original.Range)
}

// FetchAvailableCoaches queries coaches free during [start, end) on date. Upstream failures
// yield an empty, queried result carrying a notice; only an expired session is returned as an error.
func (r *TrialScheduleResolver) FetchAvailableCoaches(ctx context.Context, date time.Time, tr models.TimeRange) (dto.CoachAvailability, error) {
	if date.IsZero() {
		return dto.CoachAvailability{}, appErrors.FieldError("trialScheduleDate", "请选择体验日期")
	}
	if !tr.Valid() {
		return dto.CoachAvailability{}, appErrors.FieldError("trialTime", "请选择有效的体验时间段")
	}

	coaches, err := r.upstream.AvailableCoaches(ctx, date.Format(models.DateLayout), tr.Start.String(), tr.End.String())
	if err != nil {
		if errors.Is(err, appErrors.ErrSessionExpired) {
			return dto.CoachAvailability{}, err
		}
		r.logger.Warn("available coach lookup failed",
			zap.String("date", date.Format(models.DateLayout)),
			zap.String("start", tr.Start.String()),
			zap.String("end", tr.End.String()),
			zap.Error(err),
		)
		return dto.CoachAvailability{Queried: true, Coaches: []models.Coach{}, Notice: availabilityFailedNotice}, nil
	}
	if coaches == nil {
		coaches = []models.Coach{}
	}
	return dto.CoachAvailability{Queried: true, Coaches: coaches}, nil
}

// TrialSelection is the trial part of one status change form. It issues availability
// queries only when the slot is modified and complete.
type TrialSelection struct {
	resolver *TrialScheduleResolver
	original *models.TrialBooking

	date     *time.Time
	timeSpan *models.TimeRange
	modified bool

	availability  dto.CoachAvailability
	selectedCoach string
	queries       int
	// offline selections track Modified without looking up coaches.
	offline bool
}

// NewSelection starts a form session pre-filled from the original booking, if any.
func (r *TrialScheduleResolver) NewSelection(original *models.TrialBooking) *TrialSelection {
	sel := &TrialSelection{resolver: r, original: original, modified: true}
	if original != nil {
		date := original.Date
		span := original.Range
		sel.date = &date
		sel.timeSpan = &span
		sel.modified = false
	}
	return sel
}

// SetDate changes the date and reports whether an availability query was issued.
func (s *TrialSelection) SetDate(ctx context.Context, date time.Time) (bool, error) {
	return s.reconcile(ctx, s.applyDate(date))
}

// SetTimeRange changes the time range and reports whether an availability query was issued.
// A nil range clears it.
func (s *TrialSelection) SetTimeRange(ctx context.Context, tr *models.TimeRange) (bool, error) {
	return s.reconcile(ctx, s.applyTimeRange(tr))
}

// SetSlot changes date and time range together and reconciles once, so a form that edits
// both issues at most one availability query. A nil date leaves the date untouched; use
// SetTimeRange to clear the range.
func (s *TrialSelection) SetSlot(ctx context.Context, date *time.Time, tr *models.TimeRange) (bool, error) {
	var changed bool
	if date != nil {
		changed = s.applyDate(*date)
	}
	if tr != nil {
		changed = s.applyTimeRange(tr) || changed
	}
	return s.reconcile(ctx, changed)
}

func (s *TrialSelection) applyDate(date time.Time) bool {
	changed := s.date == nil || !models.SameDay(*s.date, date)
	s.date = &date
	return changed
}

func (s *TrialSelection) applyTimeRange(tr *models.TimeRange) bool {
	if tr == nil {
		changed := s.timeSpan != nil
		s.timeSpan = nil
		return changed
	}
	changed := s.timeSpan == nil || !s.timeSpan.Equal(*tr)
	span := *tr
	s.timeSpan = &span
	return changed
}

func (s *TrialSelection) complete() bool {
	return s.date != nil && s.timeSpan != nil && s.timeSpan.Valid()
}

func (s *TrialSelection) reconcile(ctx context.Context, changed bool) (bool, error) {
	wasModified := s.modified
	if s.complete() {
		s.modified = IsModified(*s.date, *s.timeSpan, s.original)
	} else {
		s.modified = true
	}

	if !s.modified {
		s.availability = dto.CoachAvailability{}
		s.selectedCoach = ""
		return false, nil
	}
	if s.offline || !s.complete() || (wasModified && !changed) {
		return false, nil
	}

	availability, err := s.resolver.FetchAvailableCoaches(ctx, *s.date, *s.timeSpan)
	if err != nil {
		return false, err
	}
	s.queries++
	s.availability = availability
	if s.selectedCoach != "" && !containsCoach(availability.Coaches, s.selectedCoach) {
		s.selectedCoach = ""
	}
	return true, nil
}

// SelectCoach picks a coach from the latest availability result.
func (s *TrialSelection) SelectCoach(coachID string) error {
	if s.CoachLocked() {
		return appErrors.Clone(appErrors.ErrConflict, "教练已固定，未修改体验时间时不能更换")
	}
	if !containsCoach(s.availability.Coaches, coachID) {
		return appErrors.FieldError("trialCoachId", "所选教练在该时间段不可用")
	}
	s.selectedCoach = coachID
	return nil
}

// Modified reports whether the slot differs from the original booking.
func (s *TrialSelection) Modified() bool {
	return s.modified
}

// CoachLocked reports whether the original coach is reused read-only.
func (s *TrialSelection) CoachLocked() bool {
	return !s.offline && !s.modified && s.original != nil && s.original.CoachID != ""
}

// EffectiveCoachID returns the coach a submission would carry, or "" when none is known.
func (s *TrialSelection) EffectiveCoachID() string {
	if s.CoachLocked() {
		return s.original.CoachID
	}
	if s.modified {
		return s.selectedCoach
	}
	return ""
}

// Availability returns the latest query result.
func (s *TrialSelection) Availability() dto.CoachAvailability {
	return s.availability
}

// Queries counts availability lookups issued by this selection.
func (s *TrialSelection) Queries() int {
	return s.queries
}

// Evaluation renders the selection for the console.
func (s *TrialSelection) Evaluation() dto.TrialSelectionEvaluation {
	eval := dto.TrialSelectionEvaluation{
		Modified:     s.modified,
		CoachLocked:  s.CoachLocked(),
		Original:     s.original,
		Availability: s.availability,
	}
	if eval.CoachLocked {
		eval.CoachID = s.original.CoachID
		eval.CoachName = s.original.CoachName
	}
	if s.offline && s.original != nil {
		original := *s.original
		original.CoachID, original.CoachName = "", ""
		eval.Original = &original
	}
	if eval.Availability.Coaches == nil {
		eval.Availability.Coaches = []models.Coach{}
	}
	return eval
}

func containsCoach(coaches []models.Coach, id string) bool {
	for _, c := range coaches {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Evaluate replays a candidate slot against the customer's history and reports how the
// console should render the coach control. Empty fields leave the original value in place.
// Without canSchedule only Modified is computed: no coaches are looked up or revealed.
func (r *TrialScheduleResolver) Evaluate(ctx context.Context, history []models.StatusHistoryEntry, q dto.TrialSelectionQuery, canSchedule bool) (dto.TrialSelectionEvaluation, error) {
	sel := r.NewSelection(models.LatestTrialBooking(history))
	sel.offline = !canSchedule

	var date *time.Time
	if strings.TrimSpace(q.Date) != "" {
		parsed, err := models.ParseDate(q.Date)
		if err != nil {
			return dto.TrialSelectionEvaluation{}, appErrors.FieldError("date", "体验日期格式不正确")
		}
		date = &parsed
	}

	var span *models.TimeRange
	if strings.TrimSpace(q.StartTime) != "" || strings.TrimSpace(q.EndTime) != "" {
		parsed, err := models.ParseTimeRange(q.StartTime, q.EndTime)
		if err != nil || !parsed.Valid() {
			return dto.TrialSelectionEvaluation{}, appErrors.FieldError("trialTime", "请选择有效的体验时间段")
		}
		span = &parsed
	}

	if date != nil || span != nil {
		if _, err := sel.SetSlot(ctx, date, span); err != nil {
			return dto.TrialSelectionEvaluation{}, err
		}
	}
	return sel.Evaluation(), nil
}
