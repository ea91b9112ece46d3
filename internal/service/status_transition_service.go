package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/models"
	appErrors "github.com/noah-isme/training-crm-console/pkg/errors"
)

type statusGateway interface {
	ChangeStatus(ctx context.Context, customerID string, payload dto.StatusChangePayload) (*models.StatusHistoryEntry, error)
	BookTrial(ctx context.Context, payload dto.TrialBookingPayload) (*models.TimetableSlot, error)
}

type ledgerTracker interface {
	History(ctx context.Context, customerID string) ([]models.StatusHistoryEntry, error)
	Record(customerID string, entry models.StatusHistoryEntry)
	List(ctx context.Context, customerID string) (*dto.LedgerView, error)
}

type reminderUpserter interface {
	Upsert(ctx context.Context, customerID string, req dto.UpsertReminderRequest) (*models.Todo, error)
}

type statusChangeRecorder interface {
	RecordStatusChange(outcome string)
}

// StatusTransitionService executes one status change: the required history entry, then the
// best-effort trial booking and reminder.
type StatusTransitionService struct {
	upstream  statusGateway
	ledger    ledgerTracker
	reminders reminderUpserter
	schedules weekInvalidator
	metrics   statusChangeRecorder
	validator *validator.Validate
	logger    *zap.Logger
	busy      *inflightSet
}

// NewStatusTransitionService wires the status change pipeline. schedules and metrics may be nil.
func NewStatusTransitionService(upstream statusGateway, ledger ledgerTracker, reminders reminderUpserter, schedules weekInvalidator, metrics statusChangeRecorder, validate *validator.Validate, logger *zap.Logger) *StatusTransitionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusTransitionService{
		upstream:  upstream,
		ledger:    ledger,
		reminders: reminders,
		schedules: schedules,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		busy:      newInflightSet(),
	}
}

// validatedTrial is a trial input that passed the local field checks.
type validatedTrial struct {
	studentName string
	booking     models.TrialBooking
}

// Submit runs the pipeline for one customer. Validation failures and a rejected history entry
// return an error; failures of later steps are reported in the result only.
func (s *StatusTransitionService) Submit(ctx context.Context, claims *models.SessionClaims, customerID string, req dto.StatusChangeRequest) (*dto.StatusChangeResult, error) {
	trial, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	if !s.busy.acquire(customerID) {
		return nil, appErrors.Clone(appErrors.ErrSubmitInFlight, "状态变更正在提交中，请勿重复提交")
	}
	defer s.busy.release(customerID)

	capable := claims.CanSchedule()
	coachID := ""
	if trial != nil && capable {
		coachID, err = s.resolveCoach(ctx, customerID, trial, req.Trial.CoachID)
		if err != nil {
			return nil, err
		}
	}

	result := &dto.StatusChangeResult{CustomerID: customerID, Steps: make([]dto.StepResult, 0, 3)}

	entry, err := s.upstream.ChangeStatus(ctx, customerID, buildStatusPayload(req, trial, coachID))
	if err == nil && entry == nil {
		err = appErrors.Clone(appErrors.ErrUpstream, "status change response was empty")
	}
	if err != nil {
		result.Outcome = dto.OutcomeFailed
		result.Steps = append(result.Steps, failedStep(dto.StepStatusHistory, true, err))
		s.record(result.Outcome)
		s.logger.Warn("status change rejected",
			zap.String("customer_id", customerID),
			zap.String("to_status", string(req.TargetStatus)),
			zap.Error(err),
		)
		return result, err
	}
	s.ledger.Record(customerID, *entry)
	result.Entry = entry
	result.NewStatus = entry.ToStatus
	if result.NewStatus == models.StatusUnknown {
		result.NewStatus = req.TargetStatus
	}
	result.LatestNotes = req.Notes
	result.Steps = append(result.Steps, dto.StepResult{Step: dto.StepStatusHistory, Required: true, State: dto.StepSucceeded})

	result.Steps = append(result.Steps, s.bookTrial(ctx, result, customerID, entry.ID, trial, capable, coachID))
	result.Steps = append(result.Steps, s.upsertReminder(ctx, result, customerID, req.Reminder))

	result.Outcome = dto.OutcomeCompleted
	for _, step := range result.Steps {
		if step.State == dto.StepFailed {
			result.Outcome = dto.OutcomePartial
			break
		}
	}

	if view, err := s.ledger.List(ctx, customerID); err != nil {
		s.logger.Warn("ledger refresh after status change failed", zap.String("customer_id", customerID), zap.Error(err))
	} else {
		result.Ledger = view
	}

	s.record(result.Outcome)
	s.logger.Info("status changed",
		zap.String("customer_id", customerID),
		zap.String("to_status", string(result.NewStatus)),
		zap.String("outcome", string(result.Outcome)),
		zap.String("operator", operatorID(claims)),
	)
	return result, nil
}

func (s *StatusTransitionService) validate(req dto.StatusChangeRequest) (*validatedTrial, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "请选择目标状态，备注不超过2000字")
	}
	if !req.TargetStatus.Valid() {
		return nil, appErrors.FieldError("toStatus", "未知的客户状态")
	}
	if !req.TargetStatus.IsTrialPending() {
		return nil, nil
	}
	if req.Trial == nil {
		return nil, appErrors.FieldError("trialStudentName", "请填写体验学员姓名")
	}
	name := strings.TrimSpace(req.Trial.StudentName)
	if name == "" {
		return nil, appErrors.FieldError("trialStudentName", "请填写体验学员姓名")
	}
	if strings.TrimSpace(req.Trial.Date) == "" {
		return nil, appErrors.FieldError("trialScheduleDate", "请选择体验日期")
	}
	date, err := models.ParseDate(req.Trial.Date)
	if err != nil {
		return nil, appErrors.FieldError("trialScheduleDate", "体验日期格式不正确")
	}
	span, err := models.ParseTimeRange(req.Trial.StartTime, req.Trial.EndTime)
	if err != nil || !span.Valid() {
		return nil, appErrors.FieldError("trialTime", "请选择完整的体验时间段，且开始时间早于结束时间")
	}
	return &validatedTrial{
		studentName: name,
		booking:     models.TrialBooking{Date: date, Range: span, StudentName: name},
	}, nil
}

// resolveCoach returns the coach to submit for a scheduling-capable caller: the original coach
// when the slot is unchanged, otherwise the caller's selection, which is then mandatory.
func (s *StatusTransitionService) resolveCoach(ctx context.Context, customerID string, trial *validatedTrial, selected string) (string, error) {
	history, err := s.ledger.History(ctx, customerID)
	if err != nil {
		return "", err
	}
	original := models.LatestTrialBooking(history)
	selected = strings.TrimSpace(selected)

	if !IsModified(trial.booking.Date, trial.booking.Range, original) {
		if original.CoachID != "" {
			return original.CoachID, nil
		}
		return selected, nil
	}
	if selected == "" {
		return "", appErrors.FieldError("trialCoachId", "体验时间已修改，请选择教练")
	}
	return selected, nil
}

func buildStatusPayload(req dto.StatusChangeRequest, trial *validatedTrial, coachID string) dto.StatusChangePayload {
	payload := dto.StatusChangePayload{ToStatus: req.TargetStatus, Notes: req.Notes}
	if trial == nil {
		return payload
	}
	date := trial.booking.Date.Format(models.DateLayout)
	start := trial.booking.Range.Start.String()
	end := trial.booking.Range.End.String()
	name := trial.studentName
	payload.TrialScheduleDate = &date
	payload.TrialStartTime = &start
	payload.TrialEndTime = &end
	payload.TrialStudentName = &name
	if coachID != "" {
		coach := coachID
		payload.TrialCoachID = &coach
	}
	return payload
}

func (s *StatusTransitionService) bookTrial(ctx context.Context, result *dto.StatusChangeResult, customerID, historyID string, trial *validatedTrial, capable bool, coachID string) dto.StepResult {
	step := dto.StepResult{Step: dto.StepTrialBooking, State: dto.StepSkipped}
	switch {
	case trial == nil:
		step.Message = "status carries no trial"
		return step
	case !capable:
		step.Message = "caller cannot schedule coaches"
		return step
	case coachID == "":
		step.Message = "no coach selected"
		return step
	}

	slot, err := s.upstream.BookTrial(ctx, dto.TrialBookingPayload{
		CoachID:     coachID,
		StudentName: trial.studentName,
		Date:        trial.booking.Date.Format(models.DateLayout),
		StartTime:   trial.booking.Range.Start.String(),
		EndTime:     trial.booking.Range.End.String(),
		IsTrial:     true,
		CustomerID:  customerID,
		HistoryID:   historyID,
	})
	if err != nil {
		s.logger.Warn("trial booking failed after status change",
			zap.String("customer_id", customerID),
			zap.String("history_id", historyID),
			zap.String("coach_id", coachID),
			zap.Error(err),
		)
		failed := failedStep(dto.StepTrialBooking, false, err)
		result.Notices = append(result.Notices, "状态已更新，但体验课排课失败："+failed.Message)
		return failed
	}
	result.Booking = slot
	if s.schedules != nil {
		s.schedules.InvalidateWeek(ctx, trial.booking.Date)
	}
	step.State = dto.StepSucceeded
	step.Message = ""
	return step
}

func (s *StatusTransitionService) upsertReminder(ctx context.Context, result *dto.StatusChangeResult, customerID string, input *dto.ReminderInput) dto.StepResult {
	step := dto.StepResult{Step: dto.StepReminder, State: dto.StepSkipped}
	if input == nil || !input.Enabled {
		step.Message = "reminder not requested"
		return step
	}
	if validateReminderSchedule(input.Date, input.Time) != nil {
		step.Message = "reminder date or time missing"
		result.Notices = append(result.Notices, "提醒日期或时间无效，未设置提醒")
		return step
	}

	todo, err := s.reminders.Upsert(ctx, customerID, dto.UpsertReminderRequest{
		Content:      input.Content,
		ReminderDate: input.Date,
		ReminderTime: input.Time,
	})
	if err != nil {
		s.logger.Warn("reminder upsert failed after status change", zap.String("customer_id", customerID), zap.Error(err))
		failed := failedStep(dto.StepReminder, false, err)
		result.Notices = append(result.Notices, "状态已更新，但提醒设置失败："+failed.Message)
		return failed
	}
	result.Reminder = todo
	step.State = dto.StepSucceeded
	step.Message = ""
	return step
}

func (s *StatusTransitionService) record(outcome dto.Outcome) {
	if s.metrics != nil {
		s.metrics.RecordStatusChange(string(outcome))
	}
}

func operatorID(claims *models.SessionClaims) string {
	if claims == nil {
		return ""
	}
	return claims.UserID
}

func failedStep(name dto.StepName, required bool, err error) dto.StepResult {
	message := appErrors.ErrUpstream.Message
	if appErr := appErrors.FromError(err); appErr != nil && appErr.Message != "" {
		message = appErr.Message
	}
	return dto.StepResult{Step: name, Required: required, State: dto.StepFailed, Message: message}
}
