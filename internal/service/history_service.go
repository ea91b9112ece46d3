package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/training-crm-console/internal/dto"
	"github.com/noah-isme/training-crm-console/internal/models"
	appErrors "github.com/noah-isme/training-crm-console/pkg/errors"
	"github.com/noah-isme/training-crm-console/pkg/export"
	"github.com/noah-isme/training-crm-console/pkg/jobs"
	"github.com/noah-isme/training-crm-console/pkg/upstream"
)

// JobTypeLedgerRefresh reconciles a customer's ledger after an optimistic update.
const JobTypeLedgerRefresh = "ledger_refresh"

type historyGateway interface {
	ListStatusHistory(ctx context.Context, customerID string) ([]models.StatusHistoryEntry, error)
	UpdateHistoryNotes(ctx context.Context, historyID, notes string) error
	UpdateHistoryTrial(ctx context.Context, historyID string, req dto.UpdateTrialRequest) error
	DeleteHistory(ctx context.Context, historyID string) error
	CancelTrial(ctx context.Context, customerID, historyID string) error
	CompleteTrial(ctx context.Context, customerID, historyID string) error
}

type historyStore interface {
	Get(customerID string) ([]models.StatusHistoryEntry, bool)
	Put(customerID string, entries []models.StatusHistoryEntry)
	Prepend(customerID string, entry models.StatusHistoryEntry)
	Update(customerID, historyID string, fn func(*models.StatusHistoryEntry)) bool
	Find(customerID, historyID string) (models.StatusHistoryEntry, bool)
	Remove(customerID, historyID string) bool
}

type refreshDispatcher interface {
	Enqueue(job jobs.Job) error
}

type weekInvalidator interface {
	InvalidateWeek(ctx context.Context, day time.Time)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// LedgerRefreshPayload identifies the ledger a refresh job reloads and the session it runs as.
type LedgerRefreshPayload struct {
	CustomerID string
	Token      string
}

// LedgerExport is a rendered ledger download.
type LedgerExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// DeriveStatus returns the toStatus of the newest entry, or StatusUnknown for an empty ledger.
func DeriveStatus(history []models.StatusHistoryEntry) models.CustomerStatus {
	if len(history) == 0 {
		return models.StatusUnknown
	}
	return models.SortHistoryNewestFirst(history)[0].ToStatus
}

// BuildLedgerView renders entries newest first with their control flags.
func BuildLedgerView(customerID string, history []models.StatusHistoryEntry) *dto.LedgerView {
	sorted := models.SortHistoryNewestFirst(history)
	status := DeriveStatus(sorted)
	rows := make([]dto.LedgerRow, 0, len(sorted))
	for _, entry := range sorted {
		rows = append(rows, dto.LedgerRow{
			StatusHistoryEntry: entry,
			CanEditTrial:       entry.CanEditTrial(),
			CanCancelTrial:     entry.CanCancelTrial(),
			CanCompleteTrial:   entry.CanCompleteTrial(),
		})
	}
	return &dto.LedgerView{
		CustomerID:         customerID,
		CurrentStatus:      status,
		CurrentStatusLabel: status.Label(),
		Entries:            rows,
	}
}

// HistoryLedgerService renders and edits customer status ledgers and keeps the derived
// current status consistent with them.
type HistoryLedgerService struct {
	upstream   historyGateway
	projection historyStore
	queue      refreshDispatcher
	schedules  weekInvalidator
	csv        datasetRenderer
	pdf        datasetRenderer
	validator  *validator.Validate
	logger     *zap.Logger
	trials     *inflightSet
}

// NewHistoryLedgerService constructs the ledger service. queue and schedules may be nil.
func NewHistoryLedgerService(upstream historyGateway, projection historyStore, queue refreshDispatcher, schedules weekInvalidator, validate *validator.Validate, logger *zap.Logger) *HistoryLedgerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryLedgerService{
		upstream:   upstream,
		projection: projection,
		queue:      queue,
		schedules:  schedules,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		validator:  validate,
		logger:     logger,
		trials:     newInflightSet(),
	}
}

// List fetches the customer's ledger, refreshes the projection and returns the view.
func (s *HistoryLedgerService) List(ctx context.Context, customerID string) (*dto.LedgerView, error) {
	entries, err := s.fetch(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return BuildLedgerView(customerID, entries), nil
}

// History returns the ledger entries, preferring the projection over an upstream fetch.
func (s *HistoryLedgerService) History(ctx context.Context, customerID string) ([]models.StatusHistoryEntry, error) {
	if entries, ok := s.projection.Get(customerID); ok {
		return entries, nil
	}
	return s.fetch(ctx, customerID)
}

// Record adds a freshly created entry to the projection.
func (s *HistoryLedgerService) Record(customerID string, entry models.StatusHistoryEntry) {
	if _, ok := s.projection.Get(customerID); !ok {
		return
	}
	s.projection.Prepend(customerID, entry)
}

func (s *HistoryLedgerService) fetch(ctx context.Context, customerID string) ([]models.StatusHistoryEntry, error) {
	entries, err := s.upstream.ListStatusHistory(ctx, customerID)
	if err != nil {
		return nil, err
	}
	s.projection.Put(customerID, entries)
	return models.SortHistoryNewestFirst(entries), nil
}

func (s *HistoryLedgerService) entry(ctx context.Context, customerID, historyID string) (models.StatusHistoryEntry, error) {
	if entry, ok := s.projection.Find(customerID, historyID); ok {
		return entry, nil
	}
	if _, err := s.fetch(ctx, customerID); err != nil {
		return models.StatusHistoryEntry{}, err
	}
	if entry, ok := s.projection.Find(customerID, historyID); ok {
		return entry, nil
	}
	return models.StatusHistoryEntry{}, appErrors.Clone(appErrors.ErrNotFound, "history entry not found")
}

// UpdateNotes replaces the notes of one entry.
func (s *HistoryLedgerService) UpdateNotes(ctx context.Context, customerID, historyID string, req dto.UpdateNotesRequest) (*models.StatusHistoryEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.FieldError("notes", "备注过长")
	}
	if _, err := s.entry(ctx, customerID, historyID); err != nil {
		return nil, err
	}
	if err := s.upstream.UpdateHistoryNotes(ctx, historyID, req.Notes); err != nil {
		return nil, err
	}
	s.projection.Update(customerID, historyID, func(e *models.StatusHistoryEntry) {
		e.Notes = req.Notes
	})
	updated, _ := s.projection.Find(customerID, historyID)
	return &updated, nil
}

// UpdateTrialTime edits the trial slot of a live entry. Cancelled or completed trials are frozen.
func (s *HistoryLedgerService) UpdateTrialTime(ctx context.Context, customerID, historyID string, req dto.UpdateTrialRequest) (*models.StatusHistoryEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "请填写完整的体验时间")
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.FieldError("trialScheduleDate", "请选择体验日期")
	}
	span, err := models.ParseTimeRange(req.StartTime, req.EndTime)
	if err != nil || !span.Valid() {
		return nil, appErrors.FieldError("trialTime", "请选择有效的体验时间段")
	}

	current, err := s.entry(ctx, customerID, historyID)
	if err != nil {
		return nil, err
	}
	if current.TrialTerminal() {
		return nil, appErrors.Clone(appErrors.ErrTrialTerminal, "体验课已取消或已完成，不能修改时间")
	}
	if !current.HasTrial() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "该记录没有体验课安排")
	}

	req.Date = date.Format(models.DateLayout)
	req.StartTime = span.Start.String()
	req.EndTime = span.End.String()
	if err := s.upstream.UpdateHistoryTrial(ctx, historyID, req); err != nil {
		return nil, err
	}

	s.projection.Update(customerID, historyID, func(e *models.StatusHistoryEntry) {
		d, st, en := req.Date, req.StartTime, req.EndTime
		e.TrialScheduleDate, e.TrialStartTime, e.TrialEndTime = &d, &st, &en
		if req.CoachID != "" {
			coach := req.CoachID
			e.TrialCoachID = &coach
		}
	})
	s.invalidateTrialWeek(ctx, current)
	if !models.SameDay(date, trialDay(current)) {
		s.invalidateWeek(ctx, date)
	}
	updated, _ := s.projection.Find(customerID, historyID)
	return &updated, nil
}

// Delete removes an entry and re-derives the customer's status from the remaining ledger.
func (s *HistoryLedgerService) Delete(ctx context.Context, customerID, historyID string) (*dto.LedgerView, error) {
	if err := s.upstream.DeleteHistory(ctx, historyID); err != nil {
		return nil, err
	}
	s.projection.Remove(customerID, historyID)

	view, err := s.List(ctx, customerID)
	if err == nil {
		return view, nil
	}
	if errors.Is(err, appErrors.ErrSessionExpired) {
		return nil, err
	}
	s.logger.Warn("ledger refetch after delete failed, deriving from projection",
		zap.String("customer_id", customerID),
		zap.String("history_id", historyID),
		zap.Error(err),
	)
	remaining, _ := s.projection.Get(customerID)
	return BuildLedgerView(customerID, remaining), nil
}

type trialTransition string

const (
	trialCancel   trialTransition = "cancel"
	trialComplete trialTransition = "complete"
)

// CancelTrial marks the entry's trial cancelled. A completed trial cannot be cancelled.
func (s *HistoryLedgerService) CancelTrial(ctx context.Context, customerID, historyID string) (*models.StatusHistoryEntry, error) {
	return s.finishTrial(ctx, customerID, historyID, trialCancel)
}

// CompleteTrial marks the entry's trial completed. A cancelled trial cannot be completed.
func (s *HistoryLedgerService) CompleteTrial(ctx context.Context, customerID, historyID string) (*models.StatusHistoryEntry, error) {
	return s.finishTrial(ctx, customerID, historyID, trialComplete)
}

func (s *HistoryLedgerService) finishTrial(ctx context.Context, customerID, historyID string, transition trialTransition) (*models.StatusHistoryEntry, error) {
	if !s.trials.acquire(historyID) {
		return nil, appErrors.Clone(appErrors.ErrSubmitInFlight, "该体验课正在处理中")
	}
	defer s.trials.release(historyID)

	current, err := s.entry(ctx, customerID, historyID)
	if err != nil {
		return nil, err
	}
	if !current.HasTrial() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "该记录没有体验课安排")
	}
	switch {
	case current.TrialCancelled:
		return nil, appErrors.Clone(appErrors.ErrTrialTerminal, "体验课已取消")
	case current.TrialCompleted:
		return nil, appErrors.Clone(appErrors.ErrTrialTerminal, "体验课已完成")
	}

	switch transition {
	case trialCancel:
		err = s.upstream.CancelTrial(ctx, customerID, historyID)
	case trialComplete:
		err = s.upstream.CompleteTrial(ctx, customerID, historyID)
	default:
		err = fmt.Errorf("unknown trial transition %q", transition)
	}
	if err != nil {
		return nil, err
	}

	s.projection.Update(customerID, historyID, func(e *models.StatusHistoryEntry) {
		switch transition {
		case trialCancel:
			e.TrialCancelled = true
		case trialComplete:
			e.TrialCompleted = true
		}
	})
	if transition == trialCancel {
		s.invalidateTrialWeek(ctx, current)
	}
	s.scheduleRefresh(ctx, customerID)

	updated, _ := s.projection.Find(customerID, historyID)
	return &updated, nil
}

func (s *HistoryLedgerService) scheduleRefresh(ctx context.Context, customerID string) {
	if s.queue == nil {
		return
	}
	job := jobs.Job{
		Type:    JobTypeLedgerRefresh,
		Key:     customerID,
		Payload: LedgerRefreshPayload{CustomerID: customerID, Token: upstream.TokenFrom(ctx)},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue ledger refresh", zap.String("customer_id", customerID), zap.Error(err))
	}
}

func (s *HistoryLedgerService) invalidateTrialWeek(ctx context.Context, entry models.StatusHistoryEntry) {
	if day := trialDay(entry); !day.IsZero() {
		s.invalidateWeek(ctx, day)
	}
}

func (s *HistoryLedgerService) invalidateWeek(ctx context.Context, day time.Time) {
	if s.schedules != nil {
		s.schedules.InvalidateWeek(ctx, day)
	}
}

func trialDay(entry models.StatusHistoryEntry) time.Time {
	if entry.TrialScheduleDate == nil {
		return time.Time{}
	}
	day, err := models.ParseDate(*entry.TrialScheduleDate)
	if err != nil {
		return time.Time{}
	}
	return day
}

// Export renders the customer's ledger as CSV or PDF.
func (s *HistoryLedgerService) Export(ctx context.Context, customerID, rawFormat string) (*LedgerExport, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedType, err.Error())
	}
	view, err := s.List(ctx, customerID)
	if err != nil {
		return nil, err
	}

	data := ledgerDataset(view)
	var body []byte
	switch format {
	case export.FormatPDF:
		body, err = s.pdf.Render(data)
	case export.FormatCSV:
		body, err = s.csv.Render(data)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render ledger export")
	}
	return &LedgerExport{
		Filename:    format.Filename("status_history_" + customerID),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

func ledgerDataset(view *dto.LedgerView) export.Dataset {
	data := export.Dataset{
		Title:   fmt.Sprintf("Status history %s (%s)", view.CustomerID, view.CurrentStatus),
		Headers: []string{"createdAt", "fromStatus", "toStatus", "notes", "createdBy", "trialDate", "trialTime", "trialCoach", "trialState"},
		Rows:    make([][]string, 0, len(view.Entries)),
	}
	for _, row := range view.Entries {
		from := ""
		if row.FromStatus != nil {
			from = string(*row.FromStatus)
		}
		var trialDate, trialTime, coach, state string
		if row.HasTrial() {
			trialDate = stringValue(row.TrialScheduleDate)
			if row.TrialStartTime != nil && row.TrialEndTime != nil {
				trialTime = *row.TrialStartTime + "-" + *row.TrialEndTime
			}
			coach = stringValue(row.TrialCoachName)
			if coach == "" {
				coach = stringValue(row.TrialCoachID)
			}
			switch {
			case row.TrialCancelled:
				state = "CANCELLED"
			case row.TrialCompleted:
				state = "COMPLETED"
			default:
				state = "BOOKED"
			}
		}
		createdBy := row.CreatedByName
		if createdBy == "" {
			createdBy = row.CreatedBy
		}
		data.Rows = append(data.Rows, []string{
			row.CreatedAt.Format("2006-01-02 15:04"),
			from,
			string(row.ToStatus),
			row.Notes,
			createdBy,
			trialDate,
			trialTime,
			coach,
			state,
		})
	}
	return data
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// LedgerRefreshWorker reloads a customer's ledger in the background.
type LedgerRefreshWorker struct {
	upstream   historyGateway
	projection historyStore
	logger     *zap.Logger
}

// NewLedgerRefreshWorker constructs a worker.
func NewLedgerRefreshWorker(upstream historyGateway, projection historyStore, logger *zap.Logger) *LedgerRefreshWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerRefreshWorker{upstream: upstream, projection: projection, logger: logger}
}

// Handle processes a queue job.
func (w *LedgerRefreshWorker) Handle(ctx context.Context, job jobs.Job) error {
	if job.Type != JobTypeLedgerRefresh {
		return fmt.Errorf("unsupported job type %q", job.Type)
	}
	payload, ok := job.Payload.(LedgerRefreshPayload)
	if !ok {
		return fmt.Errorf("ledger refresh job %s has payload %T", job.ID, job.Payload)
	}
	if payload.Token != "" {
		ctx = upstream.WithToken(ctx, payload.Token)
	}
	entries, err := w.upstream.ListStatusHistory(ctx, payload.CustomerID)
	if err != nil {
		return err
	}
	w.projection.Put(payload.CustomerID, entries)
	w.logger.Debug("ledger reconciled",
		zap.String("customer_id", payload.CustomerID),
		zap.Int("entries", len(entries)),
		zap.Int("merged", job.Merged),
	)
	return nil
}
