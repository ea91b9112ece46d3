package dto

import "github.com/noah-isme/training-crm-console/internal/models"

// TrialInput carries the trial fields of a status change form.
type TrialInput struct {
	StudentName string `json:"trialStudentName"`
	Date        string `json:"trialScheduleDate"`
	StartTime   string `json:"trialStartTime"`
	EndTime     string `json:"trialEndTime"`
	CoachID     string `json:"trialCoachId,omitempty"`
}

// ReminderInput carries the optional follow-up reminder of a status change form.
type ReminderInput struct {
	Enabled bool   `json:"enabled"`
	Content string `json:"content"`
	Date    string `json:"reminderDate"`
	Time    string `json:"reminderTime"`
}

// StatusChangeRequest is a single user-initiated status change.
type StatusChangeRequest struct {
	TargetStatus models.CustomerStatus `json:"toStatus" validate:"required"`
	Notes        string                `json:"notes" validate:"max=2000"`
	Trial        *TrialInput           `json:"trial,omitempty"`
	Reminder     *ReminderInput        `json:"reminder,omitempty"`
}

// StatusChangePayload is the upstream body for POST /customers/{id}/status-history/change.
type StatusChangePayload struct {
	ToStatus          models.CustomerStatus `json:"toStatus"`
	Notes             string                `json:"notes"`
	TrialScheduleDate *string               `json:"trialScheduleDate,omitempty"`
	TrialStartTime    *string               `json:"trialStartTime,omitempty"`
	TrialEndTime      *string               `json:"trialEndTime,omitempty"`
	TrialCoachID      *string               `json:"trialCoachId,omitempty"`
	TrialStudentName  *string               `json:"trialStudentName,omitempty"`
}

// TrialBookingPayload is the upstream body for POST /schedules/trial.
type TrialBookingPayload struct {
	CoachID     string `json:"coachId"`
	StudentName string `json:"studentName"`
	Date        string `json:"date"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	IsTrial     bool   `json:"isTrial"`
	CustomerID  string `json:"customerId"`
	HistoryID   string `json:"statusHistoryId,omitempty"`
}

// StepName identifies a step of the status change pipeline.
type StepName string

const (
	StepStatusHistory StepName = "status_history"
	StepTrialBooking  StepName = "trial_booking"
	StepReminder      StepName = "reminder"
)

// StepState is the result of one pipeline step.
type StepState string

const (
	StepSucceeded StepState = "SUCCEEDED"
	StepFailed    StepState = "FAILED"
	StepSkipped   StepState = "SKIPPED"
)

// StepResult records how one pipeline step ended.
type StepResult struct {
	Step     StepName  `json:"step"`
	Required bool      `json:"required"`
	State    StepState `json:"state"`
	Message  string    `json:"message,omitempty"`
}

// Outcome classifies a whole status change submission.
type Outcome string

const (
	// OutcomeCompleted: the status entry persisted and every attempted side effect succeeded.
	OutcomeCompleted Outcome = "COMPLETED"
	// OutcomePartial: the status entry persisted but a best-effort side effect failed.
	OutcomePartial Outcome = "PARTIAL"
	// OutcomeFailed: the status entry was rejected; nothing else was attempted.
	OutcomeFailed Outcome = "FAILED"
)

// StatusChangeResult is returned to the console after a submission.
type StatusChangeResult struct {
	CustomerID  string                     `json:"customerId"`
	Outcome     Outcome                    `json:"outcome"`
	NewStatus   models.CustomerStatus      `json:"newStatus,omitempty"`
	LatestNotes string                     `json:"latestNotes,omitempty"`
	Entry       *models.StatusHistoryEntry `json:"entry,omitempty"`
	Booking     *models.TimetableSlot      `json:"booking,omitempty"`
	Reminder    *models.Todo               `json:"reminder,omitempty"`
	Steps       []StepResult               `json:"steps"`
	Notices     []string                   `json:"notices,omitempty"`
	Ledger      *LedgerView                `json:"ledger,omitempty"`
}

// Step returns the recorded result for name, if any.
func (r *StatusChangeResult) Step(name StepName) (StepResult, bool) {
	if r == nil {
		return StepResult{}, false
	}
	for _, s := range r.Steps {
		if s.Step == name {
			return s, true
		}
	}
	return StepResult{}, false
}
