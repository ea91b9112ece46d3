package dto

import "github.com/noah-isme/training-crm-console/internal/models"

// LedgerRow is a history entry plus the controls the console may enable for it.
type LedgerRow struct {
	models.StatusHistoryEntry
	CanEditTrial     bool `json:"canEditTrial"`
	CanCancelTrial   bool `json:"canCancelTrial"`
	CanCompleteTrial bool `json:"canCompleteTrial"`
}

// LedgerView is a customer's status ledger with its derived current status.
type LedgerView struct {
	CustomerID         string                `json:"customerId"`
	CurrentStatus      models.CustomerStatus `json:"currentStatus"`
	CurrentStatusLabel string                `json:"currentStatusLabel"`
	Entries            []LedgerRow           `json:"entries"`
}

// UpdateNotesRequest edits the free-text notes of a history entry.
type UpdateNotesRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// UpdateTrialRequest edits the trial time of a live history entry.
type UpdateTrialRequest struct {
	Date      string `json:"trialScheduleDate" validate:"required"`
	StartTime string `json:"trialStartTime" validate:"required"`
	EndTime   string `json:"trialEndTime" validate:"required"`
	CoachID   string `json:"trialCoachId,omitempty"`
}
