package models

import (
	"sort"
	"time"
)

// StatusHistoryEntry is one row of a customer's append-only status ledger.
type StatusHistoryEntry struct {
	ID            string          `json:"id"`
	CustomerID    string          `json:"customerId"`
	FromStatus    *CustomerStatus `json:"fromStatus,omitempty"`
	ToStatus      CustomerStatus  `json:"toStatus"`
	Notes         string          `json:"notes,omitempty"`
	CreatedBy     string          `json:"createdBy,omitempty"`
	CreatedByName string          `json:"createdByName,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`

	TrialScheduleDate *string `json:"trialScheduleDate,omitempty"`
	TrialStartTime    *string `json:"trialStartTime,omitempty"`
	TrialEndTime      *string `json:"trialEndTime,omitempty"`
	TrialCoachID      *string `json:"trialCoachId,omitempty"`
	TrialCoachName    *string `json:"trialCoachName,omitempty"`
	TrialStudentName  *string `json:"trialStudentName,omitempty"`
	TrialCancelled    bool    `json:"trialCancelled"`
	TrialCompleted    bool    `json:"trialCompleted"`
}

// IsInitial reports whether the entry records the first status of the customer.
func (e StatusHistoryEntry) IsInitial() bool {
	return e.FromStatus == nil || *e.FromStatus == StatusNew || *e.FromStatus == StatusUnknown
}

// HasTrial reports whether the entry carries a scheduled trial.
func (e StatusHistoryEntry) HasTrial() bool {
	return e.ToStatus.IsTrialPending() && e.TrialScheduleDate != nil && *e.TrialScheduleDate != ""
}

// TrialTerminal reports whether the trial was cancelled or completed.
func (e StatusHistoryEntry) TrialTerminal() bool {
	return e.TrialCancelled || e.TrialCompleted
}

// CanEditTrial gates edits of the trial time fields.
func (e StatusHistoryEntry) CanEditTrial() bool {
	return e.HasTrial() && !e.TrialTerminal()
}

// CanCancelTrial and CanCompleteTrial are mutually exclusive one-way transitions.
func (e StatusHistoryEntry) CanCancelTrial() bool {
	return e.HasTrial() && !e.TrialTerminal()
}

func (e StatusHistoryEntry) CanCompleteTrial() bool {
	return e.HasTrial() && !e.TrialTerminal()
}

// TrialBooking returns the booking recorded on the entry, or nil when there is none
// or its date/time fields cannot be parsed.
func (e StatusHistoryEntry) TrialBooking() *TrialBooking {
	if !e.HasTrial() || e.TrialStartTime == nil || e.TrialEndTime == nil {
		return nil
	}
	date, err := ParseDate(*e.TrialScheduleDate)
	if err != nil {
		return nil
	}
	tr, err := ParseTimeRange(*e.TrialStartTime, *e.TrialEndTime)
	if err != nil {
		return nil
	}
	booking := &TrialBooking{Date: date, Range: tr}
	if e.TrialCoachID != nil {
		booking.CoachID = *e.TrialCoachID
	}
	if e.TrialCoachName != nil {
		booking.CoachName = *e.TrialCoachName
	}
	if e.TrialStudentName != nil {
		booking.StudentName = *e.TrialStudentName
	}
	return booking
}

// LatestTrialBooking scans a newest-first ledger for the most recent live booking.
func LatestTrialBooking(history []StatusHistoryEntry) *TrialBooking {
	for _, entry := range SortHistoryNewestFirst(history) {
		if entry.TrialCancelled {
			continue
		}
		if booking := entry.TrialBooking(); booking != nil {
			return booking
		}
	}
	return nil
}

// SortHistoryNewestFirst returns a copy ordered by creation time, newest first.
// Entries with equal timestamps keep their incoming order.
func SortHistoryNewestFirst(history []StatusHistoryEntry) []StatusHistoryEntry {
	out := make([]StatusHistoryEntry, len(history))
	copy(out, history)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
