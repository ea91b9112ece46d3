package models

import (
	"fmt"
	"strings"
	"time"
)

// CustomerStatus is the stage of a customer in the sales pipeline.
type CustomerStatus string

const (
	StatusUnknown        CustomerStatus = ""
	StatusNew            CustomerStatus = "NEW"
	StatusContacted      CustomerStatus = "CONTACTED"
	StatusPendingConfirm CustomerStatus = "PENDING_CONFIRM"
	StatusScheduled      CustomerStatus = "SCHEDULED"
	StatusVisited        CustomerStatus = "VISITED"
	StatusReExperience   CustomerStatus = "RE_EXPERIENCE"
	StatusPendingSold    CustomerStatus = "PENDING_SOLD"
	StatusSold           CustomerStatus = "SOLD"
	StatusClosed         CustomerStatus = "CLOSED"
)

// CustomerStatuses lists every pipeline stage in display order.
var CustomerStatuses = []CustomerStatus{
	StatusNew,
	StatusContacted,
	StatusPendingConfirm,
	StatusScheduled,
	StatusVisited,
	StatusReExperience,
	StatusPendingSold,
	StatusSold,
	StatusClosed,
}

// Valid reports whether s is a member of the closed status set. StatusUnknown is not.
func (s CustomerStatus) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusPendingConfirm, StatusScheduled, StatusVisited,
		StatusReExperience, StatusPendingSold, StatusSold, StatusClosed:
		return true
	default:
		return false
	}
}

// IsTrialPending reports whether the status carries trial-schedule attributes.
func (s CustomerStatus) IsTrialPending() bool {
	switch s {
	case StatusScheduled, StatusReExperience:
		return true
	case StatusUnknown, StatusNew, StatusContacted, StatusPendingConfirm, StatusVisited,
		StatusPendingSold, StatusSold, StatusClosed:
		return false
	default:
		return false
	}
}

// Label returns the console display label.
func (s CustomerStatus) Label() string {
	switch s {
	case StatusNew:
		return "新客户"
	case StatusContacted:
		return "已联系"
	case StatusPendingConfirm:
		return "待确认"
	case StatusScheduled:
		return "已约课"
	case StatusVisited:
		return "已到访"
	case StatusReExperience:
		return "再体验"
	case StatusPendingSold:
		return "待成交"
	case StatusSold:
		return "已成交"
	case StatusClosed:
		return "已关闭"
	case StatusUnknown:
		return "未设置"
	default:
		return string(s)
	}
}

// ParseCustomerStatus converts raw input into a CustomerStatus, rejecting unknown values.
func ParseCustomerStatus(raw string) (CustomerStatus, error) {
	status := CustomerStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return StatusUnknown, fmt.Errorf("unknown customer status %q", raw)
	}
	return status, nil
}

// Customer is a lead or member tracked by the training center.
type Customer struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Phone             string         `json:"phone"`
	Notes             string         `json:"notes,omitempty"`
	Status            CustomerStatus `json:"status"`
	AssignedStaffID   *string        `json:"assignedStaffId,omitempty"`
	AssignedStaffName *string        `json:"assignedStaffName,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// CustomerFilter captures list query parameters forwarded upstream.
type CustomerFilter struct {
	Search   string
	Status   CustomerStatus
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
