package models

import "time"

// TrialBooking is a trial slot as last persisted for a customer.
type TrialBooking struct {
	Date        time.Time `json:"date"`
	Range       TimeRange `json:"range"`
	CoachID     string    `json:"coachId,omitempty"`
	CoachName   string    `json:"coachName,omitempty"`
	StudentName string    `json:"studentName,omitempty"`
}

// Coach is a staff member who can teach a trial or regular session.
type Coach struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TimetableSlot is a booked session on the timetable.
type TimetableSlot struct {
	ID          string  `json:"id"`
	CoachID     string  `json:"coachId"`
	CoachName   string  `json:"coachName,omitempty"`
	StudentName string  `json:"studentName"`
	Date        string  `json:"date"`
	StartTime   string  `json:"startTime"`
	EndTime     string  `json:"endTime"`
	IsTrial     bool    `json:"isTrial"`
	CustomerID  *string `json:"customerId,omitempty"`
}

// WeeklyTemplate is a recurring slot used to seed a week's timetable.
type WeeklyTemplate struct {
	ID          string `json:"id"`
	CoachID     string `json:"coachId"`
	CoachName   string `json:"coachName,omitempty"`
	DayOfWeek   int    `json:"dayOfWeek"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	StudentName string `json:"studentName,omitempty"`
}
