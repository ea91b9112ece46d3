package models

// StaffPosition is the job position of a console user.
type StaffPosition string

const (
	PositionCoach      StaffPosition = "COACH"
	PositionSales      StaffPosition = "SALES"
	PositionManager    StaffPosition = "MANAGER"
	PositionAdmin      StaffPosition = "ADMIN"
	PositionSuperAdmin StaffPosition = "SUPER_ADMIN"
)

// Valid reports whether p is a known position.
func (p StaffPosition) Valid() bool {
	switch p {
	case PositionCoach, PositionSales, PositionManager, PositionAdmin, PositionSuperAdmin:
		return true
	default:
		return false
	}
}

// CanSchedule reports whether the position may assign coaches and book timetable slots.
func (p StaffPosition) CanSchedule() bool {
	switch p {
	case PositionManager, PositionAdmin, PositionSuperAdmin:
		return true
	case PositionCoach, PositionSales:
		return false
	default:
		return false
	}
}
