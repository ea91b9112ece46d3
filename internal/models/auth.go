package models

import "github.com/golang-jwt/jwt/v5"

// SessionClaims is the payload of the console bearer token issued by the upstream API.
type SessionClaims struct {
	UserID      string        `json:"userId"`
	Name        string        `json:"name"`
	Position    StaffPosition `json:"position"`
	Scheduling  bool          `json:"canSchedule,omitempty"`
	AccessToken string        `json:"-"`
	jwt.RegisteredClaims
}

// CanSchedule reports whether the session holds the scheduling capability.
func (c *SessionClaims) CanSchedule() bool {
	if c == nil {
		return false
	}
	return c.Scheduling || c.Position.CanSchedule()
}
