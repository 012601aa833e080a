package services

import "github.com/yeremiapane/locum-staffing/models"

// Session identifies the caller of a request.
type Session struct {
	UserID uint
	Role   string
	Token  string
}

func (s Session) IsManager() bool {
	return s.Role == models.RoleHR || s.Role == models.RoleAdmin
}

func (s Session) IsStaff() bool {
	return s.Role == models.RoleDoctor || s.Role == models.RoleNurse
}
