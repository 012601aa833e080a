package models

import "time"

const (
	RoleDoctor = "DOCTOR"
	RoleNurse  = "NURSE"
	RoleHR     = "HR"
	RoleAdmin  = "ADMIN"
)

type EmergencyContact struct {
	Name         string `gorm:"type:varchar(255)" json:"name"`
	Phone        string `gorm:"type:varchar(50)" json:"phone"`
	Relationship string `gorm:"type:varchar(100)" json:"relationship"`
}

type Address struct {
	Street  string `gorm:"type:varchar(255)" json:"street"`
	City    string `gorm:"type:varchar(100)" json:"city"`
	State   string `gorm:"type:varchar(100)" json:"state"`
	ZipCode string `gorm:"type:varchar(20)" json:"zipCode"`
	Country string `gorm:"type:varchar(100)" json:"country"`
}

type User struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	Email            string           `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password         string           `gorm:"type:varchar(255);not null" json:"-"`
	FirstName        string           `gorm:"type:varchar(100);not null" json:"firstName"`
	LastName         string           `gorm:"type:varchar(100);not null" json:"lastName"`
	Role             string           `gorm:"type:varchar(20);not null;index" json:"role"`
	Department       string           `gorm:"type:varchar(100)" json:"department"`
	Location         string           `gorm:"type:varchar(100)" json:"location"`
	Specialization   string           `gorm:"type:varchar(100)" json:"specialization,omitempty"`
	LicenseNumber    string           `gorm:"type:varchar(100)" json:"licenseNumber,omitempty"`
	Phone            string           `gorm:"type:varchar(50)" json:"phone"`
	EmergencyContact EmergencyContact `gorm:"embedded;embeddedPrefix:emergency_" json:"emergencyContact"`
	Address          Address          `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	HospitalID       *uint            `gorm:"index" json:"hospitalId,omitempty"`
	IsActive         bool             `gorm:"not null" json:"isActive"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// IsStaff reports whether the user can be offered shifts.
func (u *User) IsStaff() bool {
	return u.Role == RoleDoctor || u.Role == RoleNurse
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
