package models

import "time"

type GeoLocation struct {
	Latitude  float64 `gorm:"not null" json:"latitude"`
	Longitude float64 `gorm:"not null" json:"longitude"`
	Address   string  `gorm:"type:varchar(255)" json:"address"`
}

type CheckIn struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	AssignmentID uint        `gorm:"not null;index" json:"jobAssignmentId"`
	UserID       uint        `gorm:"not null;index" json:"userId"`
	CheckInTime  time.Time   `gorm:"not null" json:"checkInTime"`
	Location     GeoLocation `gorm:"embedded;embeddedPrefix:location_" json:"checkInLocation"`
	Notes        string      `gorm:"type:text" json:"notes,omitempty"`
	OpenKey      *uint       `gorm:"uniqueIndex" json:"-"`
	CheckOut     *CheckOut   `gorm:"foreignKey:CheckInID" json:"checkOut,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// IsOpen reports whether the shift has not been checked out yet.
func (ci *CheckIn) IsOpen() bool {
	return ci.OpenKey != nil
}

type CheckOut struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	CheckInID     uint        `gorm:"not null;uniqueIndex" json:"checkInId"`
	CheckOutTime  time.Time   `gorm:"not null" json:"checkOutTime"`
	Location      GeoLocation `gorm:"embedded;embeddedPrefix:location_" json:"checkOutLocation"`
	Notes         string      `gorm:"type:text" json:"notes,omitempty"`
	WorkedMinutes int         `gorm:"not null" json:"workedMinutes"`
	CreatedAt     time.Time   `json:"createdAt"`
}
