package models

import "time"

type Hospital struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Code      string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	IsActive  bool           `gorm:"not null" json:"isActive"`
	Units     []HospitalUnit `gorm:"foreignKey:HospitalID" json:"-"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type HospitalUnit struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	HospitalID uint      `gorm:"not null;uniqueIndex:idx_hospital_unit" json:"hospitalId"`
	UnitCode   string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_hospital_unit" json:"unitCode"`
	UnitName   string    `gorm:"type:varchar(255);not null" json:"unitName"`
	IsActive   bool      `gorm:"not null" json:"isActive"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}
