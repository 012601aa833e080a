package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	JobStatusActive    = "ACTIVE"
	JobStatusFilled    = "FILLED"
	JobStatusCancelled = "CANCELLED"
	JobStatusCompleted = "COMPLETED"
)

const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

type ContactPerson struct {
	Name     string `gorm:"type:varchar(255)" json:"name"`
	Phone    string `gorm:"type:varchar(50)" json:"phone"`
	Email    string `gorm:"type:varchar(255)" json:"email"`
	Position string `gorm:"type:varchar(100)" json:"position"`
}

type JobRequirements struct {
	BoardCertified bool     `json:"boardCertified"`
	Experience     string   `gorm:"type:varchar(255)" json:"experience"`
	Skills         []string `gorm:"type:text;serializer:json" json:"skills"`
}

type JobBenefits struct {
	MealAllowance bool `json:"mealAllowance"`
	Parking       bool `json:"parking"`
	Malpractice   bool `json:"malpractice"`
}

type JobPosting struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	Title              string          `gorm:"type:varchar(255);not null" json:"title"`
	Description        string          `gorm:"type:text;not null" json:"description"`
	Department         string          `gorm:"type:varchar(100);not null;index" json:"department"`
	Location           string          `gorm:"type:varchar(100);not null;index" json:"location"`
	HospitalID         *uint           `gorm:"index" json:"hospitalId,omitempty"`
	UnitCode           string          `gorm:"type:varchar(50)" json:"unitCode,omitempty"`
	RequiredRole       string          `gorm:"type:varchar(20);not null;index" json:"requiredRole"`
	Specialization     string          `gorm:"type:varchar(100)" json:"specialization,omitempty"`
	StartDate          string          `gorm:"type:varchar(10);not null" json:"startDate"`
	EndDate            string          `gorm:"type:varchar(10);not null" json:"endDate"`
	StartTime          string          `gorm:"type:varchar(5);not null" json:"startTime"`
	EndTime            string          `gorm:"type:varchar(5);not null" json:"endTime"`
	HourlyRate         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"hourlyRate"`
	Priority           string          `gorm:"type:varchar(10);not null" json:"priority"`
	Status             string          `gorm:"type:varchar(20);not null;index" json:"status"`
	MaxAssignments     int             `gorm:"not null" json:"maxAssignments"`
	CurrentAssignments int             `gorm:"not null" json:"currentAssignments"`
	Requirements       JobRequirements `gorm:"embedded;embeddedPrefix:req_" json:"requirements"`
	Benefits           JobBenefits     `gorm:"embedded;embeddedPrefix:benefit_" json:"benefits"`
	FacilityName       string          `gorm:"type:varchar(255);not null" json:"facilityName"`
	FacilityAddress    Address         `gorm:"embedded;embeddedPrefix:facility_" json:"facilityAddress"`
	ContactPerson      ContactPerson   `gorm:"embedded;embeddedPrefix:contact_" json:"contactPerson"`
	Notes              string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedByID        uint            `gorm:"not null;index" json:"createdById"`
	CancellationReason string          `gorm:"type:text" json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time      `json:"cancelledAt,omitempty"`
	CompletedAt        *time.Time      `json:"completedAt,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// OpenSlots is the number of candidates that can still be selected.
func (j *JobPosting) OpenSlots() int {
	if j.Status != JobStatusActive {
		return 0
	}
	return j.MaxAssignments - j.CurrentAssignments
}

// IsClosed reports whether the posting no longer accepts any assignment changes.
func (j *JobPosting) IsClosed() bool {
	return j.Status == JobStatusCancelled || j.Status == JobStatusCompleted
}

func JobStatusLabel(status string) string {
	switch status {
	case JobStatusActive:
		return "Open"
	case JobStatusFilled:
		return "Filled"
	case JobStatusCancelled:
		return "Cancelled"
	case JobStatusCompleted:
		return "Completed"
	}
	return "Unknown"
}
