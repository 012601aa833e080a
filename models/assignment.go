package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	AssignmentPending    = "PENDING"
	AssignmentAccepted   = "ACCEPTED"
	AssignmentSelected   = "SELECTED"
	AssignmentInProgress = "IN_PROGRESS"
	AssignmentRejected   = "REJECTED"
	AssignmentCompleted  = "COMPLETED"
	AssignmentCancelled  = "CANCELLED"
)

// ReasonPositionFilled is recorded on siblings rejected when the last slot is taken.
const ReasonPositionFilled = "position filled"

// Assignment is one staff member's offer for a job posting.
type Assignment struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	JobID              uint            `gorm:"not null;index" json:"jobId"`
	Job                *JobPosting     `gorm:"foreignKey:JobID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"job,omitempty"`
	UserID             uint            `gorm:"not null;index" json:"userId"`
	User               *User           `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"user,omitempty"`
	Status             string          `gorm:"type:varchar(20);not null;index" json:"status"`
	HourlyRate         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"hourlyRate"`
	Notes              string          `gorm:"type:text" json:"notes,omitempty"`
	RejectionReason    string          `gorm:"type:text" json:"rejectionReason,omitempty"`
	CancellationReason string          `gorm:"type:text" json:"cancellationReason,omitempty"`
	ActiveKey          *string         `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	AcceptedAt         *time.Time      `json:"acceptedAt,omitempty"`
	RejectedAt         *time.Time      `json:"rejectedAt,omitempty"`
	SelectedAt         *time.Time      `json:"selectedAt,omitempty"`
	CompletedAt        *time.Time      `json:"completedAt,omitempty"`
	CancelledAt        *time.Time      `json:"cancelledAt,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// ActiveKeyFor builds the value that keeps one non-terminal assignment per (job, staff) pair.
func ActiveKeyFor(jobID, userID uint) *string {
	key := fmt.Sprintf("%d:%d", jobID, userID)
	return &key
}

func IsTerminalAssignment(status string) bool {
	switch status {
	case AssignmentRejected, AssignmentCompleted, AssignmentCancelled:
		return true
	}
	return false
}

// IsConfirmed reports whether HR has selected the assignment for the job.
func IsConfirmedAssignment(status string) bool {
	return status == AssignmentSelected || status == AssignmentInProgress
}

func (a *Assignment) IsTerminal() bool {
	return IsTerminalAssignment(a.Status)
}

func AssignmentStatusLabel(status string) string {
	switch status {
	case AssignmentPending:
		return "Awaiting response"
	case AssignmentAccepted:
		return "Accepted, awaiting selection"
	case AssignmentSelected:
		return "Confirmed"
	case AssignmentInProgress:
		return "On shift"
	case AssignmentRejected:
		return "Rejected"
	case AssignmentCompleted:
		return "Completed"
	case AssignmentCancelled:
		return "Cancelled"
	}
	return "Unknown"
}
