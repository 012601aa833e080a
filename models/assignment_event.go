package models

import "time"

const (
	EventJobCreated         = "job_created"
	EventJobCancelled       = "job_cancelled"
	EventJobCompleted       = "job_completed"
	EventOfferCreated       = "offer_created"
	EventAssignmentAccepted = "assignment_accepted"
	EventAssignmentRejected = "assignment_rejected"
	EventCandidateSelected  = "candidate_selected"
	EventAssignmentCancel   = "assignment_cancelled"
	EventAssignmentComplete = "assignment_completed"
	EventCheckedIn          = "checked_in"
	EventCheckedOut         = "checked_out"
)

// AssignmentEvent is an outbox row written in the same transaction as the change it describes.
type AssignmentEvent struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Kind         string         `gorm:"type:varchar(50);not null" json:"kind"`
	JobID        uint           `gorm:"index" json:"jobId"`
	AssignmentID *uint          `json:"assignmentId,omitempty"`
	UserID       *uint          `json:"userId,omitempty"`
	Payload      map[string]any `gorm:"type:text;serializer:json" json:"payload,omitempty"`
	Processed    bool           `gorm:"not null;index" json:"-"`
	CreatedAt    time.Time      `gorm:"index" json:"createdAt"`
}
