package services

import (
	"github.com/go-faster/errors"
	"github.com/yeremiapane/locum-staffing/models"
	"gorm.io/gorm"
)

// recordEvent appends an outbox row using the caller's transaction.
func recordEvent(tx *gorm.DB, kind string, jobID uint, assignmentID, userID *uint, payload map[string]any) error {
	event := models.AssignmentEvent{
		Kind:         kind,
		JobID:        jobID,
		AssignmentID: assignmentID,
		UserID:       userID,
		Payload:      payload,
	}
	if err := tx.Create(&event).Error; err != nil {
		return errors.Wrapf(err, "record %s event", kind)
	}
	return nil
}

// recordAssignmentEvent is recordEvent for a single assignment row.
func recordAssignmentEvent(tx *gorm.DB, kind string, a *models.Assignment, payload map[string]any) error {
	id, user := a.ID, a.UserID
	if payload == nil {
		payload = map[string]any{}
	}
	payload["status"] = a.Status
	return recordEvent(tx, kind, a.JobID, &id, &user, payload)
}
