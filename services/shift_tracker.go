package services

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/locum-staffing/metrics"
	"github.com/yeremiapane/locum-staffing/models"
	"github.com/yeremiapane/locum-staffing/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ShiftRequest is the body of a check-in or check-out.
type ShiftRequest struct {
	AssignmentID       uint
	UserID             uint
	Location           models.GeoLocation
	Notes              string
	CompleteAssignment bool
}

// CheckInStatus is the answer of GetStatus.
type CheckInStatus struct {
	IsCheckedIn  bool       `json:"isCheckedIn"`
	CheckInID    *uint      `json:"checkInId,omitempty"`
	CheckInTime  *time.Time `json:"checkInTime,omitempty"`
	AssignmentID uint       `json:"jobAssignmentId"`
}

// ShiftTracker records check-in/check-out pairs against assignments.
type ShiftTracker struct {
	DB    *gorm.DB
	Locks *JobLocks
	Now   func() time.Time
}

func NewShiftTracker(db *gorm.DB, locks *JobLocks) *ShiftTracker {
	return &ShiftTracker{
		DB:    db,
		Locks: locks,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

func validateLocation(loc models.GeoLocation) error {
	if loc.Latitude < -90 || loc.Latitude > 90 {
		return ValidationError("latitude must be between -90 and 90")
	}
	if loc.Longitude < -180 || loc.Longitude > 180 {
		return ValidationError("longitude must be between -180 and 180")
	}
	return nil
}

// ownedAssignment loads an assignment and hides those of other staff members.
func (t *ShiftTracker) ownedAssignment(ctx context.Context, assignmentID, userID uint) (*models.Assignment, error) {
	var a models.Assignment
	if err := t.DB.WithContext(ctx).First(&a, assignmentID).Error; err != nil {
		return nil, notFoundOr(err, "assignment", assignmentID)
	}
	if userID != 0 && a.UserID != userID {
		return nil, NotFoundError("assignment %d not found", assignmentID)
	}
	return &a, nil
}

// CheckIn opens a shift. The first check-in of a SELECTED assignment moves it to IN_PROGRESS.
func (t *ShiftTracker) CheckIn(ctx context.Context, req ShiftRequest) (*models.CheckIn, error) {
	if err := validateLocation(req.Location); err != nil {
		return nil, err
	}
	a, err := t.ownedAssignment(ctx, req.AssignmentID, req.UserID)
	if err != nil {
		return nil, err
	}

	unlock := t.Locks.Lock(a.JobID)
	defer unlock()

	var checkIn models.CheckIn
	from := ""
	err = t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(a, a.ID).Error; err != nil {
			return notFoundOr(err, "assignment", a.ID)
		}
		switch a.Status {
		case models.AssignmentAccepted, models.AssignmentSelected, models.AssignmentInProgress:
		default:
			return InvalidStateError("assignment %d is %s, check-in is not allowed", a.ID, a.Status)
		}

		var job models.JobPosting
		if err := tx.Select("id", "status").First(&job, a.JobID).Error; err != nil {
			return notFoundOr(err, "job", a.JobID)
		}
		if job.IsClosed() {
			return InvalidStateError("job %d is %s", job.ID, job.Status)
		}

		var open int64
		if err := tx.Model(&models.CheckIn{}).Where("open_key = ?", a.ID).Count(&open).Error; err != nil {
			return errors.Wrap(err, "count open check-ins")
		}
		if open > 0 {
			return ConflictError("already checked in")
		}

		key := a.ID
		checkIn = models.CheckIn{
			AssignmentID: a.ID,
			UserID:       a.UserID,
			CheckInTime:  t.Now(),
			Location:     req.Location,
			Notes:        req.Notes,
			OpenKey:      &key,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&checkIn)
		if res.Error != nil {
			return errors.Wrapf(res.Error, "create check-in for assignment %d", a.ID)
		}
		if res.RowsAffected == 0 {
			return ConflictError("already checked in")
		}

		if a.Status == models.AssignmentSelected {
			from = a.Status
			if err := tx.Model(a).Update("status", models.AssignmentInProgress).Error; err != nil {
				return errors.Wrapf(err, "start assignment %d", a.ID)
			}
			a.Status = models.AssignmentInProgress
		}
		return recordAssignmentEvent(tx, models.EventCheckedIn, a, map[string]any{
			"checkInId":   checkIn.ID,
			"checkInTime": checkIn.CheckInTime,
		})
	})
	if err != nil {
		return nil, err
	}

	if from != "" {
		metrics.Transition(from, models.AssignmentInProgress)
	}
	metrics.ShiftEvents.WithLabelValues("check_in").Inc()
	utils.InfoLogger.WithFields(logrus.Fields{
		"assignment_id": a.ID,
		"user_id":       a.UserID,
		"check_in_id":   checkIn.ID,
	}).Info("checked in")
	return &checkIn, nil
}

// CheckOut closes the open shift of an assignment and, when asked, completes the assignment.
func (t *ShiftTracker) CheckOut(ctx context.Context, req ShiftRequest) (*models.CheckIn, error) {
	if err := validateLocation(req.Location); err != nil {
		return nil, err
	}
	a, err := t.ownedAssignment(ctx, req.AssignmentID, req.UserID)
	if err != nil {
		return nil, err
	}

	unlock := t.Locks.Lock(a.JobID)
	defer unlock()

	var checkIn models.CheckIn
	completedFrom := ""
	err = t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(a, a.ID).Error; err != nil {
			return notFoundOr(err, "assignment", a.ID)
		}
		if req.CompleteAssignment && !models.IsConfirmedAssignment(a.Status) {
			return InvalidStateError("assignment %d is %s and cannot be completed", a.ID, a.Status)
		}
		if err := tx.Where("open_key = ?", a.ID).First(&checkIn).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError("not checked in")
			}
			return errors.Wrap(err, "load open check-in")
		}

		now := t.Now()
		worked := int(now.Sub(checkIn.CheckInTime).Minutes())
		if worked < 0 {
			worked = 0
		}
		checkOut := models.CheckOut{
			CheckInID:     checkIn.ID,
			CheckOutTime:  now,
			Location:      req.Location,
			Notes:         req.Notes,
			WorkedMinutes: worked,
		}
		if err := tx.Create(&checkOut).Error; err != nil {
			return errors.Wrapf(err, "create check-out for check-in %d", checkIn.ID)
		}

		res := tx.Model(&models.CheckIn{}).
			Where("id = ? AND open_key IS NOT NULL", checkIn.ID).
			Update("open_key", nil)
		if res.Error != nil {
			return errors.Wrapf(res.Error, "close check-in %d", checkIn.ID)
		}
		if res.RowsAffected == 0 {
			return NotFoundError("not checked in")
		}
		checkIn.OpenKey = nil
		checkIn.CheckOut = &checkOut

		if err := recordAssignmentEvent(tx, models.EventCheckedOut, a, map[string]any{
			"checkInId":     checkIn.ID,
			"workedMinutes": worked,
		}); err != nil {
			return err
		}

		if req.CompleteAssignment {
			completedFrom = a.Status
			return completeAssignmentTx(tx, a, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completedFrom != "" {
		metrics.Transition(completedFrom, models.AssignmentCompleted)
	}
	metrics.ShiftEvents.WithLabelValues("check_out").Inc()
	utils.InfoLogger.WithFields(logrus.Fields{
		"assignment_id":  a.ID,
		"user_id":        a.UserID,
		"check_in_id":    checkIn.ID,
		"worked_minutes": checkIn.CheckOut.WorkedMinutes,
	}).Info("checked out")
	return &checkIn, nil
}

// GetStatus reports the open check-in of an assignment. Lookup failures read as not checked in,
// and so do shifts of anyone other than userID when it is set.
func (t *ShiftTracker) GetStatus(ctx context.Context, assignmentID, userID uint) CheckInStatus {
	status := CheckInStatus{AssignmentID: assignmentID}

	q := t.DB.WithContext(ctx).Where("open_key = ?", assignmentID)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	var checkIn models.CheckIn
	err := q.First(&checkIn).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorLogger.WithError(err).WithField("assignment_id", assignmentID).Warn("check-in status lookup failed")
		}
		return status
	}

	status.IsCheckedIn = true
	status.CheckInID = &checkIn.ID
	status.CheckInTime = &checkIn.CheckInTime
	return status
}

// WorkStatus lists the shifts a staff member currently has open.
func (t *ShiftTracker) WorkStatus(ctx context.Context, userID uint) ([]models.CheckIn, error) {
	open := []models.CheckIn{}
	if err := t.DB.WithContext(ctx).
		Where("user_id = ? AND open_key IS NOT NULL", userID).
		Order("check_in_time asc").
		Find(&open).Error; err != nil {
		return nil, errors.Wrap(err, "list open check-ins")
	}
	return open, nil
}

// TimesheetFilter narrows the closed shifts returned by Timesheet. Zero values are ignored.
type TimesheetFilter struct {
	JobID  uint
	UserID uint
	From   time.Time
	To     time.Time
}

// TimesheetRow is one closed shift.
type TimesheetRow struct {
	CheckInID     uint      `json:"checkInId"`
	AssignmentID  uint      `json:"jobAssignmentId"`
	JobID         uint      `json:"jobId"`
	JobTitle      string    `json:"jobTitle"`
	UserID        uint      `json:"userId"`
	StaffName     string    `json:"staffName"`
	Role          string    `json:"role"`
	CheckInTime   time.Time `json:"checkInTime"`
	CheckOutTime  time.Time `json:"checkOutTime"`
	WorkedMinutes int       `json:"workedMinutes"`
	HourlyRate    string    `json:"hourlyRate"`
}

func (t *ShiftTracker) Timesheet(ctx context.Context, filter TimesheetFilter) ([]TimesheetRow, error) {
	q := t.DB.WithContext(ctx).Model(&models.CheckIn{}).
		Preload("CheckOut").
		Joins("JOIN check_outs ON check_outs.check_in_id = check_ins.id")
	if filter.UserID != 0 {
		q = q.Where("check_ins.user_id = ?", filter.UserID)
	}
	if filter.JobID != 0 {
		q = q.Where("check_ins.assignment_id IN (?)",
			t.DB.Model(&models.Assignment{}).Select("id").Where("job_id = ?", filter.JobID))
	}
	if !filter.From.IsZero() {
		q = q.Where("check_ins.check_in_time >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("check_ins.check_in_time < ?", filter.To)
	}

	var checkIns []models.CheckIn
	if err := q.Order("check_ins.check_in_time asc").Find(&checkIns).Error; err != nil {
		return nil, errors.Wrap(err, "load timesheet")
	}
	if len(checkIns) == 0 {
		return []TimesheetRow{}, nil
	}

	ids := make([]uint, 0, len(checkIns))
	for _, ci := range checkIns {
		ids = append(ids, ci.AssignmentID)
	}
	var assignments []models.Assignment
	if err := t.DB.WithContext(ctx).Preload("Job").Preload("User").
		Where("id IN ?", ids).Find(&assignments).Error; err != nil {
		return nil, errors.Wrap(err, "load timesheet assignments")
	}
	byID := make(map[uint]models.Assignment, len(assignments))
	for _, a := range assignments {
		byID[a.ID] = a
	}

	rows := make([]TimesheetRow, 0, len(checkIns))
	for _, ci := range checkIns {
		if ci.CheckOut == nil {
			continue
		}
		a := byID[ci.AssignmentID]
		row := TimesheetRow{
			CheckInID:     ci.ID,
			AssignmentID:  ci.AssignmentID,
			JobID:         a.JobID,
			UserID:        ci.UserID,
			CheckInTime:   ci.CheckInTime,
			CheckOutTime:  ci.CheckOut.CheckOutTime,
			WorkedMinutes: ci.CheckOut.WorkedMinutes,
			HourlyRate:    utils.FormatRate(a.HourlyRate),
		}
		if a.Job != nil {
			row.JobTitle = a.Job.Title
		}
		if a.User != nil {
			row.StaffName = a.User.FullName()
			row.Role = a.User.Role
		}
		rows = append(rows, row)
	}
	return rows, nil
}
