package services

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/locum-staffing/metrics"
	"github.com/yeremiapane/locum-staffing/models"
	"github.com/yeremiapane/locum-staffing/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	ActionAccept = "ACCEPT"
	ActionReject = "REJECT"
)

// AssignmentEngine owns the assignment state machine of every job posting.
type AssignmentEngine struct {
	DB    *gorm.DB
	Locks *JobLocks
	Now   func() time.Time
}

func NewAssignmentEngine(db *gorm.DB, locks *JobLocks) *AssignmentEngine {
	return &AssignmentEngine{
		DB:    db,
		Locks: locks,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

// SelectionResult describes the outcome of a successful selectCandidate.
type SelectionResult struct {
	Job          models.JobPosting  `json:"job"`
	Selected     models.Assignment  `json:"selected"`
	AutoRejected []models.Assignment `json:"autoRejected"`
}

func (e *AssignmentEngine) logger() *logrus.Entry {
	return utils.InfoLogger.WithField("component", "assignment_engine")
}

func lockJobRow(tx *gorm.DB, jobID uint) (*models.JobPosting, error) {
	var job models.JobPosting
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&job, jobID).Error; err != nil {
		return nil, notFoundOr(err, "job", jobID)
	}
	return &job, nil
}

// CreateOffers creates one PENDING assignment per candidate that has no non-terminal
// assignment for the job yet. Repeating the call creates nothing new.
func (e *AssignmentEngine) CreateOffers(ctx context.Context, jobID uint, candidates []models.User) ([]models.Assignment, error) {
	unlock := e.Locks.Lock(jobID)
	defer unlock()

	var created []models.Assignment
	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := lockJobRow(tx, jobID)
		if err != nil {
			return err
		}
		if job.Status != models.JobStatusActive {
			return InvalidStateError("job %d is %s and cannot receive offers", job.ID, job.Status)
		}

		for i := range candidates {
			a, ok, err := e.insertOffer(tx, job, candidates[i].ID, job.HourlyRate, "")
			if err != nil {
				return err
			}
			if ok {
				created = append(created, *a)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OffersCreated.Add(float64(len(created)))
	e.logger().WithFields(logrus.Fields{
		"job_id":     jobID,
		"candidates": len(candidates),
		"created":    len(created),
	}).Info("offers created")
	return created, nil
}

// insertOffer relies on the unique active key; a conflicting row means the staff member
// already holds a live assignment for the job.
func (e *AssignmentEngine) insertOffer(tx *gorm.DB, job *models.JobPosting, userID uint, rate decimal.Decimal, notes string) (*models.Assignment, bool, error) {
	a := models.Assignment{
		JobID:      job.ID,
		UserID:     userID,
		Status:     models.AssignmentPending,
		HourlyRate: rate,
		Notes:      notes,
		ActiveKey:  models.ActiveKeyFor(job.ID, userID),
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&a)
	if res.Error != nil {
		return nil, false, errors.Wrapf(res.Error, "create offer for user %d", userID)
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}
	if err := recordAssignmentEvent(tx, models.EventOfferCreated, &a, nil); err != nil {
		return nil, false, err
	}
	return &a, true, nil
}

// Offer assigns one staff member to a job by hand. The staff member must be compatible;
// the soft department/location filters do not apply. A rate of nil snapshots the job rate.
// It returns the live assignment and whether it was created by this call.
func (e *AssignmentEngine) Offer(ctx context.Context, jobID, userID uint, rate *decimal.Decimal, notes string) (*models.Assignment, bool, error) {
	if rate != nil && !rate.IsPositive() {
		return nil, false, ValidationError("hourly rate must be greater than 0")
	}

	var user models.User
	if err := e.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, false, notFoundOr(err, "user", userID)
	}

	unlock := e.Locks.Lock(jobID)
	defer unlock()

	var (
		result  models.Assignment
		created bool
	)
	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := lockJobRow(tx, jobID)
		if err != nil {
			return err
		}
		if job.Status != models.JobStatusActive {
			return InvalidStateError("job %d is %s and cannot receive offers", job.ID, job.Status)
		}
		if !Matches(job, &user, MatchOptions{}) {
			return ValidationError("user %d does not meet the role or specialization required by job %d", user.ID, job.ID)
		}

		snapshot := job.HourlyRate
		if rate != nil {
			snapshot = *rate
		}
		a, ok, err := e.insertOffer(tx, job, user.ID, snapshot, notes)
		if err != nil {
			return err
		}
		if ok {
			result, created = *a, true
			return nil
		}
		return tx.Where("active_key = ?", *models.ActiveKeyFor(job.ID, user.ID)).First(&result).Error
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		metrics.OffersCreated.Inc()
	}
	return &result, created, nil
}

// Respond records a staff member's answer to a PENDING offer. userID 0 skips the
// ownership check.
func (e *AssignmentEngine) Respond(ctx context.Context, assignmentID, userID uint, action, rejectionReason string) (*models.Assignment, error) {
	action = strings.ToUpper(strings.TrimSpace(action))
	if action != ActionAccept && action != ActionReject {
		return nil, ValidationError("action must be ACCEPT or REJECT")
	}
	if action == ActionReject && strings.TrimSpace(rejectionReason) == "" {
		return nil, ValidationError("rejection reason is required")
	}

	a, err := e.Get(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if userID != 0 && a.UserID != userID {
		return nil, NotFoundError("assignment %d not found", assignmentID)
	}

	unlock := e.Locks.Lock(a.JobID)
	defer unlock()

	from := models.AssignmentPending
	err = e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(a, assignmentID).Error; err != nil {
			return notFoundOr(err, "assignment", assignmentID)
		}
		if a.Status != models.AssignmentPending {
			return InvalidStateError("assignment %d is %s, only PENDING offers can be answered", a.ID, a.Status)
		}

		now := e.Now()
		updates := map[string]any{}
		kind := models.EventAssignmentAccepted
		if action == ActionAccept {
			updates["status"] = models.AssignmentAccepted
			updates["accepted_at"] = now
		} else {
			kind = models.EventAssignmentRejected
			updates["status"] = models.AssignmentRejected
			updates["rejection_reason"] = rejectionReason
			updates["rejected_at"] = now
			updates["active_key"] = nil
		}

		res := tx.Model(&models.Assignment{}).
			Where("id = ? AND status = ?", a.ID, models.AssignmentPending).
			Updates(updates)
		if res.Error != nil {
			return errors.Wrapf(res.Error, "update assignment %d", a.ID)
		}
		if res.RowsAffected == 0 {
			return InvalidStateError("assignment %d is no longer PENDING", a.ID)
		}
		if err := tx.First(a, a.ID).Error; err != nil {
			return errors.Wrapf(err, "reload assignment %d", a.ID)
		}
		return recordAssignmentEvent(tx, kind, a, map[string]any{"rejectionReason": a.RejectionReason})
	})
	if err != nil {
		return nil, err
	}

	metrics.Transition(from, a.Status)
	e.logger().WithFields(logrus.Fields{
		"assignment_id": a.ID,
		"job_id":        a.JobID,
		"user_id":       a.UserID,
		"to":            a.Status,
	}).Info("assignment answered")
	return a, nil
}

// SelectCandidate confirms one ACCEPTED assignment and consumes one slot of the job.
// When that fills the job, every other PENDING or ACCEPTED assignment is rejected with
// reason "position filled". The whole cascade commits or nothing does.
func (e *AssignmentEngine) SelectCandidate(ctx context.Context, jobID, assignmentID uint) (*SelectionResult, error) {
	unlock := e.Locks.Lock(jobID)
	defer unlock()

	var result SelectionResult
	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := lockJobRow(tx, jobID)
		if err != nil {
			return err
		}
		if job.Status != models.JobStatusActive || job.CurrentAssignments >= job.MaxAssignments {
			metrics.SelectionRejected.WithLabelValues("job_state").Inc()
			return InvalidStateError("job %d is %s, no candidate can be selected", job.ID, job.Status)
		}

		var chosen models.Assignment
		if err := tx.Where("id = ? AND job_id = ? AND status = ?", assignmentID, jobID, models.AssignmentAccepted).
			First(&chosen).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError("no accepted assignment %d for job %d", assignmentID, jobID)
			}
			return errors.Wrapf(err, "load assignment %d", assignmentID)
		}

		now := e.Now()
		count := job.CurrentAssignments + 1
		status := models.JobStatusActive
		if count >= job.MaxAssignments {
			status = models.JobStatusFilled
		}

		if status == models.JobStatusFilled {
			if err := ensureSiblingsCheckedOut(tx, job.ID, chosen.ID); err != nil {
				metrics.SelectionRejected.WithLabelValues("open_shift").Inc()
				return err
			}
		}

		// Compare-and-swap on the values read above guards against writers in other processes.
		res := tx.Model(&models.JobPosting{}).
			Where("id = ? AND status = ? AND current_assignments = ?", job.ID, models.JobStatusActive, job.CurrentAssignments).
			Updates(map[string]any{"current_assignments": count, "status": status})
		if res.Error != nil {
			return errors.Wrapf(res.Error, "update job %d", job.ID)
		}
		if res.RowsAffected == 0 {
			metrics.SelectionRejected.WithLabelValues("concurrent_update").Inc()
			return InvalidStateError("job %d was changed by another selection", job.ID)
		}

		res = tx.Model(&models.Assignment{}).
			Where("id = ? AND status = ?", chosen.ID, models.AssignmentAccepted).
			Updates(map[string]any{"status": models.AssignmentSelected, "selected_at": now})
		if res.Error != nil {
			return errors.Wrapf(res.Error, "select assignment %d", chosen.ID)
		}
		if res.RowsAffected == 0 {
			return InvalidStateError("assignment %d is no longer ACCEPTED", chosen.ID)
		}
		if err := tx.First(&chosen, chosen.ID).Error; err != nil {
			return errors.Wrapf(err, "reload assignment %d", chosen.ID)
		}
		if err := recordAssignmentEvent(tx, models.EventCandidateSelected, &chosen, map[string]any{
			"currentAssignments": count,
			"jobStatus":          status,
		}); err != nil {
			return err
		}

		if status == models.JobStatusFilled {
			rejected, err := e.rejectSiblings(tx, job.ID, chosen.ID, now)
			if err != nil {
				return err
			}
			result.AutoRejected = rejected
		}

		if err := tx.First(job, job.ID).Error; err != nil {
			return errors.Wrapf(err, "reload job %d", job.ID)
		}
		result.Job = *job
		result.Selected = chosen
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Transition(models.AssignmentAccepted, models.AssignmentSelected)
	for _, r := range result.AutoRejected {
		metrics.Transition(r.Status, models.AssignmentRejected)
	}
	if result.AutoRejected == nil {
		result.AutoRejected = []models.Assignment{}
	}
	for i := range result.AutoRejected {
		result.AutoRejected[i].Status = models.AssignmentRejected
		result.AutoRejected[i].RejectionReason = models.ReasonPositionFilled
	}

	e.logger().WithFields(logrus.Fields{
		"job_id":        jobID,
		"assignment_id": assignmentID,
		"job_status":    result.Job.Status,
		"auto_rejected": len(result.AutoRejected),
	}).Info("candidate selected")
	return &result, nil
}

// rejectSiblings returns the siblings as they were before rejection.
func (e *AssignmentEngine) rejectSiblings(tx *gorm.DB, jobID, keepID uint, now time.Time) ([]models.Assignment, error) {
	var siblings []models.Assignment
	if err := tx.Where("job_id = ? AND id <> ? AND status IN ?", jobID, keepID,
		[]string{models.AssignmentPending, models.AssignmentAccepted}).
		Find(&siblings).Error; err != nil {
		return nil, errors.Wrapf(err, "load siblings of job %d", jobID)
	}
	if len(siblings) == 0 {
		return nil, nil
	}

	ids := make([]uint, len(siblings))
	for i := range siblings {
		ids[i] = siblings[i].ID
	}
	if err := tx.Model(&models.Assignment{}).Where("id IN ?", ids).Updates(map[string]any{
		"status":           models.AssignmentRejected,
		"rejection_reason": models.ReasonPositionFilled,
		"rejected_at":      now,
		"active_key":       nil,
	}).Error; err != nil {
		return nil, errors.Wrapf(err, "reject siblings of job %d", jobID)
	}

	for i := range siblings {
		s := siblings[i]
		s.Status = models.AssignmentRejected
		if err := recordAssignmentEvent(tx, models.EventAssignmentRejected, &s, map[string]any{
			"rejectionReason": models.ReasonPositionFilled,
			"automatic":       true,
		}); err != nil {
			return nil, err
		}
	}
	return siblings, nil
}

// CancelJob cancels the posting and every assignment that is not terminal yet.
func (e *AssignmentEngine) CancelJob(ctx context.Context, jobID uint, reason string) (*models.JobPosting, []models.Assignment, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, nil, ValidationError("cancellation reason is required")
	}

	unlock := e.Locks.Lock(jobID)
	defer unlock()

	var (
		job       *models.JobPosting
		cancelled []models.Assignment
	)
	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		job, err = lockJobRow(tx, jobID)
		if err != nil {
			return err
		}
		if job.IsClosed() {
			return InvalidStateError("job %d is already %s", job.ID, job.Status)
		}
		if err := ensureNoOpenShifts(tx, jobID, 0); err != nil {
			return err
		}

		now := e.Now()
		if err := tx.Model(job).Updates(map[string]any{
			"status":              models.JobStatusCancelled,
			"cancellation_reason": reason,
			"cancelled_at":        now,
		}).Error; err != nil {
			return errors.Wrapf(err, "cancel job %d", job.ID)
		}

		cancelled, err = e.closeLiveAssignments(tx, jobID, func(models.Assignment) string {
			return models.AssignmentCancelled
		}, reason, now)
		if err != nil {
			return err
		}
		return recordEvent(tx, models.EventJobCancelled, job.ID, nil, nil, map[string]any{
			"reason":    reason,
			"cancelled": len(cancelled),
		})
	})
	if err != nil {
		return nil, nil, err
	}

	e.logger().WithFields(logrus.Fields{
		"job_id":    jobID,
		"cancelled": len(cancelled),
	}).Info("job cancelled")
	return job, cancelled, nil
}

// CompleteJob closes a job after its shifts: confirmed assignments complete, the rest cancel.
func (e *AssignmentEngine) CompleteJob(ctx context.Context, jobID uint) (*models.JobPosting, error) {
	unlock := e.Locks.Lock(jobID)
	defer unlock()

	var job *models.JobPosting
	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		job, err = lockJobRow(tx, jobID)
		if err != nil {
			return err
		}
		if job.IsClosed() {
			return InvalidStateError("job %d is already %s", job.ID, job.Status)
		}
		if err := ensureNoOpenShifts(tx, jobID, 0); err != nil {
			return err
		}

		now := e.Now()
		if err := tx.Model(job).Updates(map[string]any{
			"status":       models.JobStatusCompleted,
			"completed_at": now,
		}).Error; err != nil {
			return errors.Wrapf(err, "complete job %d", job.ID)
		}

		closed, err := e.closeLiveAssignments(tx, jobID, func(a models.Assignment) string {
			if models.IsConfirmedAssignment(a.Status) {
				return models.AssignmentCompleted
			}
			return models.AssignmentCancelled
		}, "job completed", now)
		if err != nil {
			return err
		}
		return recordEvent(tx, models.EventJobCompleted, job.ID, nil, nil, map[string]any{"closed": len(closed)})
	})
	if err != nil {
		return nil, err
	}

	e.logger().WithField("job_id", jobID).Info("job completed")
	return job, nil
}

// closeLiveAssignments moves every non-terminal assignment of a job to the status chosen by
// target and returns them in their new state.
func (e *AssignmentEngine) closeLiveAssignments(tx *gorm.DB, jobID uint, target func(models.Assignment) string, reason string, now time.Time) ([]models.Assignment, error) {
	var live []models.Assignment
	if err := tx.Where("job_id = ? AND status NOT IN ?", jobID, terminalStatuses()).
		Find(&live).Error; err != nil {
		return nil, errors.Wrapf(err, "load assignments of job %d", jobID)
	}

	for i := range live {
		from := live[i].Status
		to := target(live[i])
		updates := map[string]any{"status": to, "active_key": nil}
		kind := models.EventAssignmentCancel
		if to == models.AssignmentCompleted {
			updates["completed_at"] = now
			kind = models.EventAssignmentComplete
		} else {
			updates["cancelled_at"] = now
			updates["cancellation_reason"] = reason
		}
		if err := tx.Model(&live[i]).Updates(updates).Error; err != nil {
			return nil, errors.Wrapf(err, "close assignment %d", live[i].ID)
		}
		live[i].Status, live[i].ActiveKey = to, nil
		if err := recordAssignmentEvent(tx, kind, &live[i], map[string]any{"reason": reason}); err != nil {
			return nil, err
		}
		metrics.Transition(from, to)
	}
	return live, nil
}

// CancelAssignment withdraws a single live assignment. Cancelling a confirmed assignment
// gives its slot back to the job.
func (e *AssignmentEngine) CancelAssignment(ctx context.Context, assignmentID uint, reason string) (*models.Assignment, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ValidationError("cancellation reason is required")
	}
	a, err := e.Get(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	unlock := e.Locks.Lock(a.JobID)
	defer unlock()

	var from string
	err = e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job, err := lockJobRow(tx, a.JobID)
		if err != nil {
			return err
		}
		if err := tx.First(a, assignmentID).Error; err != nil {
			return notFoundOr(err, "assignment", assignmentID)
		}
		if a.IsTerminal() {
			return InvalidStateError("assignment %d is already %s", a.ID, a.Status)
		}
		if err := ensureNoOpenShifts(tx, a.JobID, a.ID); err != nil {
			return err
		}
		from = a.Status

		if models.IsConfirmedAssignment(a.Status) && !job.IsClosed() {
			if err := releaseSlot(tx, job); err != nil {
				return err
			}
		}

		now := e.Now()
		if err := tx.Model(a).Updates(map[string]any{
			"status":              models.AssignmentCancelled,
			"cancellation_reason": reason,
			"cancelled_at":        now,
			"active_key":          nil,
		}).Error; err != nil {
			return errors.Wrapf(err, "cancel assignment %d", a.ID)
		}
		a.Status, a.CancellationReason, a.CancelledAt, a.ActiveKey = models.AssignmentCancelled, reason, &now, nil
		return recordAssignmentEvent(tx, models.EventAssignmentCancel, a, map[string]any{"reason": reason})
	})
	if err != nil {
		return nil, err
	}

	metrics.Transition(from, models.AssignmentCancelled)
	return a, nil
}

func releaseSlot(tx *gorm.DB, job *models.JobPosting) error {
	count := job.CurrentAssignments - 1
	if count < 0 {
		count = 0
	}
	if err := tx.Model(job).Updates(map[string]any{
		"current_assignments": count,
		"status":              models.JobStatusActive,
	}).Error; err != nil {
		return errors.Wrapf(err, "release slot of job %d", job.ID)
	}
	job.CurrentAssignments, job.Status = count, models.JobStatusActive
	return nil
}

// CompleteAssignment marks a confirmed assignment as worked.
func (e *AssignmentEngine) CompleteAssignment(ctx context.Context, assignmentID uint) (*models.Assignment, error) {
	a, err := e.Get(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	unlock := e.Locks.Lock(a.JobID)
	defer unlock()

	var from string
	err = e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(a, assignmentID).Error; err != nil {
			return notFoundOr(err, "assignment", assignmentID)
		}
		if err := ensureNoOpenShifts(tx, a.JobID, a.ID); err != nil {
			return err
		}
		from = a.Status
		return completeAssignmentTx(tx, a, e.Now())
	})
	if err != nil {
		return nil, err
	}

	metrics.Transition(from, models.AssignmentCompleted)
	return a, nil
}

func completeAssignmentTx(tx *gorm.DB, a *models.Assignment, now time.Time) error {
	if !models.IsConfirmedAssignment(a.Status) {
		return InvalidStateError("assignment %d is %s and cannot be completed", a.ID, a.Status)
	}
	if err := tx.Model(a).Updates(map[string]any{
		"status":       models.AssignmentCompleted,
		"completed_at": now,
		"active_key":   nil,
	}).Error; err != nil {
		return errors.Wrapf(err, "complete assignment %d", a.ID)
	}
	a.Status, a.CompletedAt, a.ActiveKey = models.AssignmentCompleted, &now, nil
	return recordAssignmentEvent(tx, models.EventAssignmentComplete, a, nil)
}

// ensureNoOpenShifts fails with ConflictError while a staff member is still checked in to
// the job, or to a single assignment when assignmentID is not 0.
func ensureNoOpenShifts(tx *gorm.DB, jobID, assignmentID uint) error {
	q := tx.Model(&models.CheckIn{}).Where("open_key IS NOT NULL")
	if assignmentID != 0 {
		q = q.Where("assignment_id = ?", assignmentID)
	} else {
		q = q.Where("assignment_id IN (?)", tx.Model(&models.Assignment{}).Select("id").Where("job_id = ?", jobID))
	}

	var open int64
	if err := q.Count(&open).Error; err != nil {
		return errors.Wrap(err, "count open check-ins")
	}
	if open > 0 {
		return ConflictError("staff are still checked in, check out first")
	}
	return nil
}

// ensureSiblingsCheckedOut refuses to fill a job while an unselected offer still has an open shift.
func ensureSiblingsCheckedOut(tx *gorm.DB, jobID, keepID uint) error {
	siblings := tx.Model(&models.Assignment{}).Select("id").
		Where("job_id = ? AND id <> ? AND status IN ?", jobID, keepID,
			[]string{models.AssignmentPending, models.AssignmentAccepted})

	var open int64
	if err := tx.Model(&models.CheckIn{}).
		Where("open_key IS NOT NULL AND assignment_id IN (?)", siblings).
		Count(&open).Error; err != nil {
		return errors.Wrap(err, "count open check-ins")
	}
	if open > 0 {
		return ConflictError("staff are still checked in, check out first")
	}
	return nil
}

func terminalStatuses() []string {
	return []string{models.AssignmentRejected, models.AssignmentCompleted, models.AssignmentCancelled}
}

// Get loads one assignment with its job.
func (e *AssignmentEngine) Get(ctx context.Context, id uint) (*models.Assignment, error) {
	var a models.Assignment
	if err := e.DB.WithContext(ctx).Preload("Job").First(&a, id).Error; err != nil {
		return nil, notFoundOr(err, "assignment", id)
	}
	return &a, nil
}

// ListForJob returns the assignments of a job with their staff, optionally by status.
func (e *AssignmentEngine) ListForJob(ctx context.Context, jobID uint, status string) ([]models.Assignment, error) {
	var job models.JobPosting
	if err := e.DB.WithContext(ctx).Select("id").First(&job, jobID).Error; err != nil {
		return nil, notFoundOr(err, "job", jobID)
	}

	q := e.DB.WithContext(ctx).Preload("User").Where("job_id = ?", jobID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	assignments := []models.Assignment{}
	if err := q.Order("created_at asc, id asc").Find(&assignments).Error; err != nil {
		return nil, errors.Wrapf(err, "list assignments of job %d", jobID)
	}
	return assignments, nil
}

// ListAccepted is the HR review list of candidates awaiting selection.
func (e *AssignmentEngine) ListAccepted(ctx context.Context, jobID uint) ([]models.Assignment, error) {
	return e.ListForJob(ctx, jobID, models.AssignmentAccepted)
}

func (e *AssignmentEngine) ListForUser(ctx context.Context, userID uint, status string, page utils.Page) ([]models.Assignment, int64, error) {
	q := e.DB.WithContext(ctx).Model(&models.Assignment{}).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", strings.ToUpper(status))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count assignments")
	}

	assignments := []models.Assignment{}
	if err := q.Preload("Job").
		Order("created_at desc, id desc").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&assignments).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list assignments")
	}
	return assignments, total, nil
}

// ActiveForUser returns the assignments a staff member is expected to work.
func (e *AssignmentEngine) ActiveForUser(ctx context.Context, userID uint) ([]models.Assignment, error) {
	assignments := []models.Assignment{}
	if err := e.DB.WithContext(ctx).Preload("Job").
		Where("user_id = ? AND status IN ?", userID, []string{
			models.AssignmentAccepted, models.AssignmentSelected, models.AssignmentInProgress,
		}).
		Order("created_at asc").
		Find(&assignments).Error; err != nil {
		return nil, errors.Wrap(err, "list active assignments")
	}
	return assignments, nil
}
