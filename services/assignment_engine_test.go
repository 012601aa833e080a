package services

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/locum-staffing/models"
	"github.com/yeremiapane/locum-staffing/utils"
	"gorm.io/gorm"
)

func newEngine(t *testing.T) (*gorm.DB, *AssignmentEngine) {
	t.Helper()
	db := setupTestDB(t)
	return db, NewAssignmentEngine(db, NewJobLocks())
}

func TestCreateOffers_IsIdempotent(t *testing.T) {
	db, engine := newEngine(t)
	ctx := context.Background()
	job := createJob(t, db, models.RoleNurse, "", 1)
	n1 := createUser(t, db, models.RoleNurse, "")
	n2 := createUser(t, db, models.RoleNurse, "")

	first, err := engine.CreateOffers(ctx, job.ID, []models.User{n1, n2})
	require.NoError(t, err)
	assert.Len(t, first, 2)
	for _, a := range first {
		assert.Equal(t, models.AssignmentPending, a.Status)
		assert.True(t, a.HourlyRate.Equal(job.HourlyRate))
	}

	second, err := engine.CreateOffers(ctx, job.ID, []models.User{n1, n2})
	require.NoError(t, err)
	assert.Empty(t, second)

	var count int64
	require.NoError(t, db.Model(&models.Assignment{}).Where("job_id = ?", job.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestCreateOffers_ClosedJob(t *testing.T) {
	db, engine := newEngine(t)
	job := createJob(t, db, models.RoleNurse, "", 1)
	require.NoError(t, db.Model(&job).Update("status", models.JobStatusCancelled).Error)

	_, err := engine.CreateOffers(context.Background(), job.ID, []models.User{createUser(t, db, models.RoleNurse, "")})
	assert.True(t, IsKind(err, KindInvalidState))

	_, err = engine.CreateOffers(context.Background(), 9999, nil)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestRespond(t *testing.T) {
	db, engine := newEngine(t)
	ctx := context.Background()
	job := createJob(t, db, models.RoleNurse, "", 1)
	n1 := createUser(t, db, models.RoleNurse, "")
	n2 := createUser(t, db, models.RoleNurse, "")
	offers, err := engine.CreateOffers(ctx, job.ID, []models.User{n1, n2})
	require.NoError(t, err)

	t.Run("validation comes first", func(t *testing.T) {
		_, err := engine.Respond(ctx, offers[0].ID, n1.ID, "maybe", "")
		assert.True(t, IsKind(err, KindValidation))

		_, err = engine.Respond(ctx, offers[0].ID, n1.ID, ActionReject, "  ")
		assert.True(t, IsKind(err, KindValidation))
	})

	t.Run("other staff cannot answer", func(t *testing.T) {
		_, err := engine.Respond(ctx, offers[0].ID, n2.ID, ActionAccept, "")
		assert.True(t, IsKind(err, KindNotFound))
	})

	t.Run("accept", func(t *testing.T) {
		a, err := engine.Respond(ctx, offers[0].ID, n1.ID, "accept", "")
		require.NoError(t, err)
		assert.Equal(t, models.AssignmentAccepted, a.Status)
		assert.NotNil(t, a.AcceptedAt)

		_, err = engine.Respond(ctx, offers[0].ID, n1.ID, ActionReject, "changed my mind")
		assert.True(t, IsKind(err, KindInvalidState))
	})

	t.Run("reject frees the pair for a new offer", func(t *testing.T) {
		a, err := engine.Respond(ctx, offers[1].ID, n2.ID, ActionReject, "on leave")
		require.NoError(t, err)
		assert.Equal(t, models.AssignmentRejected, a.Status)
		assert.Equal(t, "on leave", a.RejectionReason)
		assert.Nil(t, a.ActiveKey)

		again, err := engine.CreateOffers(ctx, job.ID, []models.User{n2})
		require.NoError(t, err)
		require.Len(t, again, 1)
		assert.NotEqual(t, offers[1].ID, again[0].ID)
	})
}

func TestSelectCandidate_SingleSlotRejectsSiblings(t *testing.T) {
	db, engine := newEngine(t)
	ctx := context.Background()
	job := createJob(t, db, models.RoleNurse, "", 1)
	n1 := createUser(t, db, models.RoleNurse, "")
	n2 := createUser(t, db, models.RoleNurse, "")
	n3 := createUser(t, db, models.RoleNurse, "")

	accepted := offerAndAccept(t, engine, job.ID, n1, n2)
	pending, err := engine.CreateOffers(ctx, job.ID, []models.User{n3})
	require.NoError(t, err)
	require.Len(t, pending, 1)

	result, err := engine.SelectCandidate(ctx, job.ID, accepted[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentSelected, result.Selected.Status)
	assert.NotNil(t, result.Selected.SelectedAt)
	assert.Equal(t, models.JobStatusFilled, result.Job.Status)
	assert.Equal(t, 1, result.Job.CurrentAssignments)
	assert.Len(t, result.AutoRejected, 2)

	for _, id := range []uint{accepted[1].ID, pending[0].ID} {
		a := reloadAssignment(t, db, id)
		assert.Equal(t, models.AssignmentRejected, a.Status)
		assert.Equal(t, models.ReasonPositionFilled, a.RejectionReason)
		assert.Nil(t, a.ActiveKey)
	}

	_, err = engine.SelectCandidate(ctx, job.ID, accepted[1].ID)
	assert.True(t, IsKind(err, KindInvalidState))
}

func TestSelectCandidate_MultiSlot(t *testing.T) {
	db, engine := newEngine(t)
	ctx := context.Background()
	job := createJob(t, db, models.RoleNurse, "", 2)
	users := []models.User{
		createUser(t, db, models.RoleNurse, ""),
		createUser(t, db, models.RoleNurse, ""),
		createUser(t, db, models.RoleNurse, ""),
	}
	accepted := offerAndAccept(t, engine, job.ID, users...)

	first, err := engine.SelectCandidate(ctx, job.ID, accepted[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusActive, first.Job.Status)
	assert.Equal(t, 1, first.Job.CurrentAssignments)
	assert.Empty(t, first.AutoRejected)
	assert.Equal(t, models.AssignmentAccepted, reloadAssignment(t, db, accepted[2].ID).Status)

	second, err := engine.SelectCandidate(ctx, job.ID, accepted[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFilled, second.Job.Status)
	assert.Equal(t, 2, second.Job.CurrentAssignments)
	require.Len(t, second.AutoRejected, 1)
	assert.Equal(t, accepted[2].ID, second.AutoRejected[0].ID)
	assert.Equal(t, models.AssignmentRejected, reloadAssignment(t, db, accepted[2].ID).Status)
}

func TestSelectCandidate_Errors(t *testing.T) {
	db, engine := newEngine(t)
	ctx := context.Background()
	job := createJob(t, db, models.RoleNurse, "", 1)
	n1 := createUser(t, db, models.RoleNurse, "")
	offers, err := engine.CreateOffers(ctx, job.ID, []models.User{n1})
	require.NoError(t, err)

	_, err = engine.SelectCandidate(ctx, 9999, offers[0].ID)
	assert.True(t, IsKind(err, KindNotFound), "missing job")

	_, err = engine.SelectCandidate(ctx, job.ID, offers[0].ID)
	assert.True(t, IsKind(err, KindNotFound), "pending offer is not selectable")

	other := createJob(t, db, models.RoleNurse, "", 1)
	_, err = engine.SelectCandidate(ctx, other.ID, offers[0].ID)
	assert.True(t, IsKind(err, KindNotFound), "assignment of another job")

	assert.Equal(t, 0, reloadJob(t, db, job.ID).CurrentAssignments)
}

func TestSelectCandidate_ConcurrentSelectionsFillOnce(t *testing.T) {
	db, engine := newEngine(t)
	job := createJob(t, db, models.RoleNurse, "", 1)

	users := make([]models.User, 5)
	for i := range users {
		users[i] = createUser(t, db, models.RoleNurse, "")
	}
	accepted := offerAndAccept(t, engine, job.ID, users...)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for _, a := range accepted {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := engine.SelectCandidate(context.Background(), job.ID, id)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}(a.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	for _, err := range failures {
		assert.True(t, IsKind(err, KindInvalidState), "unexpected error: %v", err)
	}

	final := reloadJob(t, db, job.ID)
	assert.Equal(t, 1, final.CurrentAssignments)
	assert.Equal(t, models.JobStatusFilled, final.Status)

	var selected int64
	require.NoError(t, db.Model(&models.Assignment{}).
		Where("job_id = ? AND status = ?", job.ID, models.AssignmentSelected).
		Count(&selected).Error)
	assert.EqualValues(t, 1, selected)
}

func TestCancelJob_Cascades(t *testing.T) {
	db, engine := newEngine(t)
	ctx := context.Background()
	job := createJob(t, db, models.RoleNurse, "", 2)
	n1 := createUser(t, db, models.RoleNurse, "")
	n2 := createUser(t, db, models.RoleNurse, "")
	n3 := createUser(t, db, models.RoleNurse, "")

	accepted := offerAndAccept(t, engine, job.ID, n1)
	_, err := engine.SelectCandidate(ctx, job.ID, accepted[0].ID)
	require.NoError(t, err)
	offers, err := engine.CreateOffers(ctx, job.ID, []models.User{n2, n3})
	require.NoError(t, err)
	_, err = engine.Respond(ctx, offers[1].ID, n3.ID, ActionReject, "busy")
	require.NoError(t, err)

	_, _, err = engine.CancelJob(ctx, job.ID, "")
	assert.True(t, IsKind(err, KindValidation))

	_, cancelled, err := engine.CancelJob(ctx, job.ID, "budget cut")
	require.NoError(t, err)
	assert.Len(t, cancelled, 2)
	cancelledJob := reloadJob(t, db, job.ID)
	assert.Equal(t, models.JobStatusCancelled, cancelledJob.Status)
	assert.Equal(t, "budget cut", cancelledJob.CancellationReason)

	assert.Equal(t, models.AssignmentCancelled, reloadAssignment(t, db, accepted[0].ID).Status)
	pending := reloadAssignment(t, db, offers[0].ID)
	assert.Equal(t, models.AssignmentCancelled, pending.Status)
	assert.Equal(t, "budget cut", pending.CancellationReason)
	assert.Equal(t, models.AssignmentRejected, reloadAssignment(t, db, offers[1].ID).Status)

	_, _, err = engine.CancelJob(ctx, job.ID, "again")
	assert.True(t, IsKind(err, KindInvalidState))
	_, err = engine.SelectCandidate(ctx, job.ID, accepted[0].ID)
	assert.True(t, IsKind(err, KindInvalidState))
}

func TestCancelJob_BlockedByOpenShift(t *testing.T) {
	db, engine := newEngine(t)
	ctx := context.Background()
	job := createJob(t, db, models.RoleNurse, "", 1)
	nurse := createUser(t, db, models.RoleNurse, "")
	accepted := offerAndAccept(t, engine, job.ID, nurse)
	_, err := engine.SelectCandidate(ctx, job.ID, accepted[0].ID)
	require.NoError(t, err)

	tracker := NewShiftTracker(db, engine.Locks)
	_, err = tracker.CheckIn(ctx, ShiftRequest{AssignmentID: accepted[0].ID, UserID: nurse.ID})
	require.NoError(t, err)

	_, _, err = engine.CancelJob(ctx, job.ID, "closing ward")
	assert.True(t, IsKind(err, KindConflict))
	_, err = engine.CompleteJob(ctx, job.ID)
	assert.True(t, IsKind(err, KindConflict))
	_, err = engine.CancelAssignment(ctx, accepted[0].ID, "no show")
	assert.True(t, IsKind(err, KindConflict))

	assert.Equal(t, models.JobStatusFilled, reloadJob(t, db, job.ID).Status)
}

func TestSelectCandidate_BlockedBySiblingOnShift(t *testing.T) {
	db, engine := newEngine(t)
	ctx := context.Background()
	job := createJob(t, db, models.RoleNurse, "", 1)
	n1 := createUser(t, db, models.RoleNurse, "")
	n2 := createUser(t, db, models.RoleNurse, "")
	accepted := offerAndAccept(t, engine, job.ID, n1, n2)

	tracker := NewShiftTracker(db, engine.Locks)
	_, err := tracker.CheckIn(ctx, ShiftRequest{AssignmentID: accepted[1].ID, UserID: n2.ID})
	require.NoError(t, err)

	_, err = engine.SelectCandidate(ctx, job.ID, accepted[0].ID)
	assert.True(t, IsKind(err, KindConflict))

	stillOpen := reloadJob(t, db, job.ID)
	assert.Equal(t, models.JobStatusActive, stillOpen.Status)
	assert.Equal(t, 0, stillOpen.CurrentAssignments)
	var sibling models.Assignment
	require.NoError(t, db.First(&sibling, accepted[1].ID).Error)
	assert.Equal(t, models.AssignmentAccepted, sibling.Status)

	_, err = tracker.CheckOut(ctx, ShiftRequest{AssignmentID: accepted[1].ID, UserID: n2.ID})
	require.NoError(t, err)

	res, err := engine.SelectCandidate(ctx, job.ID, accepted[0].ID)
	require.NoError(t, err)
	require.Len(t, res.AutoRejected, 1)
	assert.Equal(t, accepted[1].ID, res.AutoRejected[0].ID)
	open, err := tracker.WorkStatus(ctx, n2.ID)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestSelectCandidate_SelectedStaffOnShiftDoNotBlock(t *testing.T) {
	db, engine := newEngine(t)
	ctx := context.Background()
	job := createJob(t, db, models.RoleNurse, "", 2)
	n1 := createUser(t, db, models.RoleNurse, "")
	n2 := createUser(t, db, models.RoleNurse, "")
	accepted := offerAndAccept(t, engine, job.ID, n1, n2)

	_, err := engine.SelectCandidate(ctx, job.ID, accepted[0].ID)
	require.NoError(t, err)
	tracker := NewShiftTracker(db, engine.Locks)
	_, err = tracker.CheckIn(ctx, ShiftRequest{AssignmentID: accepted[0].ID, UserID: n1.ID})
	require.NoError(t, err)

	res, err := engine.SelectCandidate(ctx, job.ID, accepted[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFilled, res.Job.Status)
}

func TestCancelAssignment_ReleasesSlot(t *testing.T) {
	db, engine := newEngine(t)
	ctx := context.Background()
	job := createJob(t, db, models.RoleNurse, "", 1)
	n1 := createUser(t, db, models.RoleNurse, "")
	n2 := createUser(t, db, models.RoleNurse, "")
	accepted := offerAndAccept(t, engine, job.ID, n1)
	_, err := engine.SelectCandidate(ctx, job.ID, accepted[0].ID)
	require.NoError(t, err)

	a, err := engine.CancelAssignment(ctx, accepted[0].ID, "sick")
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentCancelled, a.Status)
	assert.Equal(t, "sick", a.CancellationReason)

	reopened := reloadJob(t, db, job.ID)
	assert.Equal(t, models.JobStatusActive, reopened.Status)
	assert.Equal(t, 0, reopened.CurrentAssignments)

	replacement := offerAndAccept(t, engine, job.ID, n2)
	result, err := engine.SelectCandidate(ctx, job.ID, replacement[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFilled, result.Job.Status)

	_, err = engine.CancelAssignment(ctx, accepted[0].ID, "again")
	assert.True(t, IsKind(err, KindInvalidState))
}

func TestCompleteJob(t *testing.T) {
	db, engine := newEngine(t)
	ctx := context.Background()
	job := createJob(t, db, models.RoleNurse, "", 2)
	n1 := createUser(t, db, models.RoleNurse, "")
	n2 := createUser(t, db, models.RoleNurse, "")
	accepted := offerAndAccept(t, engine, job.ID, n1)
	_, err := engine.SelectCandidate(ctx, job.ID, accepted[0].ID)
	require.NoError(t, err)
	offers, err := engine.CreateOffers(ctx, job.ID, []models.User{n2})
	require.NoError(t, err)

	_, err = engine.CompleteJob(ctx, job.ID)
	require.NoError(t, err)
	completed := reloadJob(t, db, job.ID)
	assert.Equal(t, models.JobStatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	assert.Equal(t, models.AssignmentCompleted, reloadAssignment(t, db, accepted[0].ID).Status)
	pending := reloadAssignment(t, db, offers[0].ID)
	assert.Equal(t, models.AssignmentCancelled, pending.Status)
	assert.Equal(t, "job completed", pending.CancellationReason)
}

func TestCompleteAssignment_RequiresSelection(t *testing.T) {
	db, engine := newEngine(t)
	ctx := context.Background()
	job := createJob(t, db, models.RoleNurse, "", 1)
	nurse := createUser(t, db, models.RoleNurse, "")
	accepted := offerAndAccept(t, engine, job.ID, nurse)

	_, err := engine.CompleteAssignment(ctx, accepted[0].ID)
	assert.True(t, IsKind(err, KindInvalidState))

	_, err = engine.SelectCandidate(ctx, job.ID, accepted[0].ID)
	require.NoError(t, err)
	a, err := engine.CompleteAssignment(ctx, accepted[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentCompleted, a.Status)
	assert.NotNil(t, a.CompletedAt)
}

func TestOffer(t *testing.T) {
	db, engine := newEngine(t)
	ctx := context.Background()
	job := createJob(t, db, models.RoleDoctor, "Cardiology", 1)
	cardio := createUser(t, db, models.RoleDoctor, "cardiology")
	derm := createUser(t, db, models.RoleDoctor, "Dermatology")

	rate := decimal.NewFromInt(200)
	a, created, err := engine.Offer(ctx, job.ID, cardio.ID, &rate, "night cover")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, a.HourlyRate.Equal(rate))
	assert.Equal(t, "night cover", a.Notes)

	again, created, err := engine.Offer(ctx, job.ID, cardio.ID, nil, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, again.ID)

	_, _, err = engine.Offer(ctx, job.ID, derm.ID, nil, "")
	assert.True(t, IsKind(err, KindValidation))

	zero := decimal.Zero
	_, _, err = engine.Offer(ctx, job.ID, derm.ID, &zero, "")
	assert.True(t, IsKind(err, KindValidation))

	_, _, err = engine.Offer(ctx, job.ID, 9999, nil, "")
	assert.True(t, IsKind(err, KindNotFound))
}

func TestListForUserAndJob(t *testing.T) {
	db, engine := newEngine(t)
	ctx := context.Background()
	job := createJob(t, db, models.RoleNurse, "", 1)
	nurse := createUser(t, db, models.RoleNurse, "")
	accepted := offerAndAccept(t, engine, job.ID, nurse)

	mine, total, err := engine.ListForUser(ctx, nurse.ID, "accepted", utils.Page{Number: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Job)
	assert.Equal(t, job.ID, mine[0].Job.ID)

	forJob, err := engine.ListAccepted(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, forJob, 1)
	assert.Equal(t, accepted[0].ID, forJob[0].ID)
	require.NotNil(t, forJob[0].User)

	_, err = engine.ListForJob(ctx, 9999, "")
	assert.True(t, IsKind(err, KindNotFound))

	active, err := engine.ActiveForUser(ctx, nurse.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestEventsAreRecordedWithTransitions(t *testing.T) {
	db, engine := newEngine(t)
	ctx := context.Background()
	job := createJob(t, db, models.RoleNurse, "", 1)
	nurse := createUser(t, db, models.RoleNurse, "")
	accepted := offerAndAccept(t, engine, job.ID, nurse)
	_, err := engine.SelectCandidate(ctx, job.ID, accepted[0].ID)
	require.NoError(t, err)

	var kinds []string
	require.NoError(t, db.Model(&models.AssignmentEvent{}).Order("id asc").Pluck("kind", &kinds).Error)
	assert.Equal(t, []string{
		models.EventOfferCreated,
		models.EventAssignmentAccepted,
		models.EventCandidateSelected,
	}, kinds)
}
