package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/locum-staffing/models"
	"gorm.io/gorm"
)

type shiftFixture struct {
	db      *gorm.DB
	engine  *AssignmentEngine
	tracker *ShiftTracker
	job     models.JobPosting
	nurse   models.User
	assign  models.Assignment
	clock   time.Time
}

// newShiftFixture prepares one nurse selected for a single-slot job, with a controllable clock.
func newShiftFixture(t *testing.T) *shiftFixture {
	t.Helper()
	db, engine := newEngine(t)
	f := &shiftFixture{
		db:     db,
		engine: engine,
		job:    createJob(t, db, models.RoleNurse, "", 1),
		nurse:  createUser(t, db, models.RoleNurse, ""),
		clock:  time.Date(2026, 11, 1, 20, 0, 0, 0, time.UTC),
	}
	f.tracker = NewShiftTracker(db, engine.Locks)
	f.tracker.Now = func() time.Time { return f.clock }

	accepted := offerAndAccept(t, engine, f.job.ID, f.nurse)
	_, err := engine.SelectCandidate(context.Background(), f.job.ID, accepted[0].ID)
	require.NoError(t, err)
	f.assign = reloadAssignment(t, db, accepted[0].ID)
	return f
}

func (f *shiftFixture) request(complete bool) ShiftRequest {
	return ShiftRequest{
		AssignmentID:       f.assign.ID,
		UserID:             f.nurse.ID,
		Location:           models.GeoLocation{Latitude: -6.2, Longitude: 106.8, Address: "Ward 3"},
		CompleteAssignment: complete,
	}
}

func TestCheckIn_StartsAssignment(t *testing.T) {
	f := newShiftFixture(t)
	ctx := context.Background()

	checkIn, err := f.tracker.CheckIn(ctx, f.request(false))
	require.NoError(t, err)
	assert.Equal(t, f.assign.ID, checkIn.AssignmentID)
	assert.True(t, checkIn.IsOpen())
	assert.Equal(t, f.clock, checkIn.CheckInTime)
	assert.Equal(t, models.AssignmentInProgress, reloadAssignment(t, f.db, f.assign.ID).Status)

	status := f.tracker.GetStatus(ctx, f.assign.ID, f.nurse.ID)
	assert.True(t, status.IsCheckedIn)
	require.NotNil(t, status.CheckInID)
	assert.Equal(t, checkIn.ID, *status.CheckInID)

	_, err = f.tracker.CheckIn(ctx, f.request(false))
	assert.True(t, IsKind(err, KindConflict))
}

func TestCheckIn_Rejections(t *testing.T) {
	f := newShiftFixture(t)
	ctx := context.Background()

	bad := f.request(false)
	bad.Location.Latitude = 91
	_, err := f.tracker.CheckIn(ctx, bad)
	assert.True(t, IsKind(err, KindValidation))

	stranger := createUser(t, f.db, models.RoleNurse, "")
	req := f.request(false)
	req.UserID = stranger.ID
	_, err = f.tracker.CheckIn(ctx, req)
	assert.True(t, IsKind(err, KindNotFound))

	req = f.request(false)
	req.AssignmentID = 9999
	_, err = f.tracker.CheckIn(ctx, req)
	assert.True(t, IsKind(err, KindNotFound))

	job := createJob(t, f.db, models.RoleNurse, "", 1)
	offers, err := f.engine.CreateOffers(ctx, job.ID, []models.User{f.nurse})
	require.NoError(t, err)
	req = f.request(false)
	req.AssignmentID = offers[0].ID
	_, err = f.tracker.CheckIn(ctx, req)
	assert.True(t, IsKind(err, KindInvalidState), "pending offers cannot check in")
}

func TestCheckIn_AcceptedKeepsStatus(t *testing.T) {
	db, engine := newEngine(t)
	ctx := context.Background()
	tracker := NewShiftTracker(db, engine.Locks)
	job := createJob(t, db, models.RoleNurse, "", 1)
	nurse := createUser(t, db, models.RoleNurse, "")
	accepted := offerAndAccept(t, engine, job.ID, nurse)

	_, err := tracker.CheckIn(ctx, ShiftRequest{AssignmentID: accepted[0].ID, UserID: nurse.ID})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentAccepted, reloadAssignment(t, db, accepted[0].ID).Status)
}

func TestCheckOut(t *testing.T) {
	f := newShiftFixture(t)
	ctx := context.Background()

	_, err := f.tracker.CheckOut(ctx, f.request(false))
	assert.True(t, IsKind(err, KindNotFound), "not checked in")

	_, err = f.tracker.CheckIn(ctx, f.request(false))
	require.NoError(t, err)

	f.clock = f.clock.Add(8*time.Hour + 30*time.Minute)
	closed, err := f.tracker.CheckOut(ctx, f.request(false))
	require.NoError(t, err)
	assert.False(t, closed.IsOpen())
	require.NotNil(t, closed.CheckOut)
	assert.Equal(t, 510, closed.CheckOut.WorkedMinutes)
	assert.False(t, f.tracker.GetStatus(ctx, f.assign.ID, f.nurse.ID).IsCheckedIn)
	assert.Equal(t, models.AssignmentInProgress, reloadAssignment(t, f.db, f.assign.ID).Status)

	// a second shift on the same assignment
	_, err = f.tracker.CheckIn(ctx, f.request(false))
	require.NoError(t, err)
	f.clock = f.clock.Add(time.Hour)
	_, err = f.tracker.CheckOut(ctx, f.request(true))
	require.NoError(t, err)

	done := reloadAssignment(t, f.db, f.assign.ID)
	assert.Equal(t, models.AssignmentCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)

	var shifts int64
	require.NoError(t, f.db.Model(&models.CheckOut{}).Count(&shifts).Error)
	assert.EqualValues(t, 2, shifts)
}

func TestCheckOut_CompleteRequiresSelection(t *testing.T) {
	db, engine := newEngine(t)
	ctx := context.Background()
	tracker := NewShiftTracker(db, engine.Locks)
	job := createJob(t, db, models.RoleNurse, "", 1)
	nurse := createUser(t, db, models.RoleNurse, "")
	accepted := offerAndAccept(t, engine, job.ID, nurse)
	req := ShiftRequest{AssignmentID: accepted[0].ID, UserID: nurse.ID, CompleteAssignment: true}

	_, err := tracker.CheckIn(ctx, req)
	require.NoError(t, err)
	_, err = tracker.CheckOut(ctx, req)
	assert.True(t, IsKind(err, KindInvalidState))
	assert.True(t, tracker.GetStatus(ctx, accepted[0].ID, nurse.ID).IsCheckedIn, "failed checkout keeps the shift open")
}

func TestGetStatus_Unknown(t *testing.T) {
	db, engine := newEngine(t)
	tracker := NewShiftTracker(db, engine.Locks)

	status := tracker.GetStatus(context.Background(), 4242, 0)
	assert.False(t, status.IsCheckedIn)
	assert.Nil(t, status.CheckInID)
	assert.Equal(t, uint(4242), status.AssignmentID)
}

func TestGetStatus_HidesOtherStaff(t *testing.T) {
	f := newShiftFixture(t)
	ctx := context.Background()
	other := createUser(t, f.db, models.RoleNurse, "")

	_, err := f.tracker.CheckIn(ctx, f.request(false))
	require.NoError(t, err)

	assert.True(t, f.tracker.GetStatus(ctx, f.assign.ID, f.nurse.ID).IsCheckedIn)
	hidden := f.tracker.GetStatus(ctx, f.assign.ID, other.ID)
	assert.False(t, hidden.IsCheckedIn)
	assert.Nil(t, hidden.CheckInID)
	assert.Nil(t, hidden.CheckInTime)
	assert.True(t, f.tracker.GetStatus(ctx, f.assign.ID, 0).IsCheckedIn)
}

func TestWorkStatusAndTimesheet(t *testing.T) {
	f := newShiftFixture(t)
	ctx := context.Background()

	_, err := f.tracker.CheckIn(ctx, f.request(false))
	require.NoError(t, err)
	open, err := f.tracker.WorkStatus(ctx, f.nurse.ID)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	rows, err := f.tracker.Timesheet(ctx, TimesheetFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows, "open shifts are not on the timesheet")

	f.clock = f.clock.Add(2 * time.Hour)
	_, err = f.tracker.CheckOut(ctx, f.request(false))
	require.NoError(t, err)

	rows, err = f.tracker.Timesheet(ctx, TimesheetFilter{JobID: f.job.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 120, rows[0].WorkedMinutes)
	assert.Equal(t, f.job.Title, rows[0].JobTitle)
	assert.Equal(t, f.nurse.FullName(), rows[0].StaffName)
	assert.Equal(t, "150.00", rows[0].HourlyRate)

	rows, err = f.tracker.Timesheet(ctx, TimesheetFilter{UserID: f.nurse.ID + 100})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
