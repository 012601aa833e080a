package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/locum-staffing/models"
	"github.com/yeremiapane/locum-staffing/utils"
	"gorm.io/gorm"
)

func newJobService(t *testing.T) (*gorm.DB, *JobService) {
	t.Helper()
	db, engine := newEngine(t)
	return db, NewJobService(db, engine, NewCompatibilityMatcher(db, MatchOptions{}))
}

func validJobInput() JobInput {
	return JobInput{
		Title:           "ICU night nurse",
		Description:     "Twelve hour ICU cover",
		Department:      "ICU",
		Location:        "Jakarta",
		RequiredRole:    models.RoleNurse,
		StartDate:       "2026-11-01",
		EndDate:         "2026-11-01",
		StartTime:       "20:00",
		EndTime:         "08:00",
		HourlyRate:      decimal.RequireFromString("85.50"),
		FacilityName:    "General Hospital Central",
		FacilityAddress: models.Address{Street: "Jl. Sudirman 1", City: "Jakarta", State: "DKI", ZipCode: "10110"},
		ContactPerson:   models.ContactPerson{Name: "Hana", Phone: "0800", Email: "hana@example.com", Position: "HR"},
	}
}

func TestJobCreate_OffersToMatches(t *testing.T) {
	db, jobs := newJobService(t)
	ctx := context.Background()
	n1 := createUser(t, db, models.RoleNurse, "")
	createUser(t, db, models.RoleDoctor, "Cardiology")

	created, err := jobs.Create(ctx, validJobInput(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusActive, created.Job.Status)
	assert.Equal(t, models.PriorityMedium, created.Job.Priority)
	assert.Equal(t, 1, created.Job.MaxAssignments)
	require.Len(t, created.Offers, 1)
	assert.Equal(t, n1.ID, created.Offers[0].UserID)
	assert.True(t, created.Offers[0].HourlyRate.Equal(decimal.RequireFromString("85.50")))

	off := false
	in := validJobInput()
	in.OfferToMatches = &off
	quiet, err := jobs.Create(ctx, in, 1)
	require.NoError(t, err)
	assert.Empty(t, quiet.Offers)
}

func TestJobCreate_Validation(t *testing.T) {
	_, jobs := newJobService(t)
	ctx := context.Background()

	cases := map[string]func(*JobInput){
		"missing title":       func(in *JobInput) { in.Title = " " },
		"missing zip":         func(in *JobInput) { in.FacilityAddress.ZipCode = "" },
		"bad contact email":   func(in *JobInput) { in.ContactPerson.Email = "not-an-email" },
		"zero rate":           func(in *JobInput) { in.HourlyRate = decimal.Zero },
		"bad role":            func(in *JobInput) { in.RequiredRole = models.RoleHR },
		"end before start":    func(in *JobInput) { in.EndDate = "2026-10-31" },
		"bad time":            func(in *JobInput) { in.StartTime = "25:99" },
		"bad priority":        func(in *JobInput) { in.Priority = "SOON" },
		"unknown hospital id": func(in *JobInput) { id := uint(77); in.HospitalID = &id },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validJobInput()
			mutate(&in)
			_, err := jobs.Create(ctx, in, 1)
			assert.True(t, IsKind(err, KindValidation), "got %v", err)
		})
	}
}

func TestJobUpdate(t *testing.T) {
	db, jobs := newJobService(t)
	ctx := context.Background()
	nurse := createUser(t, db, models.RoleNurse, "")

	created, err := jobs.Create(ctx, validJobInput(), 1)
	require.NoError(t, err)
	jobID := created.Job.ID

	in := validJobInput()
	in.Title = "ICU night nurse (updated)"
	in.MaxAssignments = 3
	updated, err := jobs.Update(ctx, jobID, in)
	require.NoError(t, err)
	assert.Equal(t, "ICU night nurse (updated)", updated.Title)
	assert.Equal(t, 3, updated.MaxAssignments)
	assert.Equal(t, models.JobStatusActive, updated.Status)

	in.RequiredRole = models.RoleDoctor
	in.Specialization = "Cardiology"
	_, err = jobs.Update(ctx, jobID, in)
	assert.True(t, IsKind(err, KindConflict), "role is frozen while offers are live")

	_, err = jobs.Engine.Respond(ctx, created.Offers[0].ID, nurse.ID, ActionAccept, "")
	require.NoError(t, err)
	_, err = jobs.Engine.SelectCandidate(ctx, jobID, created.Offers[0].ID)
	require.NoError(t, err)

	in = validJobInput()
	in.MaxAssignments = 1
	_, err = jobs.Update(ctx, jobID, in)
	assert.True(t, IsKind(err, KindValidation), "slots cannot drop to the selected count")

	_, _, err = jobs.Cancel(ctx, jobID, "no longer needed")
	require.NoError(t, err)
	_, err = jobs.Update(ctx, jobID, validJobInput())
	assert.True(t, IsKind(err, KindInvalidState))
}

func TestJobListAndAvailable(t *testing.T) {
	db, jobs := newJobService(t)
	ctx := context.Background()
	cardio := createUser(t, db, models.RoleDoctor, "Cardiology")

	createJob(t, db, models.RoleDoctor, "Cardiology", 1)
	createJob(t, db, models.RoleDoctor, "", 1)
	createJob(t, db, models.RoleDoctor, "Neurology", 1)
	createJob(t, db, models.RoleNurse, "", 1)
	closed := createJob(t, db, models.RoleDoctor, "Cardiology", 1)
	require.NoError(t, db.Model(&closed).Update("status", models.JobStatusCancelled).Error)

	page := utils.Page{Number: 1, Limit: 10}
	all, total, err := jobs.List(ctx, JobFilter{}, page)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, all, 5)

	doctors, total, err := jobs.List(ctx, JobFilter{RequiredRole: "doctor", Status: "active"}, page)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, doctors, 3)

	min := decimal.NewFromInt(200)
	_, total, err = jobs.List(ctx, JobFilter{MinRate: &min}, page)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)

	available, total, err := jobs.Available(ctx, cardio.ID, JobFilter{}, page)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, j := range available {
		assert.Equal(t, models.JobStatusActive, j.Status)
		assert.Contains(t, []string{"", "Cardiology"}, j.Specialization)
	}

	small := utils.Page{Number: 2, Limit: 1}
	second, total, err := jobs.Available(ctx, cardio.ID, JobFilter{}, small)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, second, 1)
}

func TestJobGetForViewer(t *testing.T) {
	db, jobs := newJobService(t)
	ctx := context.Background()
	nurse := createUser(t, db, models.RoleNurse, "")
	doctor := createUser(t, db, models.RoleDoctor, "Cardiology")
	job := createJob(t, db, models.RoleNurse, "", 1)

	_, err := jobs.GetForViewer(ctx, job.ID, Session{UserID: 99, Role: models.RoleHR})
	require.NoError(t, err)
	_, err = jobs.GetForViewer(ctx, job.ID, Session{UserID: nurse.ID, Role: models.RoleNurse})
	require.NoError(t, err)
	_, err = jobs.GetForViewer(ctx, job.ID, Session{UserID: doctor.ID, Role: models.RoleDoctor})
	assert.True(t, IsKind(err, KindNotFound))
	_, err = jobs.GetForViewer(ctx, 9999, Session{UserID: 1, Role: models.RoleAdmin})
	assert.True(t, IsKind(err, KindNotFound))

	_, err = jobs.Engine.CreateOffers(ctx, job.ID, []models.User{nurse})
	require.NoError(t, err)
	_, _, err = jobs.Cancel(ctx, job.ID, "closed")
	require.NoError(t, err)
	_, err = jobs.GetForViewer(ctx, job.ID, Session{UserID: nurse.ID, Role: models.RoleNurse})
	assert.NoError(t, err, "staff keep seeing jobs they were offered")
}

func TestJobSummaryAndCategories(t *testing.T) {
	db, jobs := newJobService(t)
	ctx := context.Background()
	n1 := createUser(t, db, models.RoleNurse, "")
	n2 := createUser(t, db, models.RoleNurse, "")
	job := createJob(t, db, models.RoleNurse, "", 2)
	createJob(t, db, models.RoleDoctor, "Cardiology", 1)

	accepted := offerAndAccept(t, jobs.Engine, job.ID, n1)
	_, err := jobs.Engine.CreateOffers(ctx, job.ID, []models.User{n2})
	require.NoError(t, err)
	_, err = jobs.Engine.SelectCandidate(ctx, job.ID, accepted[0].ID)
	require.NoError(t, err)

	summary, err := jobs.Summary(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.OpenSlots)
	assert.Equal(t, "Open", summary.StatusLabel)
	assert.EqualValues(t, 1, summary.Assignments[models.AssignmentSelected])
	assert.EqualValues(t, 1, summary.Assignments[models.AssignmentPending])
	assert.EqualValues(t, 0, summary.Assignments[models.AssignmentCompleted])
	assert.EqualValues(t, 0, summary.OpenCheckIns)

	cats, err := jobs.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Emergency"}, cats.Departments)
	assert.Equal(t, []string{"Jakarta"}, cats.Locations)
	assert.Equal(t, []string{"Cardiology"}, cats.Specializations)
}
