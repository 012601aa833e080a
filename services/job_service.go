package services

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/locum-staffing/models"
	"github.com/yeremiapane/locum-staffing/utils"
	"gorm.io/gorm"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// JobInput carries the HR-editable fields of a job posting.
type JobInput struct {
	Title           string                 `json:"title" binding:"required,max=255"`
	Description     string                 `json:"description" binding:"required"`
	Department      string                 `json:"department" binding:"required,max=100"`
	Location        string                 `json:"location" binding:"required,max=100"`
	HospitalID      *uint                  `json:"hospitalId"`
	UnitCode        string                 `json:"unitCode" binding:"max=50"`
	RequiredRole    string                 `json:"requiredRole" binding:"required,oneof=DOCTOR NURSE"`
	Specialization  string                 `json:"specialization" binding:"max=100"`
	StartDate       string                 `json:"startDate" binding:"required,datetime=2006-01-02"`
	EndDate         string                 `json:"endDate" binding:"required,datetime=2006-01-02"`
	StartTime       string                 `json:"startTime" binding:"required,datetime=15:04"`
	EndTime         string                 `json:"endTime" binding:"required,datetime=15:04"`
	HourlyRate      decimal.Decimal        `json:"hourlyRate"`
	Priority        string                 `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	MaxAssignments  int                    `json:"maxAssignments" binding:"omitempty,min=1"`
	Requirements    models.JobRequirements `json:"requirements"`
	Benefits        models.JobBenefits     `json:"benefits"`
	FacilityName    string                 `json:"facilityName" binding:"required,max=255"`
	FacilityAddress models.Address         `json:"facilityAddress"`
	ContactPerson   models.ContactPerson   `json:"contactPerson"`
	Notes           string                 `json:"notes"`
	// OfferToMatches defaults to true: matching staff receive PENDING offers on creation.
	OfferToMatches *bool `json:"offerToMatches"`
}

// JobFilter narrows List and Available. Empty fields are ignored.
type JobFilter struct {
	Department     string           `form:"department"`
	Location       string           `form:"location"`
	RequiredRole   string           `form:"requiredRole"`
	Status         string           `form:"status"`
	Priority       string           `form:"priority"`
	Specialization string           `form:"specialization"`
	Search         string           `form:"search"`
	MinRate        *decimal.Decimal `form:"-"`
	MaxRate        *decimal.Decimal `form:"-"`
}

// CreatedJob is a new posting together with the offers made to matching staff.
type CreatedJob struct {
	Job    models.JobPosting   `json:"job"`
	Offers []models.Assignment `json:"offers"`
}

// JobSummary is the HR status view of one job.
type JobSummary struct {
	Job          models.JobPosting `json:"job"`
	StatusLabel  string            `json:"statusLabel"`
	OpenSlots    int               `json:"openSlots"`
	Assignments  map[string]int64  `json:"assignments"`
	OpenCheckIns int64             `json:"openCheckIns"`
}

// Categories lists the distinct values HR and staff can filter by.
type Categories struct {
	Departments     []string `json:"departments"`
	Locations       []string `json:"locations"`
	Specializations []string `json:"specializations"`
}

type JobService struct {
	DB      *gorm.DB
	Engine  *AssignmentEngine
	Matcher *CompatibilityMatcher

	validate *validator.Validate
}

func NewJobService(db *gorm.DB, engine *AssignmentEngine, matcher *CompatibilityMatcher) *JobService {
	return &JobService{
		DB:       db,
		Engine:   engine,
		Matcher:  matcher,
		validate: validator.New(),
	}
}

func (s *JobService) validateInput(in *JobInput) error {
	required := []struct{ field, value string }{
		{"title", in.Title},
		{"description", in.Description},
		{"department", in.Department},
		{"location", in.Location},
		{"facilityName", in.FacilityName},
		{"facilityAddress.street", in.FacilityAddress.Street},
		{"facilityAddress.city", in.FacilityAddress.City},
		{"facilityAddress.state", in.FacilityAddress.State},
		{"facilityAddress.zipCode", in.FacilityAddress.ZipCode},
		{"contactPerson.name", in.ContactPerson.Name},
		{"contactPerson.phone", in.ContactPerson.Phone},
		{"contactPerson.email", in.ContactPerson.Email},
		{"contactPerson.position", in.ContactPerson.Position},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return ValidationError("%s is required", r.field)
		}
	}

	if in.RequiredRole != models.RoleDoctor && in.RequiredRole != models.RoleNurse {
		return ValidationError("requiredRole must be DOCTOR or NURSE")
	}
	if !in.HourlyRate.IsPositive() {
		return ValidationError("hourlyRate must be greater than 0")
	}
	if in.MaxAssignments < 0 {
		return ValidationError("maxAssignments must be at least 1")
	}
	if err := s.validate.Var(in.ContactPerson.Email, "email"); err != nil {
		return ValidationError("contactPerson.email must be a valid email address")
	}
	switch in.Priority {
	case "", models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent:
	default:
		return ValidationError("priority must be one of LOW MEDIUM HIGH URGENT")
	}

	start, err := time.Parse(dateLayout, in.StartDate)
	if err != nil {
		return ValidationError("startDate must be formatted YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, in.EndDate)
	if err != nil {
		return ValidationError("endDate must be formatted YYYY-MM-DD")
	}
	if end.Before(start) {
		return ValidationError("endDate must not be before startDate")
	}
	if _, err := time.Parse(timeLayout, in.StartTime); err != nil {
		return ValidationError("startTime must be formatted HH:MM")
	}
	if _, err := time.Parse(timeLayout, in.EndTime); err != nil {
		return ValidationError("endTime must be formatted HH:MM")
	}
	return nil
}

func (in *JobInput) apply(job *models.JobPosting) {
	job.Title = strings.TrimSpace(in.Title)
	job.Description = in.Description
	job.Department = strings.TrimSpace(in.Department)
	job.Location = strings.TrimSpace(in.Location)
	job.HospitalID = in.HospitalID
	job.UnitCode = in.UnitCode
	job.RequiredRole = in.RequiredRole
	job.Specialization = strings.TrimSpace(in.Specialization)
	job.StartDate, job.EndDate = in.StartDate, in.EndDate
	job.StartTime, job.EndTime = in.StartTime, in.EndTime
	job.HourlyRate = in.HourlyRate
	job.Priority = in.Priority
	if job.Priority == "" {
		job.Priority = models.PriorityMedium
	}
	job.MaxAssignments = in.MaxAssignments
	if job.MaxAssignments == 0 {
		job.MaxAssignments = 1
	}
	job.Requirements = in.Requirements
	job.Benefits = in.Benefits
	job.FacilityName = in.FacilityName
	job.FacilityAddress = in.FacilityAddress
	job.ContactPerson = in.ContactPerson
	job.Notes = in.Notes
}

// Create persists an ACTIVE posting and, unless disabled, offers it to every matching staff
// member. Having no match is not an error.
func (s *JobService) Create(ctx context.Context, in JobInput, creatorID uint) (*CreatedJob, error) {
	if err := s.validateInput(&in); err != nil {
		return nil, err
	}
	if in.HospitalID != nil {
		var hospital models.Hospital
		if err := s.DB.WithContext(ctx).First(&hospital, *in.HospitalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ValidationError("hospital %d does not exist", *in.HospitalID)
			}
			return nil, errors.Wrap(err, "load hospital")
		}
	}

	job := models.JobPosting{Status: models.JobStatusActive, CreatedByID: creatorID}
	in.apply(&job)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&job).Error; err != nil {
			return errors.Wrap(err, "create job")
		}
		return recordEvent(tx, models.EventJobCreated, job.ID, nil, &creatorID, map[string]any{
			"title":        job.Title,
			"requiredRole": job.RequiredRole,
		})
	})
	if err != nil {
		return nil, err
	}

	result := &CreatedJob{Job: job, Offers: []models.Assignment{}}
	log := utils.InfoLogger.WithFields(logrus.Fields{"job_id": job.ID, "created_by": creatorID})

	if in.OfferToMatches == nil || *in.OfferToMatches {
		candidates, err := s.Matcher.FindCandidates(ctx, &job)
		if err != nil {
			utils.ErrorLogger.WithError(err).WithField("job_id", job.ID).Error("candidate lookup failed after job creation")
			return result, nil
		}
		offers, err := s.Engine.CreateOffers(ctx, job.ID, candidates)
		if err != nil {
			utils.ErrorLogger.WithError(err).WithField("job_id", job.ID).Error("offer creation failed after job creation")
			return result, nil
		}
		if offers != nil {
			result.Offers = offers
		}
	}

	log.WithField("offers", len(result.Offers)).Info("job created")
	return result, nil
}

// Get is the canonical job lookup.
func (s *JobService) Get(ctx context.Context, id uint) (*models.JobPosting, error) {
	var job models.JobPosting
	if err := s.DB.WithContext(ctx).First(&job, id).Error; err != nil {
		return nil, notFoundOr(err, "job", id)
	}
	return &job, nil
}

// GetForViewer applies role based visibility on top of Get. Staff only see ACTIVE jobs they
// are compatible with and jobs they hold an assignment for.
func (s *JobService) GetForViewer(ctx context.Context, id uint, viewer Session) (*models.JobPosting, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewer.IsManager() {
		return job, nil
	}

	var held int64
	if err := s.DB.WithContext(ctx).Model(&models.Assignment{}).
		Where("job_id = ? AND user_id = ?", id, viewer.UserID).
		Count(&held).Error; err != nil {
		return nil, errors.Wrap(err, "count assignments")
	}
	if held > 0 {
		return job, nil
	}

	if job.Status == models.JobStatusActive {
		var user models.User
		if err := s.DB.WithContext(ctx).First(&user, viewer.UserID).Error; err == nil && Matches(job, &user, MatchOptions{}) {
			return job, nil
		}
	}
	return nil, NotFoundError("job %d not found", id)
}

func applyJobFilter(q *gorm.DB, f JobFilter) *gorm.DB {
	if f.Department != "" {
		q = q.Where("department = ?", f.Department)
	}
	if f.Location != "" {
		q = q.Where("location = ?", f.Location)
	}
	if f.RequiredRole != "" {
		q = q.Where("required_role = ?", strings.ToUpper(f.RequiredRole))
	}
	if f.Status != "" {
		q = q.Where("status = ?", strings.ToUpper(f.Status))
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", strings.ToUpper(f.Priority))
	}
	if f.Specialization != "" {
		q = q.Where("LOWER(specialization) = ?", strings.ToLower(strings.TrimSpace(f.Specialization)))
	}
	if f.MinRate != nil {
		q = q.Where("hourly_rate >= ?", *f.MinRate)
	}
	if f.MaxRate != nil {
		q = q.Where("hourly_rate <= ?", *f.MaxRate)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	return q
}

func (s *JobService) page(q *gorm.DB, page utils.Page) ([]models.JobPosting, int64, error) {
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count jobs")
	}
	jobs := []models.JobPosting{}
	if err := q.Order("created_at desc, id desc").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&jobs).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list jobs")
	}
	return jobs, total, nil
}

// List returns one page of postings and the total matching count.
func (s *JobService) List(ctx context.Context, filter JobFilter, page utils.Page) ([]models.JobPosting, int64, error) {
	q := applyJobFilter(s.DB.WithContext(ctx).Model(&models.JobPosting{}), filter)
	return s.page(q, page)
}

// Available lists ACTIVE postings a staff member could be offered.
func (s *JobService) Available(ctx context.Context, userID uint, filter JobFilter, page utils.Page) ([]models.JobPosting, int64, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, 0, notFoundOr(err, "user", userID)
	}
	if !user.IsStaff() || !user.IsActive {
		return []models.JobPosting{}, 0, nil
	}

	filter.Status = models.JobStatusActive
	filter.RequiredRole = user.Role
	q := applyJobFilter(s.DB.WithContext(ctx).Model(&models.JobPosting{}), filter)
	if user.Role == models.RoleDoctor {
		q = q.Where("(specialization = '' OR specialization IS NULL OR LOWER(specialization) = ?)",
			strings.ToLower(strings.TrimSpace(user.Specialization)))
	}
	if s.Matcher != nil {
		if s.Matcher.Opts.SameDepartment {
			q = q.Where("LOWER(department) = ?", strings.ToLower(user.Department))
		}
		if s.Matcher.Opts.SameLocation {
			q = q.Where("LOWER(location) = ?", strings.ToLower(user.Location))
		}
	}
	return s.page(q, page)
}

// Update edits an ACTIVE posting. Role and specialization are frozen once offers are live,
// and maxAssignments must stay above the confirmed selections.
func (s *JobService) Update(ctx context.Context, id uint, in JobInput) (*models.JobPosting, error) {
	if err := s.validateInput(&in); err != nil {
		return nil, err
	}

	unlock := s.Engine.Locks.Lock(id)
	defer unlock()

	var job *models.JobPosting
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		job, err = lockJobRow(tx, id)
		if err != nil {
			return err
		}
		if job.Status != models.JobStatusActive {
			return InvalidStateError("job %d is %s and can no longer be edited", job.ID, job.Status)
		}

		slots := in.MaxAssignments
		if slots == 0 {
			slots = 1
		}
		if slots <= job.CurrentAssignments {
			return ValidationError("maxAssignments must be greater than the %d selected candidates", job.CurrentAssignments)
		}

		if in.RequiredRole != job.RequiredRole || !strings.EqualFold(strings.TrimSpace(in.Specialization), job.Specialization) {
			var live int64
			if err := tx.Model(&models.Assignment{}).
				Where("job_id = ? AND active_key IS NOT NULL", job.ID).
				Count(&live).Error; err != nil {
				return errors.Wrap(err, "count live assignments")
			}
			if live > 0 {
				return ConflictError("requiredRole and specialization cannot change while offers are live")
			}
		}

		status, current, createdBy := job.Status, job.CurrentAssignments, job.CreatedByID
		in.apply(job)
		job.Status, job.CurrentAssignments, job.CreatedByID = status, current, createdBy
		if err := tx.Save(job).Error; err != nil {
			return errors.Wrapf(err, "update job %d", job.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithField("job_id", id).Info("job updated")
	return job, nil
}

// Cancel cancels a posting and cascades to its assignments.
func (s *JobService) Cancel(ctx context.Context, id uint, reason string) (*models.JobPosting, []models.Assignment, error) {
	return s.Engine.CancelJob(ctx, id, reason)
}

func (s *JobService) Complete(ctx context.Context, id uint) (*models.JobPosting, error) {
	return s.Engine.CompleteJob(ctx, id)
}

func (s *JobService) Summary(ctx context.Context, id uint) (*JobSummary, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := s.DB.WithContext(ctx).Model(&models.Assignment{}).
		Select("status, COUNT(*) AS count").
		Where("job_id = ?", id).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "count assignments by status")
	}

	counts := map[string]int64{}
	for _, st := range []string{
		models.AssignmentPending, models.AssignmentAccepted, models.AssignmentSelected, models.AssignmentInProgress,
		models.AssignmentRejected, models.AssignmentCompleted, models.AssignmentCancelled,
	} {
		counts[st] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}

	var open int64
	if err := s.DB.WithContext(ctx).Model(&models.CheckIn{}).
		Where("open_key IS NOT NULL AND assignment_id IN (?)",
			s.DB.Model(&models.Assignment{}).Select("id").Where("job_id = ?", id)).
		Count(&open).Error; err != nil {
		return nil, errors.Wrap(err, "count open check-ins")
	}

	return &JobSummary{
		Job:          *job,
		StatusLabel:  models.JobStatusLabel(job.Status),
		OpenSlots:    job.OpenSlots(),
		Assignments:  counts,
		OpenCheckIns: open,
	}, nil
}

// Categories collects the distinct filter values of ACTIVE postings.
func (s *JobService) Categories(ctx context.Context) (*Categories, error) {
	result := &Categories{Departments: []string{}, Locations: []string{}, Specializations: []string{}}

	pluck := func(column string, dest *[]string) error {
		return s.DB.WithContext(ctx).Model(&models.JobPosting{}).
			Where("status = ? AND "+column+" <> ''", models.JobStatusActive).
			Distinct().Order(column).
			Pluck(column, dest).Error
	}
	if err := pluck("department", &result.Departments); err != nil {
		return nil, errors.Wrap(err, "list departments")
	}
	if err := pluck("location", &result.Locations); err != nil {
		return nil, errors.Wrap(err, "list locations")
	}
	if err := pluck("specialization", &result.Specializations); err != nil {
		return nil, errors.Wrap(err, "list specializations")
	}
	return result, nil
}
