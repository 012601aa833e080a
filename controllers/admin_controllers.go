package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/locum-staffing/models"
	"github.com/yeremiapane/locum-staffing/services"
	"github.com/yeremiapane/locum-staffing/utils"
	"gorm.io/gorm"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AdminController struct {
	DB      *gorm.DB
	Tracker *services.ShiftTracker
}

func NewAdminController(db *gorm.DB, tracker *services.ShiftTracker) *AdminController {
	return &AdminController{DB: db, Tracker: tracker}
}

type DashboardStats struct {
	Jobs struct {
		Active    int64 `json:"active"`
		Filled    int64 `json:"filled"`
		Cancelled int64 `json:"cancelled"`
		Completed int64 `json:"completed"`
		OpenSlots int64 `json:"openSlots"`
	} `json:"jobs"`
	Assignments map[string]int64 `json:"assignments"`
	Staff       struct {
		Doctors  int64 `json:"doctors"`
		Nurses   int64 `json:"nurses"`
		Inactive int64 `json:"inactive"`
	} `json:"staff"`
	OnShift         int64 `json:"onShift"`
	PendingEvents   int64 `json:"pendingEvents"`
	TodayCheckIns   int64 `json:"todayCheckIns"`
	WorkedMinutes7d int64 `json:"workedMinutes7d"`
}

// Dashboard counts jobs, assignments and shifts for the HR overview.
func (ac *AdminController) Dashboard(c *gin.Context) {
	db := ac.DB.WithContext(c.Request.Context())
	var stats DashboardStats

	jobCounts := map[string]*int64{
		models.JobStatusActive:    &stats.Jobs.Active,
		models.JobStatusFilled:    &stats.Jobs.Filled,
		models.JobStatusCancelled: &stats.Jobs.Cancelled,
		models.JobStatusCompleted: &stats.Jobs.Completed,
	}
	for status, dst := range jobCounts {
		if err := db.Model(&models.JobPosting{}).Where("status = ?", status).Count(dst).Error; err != nil {
			respondServiceError(c, err)
			return
		}
	}
	if err := db.Model(&models.JobPosting{}).Where("status = ?", models.JobStatusActive).
		Select("COALESCE(SUM(max_assignments - current_assignments), 0)").
		Row().Scan(&stats.Jobs.OpenSlots); err != nil {
		respondServiceError(c, err)
		return
	}

	var grouped []struct {
		Status string
		Total  int64
	}
	if err := db.Model(&models.Assignment{}).Select("status, COUNT(*) AS total").
		Group("status").Scan(&grouped).Error; err != nil {
		respondServiceError(c, err)
		return
	}
	stats.Assignments = make(map[string]int64, len(grouped))
	for _, g := range grouped {
		stats.Assignments[g.Status] = g.Total
	}

	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	counts := []struct {
		query *gorm.DB
		dst   *int64
	}{
		{db.Model(&models.User{}).Where("role = ? AND is_active = ?", models.RoleDoctor, true), &stats.Staff.Doctors},
		{db.Model(&models.User{}).Where("role = ? AND is_active = ?", models.RoleNurse, true), &stats.Staff.Nurses},
		{db.Model(&models.User{}).Where("is_active = ?", false), &stats.Staff.Inactive},
		{db.Model(&models.CheckIn{}).Where("open_key IS NOT NULL"), &stats.OnShift},
		{db.Model(&models.CheckIn{}).Where("check_in_time >= ?", midnight), &stats.TodayCheckIns},
		{db.Model(&models.AssignmentEvent{}).Where("processed = ?", false), &stats.PendingEvents},
	}
	for _, q := range counts {
		if err := q.query.Count(q.dst).Error; err != nil {
			respondServiceError(c, err)
			return
		}
	}
	if err := db.Model(&models.CheckOut{}).Where("check_out_time >= ?", now.AddDate(0, 0, -7)).
		Select("COALESCE(SUM(worked_minutes), 0)").Row().Scan(&stats.WorkedMinutes7d); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Dashboard stats retrieved successfully", stats)
}

func parseDateQuery(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("%s must be YYYY-MM-DD", name))
		return time.Time{}, false
	}
	return t, true
}

func parseUintQuery(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("%s must be a positive integer", name))
		return 0, false
	}
	return uint(v), true
}

// TimesheetReport lists closed shifts as JSON, or as a workbook when format=xlsx.
// The "to" date is inclusive.
func (ac *AdminController) TimesheetReport(c *gin.Context) {
	var filter services.TimesheetFilter
	var ok bool
	if filter.JobID, ok = parseUintQuery(c, "jobId"); !ok {
		return
	}
	if filter.UserID, ok = parseUintQuery(c, "userId"); !ok {
		return
	}
	if filter.From, ok = parseDateQuery(c, "from"); !ok {
		return
	}
	if filter.To, ok = parseDateQuery(c, "to"); !ok {
		return
	}
	if !filter.To.IsZero() {
		filter.To = filter.To.AddDate(0, 0, 1)
	}

	rows, err := ac.Tracker.Timesheet(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if c.Query("format") != "xlsx" {
		utils.RespondJSON(c, http.StatusOK, "Timesheet", rows)
		return
	}

	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="timesheet-%s.xlsx"`, time.Now().UTC().Format("20060102")))
	c.Status(http.StatusOK)
	if err := services.WriteTimesheetXLSX(c.Writer, rows); err != nil {
		utils.ErrorLogger.WithError(err).Error("write timesheet workbook")
	}
}
