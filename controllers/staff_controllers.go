package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/locum-staffing/models"
	"github.com/yeremiapane/locum-staffing/services"
	"github.com/yeremiapane/locum-staffing/utils"
)

type StaffController struct {
	Jobs    *services.JobService
	Engine  *services.AssignmentEngine
	Tracker *services.ShiftTracker
}

func NewStaffController(jobs *services.JobService, engine *services.AssignmentEngine, tracker *services.ShiftTracker) *StaffController {
	return &StaffController{Jobs: jobs, Engine: engine, Tracker: tracker}
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required,latitude"`
	Longitude *float64 `json:"longitude" binding:"required,longitude"`
	Address   string   `json:"address" binding:"max=255"`
}

func (l locationRequest) toModel() models.GeoLocation {
	return models.GeoLocation{Latitude: *l.Latitude, Longitude: *l.Longitude, Address: l.Address}
}

type shiftRequest struct {
	JobAssignmentID    uint            `json:"jobAssignmentId" binding:"required"`
	Location           locationRequest `json:"location" binding:"required"`
	Notes              string          `json:"notes"`
	CompleteAssignment bool            `json:"completeAssignment"`
}

func (r shiftRequest) toService(userID uint) services.ShiftRequest {
	return services.ShiftRequest{
		AssignmentID:       r.JobAssignmentID,
		UserID:             userID,
		Location:           r.Location.toModel(),
		Notes:              r.Notes,
		CompleteAssignment: r.CompleteAssignment,
	}
}

func (sc *StaffController) AvailableJobs(c *gin.Context) {
	session, ok := mustSession(c)
	if !ok {
		return
	}
	filter, ok := bindJobFilter(c)
	if !ok {
		return
	}
	page := utils.ParsePage(c)

	jobs, total, err := sc.Jobs.Available(c.Request.Context(), session.UserID, filter, page)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondPage(c, "Available jobs", jobs, page, total)
}

func (sc *StaffController) MyAssignments(c *gin.Context) {
	session, ok := mustSession(c)
	if !ok {
		return
	}
	page := utils.ParsePage(c)

	assignments, total, err := sc.Engine.ListForUser(c.Request.Context(), session.UserID, c.Query("status"), page)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondPage(c, "Assignments", assignments, page, total)
}

func (sc *StaffController) ActiveAssignments(c *gin.Context) {
	session, ok := mustSession(c)
	if !ok {
		return
	}
	assignments, err := sc.Engine.ActiveForUser(c.Request.Context(), session.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Active assignments", assignments)
}

func (sc *StaffController) Respond(c *gin.Context) {
	session, ok := mustSession(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Action          string `json:"action" binding:"required"`
		RejectionReason string `json:"rejectionReason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondBindingError(c, err)
		return
	}

	assignment, err := sc.Engine.Respond(c.Request.Context(), id, session.UserID, req.Action, req.RejectionReason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Response recorded", assignment)
}

// CheckInStatus never fails for a well formed id; unknown or foreign assignments read as not checked in.
func (sc *StaffController) CheckInStatus(c *gin.Context) {
	session, ok := mustSession(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	status := sc.Tracker.GetStatus(c.Request.Context(), id, session.UserID)
	utils.RespondJSON(c, http.StatusOK, "Check-in status", status)
}

func (sc *StaffController) CheckIn(c *gin.Context) {
	session, ok := mustSession(c)
	if !ok {
		return
	}
	var req shiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondBindingError(c, err)
		return
	}

	checkIn, err := sc.Tracker.CheckIn(c.Request.Context(), req.toService(session.UserID))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Checked in", checkIn)
}

func (sc *StaffController) CheckOut(c *gin.Context) {
	session, ok := mustSession(c)
	if !ok {
		return
	}
	var req shiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondBindingError(c, err)
		return
	}

	checkIn, err := sc.Tracker.CheckOut(c.Request.Context(), req.toService(session.UserID))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Checked out", checkIn)
}

// WorkStatus lists the caller's open shifts.
func (sc *StaffController) WorkStatus(c *gin.Context) {
	session, ok := mustSession(c)
	if !ok {
		return
	}
	open, err := sc.Tracker.WorkStatus(c.Request.Context(), session.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Work status", gin.H{
		"isWorking": len(open) > 0,
		"checkIns":  open,
	})
}
