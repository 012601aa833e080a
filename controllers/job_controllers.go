package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/locum-staffing/models"
	"github.com/yeremiapane/locum-staffing/services"
	"github.com/yeremiapane/locum-staffing/utils"
)

type JobController struct {
	Jobs    *services.JobService
	Engine  *services.AssignmentEngine
	Matcher *services.CompatibilityMatcher
}

func NewJobController(jobs *services.JobService, engine *services.AssignmentEngine, matcher *services.CompatibilityMatcher) *JobController {
	return &JobController{Jobs: jobs, Engine: engine, Matcher: matcher}
}

func bindJobFilter(c *gin.Context) (services.JobFilter, bool) {
	var filter services.JobFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		utils.RespondBindingError(c, err)
		return filter, false
	}
	for name, dst := range map[string]**decimal.Decimal{"minRate": &filter.MinRate, "maxRate": &filter.MaxRate} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("%s must be a decimal number", name))
			return filter, false
		}
		*dst = &v
	}
	return filter, true
}

func (jc *JobController) CreateJob(c *gin.Context) {
	session, ok := mustSession(c)
	if !ok {
		return
	}
	var input services.JobInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondBindingError(c, err)
		return
	}

	created, err := jc.Jobs.Create(c.Request.Context(), input, session.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Job created", created)
}

func (jc *JobController) ListJobs(c *gin.Context) {
	filter, ok := bindJobFilter(c)
	if !ok {
		return
	}
	page := utils.ParsePage(c)

	jobs, total, err := jc.Jobs.List(c.Request.Context(), filter, page)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondPage(c, "Jobs", jobs, page, total)
}

// GetJob is the single job lookup shared by every role; visibility is decided by the service.
func (jc *JobController) GetJob(c *gin.Context) {
	session, ok := mustSession(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	job, err := jc.Jobs.GetForViewer(c.Request.Context(), id, session)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Job", job)
}

func (jc *JobController) UpdateJob(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input services.JobInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondBindingError(c, err)
		return
	}

	job, err := jc.Jobs.Update(c.Request.Context(), id, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Job updated", job)
}

type reasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (jc *JobController) CancelJob(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondBindingError(c, err)
		return
	}

	job, cancelled, err := jc.Jobs.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Job cancelled", gin.H{
		"job":                  job,
		"cancelledAssignments": len(cancelled),
	})
}

func (jc *JobController) CompleteJob(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	job, err := jc.Jobs.Complete(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Job completed", job)
}

func (jc *JobController) JobAssignments(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	assignments, err := jc.Engine.ListForJob(c.Request.Context(), id, c.Query("status"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Job assignments", assignments)
}

func (jc *JobController) AcceptedAssignments(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	assignments, err := jc.Engine.ListAccepted(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Accepted assignments", assignments)
}

func (jc *JobController) JobStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	summary, err := jc.Jobs.Summary(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Job status", summary)
}

// CreateOffers offers the job to every compatible staff member without a live offer.
func (jc *JobController) CreateOffers(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	job, err := jc.Jobs.Get(ctx, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	candidates, err := jc.Matcher.FindCandidates(ctx, job)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	offers, err := jc.Engine.CreateOffers(ctx, id, candidates)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if offers == nil {
		offers = []models.Assignment{}
	}
	utils.RespondJSON(c, http.StatusCreated, "Offers created", gin.H{
		"candidates": len(candidates),
		"offers":     offers,
	})
}

func (jc *JobController) AssignStaff(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		UserID     uint             `json:"userId" binding:"required"`
		HourlyRate *decimal.Decimal `json:"hourlyRate"`
		Notes      string           `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondBindingError(c, err)
		return
	}

	assignment, created, err := jc.Engine.Offer(c.Request.Context(), id, req.UserID, req.HourlyRate, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !created {
		utils.RespondJSON(c, http.StatusOK, "Staff already holds an offer for this job", assignment)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Staff assigned", assignment)
}

func (jc *JobController) SelectCandidate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		AssignmentID uint `json:"assignmentId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondBindingError(c, err)
		return
	}

	result, err := jc.Engine.SelectCandidate(c.Request.Context(), id, req.AssignmentID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Candidate selected", result)
}

func (jc *JobController) CancelAssignment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondBindingError(c, err)
		return
	}

	assignment, err := jc.Engine.CancelAssignment(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Assignment cancelled", assignment)
}

func (jc *JobController) CompleteAssignment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	assignment, err := jc.Engine.CompleteAssignment(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Assignment completed", assignment)
}

func (jc *JobController) Categories(c *gin.Context) {
	categories, err := jc.Jobs.Categories(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Job categories", categories)
}
