package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/job-funnel-tracker/internal/dtos"
	"github.com/justsurfingit/job-funnel-tracker/internal/repository"
	"github.com/justsurfingit/job-funnel-tracker/internal/services"
	"github.com/justsurfingit/job-funnel-tracker/internal/stages"
)

type JobHandler struct {
	LLMService *services.LLMService
	JobService *services.JobService
}

func NewJobHandler(llm *services.LLMService, j *services.JobService) *JobHandler {
	return &JobHandler{LLMService: llm, JobService: j}
}

// ParseJob is the POST /jobs/extract endpoint.
func (h *JobHandler) ParseJob(c *gin.Context) {
	var req dtos.JobExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	extracted, err := h.LLMService.ExtractJobDetails(c.Request.Context(), req.RawHTML)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": extracted})
}

func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dtos.JobCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	job, err := h.JobService.CreateJob(c.Request.Context(), currentUser(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

func (h *JobHandler) ListJobs(c *gin.Context) {
	var q dtos.JobListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	filter := repository.JobFilter{Query: q.Query}
	if q.Status != "" {
		st := stages.Status(q.Status)
		filter.Status = &st
	}
	jobs, err := h.JobService.ListJobs(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.JobService.GetJob(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// UpdateJob serves both PUT and PATCH; fields left out keep their value.
func (h *JobHandler) UpdateJob(c *gin.Context) {
	var req dtos.JobUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	job, err := h.JobService.UpdateJob(c.Request.Context(), currentUser(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) DeleteJob(c *gin.Context) {
	if err := h.JobService.DeleteJob(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *JobHandler) JobEvents(c *gin.Context) {
	events, err := h.JobService.Events(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *JobHandler) FunnelStats(c *gin.Context) {
	stats, err := h.JobService.FunnelStats(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos.FunnelResponse{Stats: stats, Flows: stats.Flows()})
}

// Statuses lists the taxonomy with labels and preset chains for the UI.
func (h *JobHandler) Statuses(c *gin.Context) {
	all := stages.All()
	out := make([]dtos.StatusInfo, 0, len(all))
	for _, st := range all {
		chain, err := stages.PresetChain(st)
		if err != nil {
			respondError(c, err)
			return
		}
		out = append(out, dtos.StatusInfo{Status: st, Label: st.Label(), Chain: chain})
	}
	c.JSON(http.StatusOK, out)
}
