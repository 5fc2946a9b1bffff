package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/justsurfingit/job-funnel-tracker/internal/dtos"
	"github.com/justsurfingit/job-funnel-tracker/internal/models"
)

// AIService combines the LLM with the caller's stored jobs and resume.
type AIService struct {
	LLM     *LLMService
	Jobs    *JobService
	Resumes *ResumeService
}

func NewAIService(llm *LLMService, jobs *JobService, resumes *ResumeService) *AIService {
	return &AIService{LLM: llm, Jobs: jobs, Resumes: resumes}
}

// Match scores a job. With a jobId the job's stored fields fill in anything the
// request omits and the result is saved on the job.
func (s *AIService) Match(ctx context.Context, ownerID string, req *dtos.MatchRequest) (dtos.MatchResult, error) {
	var job *models.Job
	if req.JobID != "" {
		var err error
		if job, err = s.Jobs.GetJob(ctx, ownerID, req.JobID); err != nil {
			return dtos.MatchResult{}, err
		}
		req.Company = firstNonEmpty(req.Company, job.Company)
		req.Role = firstNonEmpty(req.Role, job.Position)
		req.Description = firstNonEmpty(req.Description, job.Description)
	}
	if strings.TrimSpace(req.Company) == "" || strings.TrimSpace(req.Role) == "" {
		return dtos.MatchResult{}, fmt.Errorf("%w: company and role are required", ErrValidation)
	}

	resume := req.ResumeText
	if strings.TrimSpace(resume) == "" {
		stored, err := s.Resumes.StoredResume(ctx, ownerID)
		if err != nil {
			return dtos.MatchResult{}, err
		}
		resume = stored
	}

	result, err := s.LLM.MatchScore(ctx, req.Company, req.Role, req.Description, resume)
	if err != nil {
		return dtos.MatchResult{}, err
	}
	if job != nil {
		if _, err := s.Jobs.SetMatch(ctx, ownerID, job.ID, result); err != nil {
			return dtos.MatchResult{}, err
		}
	}
	return result, nil
}

func (s *AIService) Coach(ctx context.Context, ownerID string, req *dtos.CoachRequest) (string, error) {
	var job dtos.CoachJob
	if req.Job != nil {
		job = *req.Job
	}
	if req.JobID != "" {
		stored, err := s.Jobs.GetJob(ctx, ownerID, req.JobID)
		if err != nil {
			return "", err
		}
		job.Company = firstNonEmpty(job.Company, stored.Company)
		job.Position = firstNonEmpty(job.Position, stored.Position)
		job.Description = firstNonEmpty(job.Description, stored.Description)
	}
	resume, err := s.Resumes.StoredResume(ctx, ownerID)
	if err != nil {
		return "", err
	}
	return s.LLM.CoachReply(ctx, job, resume, req.History, req.Message)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
