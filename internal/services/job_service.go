package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/justsurfingit/job-funnel-tracker/internal/dtos"
	"github.com/justsurfingit/job-funnel-tracker/internal/models"
	"github.com/justsurfingit/job-funnel-tracker/internal/repository"
	"github.com/justsurfingit/job-funnel-tracker/internal/stages"
)

// errUnchanged lets a mutate callback skip the write.
var errUnchanged = errors.New("unchanged")

// Read-merge-write attempts before a concurrent edit is reported as a conflict.
const maxWriteAttempts = 3

const dateLayout = "2006-01-02"

type JobService struct {
	Jobs repository.JobRepository
	now  func() time.Time
}

func NewJobService(jobs repository.JobRepository) *JobService {
	return &JobService{Jobs: jobs, now: time.Now}
}

func (s *JobService) CreateJob(ctx context.Context, ownerID string, req *dtos.JobCreateRequest) (*models.Job, error) {
	company, position := strings.TrimSpace(req.Company), strings.TrimSpace(req.Position)
	if company == "" || position == "" {
		return nil, fmt.Errorf("%w: company and position are required", ErrValidation)
	}
	date, err := s.dateOrToday(req.DateApplied)
	if err != nil {
		return nil, err
	}
	history, err := stages.BuildHistory(req.Status, req.StageHistory)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	job := &models.Job{
		OwnerID:      ownerID,
		Company:      company,
		Position:     position,
		Status:       req.Status,
		DateApplied:  date,
		Notes:        req.Notes,
		Description:  req.Description,
		MatchReason:  req.MatchReason,
		StageHistory: []stages.Status(history),
	}
	if req.MatchScore != nil {
		score := *req.MatchScore
		job.MatchScore = &score
	}
	if err := s.Jobs.Insert(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.logEvent(ctx, job.ID, models.EventCreated, fmt.Sprintf("Created with status %s", job.Status))
	return job, nil
}

func (s *JobService) GetJob(ctx context.Context, ownerID, id string) (*models.Job, error) {
	return s.Jobs.Get(ctx, ownerID, id)
}

func (s *JobService) ListJobs(ctx context.Context, ownerID string, filter repository.JobFilter) ([]models.Job, error) {
	return s.Jobs.List(ctx, ownerID, filter)
}

func (s *JobService) DeleteJob(ctx context.Context, ownerID, id string) error {
	return s.Jobs.Delete(ctx, ownerID, id)
}

func (s *JobService) Events(ctx context.Context, ownerID, id string) ([]models.JobEvent, error) {
	if _, err := s.Jobs.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return s.Jobs.ListEvents(ctx, id)
}

// UpdateJob applies a partial update. A status change merges the new preset chain
// into the stored history, which therefore never shrinks.
func (s *JobService) UpdateJob(ctx context.Context, ownerID, id string, req *dtos.JobUpdateRequest) (*models.Job, error) {
	if req.Company != nil && strings.TrimSpace(*req.Company) == "" {
		return nil, fmt.Errorf("%w: company must not be empty", ErrValidation)
	}
	if req.Position != nil && strings.TrimSpace(*req.Position) == "" {
		return nil, fmt.Errorf("%w: position must not be empty", ErrValidation)
	}
	return s.mutate(ctx, ownerID, id, models.EventStatusChanged, func(job *models.Job) (string, error) {
		if req.Company != nil {
			job.Company = strings.TrimSpace(*req.Company)
		}
		if req.Position != nil {
			job.Position = strings.TrimSpace(*req.Position)
		}
		if req.DateApplied != nil {
			date, err := s.dateOrToday(*req.DateApplied)
			if err != nil {
				return "", err
			}
			job.DateApplied = date
		}
		if req.Notes != nil {
			job.Notes = *req.Notes
		}
		if req.Description != nil {
			job.Description = *req.Description
		}
		if req.MatchScore != nil {
			score := *req.MatchScore
			job.MatchScore = &score
		}
		if req.MatchReason != nil {
			job.MatchReason = *req.MatchReason
		}
		to := job.Status
		if req.Status != nil {
			to = *req.Status
		}
		return s.transition(job, to, req.StageHistory)
	})
}

// SetMatch stores an AI match result on the job.
func (s *JobService) SetMatch(ctx context.Context, ownerID, id string, result dtos.MatchResult) (*models.Job, error) {
	return s.mutate(ctx, ownerID, id, models.EventMatchScored, func(job *models.Job) (string, error) {
		score := result.Score
		job.MatchScore = &score
		job.MatchReason = result.Reason
		return fmt.Sprintf("Match score %d", score), nil
	})
}

// ApplyEmailStatus moves a job to status because of an email. It reports false
// when the job already had that status.
func (s *JobService) ApplyEmailStatus(ctx context.Context, ownerID, id string, status stages.Status, summary string) (bool, error) {
	changed := false
	_, err := s.mutate(ctx, ownerID, id, models.EventEmailUpdate, func(job *models.Job) (string, error) {
		changed = false
		if job.Status == status {
			return "", errUnchanged
		}
		changed = true
		details, err := s.transition(job, status, nil)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s. Summary: %s", details, summary), nil
	})
	return changed, err
}

// FunnelStats aggregates every job the owner tracks.
func (s *JobService) FunnelStats(ctx context.Context, ownerID string) (stages.FunnelStats, error) {
	jobs, err := s.Jobs.List(ctx, ownerID, repository.JobFilter{})
	if err != nil {
		return stages.FunnelStats{}, err
	}
	tracked := make([]stages.Tracked, len(jobs))
	for i := range jobs {
		tracked[i] = jobs[i]
	}
	return stages.ComputeFunnelStats(tracked)
}

// transition sets job.Status to "to" and merges history. It returns the event
// details, or "" when nothing about the status changed.
func (s *JobService) transition(job *models.Job, to stages.Status, extra []stages.Status) (string, error) {
	from := job.Status
	existing := make(stages.History, 0, len(job.StageHistory)+len(extra))
	existing = append(existing, job.StageHistory...)
	existing = append(existing, extra...)
	merged, t, err := stages.Advance(from, to, existing)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrValidation, err)
	}
	job.Status = to
	job.StageHistory = []stages.Status(merged)
	if from == to {
		return "", nil
	}
	return fmt.Sprintf("Status changed from %s to %s (added %v)", from, to, t.Added), nil
}

// mutate runs read-modify-write with optimistic locking. apply returns the event
// details to record, or "" for no event.
func (s *JobService) mutate(ctx context.Context, ownerID, id, eventType string, apply func(*models.Job) (string, error)) (*models.Job, error) {
	for attempt := 1; ; attempt++ {
		job, err := s.Jobs.Get(ctx, ownerID, id)
		if err != nil {
			return nil, err
		}
		details, err := apply(job)
		if errors.Is(err, errUnchanged) {
			return job, nil
		}
		if err != nil {
			return nil, err
		}
		err = s.Jobs.Replace(ctx, job)
		if errors.Is(err, repository.ErrConflict) && attempt < maxWriteAttempts {
			slog.Debug("job write conflict, retrying", slog.String("job_id", id), slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update job %s: %w", id, err)
		}
		if details != "" {
			s.logEvent(ctx, job.ID, eventType, details)
		}
		return job, nil
	}
}

// logEvent records an audit event. Failures are logged, never returned: the job
// write has already succeeded.
func (s *JobService) logEvent(ctx context.Context, jobID, eventType, details string) {
	event := &models.JobEvent{JobID: jobID, EventType: eventType, Details: details}
	if err := s.Jobs.AppendEvent(ctx, event); err != nil {
		slog.Error("failed to record job event",
			slog.String("job_id", jobID),
			slog.String("event", eventType),
			slog.Any("error", err))
	}
}

func (s *JobService) dateOrToday(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.now().Format(dateLayout), nil
	}
	if _, err := time.Parse(dateLayout, raw); err != nil {
		return "", fmt.Errorf("%w: dateApplied must be YYYY-MM-DD", ErrValidation)
	}
	return raw, nil
}
