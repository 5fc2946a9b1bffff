package services

import (
	"context"
	"testing"
	"time"

	"github.com/justsurfingit/job-funnel-tracker/internal/dtos"
	"github.com/justsurfingit/job-funnel-tracker/internal/models"
	"github.com/justsurfingit/job-funnel-tracker/internal/repository"
	"github.com/justsurfingit/job-funnel-tracker/internal/stages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func newJobService(t *testing.T) *JobService {
	t.Helper()
	s := NewJobService(newStore(t))
	s.now = func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestCreateJobSeedsHistory(t *testing.T) {
	ctx := context.Background()
	s := newJobService(t)

	job, err := s.CreateJob(ctx, "u1", &dtos.JobCreateRequest{
		Company:  "  Stripe ",
		Position: "Backend Engineer",
		Status:   stages.OA,
	})
	require.NoError(t, err)
	assert.Equal(t, "Stripe", job.Company)
	assert.Equal(t, "2025-03-14", job.DateApplied)
	assert.Equal(t, []stages.Status{stages.Applied, stages.Reply, stages.OA}, []stages.Status(job.StageHistory))

	events, err := s.Events(ctx, "u1", job.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventCreated, events[0].EventType)
}

func TestCreateJobMergesSuppliedHistory(t *testing.T) {
	s := newJobService(t)
	job, err := s.CreateJob(context.Background(), "u1", &dtos.JobCreateRequest{
		Company:      "Acme",
		Position:     "SRE",
		Status:       stages.Rejected,
		DateApplied:  "2025-01-02",
		StageHistory: []stages.Status{stages.OA},
	})
	require.NoError(t, err)
	assert.Equal(t, []stages.Status{stages.Applied, stages.Reply, stages.Rejected, stages.OA}, []stages.Status(job.StageHistory))
}

func TestCreateJobValidation(t *testing.T) {
	s := newJobService(t)
	ctx := context.Background()

	_, err := s.CreateJob(ctx, "u1", &dtos.JobCreateRequest{Company: "Acme", Position: "   ", Status: stages.Applied})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.CreateJob(ctx, "u1", &dtos.JobCreateRequest{Company: "Acme", Position: "SRE", Status: "interviewing"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, stages.ErrInvalidStatus)

	_, err = s.CreateJob(ctx, "u1", &dtos.JobCreateRequest{Company: "Acme", Position: "SRE", Status: stages.Applied, DateApplied: "14/03/2025"})
	assert.ErrorIs(t, err, ErrValidation)

	jobs, err := s.ListJobs(ctx, "u1", repository.JobFilter{})
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestUpdateJobHistoryNeverShrinks(t *testing.T) {
	ctx := context.Background()
	s := newJobService(t)
	job, err := s.CreateJob(ctx, "u1", &dtos.JobCreateRequest{Company: "Stripe", Position: "SWE", Status: stages.OA})
	require.NoError(t, err)

	updated, err := s.UpdateJob(ctx, "u1", job.ID, &dtos.JobUpdateRequest{Status: ptr(stages.InitialInterview)})
	require.NoError(t, err)
	assert.Equal(t, stages.InitialInterview, updated.Status)
	assert.Equal(t,
		[]stages.Status{stages.Applied, stages.Reply, stages.InitialInterview, stages.OA},
		[]stages.Status(updated.StageHistory))

	// Moving back to an earlier status keeps everything already recorded.
	back, err := s.UpdateJob(ctx, "u1", job.ID, &dtos.JobUpdateRequest{Status: ptr(stages.Reply)})
	require.NoError(t, err)
	assert.True(t, stages.History(back.StageHistory).Equal(stages.History{stages.Applied, stages.Reply, stages.InitialInterview, stages.OA}))

	notes, err := s.UpdateJob(ctx, "u1", job.ID, &dtos.JobUpdateRequest{Notes: ptr("call on Monday")})
	require.NoError(t, err)
	assert.Equal(t, "call on Monday", notes.Notes)
	assert.Equal(t, stages.Reply, notes.Status)

	events, err := s.Events(ctx, "u1", job.ID)
	require.NoError(t, err)
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.EventType
	}
	assert.Equal(t, []string{models.EventCreated, models.EventStatusChanged, models.EventStatusChanged}, types)
}

func TestUpdateJobErrors(t *testing.T) {
	ctx := context.Background()
	s := newJobService(t)
	job, err := s.CreateJob(ctx, "u1", &dtos.JobCreateRequest{Company: "Stripe", Position: "SWE", Status: stages.Applied})
	require.NoError(t, err)

	_, err = s.UpdateJob(ctx, "u1", job.ID, &dtos.JobUpdateRequest{Company: ptr(" ")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.UpdateJob(ctx, "u2", job.ID, &dtos.JobUpdateRequest{Notes: ptr("x")})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = s.UpdateJob(ctx, "u1", job.ID, &dtos.JobUpdateRequest{StageHistory: []stages.Status{"ghosted"}})
	assert.ErrorIs(t, err, stages.ErrInvalidStatus)
}

func TestUpdateJobRetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	repo := &conflictingJobs{JobRepository: store, conflicts: 2}
	s := NewJobService(repo)

	job, err := s.CreateJob(ctx, "u1", &dtos.JobCreateRequest{Company: "Stripe", Position: "SWE", Status: stages.Applied})
	require.NoError(t, err)

	updated, err := s.UpdateJob(ctx, "u1", job.ID, &dtos.JobUpdateRequest{Status: ptr(stages.Reply)})
	require.NoError(t, err)
	assert.Equal(t, stages.Reply, updated.Status)
	assert.Equal(t, 3, repo.replaces)

	repo.conflicts = maxWriteAttempts
	_, err = s.UpdateJob(ctx, "u1", job.ID, &dtos.JobUpdateRequest{Status: ptr(stages.OA)})
	assert.ErrorIs(t, err, repository.ErrConflict)

	stored, err := store.Get(ctx, "u1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, stages.Reply, stored.Status)
}

func TestApplyEmailStatus(t *testing.T) {
	ctx := context.Background()
	s := newJobService(t)
	job, err := s.CreateJob(ctx, "u1", &dtos.JobCreateRequest{Company: "Stripe", Position: "SWE", Status: stages.Reply})
	require.NoError(t, err)

	changed, err := s.ApplyEmailStatus(ctx, "u1", job.ID, stages.Reply, "thanks for applying")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = s.ApplyEmailStatus(ctx, "u1", job.ID, stages.FinalInterview, "onsite invite")
	require.NoError(t, err)
	assert.True(t, changed)

	stored, err := s.GetJob(ctx, "u1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, stages.FinalInterview, stored.Status)
	assert.Equal(t, 2, stored.Version)

	events, err := s.Events(ctx, "u1", job.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventEmailUpdate, events[1].EventType)
	assert.Contains(t, events[1].Details, "onsite invite")
}

func TestSetMatch(t *testing.T) {
	ctx := context.Background()
	s := newJobService(t)
	job, err := s.CreateJob(ctx, "u1", &dtos.JobCreateRequest{Company: "Stripe", Position: "SWE", Status: stages.Applied})
	require.NoError(t, err)

	updated, err := s.SetMatch(ctx, "u1", job.ID, dtos.MatchResult{Score: 88, Reason: "strong Go"})
	require.NoError(t, err)
	require.NotNil(t, updated.MatchScore)
	assert.Equal(t, 88, *updated.MatchScore)
	assert.Equal(t, "strong Go", updated.MatchReason)
	assert.Equal(t, stages.Applied, updated.Status)
}

func TestFunnelStatsPerOwner(t *testing.T) {
	ctx := context.Background()
	s := newJobService(t)
	for _, st := range []stages.Status{stages.Applied, stages.OA, stages.Offer, stages.Rejected} {
		_, err := s.CreateJob(ctx, "u1", &dtos.JobCreateRequest{Company: "Co", Position: "SWE", Status: st})
		require.NoError(t, err)
	}
	_, err := s.CreateJob(ctx, "u2", &dtos.JobCreateRequest{Company: "Co", Position: "SWE", Status: stages.Offer})
	require.NoError(t, err)

	stats, err := s.FunnelStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 4, stats.Applied)
	assert.Equal(t, 3, stats.Reply)
	assert.Equal(t, 1, stats.Offer)
	assert.Equal(t, 75.0, stats.ResponseRate)
	assert.Equal(t, 25.0, stats.OfferRate)

	empty, err := s.FunnelStats(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, stages.FunnelStats{}, empty)
}
