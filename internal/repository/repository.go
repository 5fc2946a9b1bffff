// Package repository persists users, jobs and their events. Two stores implement
// the same interfaces: a gorm-backed relational store and a JSON file store.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/justsurfingit/job-funnel-tracker/internal/models"
	"github.com/justsurfingit/job-funnel-tracker/internal/stages"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrConflict      = errors.New("record was modified concurrently")
	ErrDuplicate     = errors.New("record already exists")
	ErrCorruptRecord = errors.New("stored record is invalid")
)

// JobFilter narrows List. Zero values match everything.
type JobFilter struct {
	Status *stages.Status
	Query  string
}

// Matches reports whether job passes the filter.
func (f JobFilter) Matches(job models.Job) bool {
	if f.Status != nil && job.Status != *f.Status {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(job.Company), q) ||
		strings.Contains(strings.ToLower(job.Position), q)
}

type JobRepository interface {
	List(ctx context.Context, ownerID string, filter JobFilter) ([]models.Job, error)
	Get(ctx context.Context, ownerID, id string) (*models.Job, error)
	Insert(ctx context.Context, job *models.Job) error
	// Replace overwrites job if the stored version still equals job.Version and
	// bumps the version. A stale version returns ErrConflict.
	Replace(ctx context.Context, job *models.Job) error
	Delete(ctx context.Context, ownerID, id string) error

	AppendEvent(ctx context.Context, event *models.JobEvent) error
	ListEvents(ctx context.Context, jobID string) ([]models.JobEvent, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	SaveResume(ctx context.Context, userID, text string) error
}

// InboxStore keeps inbox-sync state.
type InboxStore interface {
	EmailProcessed(ctx context.Context, messageID string) (bool, error)
	MarkEmailProcessed(ctx context.Context, messageID string) error
	InboxCursor(ctx context.Context, userID string) (uint64, error)
	SetInboxCursor(ctx context.Context, userID string, historyID uint64) error
}

// Store is everything the service layer needs from persistence.
type Store interface {
	JobRepository
	UserRepository
	InboxStore
	Close() error
}

// checkJob applies the load-time policy: records carrying tokens outside the status
// enumeration are rejected, never repaired.
func checkJob(job models.Job) error {
	if !job.Status.Valid() {
		return fmt.Errorf("%w: job %s: %w %q", ErrCorruptRecord, job.ID, stages.ErrInvalidStatus, string(job.Status))
	}
	if err := stages.History(job.StageHistory).Validate(); err != nil {
		return fmt.Errorf("%w: job %s: %w", ErrCorruptRecord, job.ID, err)
	}
	return nil
}

// sortJobs orders by date applied, newest first, then by creation time.
func sortJobs(jobs []models.Job) {
	sort.SliceStable(jobs, func(i, k int) bool {
		if jobs[i].DateApplied != jobs[k].DateApplied {
			return jobs[i].DateApplied > jobs[k].DateApplied
		}
		return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
