package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/justsurfingit/job-funnel-tracker/internal/models"
)

// fileUser carries the fields models.User hides from API responses.
type fileUser struct {
	models.User
	PasswordHash string `json:"passwordHash"`
}

func (u fileUser) model() *models.User {
	out := u.User
	out.PasswordHash = u.PasswordHash
	return &out
}

// fileData is the on-disk layout of the JSON database.
type fileData struct {
	Users           []fileUser        `json:"users"`
	Jobs            []models.Job      `json:"jobs"`
	Events          []models.JobEvent `json:"events"`
	ProcessedEmails []string          `json:"processedEmails,omitempty"`
	InboxCursors    map[string]uint64 `json:"inboxCursors,omitempty"`
}

// FileStore keeps everything in a single JSON file. All access is serialized by
// one mutex and every write replaces the file atomically.
type FileStore struct {
	path string

	mu   sync.Mutex
	data fileData
}

// OpenFileStore loads path, creating an empty database if it does not exist.
// Jobs with statuses outside the enumeration make the load fail.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("file store: mkdir: %w", err)
		}
		if err := s.flush(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("file store: read %s: %w", path, err)
	default:
		if err := json.Unmarshal(raw, &s.data); err != nil {
			return nil, fmt.Errorf("file store: decode %s: %w: %w", path, ErrCorruptRecord, err)
		}
	}
	for _, j := range s.data.Jobs {
		if err := checkJob(j); err != nil {
			return nil, fmt.Errorf("file store: %w", err)
		}
	}
	return s, nil
}

func (s *FileStore) Close() error { return nil }

// flush writes the database to a temp file and renames it over the original.
func (s *FileStore) flush() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("file store: encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".db-*.json")
	if err != nil {
		return fmt.Errorf("file store: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("file store: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file store: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("file store: rename: %w", err)
	}
	return nil
}

func (s *FileStore) jobIndex(ownerID, id string) int {
	for i, j := range s.data.Jobs {
		if j.ID == id && j.OwnerID == ownerID {
			return i
		}
	}
	return -1
}

func (s *FileStore) List(_ context.Context, ownerID string, filter JobFilter) ([]models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := []models.Job{}
	for _, j := range s.data.Jobs {
		if j.OwnerID == ownerID && filter.Matches(j) {
			jobs = append(jobs, cloneJob(j))
		}
	}
	sortJobs(jobs)
	return jobs, nil
}

func (s *FileStore) Get(_ context.Context, ownerID, id string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.jobIndex(ownerID, id)
	if i < 0 {
		return nil, fmt.Errorf("get job %s: %w", id, ErrNotFound)
	}
	job := cloneJob(s.data.Jobs[i])
	return &job, nil
}

func (s *FileStore) Insert(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ID == "" {
		job.ID = uuid.NewString()
	} else if s.jobIndex(job.OwnerID, job.ID) >= 0 {
		return fmt.Errorf("insert job %s: %w", job.ID, ErrDuplicate)
	}
	now := time.Now().UTC()
	job.CreatedAt, job.UpdatedAt = now, now
	job.Version = 1

	s.data.Jobs = append(s.data.Jobs, cloneJob(*job))
	if err := s.flush(); err != nil {
		s.data.Jobs = s.data.Jobs[:len(s.data.Jobs)-1]
		return err
	}
	return nil
}

func (s *FileStore) Replace(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.jobIndex(job.OwnerID, job.ID)
	if i < 0 {
		return fmt.Errorf("replace job %s: %w", job.ID, ErrNotFound)
	}
	prev := s.data.Jobs[i]
	if prev.Version != job.Version {
		return fmt.Errorf("replace job %s: %w", job.ID, ErrConflict)
	}

	next := cloneJob(*job)
	next.CreatedAt = prev.CreatedAt
	next.UpdatedAt = time.Now().UTC()
	next.Version = prev.Version + 1
	s.data.Jobs[i] = next
	if err := s.flush(); err != nil {
		s.data.Jobs[i] = prev
		return err
	}
	job.UpdatedAt = next.UpdatedAt
	job.Version = next.Version
	return nil
}

func (s *FileStore) Delete(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.jobIndex(ownerID, id)
	if i < 0 {
		return fmt.Errorf("delete job %s: %w", id, ErrNotFound)
	}
	prevJobs, prevEvents := s.data.Jobs, s.data.Events

	jobs := make([]models.Job, 0, len(prevJobs)-1)
	jobs = append(jobs, prevJobs[:i]...)
	jobs = append(jobs, prevJobs[i+1:]...)
	events := make([]models.JobEvent, 0, len(prevEvents))
	for _, e := range prevEvents {
		if e.JobID != id {
			events = append(events, e)
		}
	}
	s.data.Jobs, s.data.Events = jobs, events
	if err := s.flush(); err != nil {
		s.data.Jobs, s.data.Events = prevJobs, prevEvents
		return err
	}
	return nil
}

func (s *FileStore) AppendEvent(_ context.Context, event *models.JobEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next uint = 1
	for _, e := range s.data.Events {
		if e.ID >= next {
			next = e.ID + 1
		}
	}
	event.ID = next
	event.CreatedAt = time.Now().UTC()
	s.data.Events = append(s.data.Events, *event)
	if err := s.flush(); err != nil {
		s.data.Events = s.data.Events[:len(s.data.Events)-1]
		return err
	}
	return nil
}

func (s *FileStore) ListEvents(_ context.Context, jobID string) ([]models.JobEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := []models.JobEvent{}
	for _, e := range s.data.Events {
		if e.JobID == jobID {
			events = append(events, e)
		}
	}
	return events, nil
}

func (s *FileStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = normalizeEmail(user.Email)
	for _, u := range s.data.Users {
		if u.Email == user.Email {
			return fmt.Errorf("create user %s: %w", user.Email, ErrDuplicate)
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	s.data.Users = append(s.data.Users, fileUser{User: *user, PasswordHash: user.PasswordHash})
	if err := s.flush(); err != nil {
		s.data.Users = s.data.Users[:len(s.data.Users)-1]
		return err
	}
	return nil
}

func (s *FileStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = normalizeEmail(email)
	for _, u := range s.data.Users {
		if u.Email == email {
			return u.model(), nil
		}
	}
	return nil, fmt.Errorf("find user %s: %w", email, ErrNotFound)
}

func (s *FileStore) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.data.Users {
		if u.ID == id {
			return u.model(), nil
		}
	}
	return nil, fmt.Errorf("get user %s: %w", id, ErrNotFound)
}

func (s *FileStore) SaveResume(_ context.Context, userID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Users {
		if s.data.Users[i].ID != userID {
			continue
		}
		prev := s.data.Users[i]
		s.data.Users[i].ResumeText = text
		s.data.Users[i].UpdatedAt = time.Now().UTC()
		if err := s.flush(); err != nil {
			s.data.Users[i] = prev
			return err
		}
		return nil
	}
	return fmt.Errorf("save resume: user %s: %w", userID, ErrNotFound)
}

func (s *FileStore) EmailProcessed(_ context.Context, messageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.data.ProcessedEmails {
		if id == messageID {
			return true, nil
		}
	}
	return false, nil
}

func (s *FileStore) MarkEmailProcessed(_ context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.data.ProcessedEmails {
		if id == messageID {
			return nil
		}
	}
	s.data.ProcessedEmails = append(s.data.ProcessedEmails, messageID)
	if err := s.flush(); err != nil {
		s.data.ProcessedEmails = s.data.ProcessedEmails[:len(s.data.ProcessedEmails)-1]
		return err
	}
	return nil
}

func (s *FileStore) InboxCursor(_ context.Context, userID string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.InboxCursors[userID], nil
}

func (s *FileStore) SetInboxCursor(_ context.Context, userID string, historyID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data.InboxCursors == nil {
		s.data.InboxCursors = make(map[string]uint64)
	}
	prev, had := s.data.InboxCursors[userID]
	s.data.InboxCursors[userID] = historyID
	if err := s.flush(); err != nil {
		if had {
			s.data.InboxCursors[userID] = prev
		} else {
			delete(s.data.InboxCursors, userID)
		}
		return err
	}
	return nil
}

// cloneJob copies the slice fields so callers never alias stored state.
func cloneJob(j models.Job) models.Job {
	if j.StageHistory != nil {
		j.StageHistory = append(j.StageHistory[:0:0], j.StageHistory...)
	}
	if j.MatchScore != nil {
		score := *j.MatchScore
		j.MatchScore = &score
	}
	return j
}

var _ Store = (*FileStore)(nil)
