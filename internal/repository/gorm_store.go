package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/justsurfingit/job-funnel-tracker/internal/models"
	"github.com/justsurfingit/job-funnel-tracker/internal/stages"
	"gorm.io/gorm"
)

// GormStore is the relational Store (Postgres in production, SQLite for local runs).
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) List(ctx context.Context, ownerID string, filter JobFilter) ([]models.Job, error) {
	q := s.DB.WithContext(ctx).Where("owner_id = ?", ownerID)
	if filter.Status != nil {
		q = q.Where("status = ?", string(*filter.Status))
	}
	if term := strings.ToLower(strings.TrimSpace(filter.Query)); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(company) LIKE ? OR LOWER(position) LIKE ?", like, like)
	}

	var jobs []models.Job
	if err := q.Order("date_applied DESC, created_at DESC").Find(&jobs).Error; err != nil {
		return nil, loadErr("list jobs", err)
	}
	for _, j := range jobs {
		if err := checkJob(j); err != nil {
			return nil, err
		}
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	return jobs, nil
}

func (s *GormStore) Get(ctx context.Context, ownerID, id string) (*models.Job, error) {
	var job models.Job
	err := s.DB.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&job).Error
	if err != nil {
		return nil, loadErr("get job", err)
	}
	if err := checkJob(job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *GormStore) Insert(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Version = 1
	if err := s.DB.WithContext(ctx).Create(job).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("insert job %s: %w", job.ID, ErrDuplicate)
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *GormStore) Replace(ctx context.Context, job *models.Job) error {
	now := time.Now().UTC()
	res := s.DB.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND owner_id = ? AND version = ?", job.ID, job.OwnerID, job.Version).
		Updates(map[string]any{
			"company":       job.Company,
			"position":      job.Position,
			"status":        job.Status,
			"date_applied":  job.DateApplied,
			"notes":         job.Notes,
			"description":   job.Description,
			"match_score":   job.MatchScore,
			"match_reason":  job.MatchReason,
			"stage_history": job.StageHistory,
			"version":       job.Version + 1,
			"updated_at":    now,
		})
	if res.Error != nil {
		return fmt.Errorf("replace job %s: %w", job.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.Get(ctx, job.OwnerID, job.ID); err != nil {
			return err
		}
		return fmt.Errorf("replace job %s: %w", job.ID, ErrConflict)
	}
	job.Version++
	job.UpdatedAt = now
	return nil
}

func (s *GormStore) Delete(ctx context.Context, ownerID, id string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&models.Job{})
		if res.Error != nil {
			return fmt.Errorf("delete job %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("delete job %s: %w", id, ErrNotFound)
		}
		if err := tx.Where("job_id = ?", id).Delete(&models.JobEvent{}).Error; err != nil {
			return fmt.Errorf("delete job events %s: %w", id, err)
		}
		return nil
	})
}

func (s *GormStore) AppendEvent(ctx context.Context, event *models.JobEvent) error {
	if err := s.DB.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (s *GormStore) ListEvents(ctx context.Context, jobID string) ([]models.JobEvent, error) {
	events := []models.JobEvent{}
	if err := s.DB.WithContext(ctx).Where("job_id = ?", jobID).Order("id ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	if _, err := s.FindUserByEmail(ctx, user.Email); err == nil {
		return fmt.Errorf("create user %s: %w", user.Email, ErrDuplicate)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if err := s.DB.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("create user %s: %w", user.Email, ErrDuplicate)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return nil, loadErr("find user", err)
	}
	return &user, nil
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, loadErr("get user", err)
	}
	return &user, nil
}

func (s *GormStore) SaveResume(ctx context.Context, userID, text string) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("resume_text", text)
	if res.Error != nil {
		return fmt.Errorf("save resume: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("save resume: user %s: %w", userID, ErrNotFound)
	}
	return nil
}

func (s *GormStore) EmailProcessed(ctx context.Context, messageID string) (bool, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.ProcessedEmail{}).Where("id = ?", messageID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check processed email: %w", err)
	}
	return count > 0, nil
}

func (s *GormStore) MarkEmailProcessed(ctx context.Context, messageID string) error {
	rec := models.ProcessedEmail{ID: messageID}
	if err := s.DB.WithContext(ctx).Where(models.ProcessedEmail{ID: messageID}).FirstOrCreate(&rec).Error; err != nil {
		return fmt.Errorf("mark processed email: %w", err)
	}
	return nil
}

func (s *GormStore) InboxCursor(ctx context.Context, userID string) (uint64, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.LastHistoryID, nil
}

func (s *GormStore) SetInboxCursor(ctx context.Context, userID string, historyID uint64) error {
	err := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("last_history_id", historyID).Error
	if err != nil {
		return fmt.Errorf("set inbox cursor: %w", err)
	}
	return nil
}

func loadErr(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, stages.ErrInvalidStatus):
		return fmt.Errorf("%s: %w: %w", op, ErrCorruptRecord, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

var _ Store = (*GormStore)(nil)
