package models

import (
	"time"

	"github.com/justsurfingit/job-funnel-tracker/internal/stages"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`

	// Latest uploaded resume, used as the default for match scoring.
	ResumeText string `gorm:"type:text" json:"resumeText,omitempty"`

	// Gmail history bookmark for inbox sync.
	LastHistoryID uint64 `json:"-"`
}

// Job is one tracked application.
type Job struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	OwnerID string `gorm:"index;not null;type:varchar(36)" json:"ownerId"`

	Company     string        `gorm:"not null" json:"company"`
	Position    string        `gorm:"not null" json:"position"`
	Status      stages.Status `gorm:"type:varchar(32);not null;index" json:"status"`
	DateApplied string        `gorm:"type:varchar(10)" json:"dateApplied"`
	Notes       string        `gorm:"type:text" json:"notes,omitempty"`
	Description string        `gorm:"type:text" json:"description,omitempty"`
	MatchScore  *int          `json:"matchScore,omitempty"`
	MatchReason string        `gorm:"type:text" json:"matchReason,omitempty"`

	StageHistory datatypes.JSONSlice[stages.Status] `json:"stageHistory"`

	// Incremented on every write; Replace compares it to detect lost updates.
	Version int `gorm:"not null;default:1" json:"version"`
}

func (j Job) CurrentStatus() stages.Status { return j.Status }

func (j Job) RecordedHistory() stages.History { return stages.History(j.StageHistory) }

// JobEvent records a status change or other notable update of a Job.
type JobEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	JobID     string    `gorm:"index;type:varchar(36)" json:"jobId"`
	EventType string    `json:"eventType"`
	Details   string    `gorm:"type:text" json:"details"`
}

const (
	EventCreated       = "CREATED"
	EventStatusChanged = "STATUS_CHANGED"
	EventEmailUpdate   = "EMAIL_UPDATE"
	EventMatchScored   = "MATCH_SCORED"
)

// ProcessedEmail marks a Gmail message as handled by inbox sync.
type ProcessedEmail struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
}
