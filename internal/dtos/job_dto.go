package dtos

import "github.com/justsurfingit/job-funnel-tracker/internal/stages"

type JobExtractionRequest struct {
	RawHTML string `json:"raw_html" binding:"required"`
	URL     string `json:"url"`
}

// JobExtraction is what the LLM pulls out of a job posting.
type JobExtraction struct {
	CompanyName string   `json:"company_name"`
	RoleTitle   string   `json:"role_title"`
	Location    *string  `json:"location"`
	Description string   `json:"description"`
	TechStack   []string `json:"tech_stack"`
	SalaryRange *string  `json:"salary_range"`
}

type JobCreateRequest struct {
	Company     string        `json:"company" binding:"required"`
	Position    string        `json:"position" binding:"required"`
	Status      stages.Status `json:"status" binding:"required,jobstatus"`
	DateApplied string        `json:"dateApplied" binding:"omitempty,datetime=2006-01-02"`
	Notes       string        `json:"notes"`
	Description string        `json:"description"`
	MatchScore  *int          `json:"matchScore" binding:"omitempty,min=0,max=100"`
	MatchReason string        `json:"matchReason"`
	// Stages known from elsewhere (an import, a spreadsheet). Merged with the preset chain.
	StageHistory []stages.Status `json:"stageHistory" binding:"omitempty,dive,jobstatus"`
}

// JobUpdateRequest is a partial update. Nil fields keep their stored value.
type JobUpdateRequest struct {
	Company      *string         `json:"company" binding:"omitempty,min=1"`
	Position     *string         `json:"position" binding:"omitempty,min=1"`
	Status       *stages.Status  `json:"status" binding:"omitempty,jobstatus"`
	DateApplied  *string         `json:"dateApplied" binding:"omitempty,datetime=2006-01-02"`
	Notes        *string         `json:"notes"`
	Description  *string         `json:"description"`
	MatchScore   *int            `json:"matchScore" binding:"omitempty,min=0,max=100"`
	MatchReason  *string         `json:"matchReason"`
	StageHistory []stages.Status `json:"stageHistory" binding:"omitempty,dive,jobstatus"`
}

type JobListQuery struct {
	Status string `form:"status" binding:"omitempty,jobstatus"`
	Query  string `form:"q"`
}

type StatusInfo struct {
	Status stages.Status   `json:"status"`
	Label  string          `json:"label"`
	Chain  []stages.Status `json:"chain"`
}

type FunnelResponse struct {
	Stats stages.FunnelStats `json:"stats"`
	Flows []stages.Flow      `json:"flows"`
}
