package dtos

type MatchRequest struct {
	JobID       string `json:"jobId"`
	Company     string `json:"company"`
	Role        string `json:"role"`
	Description string `json:"description"`
	// Falls back to the caller's stored resume when empty.
	ResumeText string `json:"resumeText"`
}

type MatchResult struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

type ResumeEvaluation struct {
	Score      int    `json:"score"`
	Strengths  string `json:"strengths"`
	Weaknesses string `json:"weaknesses"`
	Summary    string `json:"summary"`
}

type ResumeResponse struct {
	ResumeText string           `json:"resumeText"`
	Analysis   ResumeEvaluation `json:"analysis"`
}

type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required"`
}

type CoachJob struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	Description string `json:"description"`
}

type CoachRequest struct {
	Message string        `json:"message" binding:"required"`
	JobID   string        `json:"jobId"`
	Job     *CoachJob     `json:"job"`
	History []ChatMessage `json:"history" binding:"omitempty,max=40,dive"`
}

type CoachResponse struct {
	Reply string `json:"reply"`
}

// EmailClassification is the LLM verdict on one recruiting email. Status is a
// status token or NO_CHANGE.
type EmailClassification struct {
	Status  string `json:"status"`
	Summary string `json:"summary"`
}
