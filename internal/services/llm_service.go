package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/justsurfingit/job-funnel-tracker/internal/dtos"
	"github.com/justsurfingit/job-funnel-tracker/internal/stages"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

const (
	maxPromptInput = 20000
	noChange       = "NO_CHANGE"
)

type LLMService struct {
	// Nil when no API key is configured; every call then fails with ErrAIUnavailable.
	Client llms.Model
}

// NewLLMService creates a Gemini-backed service. An empty apiKey yields a
// disabled service instead of an error so the tracker works without AI.
func NewLLMService(ctx context.Context, apiKey, model string) (*LLMService, error) {
	if apiKey == "" {
		slog.Warn("GEMINI_API_KEY not set, AI features disabled")
		return &LLMService{}, nil
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &LLMService{Client: llm}, nil
}

func (s *LLMService) Enabled() bool { return s != nil && s.Client != nil }

func (s *LLMService) generate(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	if !s.Enabled() {
		return "", ErrAIUnavailable
	}
	resp, err := llms.GenerateFromSinglePrompt(ctx, s.Client, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("llm generate: %w", err)
	}
	return resp, nil
}

// generateJSON asks for a JSON object and decodes the text between the first
// '{' and the last '}' of the reply into out.
func (s *LLMService) generateJSON(ctx context.Context, prompt string, out any) error {
	raw, err := s.generate(ctx, prompt, llms.WithTemperature(0.2))
	if err != nil {
		return err
	}
	obj, ok := extractJSONObject(raw)
	if !ok {
		return fmt.Errorf("%w: no JSON object in reply", ErrAIResponse)
	}
	if err := json.Unmarshal([]byte(obj), out); err != nil {
		return fmt.Errorf("%w: %w", ErrAIResponse, err)
	}
	return nil
}

func extractJSONObject(text string) (string, bool) {
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first == -1 || last < first {
		return "", false
	}
	return text[first : last+1], true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func clampScore(score int) int {
	return min(max(score, 0), 100)
}

const jobExtractionPrompt = `
You are an expert Job Data Extraction Agent. Your task is to analyze the provided raw HTML/Text from a job posting and extract structured data.

### INSTRUCTIONS:
1. **Analyze** the text to identify the core job details.
2. **Ignore** navigation menus, footers, "similar jobs" lists, and site advertisements.
3. **Extract** the following fields strictly.
4. **Format** the output as valid JSON only. Do not wrap the output in markdown code blocks.

### OUTPUT SCHEMA:
{
    "company_name": "Name of the company (e.g., Google, StartupInc)",
    "role_title": "Job title (e.g., Senior Backend Engineer)",
    "location": "Job location or 'Remote'",
    "description": "A clean summary of the job. Focus on Responsibilities and Requirements. Remove HTML tags.",
    "tech_stack": ["Array", "of", "technologies", "mentioned", "e.g., Go, React, AWS"],
    "salary_range": "The salary string if explicitly mentioned (e.g., '$100k - $150k'), otherwise null"
}

### CONSTRAINT:
If a piece of information is missing, set the value to null. Do not hallucinate or guess.

### RAW CONTENT:
%s
`

// ExtractJobDetails turns a raw job posting into structured fields.
func (s *LLMService) ExtractJobDetails(ctx context.Context, rawHTML string) (*dtos.JobExtraction, error) {
	var out dtos.JobExtraction
	if err := s.generateJSON(ctx, fmt.Sprintf(jobExtractionPrompt, truncate(rawHTML, maxPromptInput)), &out); err != nil {
		return nil, err
	}
	if out.TechStack == nil {
		out.TechStack = []string{}
	}
	return &out, nil
}

const matchPrompt = `
Score this job for how good of a match it is for the candidate.
Return ONLY a JSON object with "score" (1-100) and "reason".
Do NOT add extra explanation or comments outside the JSON.

Company: %s
Role: %s
Description: %s

Candidate resume:
%s
`

// MatchScore rates how well a job fits a candidate. Without a resume the model
// scores for a junior software engineer.
func (s *LLMService) MatchScore(ctx context.Context, company, role, description, resume string) (dtos.MatchResult, error) {
	if strings.TrimSpace(resume) == "" {
		resume = "(not provided: assume a young software engineer)"
	}
	var out dtos.MatchResult
	prompt := fmt.Sprintf(matchPrompt, company, role, truncate(description, maxPromptInput), truncate(resume, maxPromptInput))
	if err := s.generateJSON(ctx, prompt, &out); err != nil {
		return dtos.MatchResult{}, err
	}
	out.Score = clampScore(out.Score)
	return out, nil
}

const resumePrompt = `
Return ONLY valid JSON.

Analyze this resume:

%s

Return:
{
  "score": number,
  "strengths": string,
  "weaknesses": string,
  "summary": string
}
`

func (s *LLMService) EvaluateResume(ctx context.Context, resume string) (dtos.ResumeEvaluation, error) {
	var out dtos.ResumeEvaluation
	if err := s.generateJSON(ctx, fmt.Sprintf(resumePrompt, truncate(resume, maxPromptInput)), &out); err != nil {
		return dtos.ResumeEvaluation{}, err
	}
	out.Score = clampScore(out.Score)
	return out, nil
}

const coachSystemPrompt = `You are a concise career coach. Help the candidate understand how their resume fits the role and what to improve. Keep answers under 200 words.

Role: %s at %s
Job description:
%s

Candidate resume:
%s`

// CoachReply continues a coaching conversation about one job.
func (s *LLMService) CoachReply(ctx context.Context, job dtos.CoachJob, resume string, history []dtos.ChatMessage, message string) (string, error) {
	if !s.Enabled() {
		return "", ErrAIUnavailable
	}
	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, fmt.Sprintf(coachSystemPrompt,
			job.Position, job.Company, truncate(job.Description, maxPromptInput), truncate(resume, maxPromptInput))),
	}
	for _, m := range history {
		role := llms.ChatMessageTypeHuman
		if m.Role == "assistant" {
			role = llms.ChatMessageTypeAI
		}
		msgs = append(msgs, llms.TextParts(role, m.Content))
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, message))

	resp, err := s.Client.GenerateContent(ctx, msgs, llms.WithTemperature(0.4))
	if err != nil {
		return "", fmt.Errorf("llm coach: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", fmt.Errorf("%w: empty reply", ErrAIResponse)
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

const emailStatusPrompt = `
You track job applications. Read this email from %s and decide the application status it implies.

Allowed statuses: %s
Answer NO_CHANGE if the email does not move the application (newsletters, receipts, generic updates).

Return ONLY JSON: {"status": "<one allowed status or NO_CHANGE>", "summary": "<one sentence>"}

Subject: %s
Body:
%s
`

// ClassifyEmailStatus maps a recruiting email to a status. A reply outside the
// enumeration is reported as NO_CHANGE with the raw value logged.
func (s *LLMService) ClassifyEmailStatus(ctx context.Context, company, subject, body string) (dtos.EmailClassification, error) {
	tokens := make([]string, 0, len(stages.All()))
	for _, st := range stages.All() {
		tokens = append(tokens, string(st))
	}
	var out dtos.EmailClassification
	prompt := fmt.Sprintf(emailStatusPrompt, company, strings.Join(tokens, ", "), subject, truncate(body, maxPromptInput))
	if err := s.generateJSON(ctx, prompt, &out); err != nil {
		return dtos.EmailClassification{}, err
	}
	out.Status = strings.TrimSpace(out.Status)
	if out.Status != noChange {
		if _, err := stages.ParseStatus(out.Status); err != nil {
			slog.Warn("llm returned unknown status", slog.String("status", out.Status))
			out.Status = noChange
		}
	}
	return out, nil
}

const identifyRolePrompt = `
An email from a company is about exactly one of these job applications:
%s
Subject: %s
Body:
%s

Return ONLY JSON: {"index": <number of the matching role starting at 0, or -1 if unclear>}
`

// IdentifyJobRole picks which of several positions at one company an email is
// about. It returns -1 when the model cannot tell.
func (s *LLMService) IdentifyJobRole(ctx context.Context, positions []string, subject, body string) (int, error) {
	var list strings.Builder
	for i, p := range positions {
		fmt.Fprintf(&list, "%d. %s\n", i, p)
	}
	var out struct {
		Index int `json:"index"`
	}
	if err := s.generateJSON(ctx, fmt.Sprintf(identifyRolePrompt, list.String(), subject, truncate(body, maxPromptInput)), &out); err != nil {
		return -1, err
	}
	if out.Index < 0 || out.Index >= len(positions) {
		return -1, nil
	}
	return out.Index, nil
}
