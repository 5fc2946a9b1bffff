package services

import (
	"context"
	"errors"
	"testing"

	"github.com/justsurfingit/job-funnel-tracker/internal/dtos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestLLMDisabled(t *testing.T) {
	s, err := NewLLMService(context.Background(), "", "gemini-2.5-flash")
	require.NoError(t, err)
	assert.False(t, s.Enabled())

	_, err = s.MatchScore(context.Background(), "Acme", "SWE", "", "")
	assert.ErrorIs(t, err, ErrAIUnavailable)
	_, err = s.CoachReply(context.Background(), dtos.CoachJob{}, "", nil, "hi")
	assert.ErrorIs(t, err, ErrAIUnavailable)
}

func TestExtractJSONObject(t *testing.T) {
	obj, ok := extractJSONObject("```json\n{\"score\": 70, \"reason\": \"{nested}\"}\n```")
	require.True(t, ok)
	assert.Equal(t, `{"score": 70, "reason": "{nested}"}`, obj)

	_, ok = extractJSONObject("no json here")
	assert.False(t, ok)
	_, ok = extractJSONObject("} backwards {")
	assert.False(t, ok)
}

func TestMatchScoreClampsAndPrompts(t *testing.T) {
	model := &fakeModel{replies: []string{"Sure! {\"score\": 140, \"reason\": \"great fit\"} Hope that helps."}}
	s := &LLMService{Client: model}

	res, err := s.MatchScore(context.Background(), "Stripe", "Backend Engineer", "Go and Postgres", "5 years of Go")
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)
	assert.Equal(t, "great fit", res.Reason)
	assert.Contains(t, model.lastPrompt(), "Stripe")
	assert.Contains(t, model.lastPrompt(), "5 years of Go")
}

func TestMatchScoreBadReply(t *testing.T) {
	s := &LLMService{Client: &fakeModel{replies: []string{"I cannot score this."}}}
	_, err := s.MatchScore(context.Background(), "Stripe", "SWE", "", "")
	assert.ErrorIs(t, err, ErrAIResponse)

	s = &LLMService{Client: &fakeModel{replies: []string{`{"score": "high"}`}}}
	_, err = s.MatchScore(context.Background(), "Stripe", "SWE", "", "")
	assert.ErrorIs(t, err, ErrAIResponse)

	boom := errors.New("quota exceeded")
	s = &LLMService{Client: &fakeModel{err: boom}}
	_, err = s.MatchScore(context.Background(), "Stripe", "SWE", "", "")
	assert.ErrorIs(t, err, boom)
}

func TestExtractJobDetails(t *testing.T) {
	model := &fakeModel{replies: []string{`{"company_name":"Stripe","role_title":"SWE","location":null,"description":"Build APIs","tech_stack":null,"salary_range":"$150k"}`}}
	s := &LLMService{Client: model}

	out, err := s.ExtractJobDetails(context.Background(), "<html>Stripe is hiring</html>")
	require.NoError(t, err)
	assert.Equal(t, "Stripe", out.CompanyName)
	assert.Nil(t, out.Location)
	require.NotNil(t, out.SalaryRange)
	assert.Equal(t, "$150k", *out.SalaryRange)
	assert.Equal(t, []string{}, out.TechStack)
	assert.Contains(t, model.lastPrompt(), "Stripe is hiring")
}

func TestEvaluateResume(t *testing.T) {
	s := &LLMService{Client: &fakeModel{replies: []string{`{"score": -5, "strengths": "Go", "weaknesses": "none", "summary": "ok"}`}}}
	out, err := s.EvaluateResume(context.Background(), "resume")
	require.NoError(t, err)
	assert.Equal(t, 0, out.Score)
	assert.Equal(t, "Go", out.Strengths)
}

func TestClassifyEmailStatus(t *testing.T) {
	model := &fakeModel{replies: []string{
		`{"status": "final-interview", "summary": "onsite"}`,
		`{"status": "INTERVIEW", "summary": "??"}`,
		`{"status": "NO_CHANGE", "summary": "newsletter"}`,
	}}
	s := &LLMService{Client: model}
	ctx := context.Background()

	got, err := s.ClassifyEmailStatus(ctx, "Stripe", "Next steps", "We'd like to invite you onsite")
	require.NoError(t, err)
	assert.Equal(t, "final-interview", got.Status)
	assert.Contains(t, model.lastPrompt(), "offer-rejected")

	got, err = s.ClassifyEmailStatus(ctx, "Stripe", "Next steps", "")
	require.NoError(t, err)
	assert.Equal(t, noChange, got.Status)

	got, err = s.ClassifyEmailStatus(ctx, "Stripe", "News", "")
	require.NoError(t, err)
	assert.Equal(t, noChange, got.Status)
}

func TestIdentifyJobRole(t *testing.T) {
	s := &LLMService{Client: &fakeModel{replies: []string{`{"index": 1}`, `{"index": 7}`}}}
	idx, err := s.IdentifyJobRole(context.Background(), []string{"SWE", "SRE"}, "SRE interview", "")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = s.IdentifyJobRole(context.Background(), []string{"SWE", "SRE"}, "?", "")
	require.NoError(t, err)
	assert.Equal(t, -1, idx)
}

func TestCoachReplyBuildsConversation(t *testing.T) {
	model := &fakeModel{replies: []string{"  Highlight your Kafka work.  "}}
	s := &LLMService{Client: model}

	reply, err := s.CoachReply(context.Background(),
		dtos.CoachJob{Company: "Stripe", Position: "SWE", Description: "Kafka"},
		"Built Kafka pipelines",
		[]dtos.ChatMessage{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}},
		"How do I stand out?")
	require.NoError(t, err)
	assert.Equal(t, "Highlight your Kafka work.", reply)

	require.Len(t, model.calls, 1)
	msgs := model.calls[0]
	require.Len(t, msgs, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, msgs[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, msgs[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, msgs[2].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, msgs[3].Role)
	assert.Contains(t, model.lastPrompt(), "Built Kafka pipelines")
}
