package services

import (
	"testing"

	"github.com/justsurfingit/job-funnel-tracker/internal/models"
	"github.com/justsurfingit/job-funnel-tracker/internal/stages"
	"github.com/stretchr/testify/assert"
)

func TestFindJobsFromEmail(t *testing.T) {
	jobs := []models.Job{
		{ID: "1", Company: "Stripe", Position: "Backend", Status: stages.Applied},
		{ID: "2", Company: "stripe", Position: "Infra", Status: stages.OA},
		{ID: "3", Company: "Stripe", Position: "Old", Status: stages.Rejected},
		{ID: "4", Company: "Go", Position: "Tiny", Status: stages.Applied},
		{ID: "5", Company: "Jane Street", Position: "SWE", Status: stages.Reply},
	}
	m := NewMatcherService()

	ids := func(js []models.Job) []string {
		var out []string
		for _, j := range js {
			out = append(out, j.ID)
		}
		return out
	}

	tests := []struct {
		name    string
		subject string
		sender  string
		want    []string
	}{
		{"subject", "Update on your application to Stripe", "noreply@greenhouse.io", []string{"1", "2"}},
		{"display name", "Next steps", "Stripe Recruiting <talent@greenhouse.io>", []string{"1", "2"}},
		{"domain", "Next steps", "jobs@stripe.com", []string{"1", "2"}},
		{"domain without spaces", "Hello", "recruiting@janestreet.com", []string{"5"}},
		{"short names ignored", "Let's go", "x@go.dev", nil},
		{"no match", "Your order shipped", "shop@example.com", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ids(m.FindJobsFromEmail(jobs, tc.subject, tc.sender)))
		})
	}
}

func TestActive(t *testing.T) {
	assert.True(t, Active(models.Job{Status: stages.Offer}))
	assert.False(t, Active(models.Job{Status: stages.Accepted}))
	assert.False(t, Active(models.Job{Status: stages.OfferRejected}))
	assert.False(t, Active(models.Job{Status: stages.Rejected}))
}
