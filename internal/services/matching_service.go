package services

import (
	"net/mail"
	"strings"

	"github.com/justsurfingit/job-funnel-tracker/internal/models"
	"github.com/justsurfingit/job-funnel-tracker/internal/stages"
)

// Companies shorter than this are never matched; "Go" or "X" would hit every email.
const minCompanyLen = 3

type MatcherService struct{}

func NewMatcherService() *MatcherService {
	return &MatcherService{}
}

// Active reports whether a job can still move. Closed applications are never
// touched by inbox sync.
func Active(job models.Job) bool {
	switch job.Status {
	case stages.Accepted, stages.OfferRejected, stages.Rejected:
		return false
	}
	return true
}

// FindJobsFromEmail returns the active jobs of the first company the email
// refers to. Rules, in order: company name in the subject, in the sender
// display name, in the sender domain.
func (s *MatcherService) FindJobsFromEmail(jobs []models.Job, subject, rawSender string) []models.Job {
	// "Stripe Recruiting <jobs@stripe.com>" -> name="stripe recruiting", addr="jobs@stripe.com"
	senderName, senderAddr := "", ""
	if parsed, err := mail.ParseAddress(rawSender); err == nil {
		senderName = strings.ToLower(parsed.Name)
		senderAddr = strings.ToLower(parsed.Address)
	} else {
		senderAddr = strings.ToLower(rawSender)
	}
	domain := ""
	if at := strings.LastIndex(senderAddr, "@"); at >= 0 {
		domain = senderAddr[at+1:]
	}
	subjectLower := strings.ToLower(subject)

	match := ""
	for _, job := range jobs {
		if !Active(job) {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(job.Company))
		if len(name) < minCompanyLen {
			continue
		}
		if strings.Contains(subjectLower, name) ||
			(senderName != "" && strings.Contains(senderName, name)) ||
			(domain != "" && strings.Contains(domain, strings.ReplaceAll(name, " ", ""))) {
			match = name
			break
		}
	}
	if match == "" {
		return nil
	}

	var out []models.Job
	for _, job := range jobs {
		if Active(job) && strings.ToLower(strings.TrimSpace(job.Company)) == match {
			out = append(out, job)
		}
	}
	return out
}
