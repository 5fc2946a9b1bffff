package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/justsurfingit/job-funnel-tracker/internal/dtos"
	"github.com/justsurfingit/job-funnel-tracker/internal/repository"
	"github.com/justsurfingit/job-funnel-tracker/internal/stages"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
)

const (
	fullSyncQuery   = "subject:(application OR interview OR update OR offer OR rejected OR status) newer_than:7d"
	syncTimeout     = 2 * time.Minute
	fullSyncMaxMsgs = 50
)

// EmailClassifier decides what a recruiting email means for an application.
type EmailClassifier interface {
	ClassifyEmailStatus(ctx context.Context, company, subject, body string) (dtos.EmailClassification, error)
	IdentifyJobRole(ctx context.Context, positions []string, subject, body string) (int, error)
}

// EmailService watches one owner's Gmail inbox and moves their jobs along when
// recruiters reply.
type EmailService struct {
	Store       repository.InboxStore
	Users       repository.UserRepository
	Jobs        *JobService
	Classifier  EmailClassifier
	Matcher     *MatcherService
	GmailClient *gmail.Service
	OwnerEmail  string

	retryDelay time.Duration
}

func NewEmailService(store repository.InboxStore, users repository.UserRepository, jobs *JobService,
	classifier EmailClassifier, matcher *MatcherService, gmailClient *gmail.Service, ownerEmail string) *EmailService {
	return &EmailService{
		Store:       store,
		Users:       users,
		Jobs:        jobs,
		Classifier:  classifier,
		Matcher:     matcher,
		GmailClient: gmailClient,
		OwnerEmail:  ownerEmail,
		retryDelay:  time.Second,
	}
}

// Run syncs immediately and then every interval until ctx is cancelled.
func (s *EmailService) Run(ctx context.Context, interval time.Duration) {
	if s.GmailClient == nil {
		slog.Warn("gmail watcher disabled: no client")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := s.SyncEmails(ctx); err != nil && ctx.Err() == nil {
			slog.Error("email sync failed", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			slog.Info("gmail watcher stopped")
			return
		case <-ticker.C:
		}
	}
}

// SyncEmails runs one cycle: fetch new messages, process each once, then move
// the history bookmark forward.
func (s *EmailService) SyncEmails(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	owner, err := s.Users.FindUserByEmail(ctx, s.OwnerEmail)
	if err != nil {
		return fmt.Errorf("inbox owner %s: %w", s.OwnerEmail, err)
	}
	cursor, err := s.Store.InboxCursor(ctx, owner.ID)
	if err != nil {
		return err
	}

	var messages []*gmail.Message
	var newHistoryID uint64
	if cursor == 0 {
		slog.Info("first inbox sync, bootstrapping from the last 7 days")
		messages, newHistoryID, err = s.performFullSync(ctx)
	} else {
		messages, newHistoryID, err = s.performIncrementalSync(ctx, cursor)
		if isHistoryExpiredError(err) {
			slog.Warn("gmail history id expired, falling back to full sync", slog.Uint64("history_id", cursor))
			messages, newHistoryID, err = s.performFullSync(ctx)
		}
	}
	if err != nil {
		return err
	}

	slog.Info("email sync", slog.Int("candidates", len(messages)))
	for _, msg := range messages {
		done, err := s.Store.EmailProcessed(ctx, msg.Id)
		if err != nil {
			return err
		}
		if done {
			continue
		}
		if err := s.processSingleEmail(ctx, owner.ID, msg); err != nil {
			// Leave the message unmarked so the next cycle retries it.
			slog.Error("email processing failed", slog.String("message_id", msg.Id), slog.Any("error", err))
			continue
		}
		if err := s.Store.MarkEmailProcessed(ctx, msg.Id); err != nil {
			return err
		}
	}

	if newHistoryID > cursor {
		if err := s.Store.SetInboxCursor(ctx, owner.ID, newHistoryID); err != nil {
			return err
		}
		slog.Debug("history bookmark updated", slog.Uint64("history_id", newHistoryID))
	}
	return nil
}

// performFullSync lists recent candidate emails and anchors the bookmark at the
// profile's current history id.
func (s *EmailService) performFullSync(ctx context.Context) ([]*gmail.Message, uint64, error) {
	var resp *gmail.ListMessagesResponse
	err := s.retry(ctx, 3, func() error {
		var e error
		resp, e = s.GmailClient.Users.Messages.List("me").Q(fullSyncQuery).MaxResults(fullSyncMaxMsgs).Context(ctx).Do()
		return e
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}

	profile, err := s.GmailClient.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return nil, 0, fmt.Errorf("get profile: %w", err)
	}
	return s.expandMessages(ctx, resp.Messages), profile.HistoryId, nil
}

// performIncrementalSync asks only for messages added since startID.
func (s *EmailService) performIncrementalSync(ctx context.Context, startID uint64) ([]*gmail.Message, uint64, error) {
	var resp *gmail.ListHistoryResponse
	err := s.retry(ctx, 3, func() error {
		var e error
		resp, e = s.GmailClient.Users.History.List("me").StartHistoryId(startID).
			HistoryTypes("messageAdded").Context(ctx).Do()
		return e
	})
	if err != nil {
		return nil, 0, err
	}

	var headers []*gmail.Message
	for _, h := range resp.History {
		for _, added := range h.MessagesAdded {
			if added.Message != nil {
				headers = append(headers, added.Message)
			}
		}
	}
	return s.expandMessages(ctx, headers), resp.HistoryId, nil
}

// expandMessages fetches full bodies. Messages that keep failing are skipped.
func (s *EmailService) expandMessages(ctx context.Context, headers []*gmail.Message) []*gmail.Message {
	var full []*gmail.Message
	for _, h := range headers {
		var msg *gmail.Message
		err := s.retry(ctx, 2, func() error {
			var e error
			msg, e = s.GmailClient.Users.Messages.Get("me", h.Id).Context(ctx).Do()
			return e
		})
		if err != nil {
			slog.Warn("skipping message", slog.String("message_id", h.Id), slog.Any("error", err))
			continue
		}
		full = append(full, msg)
	}
	return full
}

// processSingleEmail matches an email to one of the owner's jobs and applies the
// status the classifier reads from it. Skips are not errors.
func (s *EmailService) processSingleEmail(ctx context.Context, ownerID string, msg *gmail.Message) error {
	headers := parseHeaders(msg)
	subject, sender := headers["Subject"], headers["From"]
	short := subject
	if len(short) > 20 {
		short = short[:20] + "..."
	}
	log := slog.With(slog.String("email", short), slog.String("message_id", msg.Id))
	body := getEmailBody(msg)

	jobs, err := s.Jobs.ListJobs(ctx, ownerID, repository.JobFilter{})
	if err != nil {
		return err
	}
	candidates := s.Matcher.FindJobsFromEmail(jobs, subject, sender)
	if len(candidates) == 0 {
		log.Debug("skipped: no tracked company matches", slog.String("from", sender))
		return nil
	}

	target := &candidates[0]
	if len(candidates) > 1 {
		positions := make([]string, len(candidates))
		for i, j := range candidates {
			positions[i] = j.Position
		}
		idx, err := s.Classifier.IdentifyJobRole(ctx, positions, subject, body)
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(candidates) {
			log.Info("skipped: could not tell which role the email is about", slog.Any("positions", positions))
			return nil
		}
		target = &candidates[idx]
	}

	result, err := s.Classifier.ClassifyEmailStatus(ctx, target.Company, subject, body)
	if err != nil {
		return err
	}
	if result.Status == noChange {
		log.Debug("no status change", slog.String("summary", result.Summary))
		return nil
	}
	status, err := stages.ParseStatus(result.Status)
	if err != nil {
		log.Warn("skipped: classifier returned unknown status", slog.String("status", result.Status))
		return nil
	}

	changed, err := s.Jobs.ApplyEmailStatus(ctx, ownerID, target.ID, status, result.Summary)
	if err != nil {
		return err
	}
	if changed {
		log.Info("job updated from email",
			slog.String("job_id", target.ID),
			slog.String("from", string(target.Status)),
			slog.String("to", string(status)))
	}
	return nil
}

// retry runs f with exponential backoff. An expired history id fails fast so the
// caller can switch to a full sync.
func (s *EmailService) retry(ctx context.Context, attempts int, f func() error) error {
	delay := s.retryDelay
	var err error
	for i := 0; i < attempts; i++ {
		if err = f(); err == nil {
			return nil
		}
		if isHistoryExpiredError(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		slog.Warn("gmail API error, retrying", slog.Any("error", err), slog.Duration("delay", delay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, err)
}

func isHistoryExpiredError(err error) bool {
	var gErr *googleapi.Error
	return errors.As(err, &gErr) && gErr.Code == http.StatusNotFound
}

func parseHeaders(msg *gmail.Message) map[string]string {
	res := make(map[string]string)
	if msg.Payload == nil {
		return res
	}
	for _, h := range msg.Payload.Headers {
		res[h.Name] = h.Value
	}
	return res
}

// getEmailBody prefers the top-level body, then a text/plain part, then HTML.
func getEmailBody(msg *gmail.Message) string {
	if msg.Payload == nil {
		return ""
	}
	if msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
		return decodeBody(msg.Payload.Body.Data)
	}
	for _, mime := range []string{"text/plain", "text/html"} {
		for _, part := range msg.Payload.Parts {
			if part.MimeType == mime && part.Body != nil && part.Body.Data != "" {
				return decodeBody(part.Body.Data)
			}
		}
	}
	return ""
}

// Gmail uses URL-safe base64, usually without padding.
func decodeBody(data string) string {
	if d, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(d)
	}
	d, _ := base64.URLEncoding.DecodeString(data)
	return string(d)
}

var _ EmailClassifier = (*LLMService)(nil)
