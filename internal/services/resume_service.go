package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/justsurfingit/job-funnel-tracker/internal/dtos"
	"github.com/justsurfingit/job-funnel-tracker/internal/repository"
)

const MaxResumeBytes = 2 << 20

// ErrUnsupportedResume is returned for uploads that are not plain text.
var ErrUnsupportedResume = fmt.Errorf("%w: resume must be a plain-text file", ErrValidation)

type ResumeService struct {
	Users repository.UserRepository
	LLM   *LLMService
}

func NewResumeService(users repository.UserRepository, llm *LLMService) *ResumeService {
	return &ResumeService{Users: users, LLM: llm}
}

// ResumeText validates an upload and returns its text. Only text/* content is
// accepted; PDF and Word documents are rejected.
func ResumeText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: no resume uploaded", ErrValidation)
	}
	if len(data) > MaxResumeBytes {
		return "", fmt.Errorf("%w: resume exceeds %d bytes", ErrValidation, MaxResumeBytes)
	}
	mt := mimetype.Detect(data)
	if !isText(mt) {
		return "", fmt.Errorf("%w (got %s)", ErrUnsupportedResume, mt.String())
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrUnsupportedResume)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%w: resume is empty", ErrValidation)
	}
	return text, nil
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// Upload stores the resume on the user and asks the LLM to evaluate it. The
// text is saved even when evaluation fails.
func (s *ResumeService) Upload(ctx context.Context, userID string, data []byte) (*dtos.ResumeResponse, error) {
	text, err := ResumeText(data)
	if err != nil {
		return nil, err
	}
	if err := s.Users.SaveResume(ctx, userID, text); err != nil {
		return nil, err
	}
	analysis, err := s.LLM.EvaluateResume(ctx, text)
	if err != nil {
		return nil, err
	}
	return &dtos.ResumeResponse{ResumeText: text, Analysis: analysis}, nil
}

// StoredResume returns the user's last uploaded resume, or "".
func (s *ResumeService) StoredResume(ctx context.Context, userID string) (string, error) {
	user, err := s.Users.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.ResumeText, nil
}
