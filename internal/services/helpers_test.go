package services

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/justsurfingit/job-funnel-tracker/internal/models"
	"github.com/justsurfingit/job-funnel-tracker/internal/repository"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func newStore(t *testing.T) *repository.FileStore {
	t.Helper()
	s, err := repository.OpenFileStore(filepath.Join(t.TempDir(), "db.json"))
	require.NoError(t, err)
	return s
}

// fakeModel replays canned replies and records the prompts it saw.
type fakeModel struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
	calls   [][]llms.MessageContent
}

func (f *fakeModel) GenerateContent(_ context.Context, msgs []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msgs)
	var parts []string
	for _, m := range msgs {
		for _, p := range m.Parts {
			if tc, ok := p.(llms.TextContent); ok {
				parts = append(parts, tc.Text)
			}
		}
	}
	f.prompts = append(f.prompts, strings.Join(parts, "\n"))
	if f.err != nil {
		return nil, f.err
	}
	reply := ""
	if len(f.replies) > 0 {
		reply, f.replies = f.replies[0], f.replies[1:]
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, opts...)
}

func (f *fakeModel) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// conflictingJobs makes the first n Replace calls fail as if another writer won.
type conflictingJobs struct {
	repository.JobRepository
	mu        sync.Mutex
	conflicts int
	replaces  int
}

func (c *conflictingJobs) Replace(ctx context.Context, job *models.Job) error {
	c.mu.Lock()
	c.replaces++
	if c.conflicts > 0 {
		c.conflicts--
		c.mu.Unlock()
		return repository.ErrConflict
	}
	c.mu.Unlock()
	return c.JobRepository.Replace(ctx, job)
}
