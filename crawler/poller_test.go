// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package crawler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/docraptor/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedChecker replays a fixed sequence of responses, repeating the last one.
type scriptedChecker struct {
	mu    sync.Mutex
	steps []step
	calls int
}

type step struct {
	job *core.CrawlJob
	err error
}

func (s *scriptedChecker) GetStatus(ctx context.Context, jobID string) (*core.CrawlJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++
	st := s.steps[i]
	return st.job, st.err
}

func (s *scriptedChecker) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func status(st core.JobStatus, pages int) step {
	return step{job: &core.CrawlJob{ID: "job", Status: st, PageCount: pages}}
}

func transient() step {
	return step{err: fmt.Errorf("%w: 502 Bad Gateway", core.ErrTransient)}
}

func newTestPoller(t *testing.T, checker StatusChecker) *Poller {
	t.Helper()
	p, err := NewPoller(checker, WithRetryPolicy(RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    4 * time.Millisecond,
		Retryable:   IsTransient,
	}))
	require.NoError(t, err)
	return p
}

func TestNewPoller_RequiresClient(t *testing.T) {
	_, err := NewPoller(nil)
	assert.ErrorIs(t, err, ErrClientRequired)
}

func TestPoller_WaitCompletes(t *testing.T) {
	checker := &scriptedChecker{steps: []step{
		status(core.JobStatusPending, 0),
		status(core.JobStatusRunning, 3),
		status(core.JobStatusCompleted, 12),
	}}
	p := newTestPoller(t, checker)

	st, pages, err := p.Wait(context.Background(), "job", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCompleted, st)
	assert.Equal(t, 12, pages)
	assert.Equal(t, 3, checker.Calls())
}

func TestPoller_WaitFailedJob(t *testing.T) {
	checker := &scriptedChecker{steps: []step{
		{job: &core.CrawlJob{Status: core.JobStatusFailed, Error: "robots.txt disallows"}},
	}}
	p := newTestPoller(t, checker)

	st, _, err := p.Wait(context.Background(), "job", time.Millisecond)
	assert.ErrorIs(t, err, core.ErrCrawlJobFailed)
	assert.Contains(t, err.Error(), "robots.txt disallows")
	assert.Equal(t, core.JobStatusFailed, st)
	assert.Equal(t, 1, checker.Calls(), "job failure is not retried")
}

func TestPoller_WaitErrorJobDefaultMessage(t *testing.T) {
	checker := &scriptedChecker{steps: []step{status(core.JobStatusError, 0)}}
	p := newTestPoller(t, checker)

	_, _, err := p.Wait(context.Background(), "job", time.Millisecond)
	assert.ErrorIs(t, err, core.ErrCrawlJobFailed)
	assert.Contains(t, err.Error(), "Unknown error")
}

func TestPoller_WaitRecoversFromTransientError(t *testing.T) {
	checker := &scriptedChecker{steps: []step{
		transient(),
		status(core.JobStatusCompleted, 4),
	}}
	p := newTestPoller(t, checker)

	st, pages, err := p.Wait(context.Background(), "job", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCompleted, st)
	assert.Equal(t, 4, pages)
	assert.Equal(t, 2, checker.Calls())
}

func TestPoller_WaitGivesUpAfterThreeAttempts(t *testing.T) {
	checker := &scriptedChecker{steps: []step{transient()}}
	p := newTestPoller(t, checker)

	_, _, err := p.Wait(context.Background(), "job", time.Millisecond)
	assert.ErrorIs(t, err, core.ErrTransient)
	assert.Equal(t, 3, checker.Calls())
}

func TestPoller_WaitNotFoundIsNotRetried(t *testing.T) {
	checker := &scriptedChecker{steps: []step{{err: fmt.Errorf("%w: job", core.ErrNotFound)}}}
	p := newTestPoller(t, checker)

	_, _, err := p.Wait(context.Background(), "job", time.Millisecond)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, 1, checker.Calls())
}

func TestPoller_WaitUnknownStatusKeepsPolling(t *testing.T) {
	checker := &scriptedChecker{steps: []step{
		status(core.JobStatusUnknown, 0),
		status(core.JobStatusUnknown, 0),
		status(core.JobStatusCompleted, 1),
	}}
	p := newTestPoller(t, checker)

	st, _, err := p.Wait(context.Background(), "job", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCompleted, st)
}

func TestPoller_WaitHonoursCancellation(t *testing.T) {
	checker := &scriptedChecker{steps: []step{status(core.JobStatusRunning, 1)}}
	p := newTestPoller(t, checker)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, _, err := p.Wait(ctx, "job", 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Greater(t, checker.Calls(), 1)
}

func TestPoller_WaitValidatesArguments(t *testing.T) {
	p := newTestPoller(t, &scriptedChecker{steps: []step{status(core.JobStatusCompleted, 0)}})

	_, _, err := p.Wait(context.Background(), "", time.Second)
	assert.ErrorIs(t, err, ErrJobIDRequired)

	_, _, err = p.Wait(context.Background(), "job", 0)
	assert.ErrorIs(t, err, ErrInvalidCheckInterval)
}

func TestPoller_RetryLogsCarryJobID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	checker := &scriptedChecker{steps: []step{
		transient(),
		status(core.JobStatusCompleted, 1),
	}}
	p, err := NewPoller(checker,
		WithPollerLogger(logger),
		WithRetryPolicy(RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Retryable: IsTransient}),
	)
	require.NoError(t, err)

	_, _, err = p.Wait(context.Background(), "job-42", time.Millisecond)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "operation failed, will retry")
	assert.Contains(t, out, "component=job-poller")
	assert.Contains(t, out, "job_id=job-42")
}
