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
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/docraptor/core"
)

// DefaultCheckInterval is the pause between status checks.
const DefaultCheckInterval = 5 * time.Second

// unknownJobError is reported when a failed job carries no message.
const unknownJobError = "Unknown error"

// Poller waits for crawl jobs to reach a terminal state.
//
// Wait has no overall deadline or iteration cap. A job that never
// terminates is only abandoned when ctx is cancelled.
type Poller struct {
	client StatusChecker
	retry  RetryPolicy
	logger *slog.Logger
}

// PollerOption configures a Poller.
type PollerOption func(*Poller) error

// WithRetryPolicy replaces the per-check retry policy.
func WithRetryPolicy(policy RetryPolicy) PollerOption {
	return func(p *Poller) error {
		if policy.MaxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.retry = policy
		return nil
	}
}

// WithPollerLogger sets the logger.
func WithPollerLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) error {
		if logger != nil {
			p.logger = logger
		}
		return nil
	}
}

// NewPoller creates a poller over client.
func NewPoller(client StatusChecker, opts ...PollerOption) (*Poller, error) {
	if client == nil {
		return nil, ErrClientRequired
	}

	p := &Poller{
		client: client,
		retry:  DefaultRetryPolicy(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "job-poller")
	return p, nil
}

// Wait polls jobID every checkInterval until it completes or fails.
// It returns the final status and the page count reported with it.
// A failed or errored job returns core.ErrCrawlJobFailed carrying the remote message.
// A status check that keeps failing transiently returns its last error once
// the retry policy is exhausted.
func (p *Poller) Wait(ctx context.Context, jobID string, checkInterval time.Duration) (core.JobStatus, int, error) {
	if jobID == "" {
		return core.JobStatusUnknown, 0, ErrJobIDRequired
	}
	if checkInterval <= 0 {
		return core.JobStatusUnknown, 0, ErrInvalidCheckInterval
	}

	for {
		job, err := p.check(ctx, jobID)
		if err != nil {
			p.logger.Error("error waiting for crawl completion", "job_id", jobID, "err", err)
			return core.JobStatusUnknown, 0, err
		}

		p.logger.Info("crawl job status", "job_id", jobID, "status", job.Status, "pages", job.PageCount)

		switch {
		case job.Status == core.JobStatusCompleted:
			return job.Status, job.PageCount, nil
		case job.Status.IsFailure():
			msg := job.Error
			if msg == "" {
				msg = unknownJobError
			}
			return job.Status, job.PageCount, fmt.Errorf("%w: %s", core.ErrCrawlJobFailed, msg)
		}

		timer := time.NewTimer(checkInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return job.Status, job.PageCount, ctx.Err()
		case <-timer.C:
		}
	}
}

func (p *Poller) check(ctx context.Context, jobID string) (*core.CrawlJob, error) {
	policy := p.retry
	if policy.Logger == nil {
		policy.Logger = p.logger.With("job_id", jobID)
	}

	var job *core.CrawlJob
	err := RetryWithBackoff(ctx, func() error {
		var err error
		job, err = p.client.GetStatus(ctx, jobID)
		return err
	}, policy)
	if err != nil {
		return nil, err
	}
	return job, nil
}
