package imagegen

import (
	"context"
	"errors"
	"time"

	"github.com/caseras1/ai-childbook/internal/domain"
	"github.com/caseras1/ai-childbook/internal/infra"
	"github.com/caseras1/ai-childbook/internal/metrics"
)

const (
	DefaultPollInterval    = 5 * time.Second
	DefaultPollMaxAttempts = 30
)

// Poller waits for a job to reach a terminal status.
type Poller struct {
	fetcher StatusFetcher
	logger  *infra.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewPoller builds a Poller. A nil logger discards output.
func NewPoller(fetcher StatusFetcher, logger *infra.Logger) *Poller {
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Poller{fetcher: fetcher, logger: logger, sleep: sleepContext}
}

// Poll checks the job exactly once per attempt, waiting interval before
// every check including the first. Transport failures and non-success
// statuses are logged and use up that attempt only. COMPLETE returns at once;
// FAILED and CANCELLED fail with GenerationFailedError. After maxAttempts
// checks without a terminal status it fails with PollTimeoutError.
func (p *Poller) Poll(ctx context.Context, id string, interval time.Duration, maxAttempts int) (domain.GenerationResult, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := p.sleep(ctx, interval); err != nil {
			return domain.GenerationResult{}, err
		}

		st, err := p.fetcher.FetchJobStatus(ctx, id)
		if err != nil {
			var transportErr *domain.TransportError
			if errors.As(err, &transportErr) && ctx.Err() == nil {
				metrics.ObservePoll("transport_error")
				p.logger.Warn().Err(err).Str("job_id", id).Int("attempt", attempt).Msg("poll: status check failed")
				continue
			}
			return domain.GenerationResult{}, err
		}
		if st.Transient {
			metrics.ObservePoll("http_error")
			p.logger.Warn().Str("job_id", id).Int("attempt", attempt).Int("http_status", st.HTTPStatus).Msg("poll: status check rejected")
			continue
		}

		metrics.ObservePoll(string(st.Status))
		p.logger.Info().Str("job_id", id).Int("attempt", attempt).Str("status", string(st.Status)).Msg("poll: status")

		switch st.Status {
		case domain.GenerationComplete:
			return domain.GenerationResult{JobID: id, Status: st.Status, ImageURLs: st.ImageURLs, Attempts: attempt}, nil
		case domain.GenerationFailed, domain.GenerationCancelled:
			return domain.GenerationResult{}, &domain.GenerationFailedError{JobID: id, Status: string(st.Status)}
		}
	}
	return domain.GenerationResult{}, &domain.PollTimeoutError{JobID: id, Attempts: maxAttempts}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
