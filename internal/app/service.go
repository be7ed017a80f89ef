package app

import (
	"context"
	"time"

	"github.com/bft-labs/repovault/internal/domain"
	"github.com/bft-labs/repovault/internal/schedule"
	"github.com/bft-labs/repovault/pkg/log"
)

// RunFunc executes one backup run with the current configuration.
type RunFunc func(ctx context.Context) (domain.RunSummary, error)

// Service is the long-running scheduler. It sleeps until the next scheduled
// slot, executes a run, and repeats until the context is canceled. The
// schedule spec is re-read before every sleep so dynamic configuration
// changes take effect without a restart.
type Service struct {
	spec    func() schedule.Spec
	run     RunFunc
	logger  log.Logger
	lastRun time.Time
	now     func() time.Time
}

// NewService creates a Service. spec returns the current schedule on every
// call; lastRun is the completion watermark restored from state, zero when
// no run ever finished.
func NewService(spec func() schedule.Spec, run RunFunc, lastRun time.Time, logger log.Logger) *Service {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Service{spec: spec, run: run, logger: logger, lastRun: lastRun, now: time.Now}
}

// Run blocks until ctx is canceled. A slot that was missed while the process
// was down fires immediately on startup.
func (s *Service) Run(ctx context.Context) error {
	if s.spec().IsDue(s.now(), s.lastRun) {
		s.logger.Info("missed or first scheduled run, catching up")
		s.execute(ctx)
	}

	for {
		next, err := s.spec().NextAfter(s.now())
		if err != nil {
			return err
		}
		s.logger.Info("next run scheduled", log.String("at", next.Format(time.RFC3339)))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopping")
			return ctx.Err()
		case <-timer.C:
		}

		s.execute(ctx)
	}
}

func (s *Service) execute(ctx context.Context) {
	started := s.now()
	if _, err := s.run(ctx); err != nil {
		s.logger.Error("scheduled run failed", log.Err(err))
		if ctx.Err() != nil {
			return
		}
	}
	// A failed run still advances the watermark; the next slot retries.
	s.lastRun = started
}
