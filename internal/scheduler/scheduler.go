package scheduler

import (
	"context"
	"sync"
	"time"

	"staking-ledger-go/internal/api"
	"staking-ledger-go/internal/metrics"
	"staking-ledger-go/internal/models"

	"go.uber.org/zap"
)

// Job is a periodic pass. Run is called once at start and then on every tick.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs the ledger's periodic passes in-process
type Scheduler struct {
	jobs []Job

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// New registers the accrual, condition sweep and payout passes. A job
// whose interval is not positive is left out.
func New(ledger *api.LedgerService, cfg models.SchedulerConfig) *Scheduler {
	candidates := []Job{
		{
			Name:     "reward_accrual",
			Interval: cfg.RewardAccrualInterval,
			Run: func(ctx context.Context) error {
				_, err := ledger.RunRewardAccrualPass(ctx)
				return err
			},
		},
		{
			Name:     "withdrawal_condition_sweep",
			Interval: cfg.ConditionSweepInterval,
			Run: func(ctx context.Context) error {
				_, err := ledger.RunWithdrawalConditionSweep(ctx)
				return err
			},
		},
		{
			Name:     "payout_dispatch",
			Interval: cfg.PayoutInterval,
			Run: func(ctx context.Context) error {
				result, err := ledger.DispatchPayouts(ctx)
				if result != nil && (result.Sent > 0 || result.Failed > 0) {
					zap.L().Info("Payout dispatch finished",
						zap.Int("sent", result.Sent),
						zap.Int("failed", result.Failed))
				}
				return err
			},
		},
	}

	var jobs []Job
	for _, job := range candidates {
		if job.Interval <= 0 {
			zap.L().Info("Scheduled job disabled", zap.String("job", job.Name))
			continue
		}
		jobs = append(jobs, job)
	}
	return newScheduler(jobs...)
}

func newScheduler(jobs ...Job) *Scheduler {
	return &Scheduler{
		jobs:     jobs,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Jobs lists the registered job names
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.jobs))
	for _, job := range s.jobs {
		names = append(names, job.Name)
	}
	return names
}

// Start launches one loop per job and returns immediately
func (s *Scheduler) Start(ctx context.Context) {
	zap.L().Info("Starting scheduler", zap.Strings("jobs", s.Jobs()))

	var wg sync.WaitGroup
	for _, job := range s.jobs {
		wg.Add(1)
		go func(j Job) {
			defer wg.Done()
			s.loop(ctx, j)
		}(job)
	}

	go func() {
		wg.Wait()
		close(s.doneChan)
	}()
}

// Stop signals every loop and waits for in-flight passes to return
func (s *Scheduler) Stop() {
	zap.L().Info("Stopping scheduler")
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.doneChan
	zap.L().Info("Scheduler stopped")
}

// Run starts the scheduler and blocks until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start(ctx)
	<-ctx.Done()
	s.Stop()
	return nil
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	s.runOnce(ctx, job)

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx, job)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	start := time.Now()
	err := job.Run(ctx)
	elapsed := time.Since(start)
	metrics.ObserveJob(job.Name, err, elapsed)

	if err != nil {
		zap.L().Error("Scheduled job failed",
			zap.String("job", job.Name),
			zap.Duration("duration", elapsed),
			zap.Error(err))
		return
	}
	zap.L().Debug("Scheduled job completed",
		zap.String("job", job.Name),
		zap.Duration("duration", elapsed))
}
