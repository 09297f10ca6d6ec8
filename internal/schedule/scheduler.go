package schedule

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Job is a unit of background work driven by the scheduler.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// CronScheduler runs jobs on standard 5-field cron expressions.
type CronScheduler struct {
	cron *cron.Cron
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &CronScheduler{
		cron: cron.New(cron.WithParser(parser)),
	}
}

func (s *CronScheduler) AddJob(spec string, job Job) error {
	if _, err := s.cron.AddFunc(spec, s.wrap(job)); err != nil {
		return fmt.Errorf("add job %s: %w", job.Name(), err)
	}
	return nil
}

// wrap guards against overlapping runs of the same job.
func (s *CronScheduler) wrap(job Job) func() {
	var running atomic.Bool
	return func() {
		ctx := context.Background()
		logger := logutil.GetLogger(ctx).With(zap.String("job", job.Name()))
		if !running.CompareAndSwap(false, true) {
			logger.Warn("previous run still in progress, skip")
			return
		}
		defer running.Store(false)
		start := time.Now()
		logger.Info("job start")
		if err := job.Run(ctx); err != nil {
			logger.Error("job failed", zap.Duration("cost", time.Since(start)), zap.Error(err))
			return
		}
		logger.Info("job finish", zap.Duration("cost", time.Since(start)))
	}
}

func (s *CronScheduler) Start() {
	s.cron.Start()
}

func (s *CronScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
