// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one named unit of periodic work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler struct {
	cron    *cron.Cron
	log     *zap.Logger
	timeout time.Duration
}

// New builds a UTC scheduler. Each run gets its own context bounded by timeout.
func New(log *zap.Logger, timeout time.Duration) *Scheduler {
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log:     log,
		timeout: timeout,
	}
}

// Add registers job under spec, which accepts standard five-field
// expressions and descriptors such as "@every 1h".
func (s *Scheduler) Add(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() { s.runOnce(job) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}
	s.log.Info("job scheduled", zap.String("job", job.Name()), zap.String("spec", spec))
	return nil
}

func (s *Scheduler) runOnce(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	err := job.Run(ctx)
	jobRunsTotal.WithLabelValues(job.Name(), result(err)).Inc()
	if err != nil {
		s.log.Error("job failed", zap.String("job", job.Name()), zap.Error(err))
		return
	}
	s.log.Debug("job done", zap.String("job", job.Name()), zap.Duration("elapsed", time.Since(start)))
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop prevents new runs and waits for running ones until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, zap.Any("cron", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, zap.Error(err), zap.Any("cron", keysAndValues))
}
