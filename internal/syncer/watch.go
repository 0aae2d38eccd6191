package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}

// Watch runs a cycle immediately and then on every tick of spec, a standard
// five-field cron expression or a descriptor such as "@every 5m". A cycle
// that is still running when the next tick fires causes that tick to be
// skipped, so cycles never overlap. Watch returns when ctx is done, or
// immediately if CheckConfig fails.
func (s *Syncer) Watch(ctx context.Context, spec string) error {
	if err := s.CheckConfig(); err != nil {
		return err
	}

	cl := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	cycle := func() {
		if err := s.Run(ctx); err != nil {
			s.logger.Error("Sync cycle failed", "error", err)
		}
	}
	if _, err := c.AddFunc(spec, cycle); err != nil {
		return fmt.Errorf("invalid watch schedule %q: %w", spec, err)
	}

	s.logger.Info("Starting watcher.", "schedule", spec)
	cycle()
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("Watcher stopped.")
	return nil
}
