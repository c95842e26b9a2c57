package jobs

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs cron jobs with panic recovery and skip-if-still-running.
type Scheduler struct {
	c *cron.Cron
}

// NewScheduler returns a stopped scheduler.
func NewScheduler(logger logrus.FieldLogger) *Scheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	cl := cronLogger{logger.WithField("component", "cron")}
	return &Scheduler{c: cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)}
}

// Add registers job under spec, e.g. "@every 30s".
func (s *Scheduler) Add(name, spec string, job cron.Job) error {
	if _, err := s.c.AddJob(spec, job); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() { s.c.Start() }

// Stop halts scheduling and waits for running jobs.
func (s *Scheduler) Stop() { <-s.c.Stop().Done() }

// Len reports the number of registered jobs.
func (s *Scheduler) Len() int { return len(s.c.Entries()) }

type cronLogger struct{ l logrus.FieldLogger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.WithFields(fields(keysAndValues)).Debug(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
