// Package scheduler registers the wallet service's time-based background
// jobs on a robfig/cron/v3 scheduler. Each job is a small struct with a
// narrow dependency set, a Name() and a Run() error.
package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is anything the scheduler can run on a cron schedule.
type Job interface {
	Name() string
	Run() error
}

// Register adds every job to c on its schedule. Errors returned by a job's
// Run are logged, never propagated, so one failing job never stops the
// others from firing on their own schedules.
func Register(c *cron.Cron, log zerolog.Logger, jobs map[string]Job) error {
	for spec, job := range jobs {
		j := job
		if _, err := c.AddFunc(spec, func() {
			if err := j.Run(); err != nil {
				log.Error().Err(err).Str("job", j.Name()).Msg("scheduled job failed")
			}
		}); err != nil {
			return err
		}
	}
	return nil
}
