// Package jobs runs the engine's background maintenance work on cron
// schedules: price sampling for the risk advisor, gas reserve monitoring
// and database snapshots.
package jobs

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a named unit of background work.
type Job interface {
	Run() error
	Name() string
}

// Runner manages background jobs.
type Runner struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// NewRunner creates a new job runner.
func NewRunner(log zerolog.Logger) *Runner {
	return &Runner{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "jobs").Logger(),
	}
}

// Start starts the runner.
func (r *Runner) Start() {
	r.cron.Start()
	r.log.Info().Msg("Job runner started")
}

// Stop stops the runner and waits for in-flight jobs.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.log.Info().Msg("Job runner stopped")
}

// AddJob registers a job with a cron schedule ("@every 30s", "@hourly",
// "0 */5 * * * *").
func (r *Runner) AddJob(schedule string, job Job) error {
	_, err := r.cron.AddFunc(schedule, func() {
		r.log.Debug().Str("job", job.Name()).Msg("Running job")

		if err := job.Run(); err != nil {
			r.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Job failed")
		} else {
			r.log.Debug().Str("job", job.Name()).Msg("Job completed")
		}
	})
	if err != nil {
		return err
	}

	r.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")
	return nil
}

// RunNow executes a job immediately, outside its schedule.
func (r *Runner) RunNow(job Job) error {
	r.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return job.Run()
}
