package web

import (
	"context"

	"github.com/robfig/cron/v3"

	"seatcap/internal/config"
	appLog "seatcap/internal/log"
)

// StartScheduler runs the configured recurring jobs on their cron
// schedules until ctx is canceled. Each tick runs one job over its own
// independent browser session; ticks never share page state.
func StartScheduler(ctx context.Context, cfg *config.Config, engine *Engine) error {
	if len(cfg.Jobs) == 0 {
		appLog.Debug("no scheduled jobs configured")
		<-ctx.Done()
		return nil
	}

	c := cron.New()
	for _, job := range cfg.Jobs {
		job := job
		_, err := c.AddFunc(job.Cron, func() {
			res := engine.Run(ctx, JobRequest{
				Date:               job.Date,
				RRule:              job.RRule,
				Time:               job.Time,
				Name:               job.Name,
				Capacity:           job.Capacity,
				StrictNameRequired: job.StrictNameRequired,
			})
			if res.OK {
				appLog.Info("scheduled job applied", "job", res.JobID, "date", res.Date)
			} else {
				appLog.Info("scheduled job failed", "job", res.JobID,
					"kind", res.ErrorKind, "detail", res.Detail)
			}
		})
		if err != nil {
			return err
		}
		appLog.Info("scheduled job registered", "cron", job.Cron, "time", job.Time, "name", job.Name)
	}

	c.Start()
	<-ctx.Done()

	// Let an in-flight tick finish before returning.
	<-c.Stop().Done()
	return nil
}
