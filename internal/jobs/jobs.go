package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type verificationExpirer interface {
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}

type ratingRefresher interface {
	RefreshAggregates(ctx context.Context) (int64, error)
}

// Runner owns the background cron schedule: the age verification expiry sweep
// and the ratings aggregate refresh.
type Runner struct {
	cron          *cron.Cron
	verifications verificationExpirer
	products      ratingRefresher
	log           zerolog.Logger
}

func NewRunner(verifications verificationExpirer, products ratingRefresher, log zerolog.Logger) *Runner {
	return &Runner{
		cron:          cron.New(),
		verifications: verifications,
		products:      products,
		log:           log.With().Str("component", "jobs").Logger(),
	}
}

// Start registers the schedules and launches the cron loop.
func (r *Runner) Start() error {
	if _, err := r.cron.AddFunc("@every 10m", r.expireVerifications); err != nil {
		return err
	}
	if _, err := r.cron.AddFunc("@hourly", r.refreshRatings); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// Stop halts scheduling and waits for running jobs to finish.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Runner) expireVerifications() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := r.verifications.ExpirePending(ctx, time.Now())
	if err != nil {
		r.log.Error().Err(err).Msg("verification expiry sweep failed")
		return
	}
	if n > 0 {
		r.log.Info().Int64("expired", n).Msg("verification expiry sweep")
	}
}

func (r *Runner) refreshRatings() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := r.products.RefreshAggregates(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("ratings refresh failed")
		return
	}
	if n > 0 {
		r.log.Info().Int64("products", n).Msg("ratings aggregates refreshed")
	}
}
