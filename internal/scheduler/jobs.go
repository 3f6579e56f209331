package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LiveSet reports which session ids the transport has seen within ttl.
type LiveSet interface {
	Live(ttl time.Duration) map[string]struct{}
}

// Sweeper drops sessions that are not in live and have been idle for longer
// than idle.
type Sweeper interface {
	Sweep(live map[string]struct{}, idle time.Duration) int
}

// DefaultSweepSchedule runs the sweep every five minutes.
const DefaultSweepSchedule = "*/5 * * * *"

// SessionSweepJob reclaims conversations whose clients have gone quiet for
// longer than TTL.
type SessionSweepJob struct {
	Tracker      LiveSet
	Sessions     Sweeper
	TTL          time.Duration
	ScheduleExpr string
	Logger       zerolog.Logger
}

var _ Job = (*SessionSweepJob)(nil)

// Name implements Job.
func (j *SessionSweepJob) Name() string { return "session_sweep" }

// Schedule implements Job.
func (j *SessionSweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return DefaultSweepSchedule
}

// Run implements Job.
func (j *SessionSweepJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	removed := j.Sessions.Sweep(j.Tracker.Live(j.TTL), j.TTL)
	if removed > 0 {
		j.Logger.Info().Int("count", removed).Dur("ttl", j.TTL).Msg("swept idle sessions")
	}
	return nil
}
