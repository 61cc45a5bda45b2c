package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bulatfbi/coffee-bot/internal/domain"
)

// Flags reads the persisted rotation switch.
type Flags interface {
	RotationEnabled(ctx context.Context) (bool, error)
}

// Trigger is one fixed daily batch.
type Trigger struct {
	Name string
	At   domain.Clock
	Days domain.WeekdaySet
	Run  func(ctx context.Context) error
}

// Scheduler fires triggers at their wall-clock times. Each firing first
// re-reads the rotation flag; when it is off the batch is skipped entirely.
type Scheduler struct {
	flags    Flags
	log      *zap.Logger
	loc      *time.Location
	triggers []Trigger
	now      func() time.Time
	after    func(d time.Duration) <-chan time.Time
}

// New creates a Scheduler evaluating trigger times in loc.
func New(flags Flags, log *zap.Logger, loc *time.Location, triggers ...Trigger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		flags:    flags,
		log:      log,
		loc:      loc,
		triggers: triggers,
		now:      time.Now,
		after:    time.After,
	}
}

// Next returns the earliest upcoming trigger after now and its fire time.
// ok is false when no trigger can ever fire.
func (s *Scheduler) Next(now time.Time) (Trigger, time.Time, bool) {
	var (
		best   Trigger
		bestAt time.Time
		found  bool
	)
	for _, t := range s.triggers {
		at := domain.NextTrigger(now, t.At, t.Days, s.loc)
		if at.IsZero() {
			continue
		}
		if !found || at.Before(bestAt) {
			best, bestAt, found = t, at, true
		}
	}
	return best, bestAt, found
}

// Run waits for triggers until ctx is canceled. An in-flight batch always
// runs to completion.
func (s *Scheduler) Run(ctx context.Context) {
	var last time.Time
	for {
		// Never schedule before the previous fire time, even if the clock lags.
		from := s.now()
		if from.Before(last) {
			from = last
		}
		trig, at, ok := s.Next(from)
		if !ok {
			s.log.Warn("scheduler has no triggers; stopping")
			return
		}
		s.log.Info("next batch scheduled", zap.String("batch", trig.Name), zap.Time("at", at))

		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case <-s.after(at.Sub(s.now())):
			last = at
			s.Fire(context.WithoutCancel(ctx), trig)
		}
	}
}

// Fire runs one trigger if rotation is enabled. It reports whether the batch ran.
func (s *Scheduler) Fire(ctx context.Context, t Trigger) bool {
	enabled, err := s.flags.RotationEnabled(ctx)
	if err != nil {
		s.log.Error("read rotation flag failed; batch skipped", zap.String("batch", t.Name), zap.Error(err))
		return false
	}
	if !enabled {
		s.log.Info("rotation disabled; batch skipped", zap.String("batch", t.Name))
		return false
	}
	if err := t.Run(ctx); err != nil {
		s.log.Error("batch finished with errors", zap.String("batch", t.Name), zap.Error(err))
	}
	return true
}
