package rotation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StepError reports which step of a batch failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("%s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

type step struct {
	name string
	run  func(ctx context.Context) error
}

// Batch names.
const (
	BatchMorning = "morning"
	BatchEvening = "evening"
)

// RunMorning accrues scores, selects a duty holder and announces it.
func (e *Engine) RunMorning(ctx context.Context) error {
	return e.runBatch(ctx, BatchMorning, []step{
		{"accrue_score", e.AccrueScore},
		{"select_duty", func(ctx context.Context) error {
			_, err := e.SelectDuty(ctx)
			return err
		}},
		{"notify_duty", func(ctx context.Context) error {
			_, err := e.NotifyDuty(ctx)
			return err
		}},
	})
}

// RunEvening clears declines, settles the duty and sends occasional users home.
func (e *Engine) RunEvening(ctx context.Context) error {
	return e.runBatch(ctx, BatchEvening, []step{
		{"clear_decline", e.ClearDecline},
		{"settle_duty", e.SettleDuty},
		{"send_home", e.SendHome},
	})
}

// RunBatch runs a batch by name.
func (e *Engine) RunBatch(ctx context.Context, name string) error {
	switch name {
	case BatchMorning:
		return e.RunMorning(ctx)
	case BatchEvening:
		return e.RunEvening(ctx)
	}
	return fmt.Errorf("unknown batch %q", name)
}

// runBatch executes every step in order. A failed step is logged and does
// not prevent the following steps from running.
func (e *Engine) runBatch(ctx context.Context, name string, steps []step) error {
	runID := uuid.NewString()
	log := e.log.With(zap.String("batch", name), zap.String("run_id", runID))
	start := time.Now()
	log.Info("batch started")

	var errs []error
	for _, s := range steps {
		if err := s.run(ctx); err != nil {
			log.Error("batch step failed", zap.String("step", s.name), zap.Error(err))
			errs = append(errs, &StepError{Step: s.name, Err: err})
		}
	}

	log.Info("batch finished",
		zap.Int("failed_steps", len(errs)),
		zap.Duration("took", time.Since(start)),
	)
	return errors.Join(errs...)
}
