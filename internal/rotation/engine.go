// Package rotation implements the duty rotation operations: score accrual,
// duty selection, and the end-of-day resets.
package rotation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/bulatfbi/coffee-bot/internal/domain"
	"github.com/bulatfbi/coffee-bot/internal/store"
)

// Store is the part of store.Repo the engine needs.
type Store interface {
	ListEligible(ctx context.Context) ([]domain.User, error)
	GetOnDuty(ctx context.Context) (*domain.User, error)
	AccrueDaily(ctx context.Context) (int64, error)
	ClearDeclines(ctx context.Context) (int64, error)
	SettleDuty(ctx context.Context) (int64, error)
	SendOccasionalHome(ctx context.Context) (int64, error)
	AssignDuty(ctx context.Context, id int64) error
}

// Sender delivers a text message to a user.
// telegram.Router implements this (method: SendMessage).
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// Engine runs rotation operations against the store.
type Engine struct {
	store  Store
	sender Sender
	log    *zap.Logger
	intn   func(n int) int
}

// Option customises an Engine.
type Option func(*Engine)

// WithIntn replaces the random source used for tie breaks.
// intn must return a value in [0, n).
func WithIntn(intn func(n int) int) Option {
	return func(e *Engine) { e.intn = intn }
}

// New creates an Engine.
func New(st Store, sender Sender, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:  st,
		sender: sender,
		log:    log,
		intn:   rand.Intn,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AccrueScore gives one point to every present daily participant.
func (e *Engine) AccrueScore(ctx context.Context) error {
	n, err := e.store.AccrueDaily(ctx)
	if err != nil {
		return fmt.Errorf("accrue score: %w", err)
	}
	e.log.Info("score accrued", zap.Int64("affected", n))
	return nil
}

// SelectDuty picks a duty holder uniformly at random among the eligible users
// with the highest score. Nobody is picked when there are no eligible users
// or the highest score is zero; in that case it returns nil, nil.
func (e *Engine) SelectDuty(ctx context.Context) (*domain.User, error) {
	eligible, err := e.store.ListEligible(ctx)
	if err != nil {
		return nil, fmt.Errorf("select duty: %w", err)
	}

	ties := TopScorers(eligible)
	if len(ties) == 0 {
		e.log.Info("no duty candidate", zap.Int("eligible", len(eligible)))
		return nil, nil
	}
	chosen := ties[e.intn(len(ties))]

	if err := e.store.AssignDuty(ctx, chosen.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The candidate went away or declined between the scan and the update.
			e.log.Warn("duty candidate lost eligibility", zap.Int64("userID", chosen.ID))
			return nil, nil
		}
		return nil, fmt.Errorf("assign duty: %w", err)
	}
	e.log.Info("duty holder selected",
		zap.Int64("userID", chosen.ID),
		zap.Int("score", chosen.Score),
		zap.Int("ties", len(ties)),
	)
	chosen.IsOnDuty = true
	return &chosen, nil
}

// TopScorers returns the users sharing the maximal positive score.
func TopScorers(users []domain.User) []domain.User {
	best := 0
	for _, u := range users {
		if u.Score > best {
			best = u.Score
		}
	}
	if best == 0 {
		return nil
	}
	var ties []domain.User
	for _, u := range users {
		if u.Score == best {
			ties = append(ties, u)
		}
	}
	return ties
}

// ClearDecline lifts every one-round duty exemption.
func (e *Engine) ClearDecline(ctx context.Context) error {
	n, err := e.store.ClearDeclines(ctx)
	if err != nil {
		return fmt.Errorf("clear decline: %w", err)
	}
	e.log.Info("declines cleared", zap.Int64("affected", n))
	return nil
}

// SettleDuty releases the current holder and resets their score.
// It is a no-op when nobody is on duty.
func (e *Engine) SettleDuty(ctx context.Context) error {
	n, err := e.store.SettleDuty(ctx)
	if err != nil {
		return fmt.Errorf("settle duty: %w", err)
	}
	e.log.Info("duty settled", zap.Int64("affected", n))
	return nil
}

// SendHome marks present occasional participants as away until they check in.
func (e *Engine) SendHome(ctx context.Context) error {
	n, err := e.store.SendOccasionalHome(ctx)
	if err != nil {
		return fmt.Errorf("send home: %w", err)
	}
	e.log.Info("occasional users sent home", zap.Int64("affected", n))
	return nil
}

// NotifyDuty tells every present, non-declined user who is on duty today.
// Delivery is best effort: a failed recipient is logged and skipped.
// It returns the number of messages delivered.
func (e *Engine) NotifyDuty(ctx context.Context) (int, error) {
	holder, err := e.store.GetOnDuty(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.log.Warn("no duty holder to announce")
			return 0, nil
		}
		return 0, fmt.Errorf("notify duty: %w", err)
	}

	recipients, err := e.store.ListEligible(ctx)
	if err != nil {
		return 0, fmt.Errorf("notify duty: %w", err)
	}
	if len(recipients) == 0 {
		e.log.Warn("no recipients for duty announcement")
		return 0, nil
	}

	text := DutyAnnouncement(holder)
	sent := 0
	for _, u := range recipients {
		if err := e.sender.SendMessage(u.ID, text); err != nil {
			e.log.Error("send failed", zap.Error(err), zap.Int64("chatID", u.ID))
			continue
		}
		sent++
	}
	e.log.Info("duty announced",
		zap.Int64("holderID", holder.ID),
		zap.Int("sent", sent),
		zap.Int("recipients", len(recipients)),
	)
	return sent, nil
}

// Reassign picks a new holder and announces it. Used after someone declines.
func (e *Engine) Reassign(ctx context.Context) (*domain.User, error) {
	holder, err := e.SelectDuty(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := e.NotifyDuty(ctx); err != nil {
		return holder, err
	}
	return holder, nil
}

// DutyAnnouncement is the text sent by NotifyDuty.
func DutyAnnouncement(holder *domain.User) string {
	return "☕ Today's duty: " + holder.DisplayName() + "\n\n" +
		"Don't forget to clean the coffee machine after use!"
}
