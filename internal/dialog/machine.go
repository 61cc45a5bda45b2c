// Package dialog implements the per-user conversation: registration, the
// frequency poll and the two steady-state menus.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bulatfbi/coffee-bot/internal/domain"
	"github.com/bulatfbi/coffee-bot/internal/store"
)

// State is the position of a user in the conversation.
type State int

const (
	StateNone State = iota // no active conversation
	StateRegistration
	StatePoll
	StateSteadyDaily
	StateSteadyOccasional
)

func (s State) String() string {
	switch s {
	case StateRegistration:
		return "registration"
	case StatePoll:
		return "poll"
	case StateSteadyDaily:
		return "steady_daily"
	case StateSteadyOccasional:
		return "steady_occasional"
	default:
		return "none"
	}
}

// Menu identifies the set of buttons attached to a reply.
type Menu int

const (
	MenuNone Menu = iota
	MenuPoll
	MenuDaily
	MenuOccasional
)

// Choice is a menu button pressed by the user.
type Choice string

const (
	ChoiceDaily       Choice = "daily"
	ChoiceOccasional  Choice = "occasional"
	ChoiceOptOut      Choice = "opt_out"
	ChoiceAway        Choice = "away"
	ChoiceReturned    Choice = "returned"
	ChoiceCantDuty    Choice = "cant_duty"
	ChoiceCheckedIn   Choice = "checked_in"
	ChoiceChangeHabit Choice = "change_habit"
)

// Store is the part of store.Repo the conversation needs.
type Store interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	CreateUser(ctx context.Context, id int64) error
	UpdateUser(ctx context.Context, id int64, p store.UserPatch) (*domain.User, error)
	DeleteUser(ctx context.Context, id int64) error
	GetOnDuty(ctx context.Context) (*domain.User, error)
	SetRotationEnabled(ctx context.Context, enabled bool) error
}

// Rotation picks and announces a new duty holder.
type Rotation interface {
	Reassign(ctx context.Context) (*domain.User, error)
}

// Replier sends a reply with an optional menu.
type Replier interface {
	Reply(userID int64, text string, menu Menu) error
}

// Schedule describes the batch times shown in texts.
type Schedule struct {
	Morning domain.Clock
	Evening domain.Clock
	Days    domain.WeekdaySet
	TZ      string
}

// Machine holds the in-memory dialog state of every user.
type Machine struct {
	store    Store
	rotation Rotation
	out      Replier
	log      *zap.Logger
	schedule Schedule

	mu       sync.RWMutex
	sessions map[int64]State // userID -> state
}

// New creates a Machine.
func New(st Store, rot Rotation, out Replier, log *zap.Logger, schedule Schedule) *Machine {
	return &Machine{
		store:    st,
		rotation: rot,
		out:      out,
		log:      log,
		schedule: schedule,
		sessions: make(map[int64]State),
	}
}

// State returns the current state of a user (non-persistent, in-memory).
func (m *Machine) State(userID int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[userID]
}

func (m *Machine) setState(userID int64, s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s == StateNone {
		delete(m.sessions, userID)
		return
	}
	m.sessions[userID] = s
}

func (m *Machine) reply(userID int64, text string, menu Menu) {
	if err := m.out.Reply(userID, text, menu); err != nil {
		m.log.Error("reply failed", zap.Error(err), zap.Int64("userID", userID))
	}
}

// storeFailed reports a persistence error to the user. The dialog state is kept
// so the user can retry the same action.
func (m *Machine) storeFailed(userID int64, op string, err error) {
	m.log.Error(op+" failed", zap.Error(err), zap.Int64("userID", userID))
	m.reply(userID, storeErrorText, MenuNone)
}

// lost ends the dialog for a user whose row no longer exists.
func (m *Machine) lost(userID int64) {
	m.setState(userID, StateNone)
	m.reply(userID, notFoundText, MenuNone)
}

// Start creates the user if needed and asks for a name.
func (m *Machine) Start(ctx context.Context, userID int64) {
	if err := m.store.CreateUser(ctx, userID); err != nil {
		m.log.Error("create user failed", zap.Error(err), zap.Int64("userID", userID))
		m.reply(userID, initErrorText, MenuNone)
		return
	}
	m.setState(userID, StateRegistration)
	m.reply(userID, welcomeText, MenuNone)
}

// Text handles free-form input. Only registration expects text.
func (m *Machine) Text(ctx context.Context, userID int64, text string) {
	if m.State(userID) != StateRegistration {
		return
	}

	name, err := domain.NormalizeName(text)
	if err != nil {
		m.reply(userID, badNameText, MenuNone)
		return
	}
	if _, err := m.store.UpdateUser(ctx, userID, store.UserPatch{Name: &name}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			m.lost(userID)
			return
		}
		m.storeFailed(userID, "save name", err)
		return
	}
	m.setState(userID, StatePoll)
	m.reply(userID, fmt.Sprintf(pollTextFmt, name), MenuPoll)
}

// Choose handles a menu button.
func (m *Machine) Choose(ctx context.Context, userID int64, c Choice) {
	switch st := m.State(userID); st {
	case StatePoll:
		m.choosePoll(ctx, userID, c)
	case StateSteadyDaily, StateSteadyOccasional:
		m.chooseSteady(ctx, userID, st, c)
	case StateNone:
		m.reply(userID, expiredText, MenuNone)
	default:
		m.log.Debug("choice ignored", zap.Int64("userID", userID), zap.String("state", st.String()), zap.String("choice", string(c)))
	}
}

func (m *Machine) choosePoll(ctx context.Context, userID int64, c Choice) {
	switch c {
	case ChoiceOptOut:
		if err := m.store.DeleteUser(ctx, userID); err != nil && !errors.Is(err, store.ErrNotFound) {
			m.storeFailed(userID, "delete user", err)
			return
		}
		m.setState(userID, StateNone)
		m.reply(userID, deletedText, MenuNone)

	case ChoiceDaily:
		if !m.setFrequency(ctx, userID, domain.FrequencyDaily) {
			return
		}
		m.setState(userID, StateSteadyDaily)
		m.reply(userID, fmt.Sprintf(dailyWelcomeText, m.schedule.Morning), MenuDaily)

	case ChoiceOccasional:
		if !m.setFrequency(ctx, userID, domain.FrequencyOccasional) {
			return
		}
		m.setState(userID, StateSteadyOccasional)
		m.reply(userID, occasionalWelcomeText, MenuOccasional)

	default:
		m.log.Debug("choice ignored", zap.Int64("userID", userID), zap.String("state", StatePoll.String()), zap.String("choice", string(c)))
	}
}

func (m *Machine) setFrequency(ctx context.Context, userID int64, mode domain.FrequencyMode) bool {
	if _, err := m.store.UpdateUser(ctx, userID, store.UserPatch{Frequency: &mode}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			m.lost(userID)
			return false
		}
		m.storeFailed(userID, "save frequency", err)
		return false
	}
	return true
}

func (m *Machine) chooseSteady(ctx context.Context, userID int64, st State, c Choice) {
	menu := MenuDaily
	if st == StateSteadyOccasional {
		menu = MenuOccasional
	}

	if _, err := m.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			m.lost(userID)
			return
		}
		m.storeFailed(userID, "load user", err)
		return
	}

	switch {
	case c == ChoiceChangeHabit:
		m.setState(userID, StatePoll)
		m.reply(userID, pollAgainText, MenuPoll)

	case c == ChoiceCantDuty:
		m.declineDuty(ctx, userID, menu)

	case c == ChoiceAway && st == StateSteadyDaily:
		if m.patch(ctx, userID, store.UserPatch{IsAway: store.Ptr(true)}, "mark away") == nil {
			return
		}
		m.reply(userID, awayText, menu)

	case c == ChoiceReturned && st == StateSteadyDaily:
		if m.patch(ctx, userID, store.UserPatch{IsAway: store.Ptr(false)}, "mark returned") == nil {
			return
		}
		m.reply(userID, returnedText, menu)

	case c == ChoiceCheckedIn && st == StateSteadyOccasional:
		u := m.patch(ctx, userID, store.UserPatch{ScoreDelta: 1, IsAway: store.Ptr(false)}, "check in")
		if u == nil {
			return
		}
		m.reply(userID, fmt.Sprintf(checkedInTextFmt, u.Score), menu)

	default:
		m.log.Debug("choice ignored", zap.Int64("userID", userID), zap.String("state", st.String()), zap.String("choice", string(c)))
	}
}

// patch applies p and handles errors; it returns nil when the caller should stop.
func (m *Machine) patch(ctx context.Context, userID int64, p store.UserPatch, op string) *domain.User {
	u, err := m.store.UpdateUser(ctx, userID, p)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			m.lost(userID)
			return nil
		}
		m.storeFailed(userID, op, err)
		return nil
	}
	return u
}

// declineDuty exempts the user from the current round and immediately picks
// and announces a replacement.
func (m *Machine) declineDuty(ctx context.Context, userID int64, menu Menu) {
	p := store.UserPatch{DeclinedDuty: store.Ptr(true), IsOnDuty: store.Ptr(false)}
	if m.patch(ctx, userID, p, "decline duty") == nil {
		return
	}
	m.reply(userID, sadText, MenuNone)

	holder, err := m.rotation.Reassign(ctx)
	if err != nil {
		m.log.Error("reassign failed", zap.Error(err), zap.Int64("userID", userID))
		m.reply(userID, storeErrorText, menu)
		return
	}
	if holder == nil {
		m.reply(userID, noReplacementTxt, menu)
		return
	}
	m.reply(userID, reassignedText, menu)
}

// Cancel ends the dialog without touching stored data.
func (m *Machine) Cancel(_ context.Context, userID int64) {
	m.setState(userID, StateNone)
	m.reply(userID, cancelText, MenuNone)
}

// Status sends a snapshot of the user's record and the current duty holder.
func (m *Machine) Status(ctx context.Context, userID int64) {
	u, err := m.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			m.reply(userID, notRegisteredTx, MenuNone)
			return
		}
		m.storeFailed(userID, "load user", err)
		return
	}

	holder := noHolderText
	h, err := m.store.GetOnDuty(ctx)
	switch {
	case err == nil:
		holder = h.DisplayName()
	case !errors.Is(err, store.ErrNotFound):
		m.storeFailed(userID, "load duty holder", err)
		return
	}

	name := u.Name
	if name == "" {
		name = "Not set"
	}
	m.reply(userID, fmt.Sprintf(statusFmt,
		name,
		u.Frequency.Label(),
		u.Score,
		yesNo(u.IsOnDuty),
		yesNo(u.IsAway),
		yesNo(u.DeclinedDuty),
		holder,
		u.UpdatedAt.Format(time.DateTime+" MST"),
	), MenuNone)
}

// SetRotation toggles the persisted rotation flag. Only registered users may
// use it.
func (m *Machine) SetRotation(ctx context.Context, userID int64, enabled bool) {
	if _, err := m.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			m.reply(userID, notRegisteredTx, MenuNone)
			return
		}
		m.storeFailed(userID, "load user", err)
		return
	}
	if err := m.store.SetRotationEnabled(ctx, enabled); err != nil {
		m.storeFailed(userID, "set rotation flag", err)
		return
	}
	m.log.Info("rotation flag changed", zap.Bool("enabled", enabled), zap.Int64("userID", userID))
	if enabled {
		m.reply(userID, rotationOnText, MenuNone)
		return
	}
	m.reply(userID, rotationOffText, MenuNone)
}

// Help describes the commands and the schedule.
func (m *Machine) Help(userID int64) {
	s := m.schedule
	m.reply(userID, fmt.Sprintf(helpFmt, s.Morning, s.TZ, s.Evening, s.TZ, s.Days), MenuNone)
}
