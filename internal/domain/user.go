package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxNameLen is the longest display name accepted at registration.
const MaxNameLen = 50

var (
	ErrEmptyName   = errors.New("empty name")
	ErrNameTooLong = errors.New("name too long")
)

// FrequencyMode describes how often a participant is in the office.
type FrequencyMode string

const (
	FrequencyUnset      FrequencyMode = ""
	FrequencyDaily      FrequencyMode = "daily"
	FrequencyOccasional FrequencyMode = "occasional"
)

// Valid reports whether m is one of the known modes.
func (m FrequencyMode) Valid() bool {
	switch m {
	case FrequencyUnset, FrequencyDaily, FrequencyOccasional:
		return true
	}
	return false
}

// Label is the human-readable mode name used in status messages.
func (m FrequencyMode) Label() string {
	switch m {
	case FrequencyDaily:
		return "Every day"
	case FrequencyOccasional:
		return "Not every day"
	default:
		return "Not set"
	}
}

// User is one participant of the duty rotation.
type User struct {
	ID           int64
	Name         string // empty until registration completes
	Frequency    FrequencyMode
	Score        int // fairness points
	IsOnDuty     bool
	IsAway       bool
	DeclinedDuty bool
	CreatedAt    time.Time // UTC
	UpdatedAt    time.Time // UTC
}

// Eligible reports whether the user can be picked for duty.
func (u *User) Eligible() bool {
	return !u.IsAway && !u.DeclinedDuty
}

// DisplayName returns the registered name or a placeholder built from the id.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return "User " + strconv.FormatInt(u.ID, 10)
}

// NormalizeName trims the input and checks the 1..MaxNameLen rune bound.
func NormalizeName(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyName
	}
	if utf8.RuneCountInString(s) > MaxNameLen {
		return "", ErrNameTooLong
	}
	return s, nil
}
