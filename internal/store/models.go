package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/bulatfbi/coffee-bot/internal/domain"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// UserPatch names the fields UpdateUser should touch. Nil fields are left as is.
// ScoreDelta is added to the stored score after Score (if set) is applied.
type UserPatch struct {
	Name         *string
	Frequency    *domain.FrequencyMode
	Score        *int
	ScoreDelta   int
	IsOnDuty     *bool
	IsAway       *bool
	DeclinedDuty *bool
}

// Ptr returns a pointer to v; handy for building patches.
func Ptr[T any](v T) *T { return &v }

const userColumns = `user_id, name, frequency_mode, score, is_on_duty, is_away, declined_duty, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*domain.User, error) {
	var (
		u         domain.User
		name      sql.NullString
		mode      string
		onDuty    int
		away      int
		declined  int
		createdAt int64
		updatedAt int64
	)
	if err := s.Scan(&u.ID, &name, &mode, &u.Score, &onDuty, &away, &declined, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Name = name.String
	u.Frequency = domain.FrequencyMode(mode)
	u.IsOnDuty = onDuty != 0
	u.IsAway = away != 0
	u.DeclinedDuty = declined != 0
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	u.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &u, nil
}

// boolToInt converts a boolean to 1/0 for SQLite.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
