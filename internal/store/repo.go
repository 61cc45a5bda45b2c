package store

import (
	"context"

	"github.com/bulatfbi/coffee-bot/internal/domain"
)

// Repo defines storage operations for participants and rotation settings.
//
// Single-row operations are atomic. The batch statements (AccrueDaily,
// ClearDeclines, SettleDuty, SendOccasionalHome) are one UPDATE each and
// report the number of affected rows.
type Repo interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	CreateUser(ctx context.Context, id int64) error
	UpdateUser(ctx context.Context, id int64, p UserPatch) (*domain.User, error)
	DeleteUser(ctx context.Context, id int64) error
	ListUsers(ctx context.Context) ([]domain.User, error)
	ListEligible(ctx context.Context) ([]domain.User, error)
	GetOnDuty(ctx context.Context) (*domain.User, error)

	AccrueDaily(ctx context.Context) (int64, error)
	ClearDeclines(ctx context.Context) (int64, error)
	SettleDuty(ctx context.Context) (int64, error)
	SendOccasionalHome(ctx context.Context) (int64, error)
	AssignDuty(ctx context.Context, id int64) error

	RotationEnabled(ctx context.Context) (bool, error)
	SetRotationEnabled(ctx context.Context, enabled bool) error
	EnsureRotationDefault(ctx context.Context, enabled bool) error

	Ping(ctx context.Context) error
	Close() error
}
