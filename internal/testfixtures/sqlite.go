package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bulatfbi/coffee-bot/internal/domain"
	"github.com/bulatfbi/coffee-bot/internal/store"
)

// NewRepo opens a migrated SQLite repository in a temporary directory.
// The repository is closed when the test finishes.
func NewRepo(tb testing.TB) *store.SQLiteRepo {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "coffee.db")
	repo, err := store.OpenSQLite(context.Background(), path)
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() { _ = repo.Close() })
	return repo
}

// Seed describes a participant to insert with SeedUser.
type Seed struct {
	ID           int64
	Name         string
	Frequency    domain.FrequencyMode
	Score        int
	IsOnDuty     bool
	IsAway       bool
	DeclinedDuty bool
}

// SeedUser creates a participant with the given state.
func SeedUser(tb testing.TB, repo store.Repo, s Seed) *domain.User {
	tb.Helper()

	ctx := context.Background()
	if err := repo.CreateUser(ctx, s.ID); err != nil {
		tb.Fatalf("create user %d: %v", s.ID, err)
	}
	p := store.UserPatch{
		Frequency:    &s.Frequency,
		Score:        &s.Score,
		IsOnDuty:     &s.IsOnDuty,
		IsAway:       &s.IsAway,
		DeclinedDuty: &s.DeclinedDuty,
	}
	if s.Name != "" {
		p.Name = &s.Name
	}
	u, err := repo.UpdateUser(ctx, s.ID, p)
	if err != nil {
		tb.Fatalf("seed user %d: %v", s.ID, err)
	}
	return u
}

// MustGet loads a participant or fails the test.
func MustGet(tb testing.TB, repo store.Repo, id int64) *domain.User {
	tb.Helper()

	u, err := repo.GetUser(context.Background(), id)
	if err != nil {
		tb.Fatalf("get user %d: %v", id, err)
	}
	return u
}
