package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/bulatfbi/coffee-bot/internal/domain"
)

const settingRotationEnabled = "rotation_enabled"

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct {
	db  *sql.DB
	now func() time.Time
}

// OpenDB opens (or creates) the SQLite database at the given path and applies
// recommended PRAGMAs. It does not run migrations.
func OpenDB(ctx context.Context, path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite is a single-writer engine; one connection serialises row updates.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	return db, nil
}

// OpenSQLite opens the database, runs migrations and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	db, err := OpenDB(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return &SQLiteRepo{db: db, now: time.Now}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// Ping checks that the database is reachable.
func (r *SQLiteRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// WithClock replaces the time source used for created_at/updated_at.
func (r *SQLiteRepo) WithClock(now func() time.Time) *SQLiteRepo {
	if now != nil {
		r.now = now
	}
	return r
}

func (r *SQLiteRepo) stamp() int64 {
	return r.now().UTC().Unix()
}

// GetUser returns a user by id or ErrNotFound.
func (r *SQLiteRepo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, id)
	return scanUser(row)
}

// CreateUser inserts a zeroed row; it is a no-op when the user already exists.
func (r *SQLiteRepo) CreateUser(ctx context.Context, id int64) error {
	now := r.stamp()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (user_id, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING`,
		id, now, now,
	)
	return err
}

// UpdateUser applies a partial patch and returns the updated row.
// updated_at is refreshed even when the patch is empty.
func (r *SQLiteRepo) UpdateUser(ctx context.Context, id int64, p UserPatch) (*domain.User, error) {
	var (
		sets []string
		args []any
	)
	if p.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *p.Name)
	}
	if p.Frequency != nil {
		if !p.Frequency.Valid() {
			return nil, fmt.Errorf("invalid frequency mode %q", *p.Frequency)
		}
		sets = append(sets, "frequency_mode = ?")
		args = append(args, string(*p.Frequency))
	}
	switch {
	case p.Score != nil:
		sets = append(sets, "score = ?")
		args = append(args, *p.Score+p.ScoreDelta)
	case p.ScoreDelta != 0:
		sets = append(sets, "score = score + ?")
		args = append(args, p.ScoreDelta)
	}
	if p.IsOnDuty != nil {
		sets = append(sets, "is_on_duty = ?")
		args = append(args, boolToInt(*p.IsOnDuty))
	}
	if p.IsAway != nil {
		sets = append(sets, "is_away = ?")
		args = append(args, boolToInt(*p.IsAway))
	}
	if p.DeclinedDuty != nil {
		sets = append(sets, "declined_duty = ?")
		args = append(args, boolToInt(*p.DeclinedDuty))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, r.stamp(), id)

	row := r.db.QueryRowContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE user_id = ? RETURNING `+userColumns,
		args...,
	)
	return scanUser(row)
}

// DeleteUser removes the row entirely. It returns ErrNotFound when nothing was deleted.
func (r *SQLiteRepo) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsers returns every participant ordered by id.
func (r *SQLiteRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	return r.listWhere(ctx, "1 = 1")
}

// ListEligible returns users who are present and have not declined duty.
func (r *SQLiteRepo) ListEligible(ctx context.Context) ([]domain.User, error) {
	return r.listWhere(ctx, "is_away = 0 AND declined_duty = 0")
}

func (r *SQLiteRepo) listWhere(ctx context.Context, where string) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// GetOnDuty returns the current duty holder or ErrNotFound.
// If the soft invariant is ever broken, the most recently updated holder wins.
func (r *SQLiteRepo) GetOnDuty(ctx context.Context) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE is_on_duty = 1
		ORDER BY updated_at DESC, user_id
		LIMIT 1`)
	return scanUser(row)
}

func (r *SQLiteRepo) execCount(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AccrueDaily adds one point to every present daily participant.
func (r *SQLiteRepo) AccrueDaily(ctx context.Context) (int64, error) {
	return r.execCount(ctx, `
		UPDATE users
		SET score = score + 1, updated_at = ?
		WHERE frequency_mode = ? AND is_away = 0`,
		r.stamp(), string(domain.FrequencyDaily),
	)
}

// ClearDeclines resets every one-round duty exemption.
func (r *SQLiteRepo) ClearDeclines(ctx context.Context) (int64, error) {
	return r.execCount(ctx, `
		UPDATE users
		SET declined_duty = 0, updated_at = ?
		WHERE declined_duty = 1`,
		r.stamp(),
	)
}

// SettleDuty releases the duty holder and resets their score to zero.
func (r *SQLiteRepo) SettleDuty(ctx context.Context) (int64, error) {
	return r.execCount(ctx, `
		UPDATE users
		SET is_on_duty = 0, score = 0, updated_at = ?
		WHERE is_on_duty = 1`,
		r.stamp(),
	)
}

// SendOccasionalHome marks present occasional participants as away.
func (r *SQLiteRepo) SendOccasionalHome(ctx context.Context) (int64, error) {
	return r.execCount(ctx, `
		UPDATE users
		SET is_away = 1, updated_at = ?
		WHERE frequency_mode = ? AND is_away = 0`,
		r.stamp(), string(domain.FrequencyOccasional),
	)
}

// AssignDuty makes id the only duty holder. The update is guarded by the
// eligibility predicate, so a user who went away or declined after being
// picked is not assigned; ErrNotFound is returned in that case.
// Any previous holder loses the flag but keeps their score.
func (r *SQLiteRepo) AssignDuty(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	now := r.stamp()

	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET is_on_duty = 1, updated_at = ?
		WHERE user_id = ? AND is_away = 0 AND declined_duty = 0`,
		now, id,
	)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if n == 0 {
		_ = tx.Rollback()
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users
		SET is_on_duty = 0, updated_at = ?
		WHERE is_on_duty = 1 AND user_id <> ?`,
		now, id,
	); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// RotationEnabled reads the persisted rotation flag. It returns ErrNotFound
// when the flag was never written.
func (r *SQLiteRepo) RotationEnabled(ctx context.Context) (bool, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, settingRotationEnabled).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, err
	}
	return v == "1", nil
}

// SetRotationEnabled persists the rotation flag.
func (r *SQLiteRepo) SetRotationEnabled(ctx context.Context, enabled bool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at`,
		settingRotationEnabled, flagValue(enabled), r.stamp(),
	)
	return err
}

// EnsureRotationDefault writes the flag only if it has never been set.
func (r *SQLiteRepo) EnsureRotationDefault(ctx context.Context, enabled bool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO NOTHING`,
		settingRotationEnabled, flagValue(enabled), r.stamp(),
	)
	return err
}

func flagValue(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
