package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"moneta/internal/core"
)

// UpsertUser stores the identity provider's view of a user. JoinedAt is only
// written on first insert so "joined yesterday" stays anchored to the
// original onboarding moment.
func (r *Repository) UpsertUser(ctx context.Context, u core.User) error {
	joined := u.JoinedAt
	if joined.IsZero() {
		joined = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, role, family_id, joined_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, role = excluded.role, family_id = excluded.family_id`,
		u.ID, u.Name, string(u.Role), nullableString(u.FamilyID), joined.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// GetUser loads one user.
func (r *Repository) GetUser(ctx context.Context, id string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, role, family_id, joined_at FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers returns every known user. The insight checks scan this set.
func (r *Repository) ListUsers(ctx context.Context) ([]core.User, error) {
	return r.queryUsers(ctx, `SELECT id, name, role, family_id, joined_at FROM users ORDER BY id`)
}

// ListFamilyMembers returns all users linked to one family.
func (r *Repository) ListFamilyMembers(ctx context.Context, familyID string) ([]core.User, error) {
	return r.queryUsers(ctx, `
		SELECT id, name, role, family_id, joined_at FROM users WHERE family_id = ? ORDER BY id`, familyID)
}

// MembersJoinedOn returns the family members whose joined-at falls on the
// given calendar day.
func (r *Repository) MembersJoinedOn(ctx context.Context, familyID string, day time.Time) ([]core.User, error) {
	start := core.DayStart(day)
	end := start.AddDate(0, 0, 1)
	return r.queryUsers(ctx, `
		SELECT id, name, role, family_id, joined_at FROM users
		WHERE family_id = ? AND joined_at >= ? AND joined_at < ? ORDER BY id`,
		familyID, start.UTC().Format(timeLayout), end.UTC().Format(timeLayout))
}

// GetScheduleConfig returns the stored insight preferences for an owner,
// falling back to defaults when none were saved.
func (r *Repository) GetScheduleConfig(ctx context.Context, owner string) (core.ScheduleConfig, error) {
	var (
		cfg           core.ScheduleConfig
		budgetAlerts  int64
		duesReminders int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT owner, brief_time, budget_alerts, dues_reminders
		FROM schedule_configs WHERE owner = ?`, owner).
		Scan(&cfg.Owner, &cfg.BriefTime, &budgetAlerts, &duesReminders)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultScheduleConfig(owner), nil
	}
	if err != nil {
		return core.ScheduleConfig{}, fmt.Errorf("get schedule config: %w", err)
	}
	cfg.BudgetAlerts = budgetAlerts != 0
	cfg.DuesReminders = duesReminders != 0
	return cfg, nil
}

// SaveScheduleConfig stores an owner's insight preferences.
func (r *Repository) SaveScheduleConfig(ctx context.Context, cfg core.ScheduleConfig) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO schedule_configs (owner, brief_time, budget_alerts, dues_reminders)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner) DO UPDATE SET
			brief_time = excluded.brief_time,
			budget_alerts = excluded.budget_alerts,
			dues_reminders = excluded.dues_reminders`,
		cfg.Owner, cfg.BriefTime, boolToInt(cfg.BudgetAlerts), boolToInt(cfg.DuesReminders))
	if err != nil {
		return fmt.Errorf("save schedule config: %w", err)
	}
	return nil
}

// CreateGoal inserts a savings goal and returns its id.
func (r *Repository) CreateGoal(ctx context.Context, g core.Goal) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (owner, name, target_cents, saved_cents, priority)
		VALUES (?, ?, ?, ?, ?)`,
		g.Owner, g.Name, g.Target.Cents, g.Saved.Cents, boolToInt(g.Priority))
	if err != nil {
		return 0, fmt.Errorf("insert goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("goal id: %w", err)
	}
	return id, nil
}

// ListGoals returns an owner's goals, priority goals first.
func (r *Repository) ListGoals(ctx context.Context, owner string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner, name, target_cents, saved_cents, priority
		FROM goals WHERE owner = ? ORDER BY priority DESC, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		var (
			g        core.Goal
			priority int64
		)
		if err := rows.Scan(&g.ID, &g.Owner, &g.Name, &g.Target.Cents, &g.Saved.Cents, &priority); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.Priority = priority != 0
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repository) queryUsers(ctx context.Context, query string, args ...any) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanUser(row rowScanner) (core.User, error) {
	var (
		u        core.User
		role     string
		familyID sql.NullString
		joinedAt string
	)
	if err := row.Scan(&u.ID, &u.Name, &role, &familyID, &joinedAt); err != nil {
		return core.User{}, err
	}
	u.Role = core.Role(role)
	u.FamilyID = familyID.String
	var err error
	if u.JoinedAt, err = time.Parse(timeLayout, joinedAt); err != nil {
		return core.User{}, fmt.Errorf("parse joined at %q: %w", joinedAt, err)
	}
	return u, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
