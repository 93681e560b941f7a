package storage

import (
	"context"
	"fmt"
	"time"

	"moneta/internal/core"
)

// CategoryTotal is a per-category debit total for one day.
type CategoryTotal struct {
	Category string
	Cents    int64
}

// MemberTotal is one family member's debit total for one day.
type MemberTotal struct {
	Owner string
	Name  string
	Cents int64
}

// DayTotals returns an owner's debit and credit totals for one calendar day.
func (r *Repository) DayTotals(ctx context.Context, owner string, day time.Time) (spent, income int64, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN direction = 'debit' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN direction = 'credit' THEN amount_cents ELSE 0 END), 0)
		FROM transactions
		WHERE owner = ? AND effective_date = ?`,
		owner, day.Format(dateLayout)).Scan(&spent, &income)
	if err != nil {
		return 0, 0, fmt.Errorf("day totals: %w", err)
	}
	return spent, income, nil
}

// TopCategories returns an owner's top debit categories for one day,
// largest first.
func (r *Repository) TopCategories(ctx context.Context, owner string, day time.Time, limit int) ([]CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, SUM(amount_cents) AS total
		FROM transactions
		WHERE owner = ? AND direction = 'debit' AND effective_date = ?
		GROUP BY category ORDER BY total DESC, category LIMIT ?`,
		owner, day.Format(dateLayout), limit)
	if err != nil {
		return nil, fmt.Errorf("top categories: %w", err)
	}
	defer rows.Close()

	var out []CategoryTotal
	for rows.Next() {
		var ct CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

// MonthBudgetTotals sums an owner's budget limits and derived spends for one
// month key. Feeds the month-to-date usage line of the personal brief.
func (r *Repository) MonthBudgetTotals(ctx context.Context, owner, month string) (limitCents, spentCents int64, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(limit_cents), 0), COALESCE(SUM(spent_cents), 0)
		FROM budgets WHERE owner = ? AND month = ?`,
		owner, month).Scan(&limitCents, &spentCents)
	if err != nil {
		return 0, 0, fmt.Errorf("month budget totals: %w", err)
	}
	return limitCents, spentCents, nil
}

// MemberDayTotals returns per-member debit totals for one day across a
// family, including members with no transactions that day.
func (r *Repository) MemberDayTotals(ctx context.Context, familyID string, day time.Time) ([]MemberTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.name, COALESCE(SUM(CASE WHEN t.direction = 'debit' THEN t.amount_cents ELSE 0 END), 0) AS total
		FROM users u
		LEFT JOIN transactions t ON t.owner = u.id AND t.effective_date = ?
		WHERE u.family_id = ?
		GROUP BY u.id, u.name
		ORDER BY total DESC, u.id`,
		day.Format(dateLayout), familyID)
	if err != nil {
		return nil, fmt.Errorf("member day totals: %w", err)
	}
	defer rows.Close()

	var out []MemberTotal
	for rows.Next() {
		var mt MemberTotal
		if err := rows.Scan(&mt.Owner, &mt.Name, &mt.Cents); err != nil {
			return nil, fmt.Errorf("scan member total: %w", err)
		}
		out = append(out, mt)
	}
	return out, rows.Err()
}

// FamilySharedTotal sums the shared-flagged debits across a family for one day.
func (r *Repository) FamilySharedTotal(ctx context.Context, familyID string, day time.Time) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(t.amount_cents), 0)
		FROM transactions t
		JOIN users u ON u.id = t.owner
		WHERE u.family_id = ? AND t.direction = 'debit' AND t.shared = 1 AND t.effective_date = ?`,
		familyID, day.Format(dateLayout)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("family shared total: %w", err)
	}
	return total, nil
}

// PriorityGoal returns an owner's first priority goal, or ErrNotFound.
func (r *Repository) PriorityGoal(ctx context.Context, owner string) (core.Goal, error) {
	goals, err := r.ListGoals(ctx, owner)
	if err != nil {
		return core.Goal{}, err
	}
	for _, g := range goals {
		if g.Priority {
			return g, nil
		}
	}
	return core.Goal{}, fmt.Errorf("priority goal for %s: %w", owner, core.ErrNotFound)
}
