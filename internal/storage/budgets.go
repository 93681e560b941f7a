package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"moneta/internal/core"
)

// CreateBudget inserts a budget row. Budgets are always created explicitly;
// reconciliation never invents one.
func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (owner, category, month, limit_cents, spent_cents)
		VALUES (?, ?, ?, ?, ?)`,
		b.Owner, b.Category, b.Month, b.Limit.Cents, b.Spent.Cents)
	if isConstraintViolation(err) {
		return fmt.Errorf("budget %s/%s/%s: %w", b.Owner, b.Category, b.Month, core.ErrBudgetExists)
	}
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

// isConstraintViolation reports whether err is a SQLite constraint failure,
// in any of its extended forms.
func isConstraintViolation(err error) bool {
	var serr *sqlite.Error
	return errors.As(err, &serr) && serr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

// GetBudget loads the budget for one (owner, category, month) bucket.
func (r *Repository) GetBudget(ctx context.Context, owner, category, month string) (core.Budget, error) {
	var b core.Budget
	err := r.db.QueryRowContext(ctx, `
		SELECT owner, category, month, limit_cents, spent_cents
		FROM budgets WHERE owner = ? AND category = ? AND month = ?`,
		owner, category, month).
		Scan(&b.Owner, &b.Category, &b.Month, &b.Limit.Cents, &b.Spent.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %s/%s/%s: %w", owner, category, month, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

// ListBudgetsForMonth returns all of an owner's budgets for one month key.
func (r *Repository) ListBudgetsForMonth(ctx context.Context, owner, month string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT owner, category, month, limit_cents, spent_cents
		FROM budgets WHERE owner = ? AND month = ? ORDER BY category`,
		owner, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.Owner, &b.Category, &b.Month, &b.Limit.Cents, &b.Spent.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// IncrementBudgetSpent adds cents to the derived spent aggregate of one
// bucket. Returns the number of rows touched: zero means no such budget
// exists, which callers treat as a soft condition.
func (r *Repository) IncrementBudgetSpent(ctx context.Context, q Execer, owner, category, month string, cents int64) (int64, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE budgets SET spent_cents = spent_cents + ?
		WHERE owner = ? AND category = ? AND month = ?`,
		cents, owner, category, month)
	if err != nil {
		return 0, fmt.Errorf("increment budget spent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("increment budget spent rows: %w", err)
	}
	return n, nil
}

// DecrementBudgetSpent subtracts cents from the spent aggregate, flooring at
// zero to absorb any historical drift.
func (r *Repository) DecrementBudgetSpent(ctx context.Context, q Execer, owner, category, month string, cents int64) (int64, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE budgets SET spent_cents = MAX(spent_cents - ?, 0)
		WHERE owner = ? AND category = ? AND month = ?`,
		cents, owner, category, month)
	if err != nil {
		return 0, fmt.Errorf("decrement budget spent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("decrement budget spent rows: %w", err)
	}
	return n, nil
}

// SumDebitTransactions returns the total debit amount currently in one
// (owner, category, month) bucket. Used to verify the derived aggregate.
func (r *Repository) SumDebitTransactions(ctx context.Context, owner, category, month string) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM transactions
		WHERE owner = ? AND category = ? AND direction = 'debit'
		  AND substr(effective_date, 1, 7) = ?`,
		owner, category, month).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum debit transactions: %w", err)
	}
	return total, nil
}
