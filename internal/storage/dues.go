package storage

import (
	"context"
	"fmt"
	"time"

	"moneta/internal/core"
)

// CreateDueItem inserts a due item and returns its id.
func (r *Repository) CreateDueItem(ctx context.Context, d core.DueItem) (int64, error) {
	status := d.Status
	if status == "" {
		status = core.DuePending
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO due_items (owner, counterparty, direction, amount_cents, due_date, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.Owner, d.Counterparty, string(d.Direction), d.Amount.Cents,
		d.DueDate.Format(dateLayout), string(status))
	if err != nil {
		return 0, fmt.Errorf("insert due item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("due item id: %w", err)
	}
	return id, nil
}

// ListDueItems returns all of an owner's due items ordered by due date.
func (r *Repository) ListDueItems(ctx context.Context, owner string) ([]core.DueItem, error) {
	return r.queryDueItems(ctx, `
		SELECT id, owner, counterparty, direction, amount_cents, due_date, status
		FROM due_items WHERE owner = ? ORDER BY due_date, id`, owner)
}

// ListPendingDuesBetween returns every user's pending dues with due date in
// [from, to]. The reminder check scans all owners in one query.
func (r *Repository) ListPendingDuesBetween(ctx context.Context, from, to time.Time) ([]core.DueItem, error) {
	return r.queryDueItems(ctx, `
		SELECT id, owner, counterparty, direction, amount_cents, due_date, status
		FROM due_items
		WHERE status = 'pending' AND due_date >= ? AND due_date <= ?
		ORDER BY due_date, id`,
		from.Format(dateLayout), to.Format(dateLayout))
}

// SettleDueItem flips a pending due item to settled.
func (r *Repository) SettleDueItem(ctx context.Context, owner string, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE due_items SET status = 'settled'
		WHERE id = ? AND owner = ? AND status = 'pending'`, id, owner)
	if err != nil {
		return fmt.Errorf("settle due item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("pending due item %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *Repository) queryDueItems(ctx context.Context, query string, args ...any) ([]core.DueItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query due items: %w", err)
	}
	defer rows.Close()

	var out []core.DueItem
	for rows.Next() {
		var (
			d         core.DueItem
			direction string
			status    string
			dueDate   string
		)
		if err := rows.Scan(&d.ID, &d.Owner, &d.Counterparty, &direction, &d.Amount.Cents, &dueDate, &status); err != nil {
			return nil, fmt.Errorf("scan due item: %w", err)
		}
		d.Direction = core.DueDirection(direction)
		d.Status = core.DueStatus(status)
		if d.DueDate, err = time.Parse(dateLayout, dueDate); err != nil {
			return nil, fmt.Errorf("parse due date %q: %w", dueDate, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
