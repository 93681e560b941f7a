package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"moneta/internal/core"
)

// CreatePocket inserts a pocket and returns its id.
func (r *Repository) CreatePocket(ctx context.Context, p core.Pocket) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO pockets (owner, name, kind, balance_cents, spent_cents)
		VALUES (?, ?, ?, ?, ?)`,
		p.Owner, p.Name, p.Kind, p.Balance.Cents, p.Spent.Cents)
	if err != nil {
		return 0, fmt.Errorf("insert pocket: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("pocket id: %w", err)
	}
	return id, nil
}

// GetPocket loads one pocket scoped to its owner.
func (r *Repository) GetPocket(ctx context.Context, q Execer, owner string, id int64) (core.Pocket, error) {
	var p core.Pocket
	err := q.QueryRowContext(ctx, `
		SELECT id, owner, name, kind, balance_cents, spent_cents
		FROM pockets WHERE id = ? AND owner = ?`, id, owner).
		Scan(&p.ID, &p.Owner, &p.Name, &p.Kind, &p.Balance.Cents, &p.Spent.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Pocket{}, fmt.Errorf("pocket %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Pocket{}, fmt.Errorf("get pocket: %w", err)
	}
	return p, nil
}

// ListPockets returns all pockets belonging to an owner.
func (r *Repository) ListPockets(ctx context.Context, owner string) ([]core.Pocket, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner, name, kind, balance_cents, spent_cents
		FROM pockets WHERE owner = ? ORDER BY id`, owner)
	if err != nil {
		return nil, fmt.Errorf("list pockets: %w", err)
	}
	defer rows.Close()

	var out []core.Pocket
	for rows.Next() {
		var p core.Pocket
		if err := rows.Scan(&p.ID, &p.Owner, &p.Name, &p.Kind, &p.Balance.Cents, &p.Spent.Cents); err != nil {
			return nil, fmt.Errorf("scan pocket: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreditPocket adds cents to a pocket's balance unconditionally.
// Returns rows touched; zero means the pocket does not exist.
func (r *Repository) CreditPocket(ctx context.Context, q Execer, owner string, id, cents int64) (int64, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE pockets SET balance_cents = balance_cents + ?
		WHERE id = ? AND owner = ?`, cents, id, owner)
	if err != nil {
		return 0, fmt.Errorf("credit pocket: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("credit pocket rows: %w", err)
	}
	return n, nil
}

// DebitPocketGuarded subtracts cents only when the balance covers them. The
// guard lives in the WHERE clause so two concurrent transfers cannot both
// pass a balance check that only one of them can afford: zero rows means the
// balance was insufficient at write time.
func (r *Repository) DebitPocketGuarded(ctx context.Context, q Execer, owner string, id, cents int64) (int64, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE pockets SET balance_cents = balance_cents - ?
		WHERE id = ? AND owner = ? AND balance_cents >= ?`, cents, id, owner, cents)
	if err != nil {
		return 0, fmt.Errorf("debit pocket: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("debit pocket rows: %w", err)
	}
	return n, nil
}

// ApplyPocketSpend records a direct spend: balance down, lifetime spent up.
// No balance guard here; direct spends may drive the balance negative.
func (r *Repository) ApplyPocketSpend(ctx context.Context, q Execer, owner string, id, cents int64) (int64, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE pockets SET balance_cents = balance_cents - ?, spent_cents = spent_cents + ?
		WHERE id = ? AND owner = ?`, cents, cents, id, owner)
	if err != nil {
		return 0, fmt.Errorf("apply pocket spend: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("apply pocket spend rows: %w", err)
	}
	return n, nil
}

// CreatePocketTransfer appends the immutable audit record of a transfer.
func (r *Repository) CreatePocketTransfer(ctx context.Context, q Execer, t core.PocketTransfer) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO pocket_transfers (owner, from_pocket, to_pocket, amount_cents, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.Owner, t.FromPocket, t.ToPocket, t.Amount.Cents, t.Note,
		t.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("insert pocket transfer: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("pocket transfer id: %w", err)
	}
	return id, nil
}

// ListPocketTransfers returns an owner's transfer history, newest first.
func (r *Repository) ListPocketTransfers(ctx context.Context, owner string) ([]core.PocketTransfer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner, from_pocket, to_pocket, amount_cents, note, created_at
		FROM pocket_transfers WHERE owner = ? ORDER BY id DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list pocket transfers: %w", err)
	}
	defer rows.Close()

	var out []core.PocketTransfer
	for rows.Next() {
		var (
			t         core.PocketTransfer
			createdAt string
		)
		if err := rows.Scan(&t.ID, &t.Owner, &t.FromPocket, &t.ToPocket, &t.Amount.Cents, &t.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("scan pocket transfer: %w", err)
		}
		if t.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse transfer created at %q: %w", createdAt, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
