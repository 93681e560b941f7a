// Package storage persists the ledger, budgets, pockets, dues and user
// records in SQLite. Balance and aggregate arithmetic happens in guarded SQL
// updates so concurrent writers cannot interleave a check with its write.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"moneta/internal/core"

	_ "modernc.org/sqlite"
)

const (
	dateLayout = "2006-01-02"

	// Timestamps are stored as text and range-compared lexically, so the
	// layout must be fixed width. RFC3339Nano trims trailing fractional
	// zeros, which makes "…00.5Z" sort before "…00Z".
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Execer is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repository methods that must run inside a caller-owned transaction take it
// explicitly; everything else uses the repository's own connection.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// SQLite allows one writer at a time; a single pooled connection keeps
	// transactions from tripping over each other's locks.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// DB exposes the underlying connection for read paths outside a transaction.
func (r *Repository) DB() Execer {
	return r.db
}

// WithTx runs fn inside a single SQLite transaction: everything fn writes
// commits together or not at all.
func (r *Repository) WithTx(ctx context.Context, fn func(q Execer) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CreateTransaction inserts a ledger row and returns its id.
func (r *Repository) CreateTransaction(ctx context.Context, q Execer, t core.Transaction) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO transactions (owner, direction, amount_cents, category, description, shared, effective_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Owner, string(t.Direction), t.Amount.Cents, t.Category, t.Description,
		boolToInt(t.Shared), t.Date.Format(dateLayout), t.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction id: %w", err)
	}
	return id, nil
}

// GetTransaction loads one transaction scoped to its owner.
func (r *Repository) GetTransaction(ctx context.Context, q Execer, owner string, id int64) (core.Transaction, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, owner, direction, amount_cents, category, description, shared, effective_date, created_at
		FROM transactions WHERE id = ? AND owner = ?`, id, owner)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// UpdateTransaction overwrites the mutable columns of an existing row.
// CreatedAt is never rewritten: the edit window is anchored to creation.
func (r *Repository) UpdateTransaction(ctx context.Context, q Execer, t core.Transaction) error {
	res, err := q.ExecContext(ctx, `
		UPDATE transactions
		SET direction = ?, amount_cents = ?, category = ?, description = ?, shared = ?, effective_date = ?
		WHERE id = ? AND owner = ?`,
		string(t.Direction), t.Amount.Cents, t.Category, t.Description,
		boolToInt(t.Shared), t.Date.Format(dateLayout), t.ID, t.Owner)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %d: %w", t.ID, core.ErrNotFound)
	}
	return nil
}

// DeleteTransaction removes a row scoped to its owner.
func (r *Repository) DeleteTransaction(ctx context.Context, q Execer, owner string, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// ListTransactions returns a single owner's rows with effective date in
// [from, to), most recent first.
func (r *Repository) ListTransactions(ctx context.Context, owner string, from, to time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner, direction, amount_cents, category, description, shared, effective_date, created_at
		FROM transactions
		WHERE owner = ? AND effective_date >= ? AND effective_date < ?
		ORDER BY effective_date DESC, id DESC`,
		owner, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t         core.Transaction
		direction string
		shared    int64
		date      string
		createdAt string
	)
	err := row.Scan(&t.ID, &t.Owner, &direction, &t.Amount.Cents, &t.Category,
		&t.Description, &shared, &date, &createdAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Direction = core.Direction(direction)
	t.Shared = shared != 0
	if t.Date, err = time.Parse(dateLayout, date); err != nil {
		return core.Transaction{}, fmt.Errorf("parse effective date %q: %w", date, err)
	}
	if t.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return core.Transaction{}, fmt.Errorf("parse created at %q: %w", createdAt, err)
	}
	return t, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
