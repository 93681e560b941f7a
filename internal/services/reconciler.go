// Package services holds the write-side business logic: the ledger mutation
// gateway, the budget reconciler and the pocket transfer engine.
package services

import (
	"context"
	"fmt"

	"moneta/internal/core"
	"moneta/internal/log"
	"moneta/internal/storage"
)

// Reconciler keeps Budget.spent equal to the sum of the currently existing
// debit transactions in each (owner, category, month) bucket. Apply and
// Revert are exact inverses; both derive the bucket from the transaction's
// stored effective date, never from the clock, so an edit that moves a
// transaction across a month boundary reverts against the original bucket
// and applies to the new one.
type Reconciler struct {
	repo   *storage.Repository
	logger *log.Logger
}

func NewReconciler(repo *storage.Repository, logger *log.Logger) *Reconciler {
	return &Reconciler{
		repo:   repo,
		logger: logger.WithComponent(log.ComponentBudget),
	}
}

// Apply adds a debit transaction's amount to its budget bucket. Credits are
// ignored. A missing budget row is a soft condition: logged, nothing else.
func (r *Reconciler) Apply(ctx context.Context, q storage.Execer, tx core.Transaction) error {
	if tx.Direction != core.DirectionDebit {
		return nil
	}
	month := core.MonthKey(tx.Date)
	n, err := r.repo.IncrementBudgetSpent(ctx, q, tx.Owner, tx.Category, month, tx.Amount.Cents)
	if err != nil {
		return fmt.Errorf("apply to budget %s/%s: %w", tx.Category, month, err)
	}
	if n == 0 {
		fields := log.NewFields().
			WithOperation(log.OpApply).
			WithOwner(tx.Owner).
			WithBudgetBucket(tx.Category, month).
			WithAmount(tx.Amount.Cents)
		r.logger.WarnContext(ctx, "No budget for debit transaction, spend untracked", fields.ToSlice()...)
	}
	return nil
}

// Revert removes a debit transaction's amount from its budget bucket,
// flooring the aggregate at zero. Credits are ignored.
func (r *Reconciler) Revert(ctx context.Context, q storage.Execer, tx core.Transaction) error {
	if tx.Direction != core.DirectionDebit {
		return nil
	}
	month := core.MonthKey(tx.Date)
	n, err := r.repo.DecrementBudgetSpent(ctx, q, tx.Owner, tx.Category, month, tx.Amount.Cents)
	if err != nil {
		return fmt.Errorf("revert from budget %s/%s: %w", tx.Category, month, err)
	}
	if n == 0 {
		fields := log.NewFields().
			WithOperation(log.OpRevert).
			WithOwner(tx.Owner).
			WithBudgetBucket(tx.Category, month).
			WithAmount(tx.Amount.Cents)
		r.logger.WarnContext(ctx, "No budget to revert debit transaction against", fields.ToSlice()...)
	}
	return nil
}
