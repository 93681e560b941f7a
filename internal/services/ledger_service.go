package services

import (
	"context"
	"fmt"
	"time"

	"moneta/internal/core"
	"moneta/internal/log"
	"moneta/internal/storage"
)

// TransactionPatch carries the fields an update may change. Nil means
// "leave as is". CreatedAt is not patchable: the edit window stays anchored
// to the original creation.
type TransactionPatch struct {
	Direction   *core.Direction
	Amount      *int64
	Category    *string
	Description *string
	Shared      *bool
	Date        *time.Time
}

// LedgerService is the only entry point for transaction mutations. Every
// create, update and delete runs inside one storage transaction together
// with its reconciliation, so the budget aggregate always reflects either
// the fully old or the fully new ledger state.
type LedgerService struct {
	repo       *storage.Repository
	reconciler *Reconciler
	logger     *log.Logger
	now        func() time.Time
}

func NewLedgerService(repo *storage.Repository, reconciler *Reconciler, logger *log.Logger) *LedgerService {
	return &LedgerService{
		repo:       repo,
		reconciler: reconciler,
		logger:     logger.WithComponent(log.ComponentLedger),
		now:        time.Now,
	}
}

// Create validates and persists a transaction, applying it to the matching
// budget bucket when it is a debit.
func (s *LedgerService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx.CreatedAt = s.now()
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	err := s.repo.WithTx(ctx, func(q storage.Execer) error {
		id, err := s.repo.CreateTransaction(ctx, q, tx)
		if err != nil {
			return err
		}
		tx.ID = id
		return s.reconciler.Apply(ctx, q, tx)
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction created",
		log.FieldOperation, log.OpCreate,
		log.FieldTxID, tx.ID,
		log.FieldOwner, tx.Owner,
		log.FieldCategory, tx.Category,
		log.FieldAmountCents, tx.Amount.Cents,
		"direction", string(tx.Direction))
	return tx, nil
}

// Update edits a transaction inside its edit window. The existing record is
// reverted and the merged record applied unconditionally, which handles
// amount, category, direction and month-boundary date changes with one rule.
// Both halves share the storage transaction: a failure after the revert
// rolls the revert back too.
func (s *LedgerService) Update(ctx context.Context, owner string, id int64, patch TransactionPatch) (core.Transaction, error) {
	var merged core.Transaction

	err := s.repo.WithTx(ctx, func(q storage.Execer) error {
		existing, err := s.repo.GetTransaction(ctx, q, owner, id)
		if err != nil {
			return err
		}
		if !existing.Editable(s.now()) {
			return core.ErrEditWindowExpired
		}

		merged = mergePatch(existing, patch)
		if err := merged.Validate(); err != nil {
			return err
		}

		if err := s.reconciler.Revert(ctx, q, existing); err != nil {
			return err
		}
		if err := s.repo.UpdateTransaction(ctx, q, merged); err != nil {
			return err
		}
		return s.reconciler.Apply(ctx, q, merged)
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Transaction updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldTxID, id,
		log.FieldOwner, owner,
		log.FieldCategory, merged.Category,
		log.FieldAmountCents, merged.Amount.Cents)
	return merged, nil
}

// Delete removes a transaction inside its edit window, reverting its budget
// contribution in the same storage transaction.
func (s *LedgerService) Delete(ctx context.Context, owner string, id int64) error {
	err := s.repo.WithTx(ctx, func(q storage.Execer) error {
		existing, err := s.repo.GetTransaction(ctx, q, owner, id)
		if err != nil {
			return err
		}
		if !existing.Editable(s.now()) {
			return core.ErrEditWindowExpired
		}

		if err := s.reconciler.Revert(ctx, q, existing); err != nil {
			return err
		}
		return s.repo.DeleteTransaction(ctx, q, owner, id)
	})
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldTxID, id,
		log.FieldOwner, owner)
	return nil
}

// Get returns one transaction scoped to its owner.
func (s *LedgerService) Get(ctx context.Context, owner string, id int64) (core.Transaction, error) {
	return s.repo.GetTransaction(ctx, s.repo.DB(), owner, id)
}

// List returns an owner's transactions with effective date in [from, to).
func (s *LedgerService) List(ctx context.Context, owner string, from, to time.Time) ([]core.Transaction, error) {
	return s.repo.ListTransactions(ctx, owner, from, to)
}

func mergePatch(existing core.Transaction, patch TransactionPatch) core.Transaction {
	merged := existing
	if patch.Direction != nil {
		merged.Direction = *patch.Direction
	}
	if patch.Amount != nil {
		merged.Amount = core.Money{Cents: *patch.Amount}
	}
	if patch.Category != nil {
		merged.Category = *patch.Category
	}
	if patch.Description != nil {
		merged.Description = *patch.Description
	}
	if patch.Shared != nil {
		merged.Shared = *patch.Shared
	}
	if patch.Date != nil {
		merged.Date = *patch.Date
	}
	return merged
}
