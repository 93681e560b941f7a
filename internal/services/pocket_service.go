package services

import (
	"context"
	"fmt"
	"time"

	"moneta/internal/core"
	"moneta/internal/log"
	"moneta/internal/storage"
)

// PocketService is the only writer of pocket balances. Transfers are atomic:
// debit, credit and the audit record commit together or not at all, so no
// partial transfer can create or destroy money.
type PocketService struct {
	repo   *storage.Repository
	logger *log.Logger
	now    func() time.Time
}

func NewPocketService(repo *storage.Repository, logger *log.Logger) *PocketService {
	return &PocketService{
		repo:   repo,
		logger: logger.WithComponent(log.ComponentPocket),
		now:    time.Now,
	}
}

// Transfer moves amount between two of an owner's pockets and appends the
// immutable transfer record. The sum of the two balances is unchanged by
// construction. Insufficient balance rejects the whole transfer.
func (s *PocketService) Transfer(ctx context.Context, owner string, from, to int64, amount core.Money, note string) (core.PocketTransfer, error) {
	if err := amount.Validate(); err != nil {
		return core.PocketTransfer{}, err
	}
	if from == to {
		return core.PocketTransfer{}, core.ErrSamePocketTransfer
	}

	record := core.PocketTransfer{
		Owner:      owner,
		FromPocket: from,
		ToPocket:   to,
		Amount:     amount,
		Note:       note,
		CreatedAt:  s.now(),
	}

	err := s.repo.WithTx(ctx, func(q storage.Execer) error {
		// Resolve the source first so a missing pocket surfaces as not-found
		// rather than as an insufficient balance.
		if _, err := s.repo.GetPocket(ctx, q, owner, from); err != nil {
			return err
		}

		n, err := s.repo.DebitPocketGuarded(ctx, q, owner, from, amount.Cents)
		if err != nil {
			return err
		}
		if n == 0 {
			return core.ErrInsufficientBalance
		}

		n, err = s.repo.CreditPocket(ctx, q, owner, to, amount.Cents)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("destination pocket %d: %w", to, core.ErrNotFound)
		}

		id, err := s.repo.CreatePocketTransfer(ctx, q, record)
		if err != nil {
			return err
		}
		record.ID = id
		return nil
	})
	if err != nil {
		return core.PocketTransfer{}, fmt.Errorf("transfer %d -> %d: %w", from, to, err)
	}

	s.logger.InfoContext(ctx, "Pocket transfer completed",
		log.FieldOperation, log.OpTransfer,
		log.FieldOwner, owner,
		"from_pocket", from,
		"to_pocket", to,
		log.FieldAmountCents, amount.Cents)
	return record, nil
}

// AddMoney increases a pocket's balance.
func (s *PocketService) AddMoney(ctx context.Context, owner string, pocket int64, amount core.Money) error {
	if err := amount.Validate(); err != nil {
		return err
	}

	err := s.repo.WithTx(ctx, func(q storage.Execer) error {
		n, err := s.repo.CreditPocket(ctx, q, owner, pocket, amount.Cents)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("pocket %d: %w", pocket, core.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("add money: %w", err)
	}

	s.logger.InfoContext(ctx, "Money added to pocket",
		log.FieldOwner, owner,
		log.FieldPocketID, pocket,
		log.FieldAmountCents, amount.Cents)
	return nil
}

// RecordSpend decreases a pocket's balance and bumps its lifetime spent
// counter. Unlike transfers, a direct spend may drive the balance negative:
// the pocket tracks real-world spending that already happened.
func (s *PocketService) RecordSpend(ctx context.Context, owner string, pocket int64, amount core.Money) error {
	if err := amount.Validate(); err != nil {
		return err
	}

	err := s.repo.WithTx(ctx, func(q storage.Execer) error {
		n, err := s.repo.ApplyPocketSpend(ctx, q, owner, pocket, amount.Cents)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("pocket %d: %w", pocket, core.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record spend: %w", err)
	}

	s.logger.InfoContext(ctx, "Pocket spend recorded",
		log.FieldOwner, owner,
		log.FieldPocketID, pocket,
		log.FieldAmountCents, amount.Cents)
	return nil
}

// CreatePocket registers a new pocket for an owner.
func (s *PocketService) CreatePocket(ctx context.Context, p core.Pocket) (core.Pocket, error) {
	if p.Owner == "" {
		return core.Pocket{}, core.ErrEmptyOwner
	}
	id, err := s.repo.CreatePocket(ctx, p)
	if err != nil {
		return core.Pocket{}, fmt.Errorf("create pocket: %w", err)
	}
	p.ID = id
	return p, nil
}

// Get returns one pocket scoped to its owner.
func (s *PocketService) Get(ctx context.Context, owner string, id int64) (core.Pocket, error) {
	return s.repo.GetPocket(ctx, s.repo.DB(), owner, id)
}

// List returns all of an owner's pockets.
func (s *PocketService) List(ctx context.Context, owner string) ([]core.Pocket, error) {
	return s.repo.ListPockets(ctx, owner)
}

// Transfers returns an owner's transfer history.
func (s *PocketService) Transfers(ctx context.Context, owner string) ([]core.PocketTransfer, error) {
	return s.repo.ListPocketTransfers(ctx, owner)
}
