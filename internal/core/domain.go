package core

import (
	"errors"
	"strings"
	"time"
)

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"

	RoleAdmin  Role = "admin"
	RoleMember Role = "member"

	DueOwedToMe DueDirection = "owed_to_me"
	DueOwedByMe DueDirection = "owed_by_me"

	DuePending DueStatus = "pending"
	DueSettled DueStatus = "settled"
)

// EditWindow is how long a transaction stays mutable after creation.
const EditWindow = time.Hour

type (
	Direction    string
	Role         string
	DueDirection string
	DueStatus    string

	Money struct {
		Cents int64
	}

	// Transaction is a single ledger entry, always owned by exactly one user.
	Transaction struct {
		ID          int64
		Owner       string
		Direction   Direction
		Amount      Money
		Category    string
		Description string
		Shared      bool
		Date        time.Time // effective date, not creation time
		CreatedAt   time.Time
	}

	// Budget tracks a spending limit for one (owner, category, month) bucket.
	// Spent is derived from the ledger and never authored directly.
	Budget struct {
		Owner    string
		Category string
		Month    string // "YYYY-MM"
		Limit    Money
		Spent    Money
	}

	// Pocket is a named money store. Balance is authoritative; Spent is an
	// independent lifetime counter, unrelated to Budget.Spent.
	Pocket struct {
		ID      int64
		Owner   string
		Name    string
		Kind    string
		Balance Money
		Spent   Money
	}

	// PocketTransfer is the immutable audit record of a completed transfer.
	PocketTransfer struct {
		ID         int64
		Owner      string
		FromPocket int64
		ToPocket   int64
		Amount     Money
		Note       string
		CreatedAt  time.Time
	}

	DueItem struct {
		ID           int64
		Owner        string
		Counterparty string
		Direction    DueDirection
		Amount       Money
		DueDate      time.Time
		Status       DueStatus
	}

	// User is the scheduler's view of an account holder. Identity itself is
	// supplied by the external provider; we only persist what the insight
	// engine needs to scan users and resolve family membership.
	User struct {
		ID       string
		Name     string
		Role     Role
		FamilyID string // empty when the user is not in a family
		JoinedAt time.Time
	}

	// Goal is a pass-through savings record read by brief generation.
	Goal struct {
		ID       int64
		Owner    string
		Name     string
		Target   Money
		Saved    Money
		Priority bool
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidDirection    = errors.New("invalid direction")
	ErrEmptyOwner          = errors.New("empty owner")
	ErrEmptyCategory       = errors.New("empty category")
	ErrEmptyCounterparty   = errors.New("empty counterparty")
	ErrSamePocketTransfer  = errors.New("transfer between a pocket and itself")
	ErrInsufficientBalance = errors.New("insufficient pocket balance")
	ErrEditWindowExpired   = errors.New("edit window expired")
	ErrNotFound            = errors.New("not found")
	ErrBudgetExists        = errors.New("budget already exists")
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (d Direction) Validate() error {
	switch d {
	case DirectionDebit, DirectionCredit:
		return nil
	default:
		return ErrInvalidDirection
	}
}

// Editable reports whether the transaction may still be updated or deleted
// at the given instant. An edit at exactly EditWindow past creation is
// already too late.
func (t Transaction) Editable(now time.Time) bool {
	return now.Sub(t.CreatedAt) < EditWindow
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Owner) == "" {
		return ErrEmptyOwner
	}
	if err := t.Direction.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Date.IsZero() {
		return errors.New("effective date cannot be zero")
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

// UsageRatio returns spent/limit, or 0 when the budget has no usable limit.
func (b Budget) UsageRatio() float64 {
	if b.Limit.Cents <= 0 {
		return 0
	}
	return float64(b.Spent.Cents) / float64(b.Limit.Cents)
}

func (d DueItem) Validate() error {
	if strings.TrimSpace(d.Owner) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(d.Counterparty) == "" {
		return ErrEmptyCounterparty
	}
	switch d.Direction {
	case DueOwedToMe, DueOwedByMe:
	default:
		return ErrInvalidDirection
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if d.DueDate.IsZero() {
		return errors.New("due date cannot be zero")
	}
	return nil
}

// Progress returns saved/target in the range [0, 1], clamped at 1.
func (g Goal) Progress() float64 {
	if g.Target.Cents <= 0 {
		return 0
	}
	p := float64(g.Saved.Cents) / float64(g.Target.Cents)
	if p > 1 {
		return 1
	}
	return p
}
