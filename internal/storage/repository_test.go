package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"moneta/internal/core"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "storage.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestTransactionRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	in := core.Transaction{
		Owner:       "alice",
		Direction:   core.DirectionDebit,
		Amount:      core.Money{Cents: 1250},
		Category:    "groceries",
		Description: "weekly shop",
		Shared:      true,
		Date:        time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		CreatedAt:   time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC),
	}

	id, err := repo.CreateTransaction(ctx, repo.DB(), in)
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	got, err := repo.GetTransaction(ctx, repo.DB(), "alice", id)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.Direction != in.Direction || got.Amount != in.Amount || got.Category != in.Category {
		t.Errorf("got %+v, want %+v", got, in)
	}
	if !got.Shared {
		t.Error("shared flag lost in round trip")
	}
	if !got.Date.Equal(in.Date) {
		t.Errorf("date = %v, want %v", got.Date, in.Date)
	}
	if !got.CreatedAt.Equal(in.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, in.CreatedAt)
	}
}

func TestGetTransactionScopesOwner(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	id, err := repo.CreateTransaction(ctx, repo.DB(), core.Transaction{
		Owner: "alice", Direction: core.DirectionDebit,
		Amount: core.Money{Cents: 100}, Category: "misc",
		Date: time.Now(), CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	if _, err := repo.GetTransaction(ctx, repo.DB(), "bob", id); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-owner get = %v, want ErrNotFound", err)
	}
}

func TestListTransactionsHalfOpenRange(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	days := []time.Time{
		time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, day := range days {
		if _, err := repo.CreateTransaction(ctx, repo.DB(), core.Transaction{
			Owner: "alice", Direction: core.DirectionDebit,
			Amount: core.Money{Cents: 100}, Category: "misc",
			Date: day, CreatedAt: day,
		}); err != nil {
			t.Fatalf("CreateTransaction(%v): %v", day, err)
		}
	}

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	got, err := repo.ListTransactions(ctx, "alice", from, to)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("listed %d transactions, want 2 (from inclusive, to exclusive)", len(got))
	}
}

func TestDeleteTransactionNotFound(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.DeleteTransaction(context.Background(), repo.DB(), "alice", 42)
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteTransaction = %v, want ErrNotFound", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := repo.WithTx(ctx, func(q Execer) error {
		if _, err := repo.CreateTransaction(ctx, q, core.Transaction{
			Owner: "alice", Direction: core.DirectionDebit,
			Amount: core.Money{Cents: 100}, Category: "misc",
			Date: time.Now(), CreatedAt: time.Now(),
		}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("WithTx = %v, want wrapped sentinel", err)
	}

	txs, err := repo.ListTransactions(ctx, "alice",
		time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("found %d transactions after rollback, want 0", len(txs))
	}
}

func TestIncrementBudgetSpentReportsMissingRow(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	n, err := repo.IncrementBudgetSpent(ctx, repo.DB(), "alice", "groceries", "2026-03", 100)
	if err != nil {
		t.Fatalf("IncrementBudgetSpent: %v", err)
	}
	if n != 0 {
		t.Errorf("rows affected = %d, want 0 for missing budget", n)
	}

	if err := repo.CreateBudget(ctx, core.Budget{
		Owner: "alice", Category: "groceries", Month: "2026-03",
		Limit: core.Money{Cents: 1000},
	}); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}

	n, err = repo.IncrementBudgetSpent(ctx, repo.DB(), "alice", "groceries", "2026-03", 100)
	if err != nil {
		t.Fatalf("IncrementBudgetSpent: %v", err)
	}
	if n != 1 {
		t.Errorf("rows affected = %d, want 1", n)
	}
}

func TestSumDebitTransactionsIgnoresCreditsAndOtherMonths(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	entries := []struct {
		direction core.Direction
		cents     int64
		date      time.Time
	}{
		{core.DirectionDebit, 1000, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
		{core.DirectionDebit, 500, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)},
		{core.DirectionCredit, 9999, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)},
		{core.DirectionDebit, 700, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)},
	}
	for _, e := range entries {
		if _, err := repo.CreateTransaction(ctx, repo.DB(), core.Transaction{
			Owner: "alice", Direction: e.direction,
			Amount: core.Money{Cents: e.cents}, Category: "groceries",
			Date: e.date, CreatedAt: e.date,
		}); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	sum, err := repo.SumDebitTransactions(ctx, "alice", "groceries", "2026-03")
	if err != nil {
		t.Fatalf("SumDebitTransactions: %v", err)
	}
	if sum != 1500 {
		t.Errorf("sum = %d, want 1500", sum)
	}
}

func TestDebitPocketGuarded(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	id, err := repo.CreatePocket(ctx, core.Pocket{Owner: "alice", Name: "main"})
	if err != nil {
		t.Fatalf("CreatePocket: %v", err)
	}
	if _, err := repo.CreditPocket(ctx, repo.DB(), "alice", id, 1000); err != nil {
		t.Fatalf("CreditPocket: %v", err)
	}

	// Guard rejects a debit beyond the balance.
	n, err := repo.DebitPocketGuarded(ctx, repo.DB(), "alice", id, 1001)
	if err != nil {
		t.Fatalf("DebitPocketGuarded: %v", err)
	}
	if n != 0 {
		t.Errorf("overdraw affected %d rows, want 0", n)
	}

	// An exact-balance debit passes.
	n, err = repo.DebitPocketGuarded(ctx, repo.DB(), "alice", id, 1000)
	if err != nil {
		t.Fatalf("DebitPocketGuarded: %v", err)
	}
	if n != 1 {
		t.Errorf("exact debit affected %d rows, want 1", n)
	}

	p, err := repo.GetPocket(ctx, repo.DB(), "alice", id)
	if err != nil {
		t.Fatalf("GetPocket: %v", err)
	}
	if p.Balance.Cents != 0 {
		t.Errorf("balance = %d, want 0", p.Balance.Cents)
	}
}

func TestScheduleConfigDefaultsWhenMissing(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	cfg, err := repo.GetScheduleConfig(ctx, "alice")
	if err != nil {
		t.Fatalf("GetScheduleConfig: %v", err)
	}
	want := core.DefaultScheduleConfig("alice")
	if cfg != want {
		t.Errorf("missing row config = %+v, want defaults %+v", cfg, want)
	}

	cfg.BriefTime = "07:00"
	cfg.DuesReminders = false
	if err := repo.SaveScheduleConfig(ctx, cfg); err != nil {
		t.Fatalf("SaveScheduleConfig: %v", err)
	}

	got, err := repo.GetScheduleConfig(ctx, "alice")
	if err != nil {
		t.Fatalf("GetScheduleConfig: %v", err)
	}
	if got != cfg {
		t.Errorf("config = %+v, want %+v", got, cfg)
	}
}

func TestUpsertUserPreservesJoinedAt(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	joined := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	if err := repo.UpsertUser(ctx, core.User{
		ID: "alice", Name: "Alice", Role: core.RoleMember, JoinedAt: joined,
	}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	// A later sync with a new name must not move the joined timestamp.
	if err := repo.UpsertUser(ctx, core.User{
		ID: "alice", Name: "Alice B.", Role: core.RoleAdmin, FamilyID: "fam1",
		JoinedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	got, err := repo.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Name != "Alice B." || got.Role != core.RoleAdmin || got.FamilyID != "fam1" {
		t.Errorf("user = %+v", got)
	}
	if !got.JoinedAt.Equal(joined) {
		t.Errorf("joined_at = %v, want original %v", got.JoinedAt, joined)
	}
}

func TestListPendingDuesBetween(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	dues := []core.DueItem{
		{Owner: "alice", Counterparty: "a", Direction: core.DueOwedToMe, Amount: core.Money{Cents: 100}, DueDate: base},
		{Owner: "bob", Counterparty: "b", Direction: core.DueOwedByMe, Amount: core.Money{Cents: 200}, DueDate: base.AddDate(0, 0, 2)},
		{Owner: "alice", Counterparty: "c", Direction: core.DueOwedByMe, Amount: core.Money{Cents: 300}, DueDate: base.AddDate(0, 0, 5)},
		{Owner: "alice", Counterparty: "d", Direction: core.DueOwedToMe, Amount: core.Money{Cents: 400}, DueDate: base.AddDate(0, 0, 1), Status: core.DueSettled},
	}
	for _, d := range dues {
		if _, err := repo.CreateDueItem(ctx, d); err != nil {
			t.Fatalf("CreateDueItem: %v", err)
		}
	}

	got, err := repo.ListPendingDuesBetween(ctx, base, base.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("ListPendingDuesBetween: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("listed %d dues, want 2 (both owners, pending, in range)", len(got))
	}
	if got[0].Counterparty != "a" || got[1].Counterparty != "b" {
		t.Errorf("dues = %+v, want counterparties a then b", got)
	}
}

func TestMemberDayTotalsRanksBySpend(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	joined := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, u := range []core.User{
		{ID: "alice", Name: "Alice", Role: core.RoleAdmin, FamilyID: "fam1", JoinedAt: joined},
		{ID: "bob", Name: "Bob", Role: core.RoleMember, FamilyID: "fam1", JoinedAt: joined},
	} {
		if err := repo.UpsertUser(ctx, u); err != nil {
			t.Fatalf("UpsertUser: %v", err)
		}
	}

	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	for _, e := range []struct {
		owner string
		cents int64
	}{{"alice", 500}, {"bob", 2000}, {"bob", 300}} {
		if _, err := repo.CreateTransaction(ctx, repo.DB(), core.Transaction{
			Owner: e.owner, Direction: core.DirectionDebit,
			Amount: core.Money{Cents: e.cents}, Category: "misc",
			Date: day, CreatedAt: day,
		}); err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	totals, err := repo.MemberDayTotals(ctx, "fam1", day)
	if err != nil {
		t.Fatalf("MemberDayTotals: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("totals = %d members, want 2", len(totals))
	}
	if totals[0].Owner != "bob" || totals[0].Cents != 2300 {
		t.Errorf("top = %+v, want bob with 2300", totals[0])
	}
	if totals[1].Owner != "alice" || totals[1].Cents != 500 {
		t.Errorf("second = %+v, want alice with 500", totals[1])
	}
}

func TestCreateBudgetDuplicateBucket(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	b := core.Budget{Owner: "alice", Category: "groceries", Month: "2026-03", Limit: core.Money{Cents: 50000}}
	if err := repo.CreateBudget(ctx, b); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}

	err := repo.CreateBudget(ctx, b)
	if !errors.Is(err, core.ErrBudgetExists) {
		t.Fatalf("second CreateBudget err = %v, want ErrBudgetExists", err)
	}

	// A different month is a different bucket.
	b.Month = "2026-04"
	if err := repo.CreateBudget(ctx, b); err != nil {
		t.Errorf("CreateBudget for other month: %v", err)
	}
}

func TestMembersJoinedOnSubsecondTimestamps(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	day := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	users := []core.User{
		{ID: "alice", Name: "Alice", Role: core.RoleMember, FamilyID: "fam1", JoinedAt: day.Add(500 * time.Millisecond)},
		{ID: "bob", Name: "Bob", Role: core.RoleMember, FamilyID: "fam1", JoinedAt: day.Add(24*time.Hour - time.Millisecond)},
		{ID: "carol", Name: "Carol", Role: core.RoleMember, FamilyID: "fam1", JoinedAt: day.AddDate(0, 0, -1).Add(12 * time.Hour)},
	}
	for _, u := range users {
		if err := repo.UpsertUser(ctx, u); err != nil {
			t.Fatalf("UpsertUser %s: %v", u.ID, err)
		}
	}

	got, err := repo.MembersJoinedOn(ctx, "fam1", day)
	if err != nil {
		t.Fatalf("MembersJoinedOn: %v", err)
	}
	if len(got) != 2 || got[0].ID != "alice" || got[1].ID != "bob" {
		t.Fatalf("members = %+v, want alice and bob", got)
	}
}
