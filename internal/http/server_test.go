package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"moneta/internal/core"
	"moneta/internal/insights"
	"moneta/internal/log"
	"moneta/internal/notify"
	"moneta/internal/services"
	"moneta/internal/storage"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, notify.Notification) error { return nil }

func newTestServer(t *testing.T) (*Server, *storage.Repository) {
	t.Helper()

	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	reconciler := services.NewReconciler(repo, logger)
	ledger := services.NewLedgerService(repo, reconciler, logger)
	pockets := services.NewPocketService(repo, logger)
	engine := insights.NewEngine(repo, nopDispatcher{}, logger, time.Second, 1)

	return NewServer(":0", ledger, pockets, repo, engine, logger), repo
}

func doRequest(t *testing.T, s *Server, method, path, owner string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if owner != "" {
		req.Header.Set(ownerHeader, owner)
	}

	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(t, s, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestMissingOwnerHeader(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/transactions", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestCreateTransactionUpdatesBudget(t *testing.T) {
	s, repo := newTestServer(t)
	ctx := context.Background()

	month := core.MonthKey(time.Now())
	if err := repo.CreateBudget(ctx, core.Budget{
		Owner: "alice", Category: "groceries", Month: month,
		Limit: core.Money{Cents: 10000},
	}); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}

	rec := doRequest(t, s, http.MethodPost, "/api/v1/transactions", "alice", transactionRequest{
		Direction:   "debit",
		AmountCents: 1250,
		Category:    "groceries",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}

	created := decodeBody[transactionResponse](t, rec)
	if created.ID == 0 || created.AmountCents != 1250 {
		t.Errorf("unexpected response %+v", created)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/v1/budgets", "alice", nil)
	budgets := decodeBody[[]budgetResponse](t, rec)
	if len(budgets) != 1 || budgets[0].SpentCents != 1250 {
		t.Errorf("budgets = %+v, want one with spent 1250", budgets)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		req  transactionRequest
	}{
		{"zero amount", transactionRequest{Direction: "debit", Category: "x"}},
		{"negative amount", transactionRequest{Direction: "debit", AmountCents: -5, Category: "x"}},
		{"bad direction", transactionRequest{Direction: "sideways", AmountCents: 100, Category: "x"}},
		{"missing category", transactionRequest{Direction: "debit", AmountCents: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/api/v1/transactions", "alice", tt.req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestGetTransactionNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/transactions/999", "alice", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestTransactionOwnerIsolation(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/transactions", "alice", transactionRequest{
		Direction: "debit", AmountCents: 500, Category: "misc",
	})
	created := decodeBody[transactionResponse](t, rec)

	rec = doRequest(t, s, http.MethodGet, fmt.Sprintf("/api/v1/transactions/%d", created.ID), "bob", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-owner read status = %d, want 404", rec.Code)
	}
	rec = doRequest(t, s, http.MethodDelete, fmt.Sprintf("/api/v1/transactions/%d", created.ID), "bob", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-owner delete status = %d, want 404", rec.Code)
	}
}

func TestUpdateTransactionMovesBudgetSpend(t *testing.T) {
	s, repo := newTestServer(t)
	ctx := context.Background()

	month := core.MonthKey(time.Now())
	for _, category := range []string{"groceries", "dining"} {
		if err := repo.CreateBudget(ctx, core.Budget{
			Owner: "alice", Category: category, Month: month,
			Limit: core.Money{Cents: 10000},
		}); err != nil {
			t.Fatalf("CreateBudget(%s): %v", category, err)
		}
	}

	rec := doRequest(t, s, http.MethodPost, "/api/v1/transactions", "alice", transactionRequest{
		Direction: "debit", AmountCents: 2000, Category: "groceries",
	})
	created := decodeBody[transactionResponse](t, rec)

	newCategory := "dining"
	rec = doRequest(t, s, http.MethodPatch, fmt.Sprintf("/api/v1/transactions/%d", created.ID), "alice",
		transactionPatchRequest{Category: &newCategory})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d; body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, http.MethodGet, "/api/v1/budgets", "alice", nil)
	budgets := decodeBody[[]budgetResponse](t, rec)
	spent := map[string]int64{}
	for _, b := range budgets {
		spent[b.Category] = b.SpentCents
	}
	if spent["groceries"] != 0 || spent["dining"] != 2000 {
		t.Errorf("spent = %v, want groceries 0 and dining 2000", spent)
	}
}

func TestPocketTransferFlow(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/pockets", "alice", pocketRequest{Name: "main"})
	main := decodeBody[pocketResponse](t, rec)
	rec = doRequest(t, s, http.MethodPost, "/api/v1/pockets", "alice", pocketRequest{Name: "savings"})
	savings := decodeBody[pocketResponse](t, rec)

	rec = doRequest(t, s, http.MethodPost, fmt.Sprintf("/api/v1/pockets/%d/add", main.ID), "alice",
		amountRequest{AmountCents: 5000})
	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d; body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, http.MethodPost, "/api/v1/transfers", "alice", transferRequest{
		FromPocket: main.ID, ToPocket: savings.ID, AmountCents: 3000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("transfer status = %d; body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, http.MethodGet, fmt.Sprintf("/api/v1/pockets/%d", main.ID), "alice", nil)
	if got := decodeBody[pocketResponse](t, rec); got.BalanceCents != 2000 {
		t.Errorf("main balance = %d, want 2000", got.BalanceCents)
	}
	rec = doRequest(t, s, http.MethodGet, fmt.Sprintf("/api/v1/pockets/%d", savings.ID), "alice", nil)
	if got := decodeBody[pocketResponse](t, rec); got.BalanceCents != 3000 {
		t.Errorf("savings balance = %d, want 3000", got.BalanceCents)
	}
}

func TestPocketTransferInsufficientBalance(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/pockets", "alice", pocketRequest{Name: "main"})
	main := decodeBody[pocketResponse](t, rec)
	rec = doRequest(t, s, http.MethodPost, "/api/v1/pockets", "alice", pocketRequest{Name: "savings"})
	savings := decodeBody[pocketResponse](t, rec)

	rec = doRequest(t, s, http.MethodPost, "/api/v1/transfers", "alice", transferRequest{
		FromPocket: main.ID, ToPocket: savings.ID, AmountCents: 100,
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestDueSettleFlow(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/dues", "alice", dueRequest{
		Counterparty: "Marco", Direction: "owed_to_me", AmountCents: 4500, DueDate: "2026-09-10",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d; body %s", rec.Code, rec.Body.String())
	}
	due := decodeBody[dueResponse](t, rec)

	rec = doRequest(t, s, http.MethodPost, fmt.Sprintf("/api/v1/dues/%d/settle", due.ID), "alice", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("settle status = %d, want 200", rec.Code)
	}

	// A settled item cannot be settled again.
	rec = doRequest(t, s, http.MethodPost, fmt.Sprintf("/api/v1/dues/%d/settle", due.ID), "alice", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second settle status = %d, want 404", rec.Code)
	}
}

func TestScheduleRoundTrip(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/schedule", "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if got := decodeBody[scheduleResponse](t, rec); got.BriefTime != core.DefaultBriefTime {
		t.Errorf("default brief_time = %q, want %q", got.BriefTime, core.DefaultBriefTime)
	}

	rec = doRequest(t, s, http.MethodPut, "/api/v1/schedule", "alice", scheduleRequest{
		BriefTime: "07:30", BudgetAlerts: true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d; body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, http.MethodGet, "/api/v1/schedule", "alice", nil)
	got := decodeBody[scheduleResponse](t, rec)
	if got.BriefTime != "07:30" || !got.BudgetAlerts || got.DuesReminders {
		t.Errorf("schedule = %+v, want 07:30/alerts on/reminders off", got)
	}
}

func TestScheduleRejectsInvalidBriefTime(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPut, "/api/v1/schedule", "alice", scheduleRequest{BriefTime: "25:00"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestTriggerBrief(t *testing.T) {
	s, repo := newTestServer(t)

	if err := repo.UpsertUser(context.Background(), core.User{
		ID: "alice", Name: "Alice", Role: core.RoleMember,
	}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	rec := doRequest(t, s, http.MethodPost, "/api/v1/insights/brief", "alice", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
	}

	// Unknown users cannot trigger a brief.
	rec = doRequest(t, s, http.MethodPost, "/api/v1/insights/brief", "ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown user status = %d, want 404", rec.Code)
	}
}

func TestCreateBudgetDuplicateConflict(t *testing.T) {
	s, _ := newTestServer(t)

	req := budgetRequest{Category: "groceries", Month: "2026-03", LimitCents: 50000}
	rec := doRequest(t, s, http.MethodPost, "/api/v1/budgets", "alice", req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first create status = %d, want 201", rec.Code)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/v1/budgets", "alice", req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate create status = %d, want 409", rec.Code)
	}

	// Same bucket for another owner is fine.
	rec = doRequest(t, s, http.MethodPost, "/api/v1/budgets", "bob", req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("other owner create status = %d, want 201", rec.Code)
	}
}
