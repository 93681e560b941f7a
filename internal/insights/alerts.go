package insights

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"moneta/internal/core"
	"moneta/internal/log"
	"moneta/internal/notify"
)

// Severity classifies a budget's consumption level.
type Severity string

const (
	SeverityNone     Severity = ""
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AlertSeverity maps a usage ratio to an alert band. The bands are mutually
// exclusive and critical wins: a 92% budget is critical, never also warning.
func AlertSeverity(usage float64) Severity {
	switch {
	case usage >= 0.90:
		return SeverityCritical
	case usage >= 0.75:
		return SeverityWarning
	default:
		return SeverityNone
	}
}

// RunBudgetAlertCheck scans every user's current-month budgets and emits at
// most one alert per budget per run. Returns how many alerts were dispatched.
func (e *Engine) RunBudgetAlertCheck(ctx context.Context, now time.Time) (int, error) {
	users, err := e.repo.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	month := core.MonthKey(now)
	var dispatched int64
	g := &errgroup.Group{}
	g.SetLimit(e.concurrency)

	for _, user := range users {
		g.Go(func() error {
			cfg, err := e.scheduleConfig(ctx, user.ID)
			if err != nil {
				e.logger.ErrorContext(ctx, "Failed to load schedule config",
					log.FieldOwner, user.ID, log.FieldError, err)
				return nil
			}
			if !cfg.BudgetAlerts {
				return nil
			}

			budgets, err := e.repo.ListBudgetsForMonth(ctx, user.ID, month)
			if err != nil {
				e.logger.ErrorContext(ctx, "Failed to list budgets",
					log.FieldOwner, user.ID, log.FieldError, err)
				return nil
			}

			for _, b := range budgets {
				severity := AlertSeverity(b.UsageRatio())
				if severity == SeverityNone {
					continue
				}
				if err := e.dispatch(ctx, budgetAlert(user.ID, b, severity)); err != nil {
					fields := log.NewFields().
						WithOperation(log.OpDispatch).
						WithOwner(user.ID).
						WithBudgetBucket(b.Category, b.Month).
						WithError(err)
					e.logger.ErrorContext(ctx, "Failed to dispatch budget alert", fields.ToSlice()...)
					continue
				}
				atomic.AddInt64(&dispatched, 1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(atomic.LoadInt64(&dispatched)), err
	}

	n := int(atomic.LoadInt64(&dispatched))
	e.logger.InfoContext(ctx, "Budget alert check complete",
		log.FieldMonth, month, log.FieldUsers, len(users), log.FieldDispatched, n)
	return n, nil
}

func budgetAlert(owner string, b core.Budget, severity Severity) notify.Notification {
	usagePct := b.UsageRatio() * 100

	title := fmt.Sprintf("Budget warning: %s", b.Category)
	body := fmt.Sprintf("You have used %.0f%% of your %s budget (%s of %s).",
		usagePct, b.Category, formatCents(b.Spent.Cents), formatCents(b.Limit.Cents))
	if severity == SeverityCritical {
		title = fmt.Sprintf("Budget critical: %s", b.Category)
		if b.Spent.Cents > b.Limit.Cents {
			body = fmt.Sprintf("Your %s budget is over its limit: %s spent of %s.",
				b.Category, formatCents(b.Spent.Cents), formatCents(b.Limit.Cents))
		}
	}

	return notify.Notification{
		OwnerID: owner,
		Title:   title,
		Body:    body,
		Icon:    "budget_" + string(severity),
		Data: map[string]any{
			"kind":        "budget_alert",
			"severity":    string(severity),
			"category":    b.Category,
			"month":       b.Month,
			"limit_cents": b.Limit.Cents,
			"spent_cents": b.Spent.Cents,
			"usage_pct":   usagePct,
		},
	}
}
