package insights

import (
	"context"
	"fmt"
	"time"

	"moneta/internal/core"
	"moneta/internal/log"
	"moneta/internal/notify"
)

// duesLookahead is how far ahead the reminder check looks for pending dues.
const duesLookahead = 3 * 24 * time.Hour

// RunDuesReminderCheck reminds owners of pending dues falling due within the
// next three days. One reminder per item per run; a failed dispatch is
// logged and does not block the remaining items. Returns how many reminders
// were dispatched.
func (e *Engine) RunDuesReminderCheck(ctx context.Context, now time.Time) (int, error) {
	items, err := e.repo.ListPendingDuesBetween(ctx, now, now.Add(duesLookahead))
	if err != nil {
		return 0, fmt.Errorf("list pending dues: %w", err)
	}

	dispatched := 0
	for _, item := range items {
		cfg, err := e.scheduleConfig(ctx, item.Owner)
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to load schedule config",
				log.FieldOwner, item.Owner, log.FieldError, err)
			continue
		}
		if !cfg.DuesReminders {
			continue
		}

		if err := e.dispatch(ctx, dueReminder(item)); err != nil {
			e.logger.ErrorContext(ctx, "Failed to dispatch due reminder",
				log.FieldOwner, item.Owner,
				log.FieldDueID, item.ID,
				log.FieldError, err)
			continue
		}
		dispatched++
	}

	e.logger.InfoContext(ctx, "Dues reminder check complete",
		"pending", len(items), log.FieldDispatched, dispatched)
	return dispatched, nil
}

func dueReminder(item core.DueItem) notify.Notification {
	due := item.DueDate.Format("Jan 2")

	var title, body string
	if item.Direction == core.DueOwedToMe {
		title = "Money to collect"
		body = fmt.Sprintf("%s owes you %s, due %s.",
			item.Counterparty, formatCents(item.Amount.Cents), due)
	} else {
		title = "Payment due"
		body = fmt.Sprintf("You owe %s %s by %s.",
			item.Counterparty, formatCents(item.Amount.Cents), due)
	}

	return notify.Notification{
		OwnerID: item.Owner,
		Title:   title,
		Body:    body,
		Icon:    "due_reminder",
		Data: map[string]any{
			"kind":         "due_reminder",
			"due_id":       item.ID,
			"counterparty": item.Counterparty,
			"direction":    string(item.Direction),
			"amount_cents": item.Amount.Cents,
			"due_date":     item.DueDate.Format("2006-01-02"),
		},
	}
}
