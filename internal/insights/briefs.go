package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"moneta/internal/core"
	"moneta/internal/log"
	"moneta/internal/notify"
)

// RunBriefCheck scans every user and generates a brief for those whose
// configured hour matches the current hour. Only the hour component is
// compared, so with an hourly tick each user gets exactly one brief per day.
// Per-user failures are logged and isolated; the batch always completes.
// Returns how many briefs were dispatched.
func (e *Engine) RunBriefCheck(ctx context.Context, now time.Time) (int, error) {
	users, err := e.repo.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

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

			hour, _, err := core.ParseTimeOfDay(cfg.BriefTime)
			if err != nil {
				// Malformed config means "never fires", not a cycle failure.
				e.logger.WarnContext(ctx, "Invalid brief time, skipping user",
					log.FieldOwner, user.ID, "brief_time", cfg.BriefTime)
				return nil
			}
			if hour != now.Hour() {
				return nil
			}

			brief, err := e.GenerateBrief(ctx, user, now)
			if err != nil {
				e.logger.ErrorContext(ctx, "Failed to generate brief",
					log.FieldOwner, user.ID, log.FieldError, err)
				return nil
			}

			if err := e.dispatch(ctx, brief); err != nil {
				e.logger.ErrorContext(ctx, "Failed to dispatch brief",
					log.FieldOperation, log.OpDispatch,
					log.FieldOwner, user.ID, log.FieldError, err)
				return nil
			}
			atomic.AddInt64(&dispatched, 1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(atomic.LoadInt64(&dispatched)), err
	}

	n := int(atomic.LoadInt64(&dispatched))
	e.logger.InfoContext(ctx, "Brief check complete",
		log.FieldUsers, len(users), log.FieldDispatched, n)
	return n, nil
}

// GenerateBrief builds the brief for one user: a family brief for admins in
// a family, a personal brief for everyone else. The manual trigger endpoint
// calls this directly.
func (e *Engine) GenerateBrief(ctx context.Context, user core.User, now time.Time) (notify.Notification, error) {
	if user.Role == core.RoleAdmin && user.FamilyID != "" {
		return e.familyBrief(ctx, user, now)
	}
	return e.personalBrief(ctx, user, now)
}

func (e *Engine) personalBrief(ctx context.Context, user core.User, now time.Time) (notify.Notification, error) {
	yesterday := core.PriorDay(now)

	spent, income, err := e.repo.DayTotals(ctx, user.ID, yesterday)
	if err != nil {
		return notify.Notification{}, err
	}

	top, err := e.repo.TopCategories(ctx, user.ID, yesterday, 3)
	if err != nil {
		return notify.Notification{}, err
	}

	limitCents, spentCents, err := e.repo.MonthBudgetTotals(ctx, user.ID, core.MonthKey(now))
	if err != nil {
		return notify.Notification{}, err
	}
	var usagePct float64
	if limitCents > 0 {
		usagePct = float64(spentCents) / float64(limitCents) * 100
	}

	goals, err := e.repo.ListGoals(ctx, user.ID)
	if err != nil {
		return notify.Notification{}, err
	}
	goalsOnTrack := 0
	for _, g := range goals {
		if g.Progress() >= 0.5 {
			goalsOnTrack++
		}
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("Yesterday: spent %s, received %s.", formatCents(spent), formatCents(income)))
	if len(top) > 0 {
		names := make([]string, len(top))
		for i, ct := range top {
			names[i] = fmt.Sprintf("%s (%s)", ct.Category, formatCents(ct.Cents))
		}
		lines = append(lines, "Top categories: "+strings.Join(names, ", ")+".")
	}
	if limitCents > 0 {
		lines = append(lines, fmt.Sprintf("Month-to-date budget usage: %.0f%%.", usagePct))
	}
	if goalsOnTrack > 0 {
		lines = append(lines, fmt.Sprintf("%d goal(s) at or past the halfway mark.", goalsOnTrack))
	}

	topCategories := make([]map[string]any, len(top))
	for i, ct := range top {
		topCategories[i] = map[string]any{"category": ct.Category, "amount_cents": ct.Cents}
	}

	return notify.Notification{
		OwnerID: user.ID,
		Title:   "Your daily brief",
		Body:    strings.Join(lines, " "),
		Icon:    "brief",
		Data: map[string]any{
			"kind":             "personal_brief",
			"day":              yesterday.Format("2006-01-02"),
			"spent_cents":      spent,
			"income_cents":     income,
			"top_categories":   topCategories,
			"budget_usage_pct": usagePct,
			"goals_on_track":   goalsOnTrack,
		},
	}, nil
}

func (e *Engine) familyBrief(ctx context.Context, admin core.User, now time.Time) (notify.Notification, error) {
	yesterday := core.PriorDay(now)

	members, err := e.repo.MemberDayTotals(ctx, admin.FamilyID, yesterday)
	if err != nil {
		return notify.Notification{}, err
	}

	sharedTotal, err := e.repo.FamilySharedTotal(ctx, admin.FamilyID, yesterday)
	if err != nil {
		return notify.Notification{}, err
	}

	joined, err := e.repo.MembersJoinedOn(ctx, admin.FamilyID, yesterday)
	if err != nil {
		return notify.Notification{}, err
	}

	var total int64
	ranking := make([]map[string]any, len(members))
	for i, m := range members {
		total += m.Cents
		ranking[i] = map[string]any{"owner_id": m.Owner, "name": m.Name, "spent_cents": m.Cents}
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("Family spent %s yesterday, %s of it on shared expenses.",
		formatCents(total), formatCents(sharedTotal)))
	// MemberDayTotals orders by spend, so the head of the list is the top spender.
	if len(members) > 0 && members[0].Cents > 0 {
		lines = append(lines, fmt.Sprintf("Top spender: %s (%s).", members[0].Name, formatCents(members[0].Cents)))
	}
	if len(joined) > 0 {
		names := make([]string, len(joined))
		for i, u := range joined {
			names[i] = u.Name
		}
		lines = append(lines, "New member(s): "+strings.Join(names, ", ")+".")
	}

	data := map[string]any{
		"kind":               "family_brief",
		"day":                yesterday.Format("2006-01-02"),
		"family_id":          admin.FamilyID,
		"total_spent_cents":  total,
		"shared_spent_cents": sharedTotal,
		"ranking":            ranking,
		"joined_yesterday":   len(joined),
	}

	goal, err := e.repo.PriorityGoal(ctx, admin.ID)
	switch {
	case err == nil:
		lines = append(lines, fmt.Sprintf("Priority goal %q at %.0f%%.", goal.Name, goal.Progress()*100))
		data["priority_goal"] = map[string]any{"name": goal.Name, "progress": goal.Progress()}
	case errors.Is(err, core.ErrNotFound):
		// no priority goal, nothing to report
	default:
		return notify.Notification{}, err
	}

	return notify.Notification{
		OwnerID: admin.ID,
		Title:   "Family daily brief",
		Body:    strings.Join(lines, " "),
		Icon:    "family_brief",
		Data:    data,
	}, nil
}
