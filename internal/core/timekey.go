// Package core holds the domain model shared by the ledger, pocket and
// insight services.
//
// This file contains the calendar helpers. MonthKey is deliberately the only
// way a date turns into a budget bucket key: apply and revert must agree on
// the bucket even when an edit moves a transaction across a month boundary.
package core

import "time"

// MonthKey returns the "YYYY-MM" budget bucket key for a date.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// DayStart truncates a time to midnight in its own location.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// PriorDay returns midnight of the day before t. Briefs summarize this day.
func PriorDay(t time.Time) time.Time {
	return DayStart(t).AddDate(0, 0, -1)
}
