package core

import (
	"testing"
	"time"
)

func TestMonthKey(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{"mid month", time.Date(2025, 11, 15, 10, 30, 0, 0, time.UTC), "2025-11"},
		{"first instant of a month", time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), "2025-11"},
		{"last instant of a month", time.Date(2025, 11, 30, 23, 59, 59, 0, time.UTC), "2025-11"},
		{"single digit month is zero padded", time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), "2026-02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MonthKey(tt.date); got != tt.want {
				t.Errorf("MonthKey(%v) = %q, want %q", tt.date, got, tt.want)
			}
		})
	}
}

func TestPriorDay(t *testing.T) {
	now := time.Date(2025, 11, 1, 20, 15, 0, 0, time.UTC)
	got := PriorDay(now)
	want := time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("PriorDay(%v) = %v, want %v", now, got, want)
	}
}

func TestDayStart(t *testing.T) {
	now := time.Date(2025, 11, 3, 20, 15, 42, 12, time.UTC)
	got := DayStart(now)
	want := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DayStart(%v) = %v, want %v", now, got, want)
	}
}
