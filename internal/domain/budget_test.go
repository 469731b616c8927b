package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseBudgetPeriod(t *testing.T) {
	tests := []struct {
		in   string
		want BudgetPeriod
	}{
		{"", BudgetDaily},
		{"day", BudgetDaily},
		{"daily", BudgetDaily},
		{"month", BudgetMonthly},
		{"monthly", BudgetMonthly},
	}
	for _, tc := range tests {
		got, err := ParseBudgetPeriod(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("ParseBudgetPeriod(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}

	if _, err := ParseBudgetPeriod("total"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestBudgetPeriod_Bounds(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC.
	loc := time.FixedZone("EST", -5*3600)
	at := time.Date(2026, 12, 31, 23, 30, 0, 0, loc)

	start, end := BudgetDaily.Bounds(at)
	if !start.Equal(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("daily bounds: %v - %v", start, end)
	}

	start, end = BudgetMonthly.Bounds(time.Date(2026, 12, 10, 0, 0, 0, 0, time.UTC))
	if !start.Equal(time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("monthly bounds: %v - %v", start, end)
	}
}
