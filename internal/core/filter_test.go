package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewDateRangeNeedsBothBounds(t *testing.T) {
	start, end := NewDate(2024, 1, 1), NewDate(2024, 1, 31)
	if NewDateRange(&start, nil) != nil || NewDateRange(nil, &end) != nil {
		t.Fatalf("single bound must not produce a range")
	}
	r := NewDateRange(&start, &end)
	if r == nil || !r.Contains(start) || !r.Contains(end) {
		t.Fatalf("bounds are inclusive")
	}
	if r.Contains(NewDate(2024, 2, 1)) {
		t.Fatalf("day after end must be excluded")
	}
}

func TestExpenseFilterNormalized(t *testing.T) {
	cases := []struct {
		in             ExpenseFilter
		limit, offset int
	}{
		{ExpenseFilter{}, DefaultLimit, 0},
		{ExpenseFilter{Limit: 10, Offset: 5}, 10, 5},
		{ExpenseFilter{Limit: -3, Offset: -1}, DefaultLimit, 0},
	}
	for i, tc := range cases {
		got := tc.in.Normalized()
		if got.Limit != tc.limit || got.Offset != tc.offset {
			t.Fatalf("case %d: got limit=%d offset=%d", i, got.Limit, got.Offset)
		}
	}
}

func TestExpenseFilterMatches(t *testing.T) {
	e := Expense{Description: "Weekly Groceries", Category: CategoryFood, Date: NewDate(2024, 1, 10)}
	start, end := NewDate(2024, 1, 1), NewDate(2024, 1, 10)
	cases := []struct {
		f    ExpenseFilter
		want bool
	}{
		{ExpenseFilter{}, true},
		{ExpenseFilter{Search: "grocer"}, true},
		{ExpenseFilter{Search: "GROCER"}, true},
		{ExpenseFilter{Search: "rent"}, false},
		{ExpenseFilter{Category: CategoryFood}, true},
		{ExpenseFilter{Category: CategoryHousing}, false},
		{ExpenseFilter{Range: NewDateRange(&start, &end)}, true},
		{ExpenseFilter{Range: NewDateRange(&end, &end)}, true},
		{ExpenseFilter{Range: NewDateRange(&start, &start)}, false},
	}
	for i, tc := range cases {
		if got := tc.f.Matches(e); got != tc.want {
			t.Fatalf("case %d: expected %v", i, tc.want)
		}
	}
}

func TestSortCategoryTotals(t *testing.T) {
	totals := []CategoryTotal{
		{Category: CategoryOther, Total: decimal.NewFromInt(5)},
		{Category: CategoryFood, Total: decimal.NewFromInt(10)},
		{Category: CategoryEntertainment, Total: decimal.NewFromInt(5)},
		{Category: CategoryHousing, Total: decimal.NewFromInt(700)},
	}
	SortCategoryTotals(totals)
	want := []Category{CategoryHousing, CategoryFood, CategoryEntertainment, CategoryOther}
	for i, c := range want {
		if totals[i].Category != c {
			t.Fatalf("position %d: expected %s, got %s", i, c, totals[i].Category)
		}
	}
}

func TestNewBudgetStatus(t *testing.T) {
	s := NewBudgetStatus("2024-03", decimal.NewFromInt(100), decimal.RequireFromString("120.50"))
	if !s.Exceeded || !s.Remaining.Equal(decimal.RequireFromString("-20.5")) {
		t.Fatalf("unexpected status %+v", s)
	}
	s = NewBudgetStatus("2024-03", decimal.NewFromInt(100), decimal.NewFromInt(100))
	if s.Exceeded || !s.Remaining.IsZero() {
		t.Fatalf("spending exactly the budget is not exceeding it: %+v", s)
	}
}

func TestExpenseInput(t *testing.T) {
	amount := decimal.RequireFromString("3.456")
	desc := "  Bus  "
	cat := CategoryTransport
	in := ExpenseInput{Amount: &amount, Description: &desc, Category: &cat}
	if err := in.ValidateCreate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	e := in.NewExpense("id-1", "alice", NewDate(2024, 5, 1))
	if e.Description != "Bus" || !e.Amount.Equal(decimal.RequireFromString("3.46")) || e.Date != NewDate(2024, 5, 1) {
		t.Fatalf("unexpected expense %+v", e)
	}

	if err := (ExpenseInput{Description: &desc, Category: &cat}).ValidateCreate(); !IsValidation(err) {
		t.Fatalf("missing amount must fail, got %v", err)
	}
	if err := (ExpenseInput{}).ValidateUpdate(); err != nil {
		t.Fatalf("empty update is valid, got %v", err)
	}
	bad := Category("Snacks")
	if err := (ExpenseInput{Category: &bad}).ValidateUpdate(); !IsValidation(err) {
		t.Fatalf("bad category must fail, got %v", err)
	}
}
