package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryTotal is the summed amount of one category.
type CategoryTotal struct {
	Category Category        `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// BudgetStatus compares a month's budget with what was spent in it.
type BudgetStatus struct {
	Month     MonthKey        `json:"month"`
	Budget    decimal.Decimal `json:"budget"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Exceeded  bool            `json:"exceeded"`
}

// NewBudgetStatus derives the remaining amount. Remaining goes negative once spending passes the budget.
func NewBudgetStatus(month MonthKey, budget, spent decimal.Decimal) BudgetStatus {
	remaining := budget.Sub(spent)
	return BudgetStatus{
		Month:     month,
		Budget:    budget,
		Spent:     spent,
		Remaining: remaining,
		Exceeded:  remaining.IsNegative(),
	}
}

// SortCategoryTotals orders totals by amount descending, then category name ascending.
func SortCategoryTotals(totals []CategoryTotal) {
	sort.SliceStable(totals, func(i, j int) bool {
		if c := totals[i].Total.Cmp(totals[j].Total); c != 0 {
			return c > 0
		}
		return totals[i].Category < totals[j].Category
	})
}
