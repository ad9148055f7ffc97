package http

import (
	"strings"
	"time"

	"expenses/internal/core"

	"github.com/shopspring/decimal"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	return stripControl(strings.TrimSpace(s))
}

// stripControl drops control characters other than tab, CR and LF.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// budgetResponse renders a stored budget in full and a placeholder as {"amount":0}.
type budgetResponse struct {
	ID        string          `json:"id,omitempty"`
	Owner     string          `json:"owner,omitempty"`
	Month     string          `json:"month,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	if b.IsPlaceholder() {
		return budgetResponse{Amount: b.Amount}
	}
	return budgetResponse{
		ID:        b.ID,
		Owner:     b.Owner,
		Month:     b.Month.String(),
		Amount:    b.Amount,
		CreatedAt: &b.CreatedAt,
		UpdatedAt: &b.UpdatedAt,
	}
}

// nonNil keeps empty collections rendering as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
