package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseInput carries client-supplied expense fields. A nil field was not supplied.
type ExpenseInput struct {
	Amount      *decimal.Decimal
	Description *string
	Category    *Category
	Date        *Date
}

// ValidateCreate requires amount, description and category. Date is optional.
func (in ExpenseInput) ValidateCreate() error {
	if in.Amount == nil {
		return Invalid("amount", ErrMissingField)
	}
	if in.Description == nil {
		return Invalid("description", ErrMissingField)
	}
	if in.Category == nil {
		return Invalid("category", ErrMissingField)
	}
	return in.ValidateUpdate()
}

// ValidateUpdate checks only the supplied fields.
func (in ExpenseInput) ValidateUpdate() error {
	if in.Amount != nil {
		if err := ValidateAmount(RoundAmount(*in.Amount)); err != nil {
			return Invalid("amount", err)
		}
	}
	if in.Description != nil {
		if _, err := NormalizeDescription(*in.Description); err != nil {
			return Invalid("description", err)
		}
	}
	if in.Category != nil && !in.Category.Valid() {
		return Invalid("category", ErrInvalidCategory)
	}
	if in.Date != nil {
		if err := in.Date.Validate(); err != nil {
			return Invalid("date", err)
		}
	}
	return nil
}

// Normalized rounds the amount and trims the description. Call after validation.
func (in ExpenseInput) Normalized() ExpenseInput {
	if in.Amount != nil {
		a := RoundAmount(*in.Amount)
		in.Amount = &a
	}
	if in.Description != nil {
		d, err := NormalizeDescription(*in.Description)
		if err == nil {
			in.Description = &d
		}
	}
	return in
}

// Apply overwrites the supplied fields of e and stamps UpdatedAt.
func (in ExpenseInput) Apply(e Expense, now time.Time) Expense {
	in = in.Normalized()
	if in.Amount != nil {
		e.Amount = *in.Amount
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.Category != nil {
		e.Category = *in.Category
	}
	if in.Date != nil {
		e.Date = *in.Date
	}
	e.UpdatedAt = now
	return e
}

// NewExpense builds a record from a validated create input. A missing date defaults to today.
func (in ExpenseInput) NewExpense(id, owner string, today Date) Expense {
	in = in.Normalized()
	e := Expense{
		ID:          id,
		Owner:       owner,
		Amount:      *in.Amount,
		Description: *in.Description,
		Category:    *in.Category,
		Date:        today,
	}
	if in.Date != nil {
		e.Date = *in.Date
	}
	return e
}
