package core

import (
	"fmt"
	"strings"
)

// DefaultLimit is the page size used when a query omits or garbles its limit.
const DefaultLimit = 50

// DateRange is an inclusive span of days.
type DateRange struct {
	Start Date
	End   Date
}

// NewDateRange returns a range only when both bounds are present.
// A single bound means no date filter at all.
func NewDateRange(start, end *Date) *DateRange {
	if start == nil || end == nil {
		return nil
	}
	return &DateRange{Start: *start, End: *end}
}

func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start.Time) && !d.After(r.End.Time)
}

func (r DateRange) String() string {
	return r.Start.String() + ".." + r.End.String()
}

// ExpenseFilter selects a page of one owner's expenses.
type ExpenseFilter struct {
	Range    *DateRange
	Category Category // empty matches any
	Search   string   // case-insensitive substring of the description
	Limit    int
	Offset   int
}

// Normalized fills in the default page window.
func (f ExpenseFilter) Normalized() ExpenseFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Matches reports whether e passes every predicate of f. Paging is not applied.
func (f ExpenseFilter) Matches(e Expense) bool {
	if f.Range != nil && !f.Range.Contains(e.Date) {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(e.Description), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// SummaryFilter restricts the records fed to an aggregation.
type SummaryFilter struct {
	Range *DateRange
}

func (f SummaryFilter) Matches(e Expense) bool {
	return f.Range == nil || f.Range.Contains(e.Date)
}

// Key is a stable textual form of the filter, suitable for cache keys.
func (f SummaryFilter) Key() string {
	if f.Range == nil {
		return "all"
	}
	return f.Range.String()
}

// GroupField names the attribute an aggregation groups by.
type GroupField int

const (
	GroupByCategory GroupField = iota + 1
)

func (g GroupField) String() string {
	switch g {
	case GroupByCategory:
		return "category"
	default:
		return fmt.Sprintf("GroupField(%d)", int(g))
	}
}

// SumField names the attribute an aggregation sums.
type SumField int

const (
	SumAmount SumField = iota + 1
)

func (s SumField) String() string {
	switch s {
	case SumAmount:
		return "amount"
	default:
		return fmt.Sprintf("SumField(%d)", int(s))
	}
}
