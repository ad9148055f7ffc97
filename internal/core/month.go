package core

import (
	"strings"
	"time"
)

const monthLayout = "2006-01"

// MonthKey identifies a calendar month as YYYY-MM.
type MonthKey string

// MonthOf returns the UTC month containing t.
func MonthOf(t time.Time) MonthKey {
	return MonthKey(t.UTC().Format(monthLayout))
}

func ParseMonthKey(s string) (MonthKey, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return "", ErrInvalidMonth
	}
	return MonthOf(t), nil
}

func (m MonthKey) String() string {
	return string(m)
}

// Range returns the first and last day of the month, both inclusive.
func (m MonthKey) Range() (DateRange, error) {
	t, err := time.Parse(monthLayout, string(m))
	if err != nil {
		return DateRange{}, ErrInvalidMonth
	}
	start := DateOf(t)
	end := DateOf(t.AddDate(0, 1, -1))
	return DateRange{Start: start, End: end}, nil
}
