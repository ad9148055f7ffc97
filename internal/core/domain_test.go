package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-03-15", "2024-03-15", true},
		{" 2024-03-15 ", "2024-03-15", true},
		{"2024-03-15T23:30:00Z", "2024-03-15", true},
		{"2024-03-15T23:30:00-02:00", "2024-03-16", true}, // UTC day
		{"15/03/2024", "", false},
		{"2024-02-30", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if !tc.ok {
			if err == nil {
				t.Fatalf("%q expected error, got %s", tc.in, d)
			}
			continue
		}
		if err != nil || d.String() != tc.want {
			t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, d, err)
		}
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, 1, 5))
	if err != nil || string(b) != `"2024-01-05"` {
		t.Fatalf("marshal: %s %v", b, err)
	}
	var d Date
	if err := json.Unmarshal([]byte(`"2024-07-09"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d != NewDate(2024, 7, 9) {
		t.Fatalf("unexpected date %s", d)
	}
	if err := json.Unmarshal([]byte(`42`), &d); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		got, err := ParseCategory(string(c))
		if err != nil || got != c {
			t.Fatalf("%s: got %s err=%v", c, got, err)
		}
	}
	for _, bad := range []string{"food", "FOOD", "Groceries", ""} {
		if _, err := ParseCategory(bad); !errors.Is(err, ErrInvalidCategory) {
			t.Fatalf("%q expected ErrInvalidCategory, got %v", bad, err)
		}
	}
}

func TestNormalizeDescription(t *testing.T) {
	got, err := NormalizeDescription("  Coffee  ")
	if err != nil || got != "Coffee" {
		t.Fatalf("expected trimmed, got %q err=%v", got, err)
	}
	if _, err := NormalizeDescription("   "); !errors.Is(err, ErrEmptyDescription) {
		t.Fatalf("expected ErrEmptyDescription, got %v", err)
	}
	// counted in characters, not bytes
	if _, err := NormalizeDescription(strings.Repeat("è", MaxDescriptionLength)); err != nil {
		t.Fatalf("255 characters should pass: %v", err)
	}
	if _, err := NormalizeDescription(strings.Repeat("a", MaxDescriptionLength+1)); !errors.Is(err, ErrDescriptionTooLong) {
		t.Fatalf("expected ErrDescriptionTooLong, got %v", err)
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Owner:       "alice",
		Date:        NewDate(2025, 1, 1),
		Description: "ok",
		Amount:      decimal.RequireFromString("1.00"),
		Category:    CategoryFood,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	zero := good
	zero.Amount = decimal.Zero
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero amount is allowed, got %v", err)
	}

	cases := map[string]func(e *Expense){
		"owner":       func(e *Expense) { e.Owner = " " },
		"amount":      func(e *Expense) { e.Amount = decimal.RequireFromString("-1") },
		"description": func(e *Expense) { e.Description = "" },
		"category":    func(e *Expense) { e.Category = "Misc" },
		"date":        func(e *Expense) { e.Date = Date{} },
	}
	for field, mutate := range cases {
		e := good
		mutate(&e)
		err := e.Validate()
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != field {
			t.Fatalf("%s: expected validation error on field, got %v", field, err)
		}
	}
}

func TestBudgetValidate(t *testing.T) {
	b := Budget{Owner: "alice", Month: "2024-03", Amount: decimal.NewFromInt(500)}
	if err := b.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	b.Month = "2024-13"
	if err := b.Validate(); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !(Budget{}).IsPlaceholder() {
		t.Fatalf("budget without id should be a placeholder")
	}
}

func TestMonthKey(t *testing.T) {
	// 23:30 on Jan 31 at UTC-2 is already February in UTC
	loc := time.FixedZone("x", -2*3600)
	if got := MonthOf(time.Date(2024, 1, 31, 23, 30, 0, 0, loc)); got != "2024-02" {
		t.Fatalf("expected 2024-02, got %s", got)
	}
	r, err := MonthKey("2024-02").Range()
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if r.Start != NewDate(2024, 2, 1) || r.End != NewDate(2024, 2, 29) {
		t.Fatalf("unexpected range %s", r)
	}
	if _, err := ParseMonthKey("2024-3"); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}
