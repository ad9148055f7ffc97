package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"expenses/internal/core"
)

func TestOwnerFromRequest(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"header wins", "alice", "alice"},
		{"trimmed", "  bob  ", "bob"},
		{"blank falls back", "   ", "household"},
		{"missing falls back", "", "household"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
			if tt.header != "" {
				req.Header.Set(HeaderOwner, tt.header)
			}
			if got := ownerFromRequest(req, "household"); got != tt.want {
				t.Errorf("ownerFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		name      string
		query     url.Values
		wantRange string // empty means no range
		wantField string // non-empty means a validation error on that field
	}{
		{"both bounds", url.Values{"startDate": {"2024-01-01"}, "endDate": {"2024-01-31"}}, "2024-01-01..2024-01-31", ""},
		{"only start is no filter", url.Values{"startDate": {"2024-01-01"}}, "", ""},
		{"only end is no filter", url.Values{"endDate": {"2024-01-31"}}, "", ""},
		{"none", url.Values{}, "", ""},
		{"malformed start", url.Values{"startDate": {"01/02/2024"}, "endDate": {"2024-01-31"}}, "", "startDate"},
		{"malformed lone end", url.Values{"endDate": {"2024-02-30"}}, "", "endDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseDateRange(tt.query)
			if tt.wantField != "" {
				var ve *core.ValidationError
				if !errors.As(err, &ve) || ve.Field != tt.wantField {
					t.Fatalf("ParseDateRange() error = %v, want validation error on %s", err, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDateRange() error = %v", err)
			}
			got := ""
			if r != nil {
				got = r.String()
			}
			if got != tt.wantRange {
				t.Errorf("range = %q, want %q", got, tt.wantRange)
			}
		})
	}
}

func TestParseExpenseFilter(t *testing.T) {
	q := url.Values{
		"category": {" Food "},
		"search":   {"  coffee\x00 "},
		"limit":    {"10"},
		"offset":   {"abc"},
	}
	f, err := ParseExpenseFilter(q)
	if err != nil {
		t.Fatalf("ParseExpenseFilter() error = %v", err)
	}
	if f.Category != core.CategoryFood {
		t.Errorf("Category = %q", f.Category)
	}
	if f.Search != "  coffee " {
		t.Errorf("Search = %q", f.Search)
	}
	if f.Limit != 10 || f.Offset != 0 {
		t.Errorf("Limit/Offset = %d/%d", f.Limit, f.Offset)
	}

	f, err = ParseExpenseFilter(url.Values{"search": {" "}})
	if err != nil {
		t.Fatalf("ParseExpenseFilter() error = %v", err)
	}
	if f.Search != " " {
		t.Errorf("blank search = %q, want a single space kept as a filter", f.Search)
	}

	f, err = ParseExpenseFilter(url.Values{"limit": {"-5"}})
	if err != nil {
		t.Fatalf("ParseExpenseFilter() error = %v", err)
	}
	if f.Limit != core.DefaultLimit {
		t.Errorf("Limit = %d, want default %d", f.Limit, core.DefaultLimit)
	}
}

func TestParseAmountField(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string // empty means nil
		wantErr bool
	}{
		{"number", `12.5`, "12.50", false},
		{"string", `"12,345"`, "12.35", false},
		{"null", `null`, "", false},
		{"absent", ``, "", false},
		{"negative", `-3`, "", true},
		{"garbage string", `"twelve"`, "", true},
		{"boolean", `true`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAmountField(json.RawMessage(tt.raw))
			if tt.wantErr {
				var ve *core.ValidationError
				if !errors.As(err, &ve) || ve.Field != "amount" {
					t.Fatalf("parseAmountField() error = %v, want amount validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseAmountField() error = %v", err)
			}
			switch {
			case tt.want == "" && got != nil:
				t.Errorf("parseAmountField() = %v, want nil", got)
			case tt.want != "" && (got == nil || got.StringFixed(2) != tt.want):
				t.Errorf("parseAmountField() = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestExpenseRequestToInput(t *testing.T) {
	var req expenseRequest
	body := `{"amount": 4.5, "description": " Morning Coffee ", "category": "Food", "date": "2024-03-01"}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatal(err)
	}
	in, err := req.toInput()
	if err != nil {
		t.Fatalf("toInput() error = %v", err)
	}
	if in.Amount == nil || in.Amount.StringFixed(2) != "4.50" {
		t.Errorf("Amount = %v", in.Amount)
	}
	if in.Description == nil || *in.Description != "Morning Coffee" {
		t.Errorf("Description = %v", in.Description)
	}
	if in.Category == nil || *in.Category != core.CategoryFood {
		t.Errorf("Category = %v", in.Category)
	}
	if in.Date == nil || in.Date.String() != "2024-03-01" {
		t.Errorf("Date = %v", in.Date)
	}

	partial := expenseRequest{Date: new(string)}
	*partial.Date = "yesterday"
	if _, err := partial.toInput(); !core.IsValidation(err) {
		t.Errorf("toInput() error = %v, want validation error", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"object", `{"amount": 1}`, false},
		{"empty", ``, true},
		{"whitespace", "  \n", true},
		{"malformed", `{"amount":`, true},
		{"too large", `{"description":"` + strings.Repeat("x", maxBodyBytes) + `"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(tt.body))
			var v budgetRequest
			err := decodeJSON(req, &v)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !core.IsValidation(err) {
				t.Errorf("decodeJSON() error = %v, want validation error", err)
			}
		})
	}
}
