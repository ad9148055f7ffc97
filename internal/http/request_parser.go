// Package http exposes the expense, summary and budget operations as a JSON API.
//
// This file turns query strings and JSON bodies into core filter and input
// values. Field errors are reported as core.ValidationError so the response
// builder can map them to 400.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"expenses/internal/core"

	"github.com/shopspring/decimal"
)

// HeaderOwner carries the owner key of the caller.
const HeaderOwner = "X-User-ID"

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// ownerFromRequest returns the X-User-ID header, or fallback when it is blank.
func ownerFromRequest(r *http.Request, fallback string) string {
	if owner := strings.TrimSpace(sanitizeInput(r.Header.Get(HeaderOwner))); owner != "" {
		return owner
	}
	return fallback
}

// ParseDateRange reads startDate and endDate. Both must be present for a
// range to apply; a malformed value is an error even when the other is missing.
func ParseDateRange(query url.Values) (*core.DateRange, error) {
	start, err := optionalDate(query, "startDate")
	if err != nil {
		return nil, err
	}
	end, err := optionalDate(query, "endDate")
	if err != nil {
		return nil, err
	}
	return core.NewDateRange(start, end), nil
}

func optionalDate(query url.Values, key string) (*core.Date, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return nil, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return nil, core.Invalid(key, err)
	}
	return &d, nil
}

// ParseExpenseFilter builds the list filter from the query string.
// Unparseable limit/offset fall back to the defaults.
func ParseExpenseFilter(query url.Values) (core.ExpenseFilter, error) {
	r, err := ParseDateRange(query)
	if err != nil {
		return core.ExpenseFilter{}, err
	}
	return core.ExpenseFilter{
		Range:    r,
		Category: core.Category(strings.TrimSpace(query.Get("category"))),
		Search:   stripControl(query.Get("search")),
		Limit:    atoiOrZero(query.Get("limit")),
		Offset:   atoiOrZero(query.Get("offset")),
	}.Normalized(), nil
}

// ParseSummaryFilter builds the summary window from the query string.
func ParseSummaryFilter(query url.Values) (core.SummaryFilter, error) {
	r, err := ParseDateRange(query)
	if err != nil {
		return core.SummaryFilter{}, err
	}
	return core.SummaryFilter{Range: r}, nil
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// expenseRequest is the body of create and update. Absent fields stay nil.
type expenseRequest struct {
	Amount      json.RawMessage `json:"amount"`
	Description *string         `json:"description"`
	Category    *string         `json:"category"`
	Date        *string         `json:"date"`
}

type budgetRequest struct {
	Amount json.RawMessage `json:"amount"`
}

// decodeJSON reads one JSON object from the request body into v.
func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return core.Invalid("body", fmt.Errorf("read body: %w", err))
	}
	if len(body) > maxBodyBytes {
		return core.Invalid("body", errors.New("request body too large"))
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return core.Invalid("body", errors.New("empty request body"))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return core.Invalid("body", errors.New("malformed JSON"))
	}
	return nil
}

// toInput converts the request into core input. Only syntax is checked here;
// ranges and required fields are the service's job.
func (req expenseRequest) toInput() (core.ExpenseInput, error) {
	var in core.ExpenseInput

	amount, err := parseAmountField(req.Amount)
	if err != nil {
		return in, err
	}
	in.Amount = amount

	if req.Description != nil {
		d := sanitizeInput(*req.Description)
		in.Description = &d
	}
	if req.Category != nil {
		c := core.Category(strings.TrimSpace(*req.Category))
		in.Category = &c
	}
	if req.Date != nil {
		d, err := core.ParseDate(strings.TrimSpace(*req.Date))
		if err != nil {
			return in, core.Invalid("date", err)
		}
		in.Date = &d
	}
	return in, nil
}

// parseAmountField accepts a JSON number or a numeric string. null and
// absence both mean "not supplied".
func parseAmountField(raw json.RawMessage) (*decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, core.Invalid("amount", core.ErrInvalidAmount)
		}
	}
	d, err := core.ParseAmount(text)
	if err != nil {
		return nil, core.Invalid("amount", err)
	}
	return &d, nil
}
