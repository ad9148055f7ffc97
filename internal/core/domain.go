package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryHousing       Category = "Housing"
	CategoryUtilities     Category = "Utilities"
	CategoryEntertainment Category = "Entertainment"
	CategoryInvestment    Category = "Investment"
	CategoryOther         Category = "Other"
)

// MaxDescriptionLength is the maximum description length in characters, after trimming.
const MaxDescriptionLength = 255

const dateLayout = "2006-01-02"

type (
	Category string

	// Date is a calendar day. The time part is always midnight UTC.
	Date struct {
		time.Time
	}

	Expense struct {
		ID          string          `json:"id"`
		Owner       string          `json:"owner"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		Category    Category        `json:"category"`
		Date        Date            `json:"date"`
		CreatedAt   time.Time       `json:"createdAt"`
		UpdatedAt   time.Time       `json:"updatedAt"`
	}

	// Budget is the spending ceiling of one owner for one month.
	// A Budget with an empty ID is a placeholder that was never stored.
	Budget struct {
		ID        string
		Owner     string
		Amount    decimal.Decimal
		Month     MonthKey
		CreatedAt time.Time
		UpdatedAt time.Time
	}
)

// Categories lists the fixed category enumeration in display order.
var Categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryHousing,
	CategoryUtilities,
	CategoryEntertainment,
	CategoryInvestment,
	CategoryOther,
}

var (
	ErrNotFound           = errors.New("not found")
	ErrUnknownOwner       = errors.New("unknown owner")
	ErrEmptyOwner         = errors.New("empty owner")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNegativeAmount     = errors.New("amount must not be negative")
	ErrMissingField       = errors.New("required field missing")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = fmt.Errorf("description too long (max %d characters)", MaxDescriptionLength)
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidMonth       = errors.New("invalid month")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid wraps err as a ValidationError for field.
func Invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory accepts only the exact enumeration spelling.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp, keeping only the UTC day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, ErrInvalidDate
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String renders the day as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// MonthKey returns the month the day belongs to.
func (d Date) MonthKey() MonthKey {
	return MonthOf(d.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NormalizeDescription trims s and checks its length in characters.
func NormalizeDescription(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyDescription
	}
	if utf8.RuneCountInString(s) > MaxDescriptionLength {
		return "", ErrDescriptionTooLong
	}
	return s, nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Owner) == "" {
		return Invalid("owner", ErrEmptyOwner)
	}
	if err := ValidateAmount(e.Amount); err != nil {
		return Invalid("amount", err)
	}
	if _, err := NormalizeDescription(e.Description); err != nil {
		return Invalid("description", err)
	}
	if !e.Category.Valid() {
		return Invalid("category", ErrInvalidCategory)
	}
	if err := e.Date.Validate(); err != nil {
		return Invalid("date", err)
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Owner) == "" {
		return Invalid("owner", ErrEmptyOwner)
	}
	if err := ValidateAmount(b.Amount); err != nil {
		return Invalid("amount", err)
	}
	if _, err := ParseMonthKey(string(b.Month)); err != nil {
		return Invalid("month", err)
	}
	return nil
}

// IsPlaceholder reports whether b is the zero-amount stand-in for a month without a stored budget.
func (b Budget) IsPlaceholder() bool {
	return b.ID == ""
}
