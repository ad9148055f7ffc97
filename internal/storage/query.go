package storage

import (
	"fmt"
	"strconv"
	"strings"

	"expenses/internal/core"
)

// placeholder renders the n-th (1-based) bind parameter for a dialect.
type placeholder func(n int) string

func questionMark(int) string { return "?" }

func dollar(n int) string { return "$" + strconv.Itoa(n) }

// dialect captures the SQL differences between the relational backends.
type dialect struct {
	ph placeholder
	// searchClause matches description against a LIKE pattern; it contains one %s.
	searchClause string
	// dateArg converts a day into the bind value the driver expects.
	dateArg func(core.Date) any
	// amountColumn is the column holding the amount.
	amountColumn string
}

var sqliteDialect = dialect{
	ph:           questionMark,
	searchClause: `ulower(description) LIKE ulower(%s) ESCAPE '\'`,
	dateArg:      func(d core.Date) any { return d.String() },
	amountColumn: "amount_cents",
}

var postgresDialect = dialect{
	ph:           dollar,
	searchClause: `description ILIKE %s ESCAPE '\'`,
	dateArg:      func(d core.Date) any { return d.Time },
	amountColumn: "amount",
}

// where accumulates AND-ed predicates and their bind values.
type where struct {
	ph      placeholder
	clauses []string
	args    []any
}

// add appends a clause; each %s in format receives the next placeholder.
func (w *where) add(format string, args ...any) {
	marks := make([]any, len(args))
	for i := range args {
		marks[i] = w.ph(len(w.args) + i + 1)
	}
	w.clauses = append(w.clauses, fmt.Sprintf(format, marks...))
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// bind appends v after the predicate arguments and returns its placeholder.
func (w *where) bind(v any) string {
	w.args = append(w.args, v)
	return w.ph(len(w.args))
}

func (d dialect) expenseWhere(owner string, f core.ExpenseFilter) *where {
	w := &where{ph: d.ph}
	w.add("owner = %s", owner)
	if f.Range != nil {
		w.add("date BETWEEN %s AND %s", d.dateArg(f.Range.Start), d.dateArg(f.Range.End))
	}
	if f.Category != "" {
		w.add("category = %s", string(f.Category))
	}
	if f.Search != "" {
		w.add(d.searchClause, "%"+escapeLike(f.Search)+"%")
	}
	return w
}

func (d dialect) summaryWhere(owner string, f core.SummaryFilter) *where {
	w := &where{ph: d.ph}
	w.add("owner = %s", owner)
	if f.Range != nil {
		w.add("date BETWEEN %s AND %s", d.dateArg(f.Range.Start), d.dateArg(f.Range.End))
	}
	return w
}

// groupSumColumns maps the typed aggregation fields onto columns.
func (d dialect) groupSumColumns(group core.GroupField, sum core.SumField) (string, string, error) {
	var g, s string
	switch group {
	case core.GroupByCategory:
		g = "category"
	default:
		return "", "", fmt.Errorf("unsupported group field %s", group)
	}
	switch sum {
	case core.SumAmount:
		s = d.amountColumn
	default:
		return "", "", fmt.Errorf("unsupported sum field %s", sum)
	}
	return g, s, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in user input match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
