package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"expenses/internal/core"
	"expenses/internal/storage"

	"github.com/shopspring/decimal"
)

type budgetKey struct {
	owner string
	month core.MonthKey
}

// Store keeps everything in process memory. Insertion order breaks date ties.
type Store struct {
	mu      sync.RWMutex
	owners  map[string]struct{}
	items   []core.Expense
	budgets map[budgetKey]core.Budget
	now     func() time.Time
}

var _ storage.Store = (*Store)(nil)

func New(owners []string) *Store {
	s := &Store{
		owners:  map[string]struct{}{},
		budgets: map[budgetKey]core.Budget{},
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
	for _, o := range dedupeSorted(owners) {
		s.owners[o] = struct{}{}
	}
	return s
}

// NewFromFiles seeds owners from seed_owners.txt under base, one per line.
func NewFromFiles(base string) *Store {
	return New(readLines(filepath.Join(base, "seed_owners.txt")))
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) CreateOwner(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[owner] = struct{}{}
	return nil
}

func (s *Store) OwnerExists(_ context.Context, owner string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.owners[owner]
	return ok, nil
}

func (s *Store) FindExpenses(_ context.Context, owner string, f core.ExpenseFilter) ([]core.Expense, error) {
	f = f.Normalized()
	s.mu.RLock()
	var matched []core.Expense
	for _, e := range s.items {
		if e.Owner == owner && f.Matches(e) {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	// items is in insertion order, so a stable sort keeps ties oldest first
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Date.After(matched[j].Date.Time)
	})

	if f.Offset >= len(matched) {
		return []core.Expense{}, nil
	}
	end := len(matched)
	if f.Limit < end-f.Offset {
		end = f.Offset + f.Limit
	}
	return append([]core.Expense(nil), matched[f.Offset:end]...), nil
}

func (s *Store) FindExpense(_ context.Context, owner, id string) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(owner, id)
	if i < 0 {
		return core.Expense{}, core.ErrNotFound
	}
	return s.items[i], nil
}

func (s *Store) InsertExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.owners[e.Owner]; !ok {
		return core.Expense{}, core.ErrUnknownOwner
	}
	now := s.now()
	e.CreatedAt, e.UpdatedAt = now, now
	s.items = append(s.items, e)
	return e, nil
}

func (s *Store) ReplaceExpense(_ context.Context, owner, id string, in core.ExpenseInput) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(owner, id)
	if i < 0 {
		return core.Expense{}, core.ErrNotFound
	}
	s.items[i] = in.Apply(s.items[i], s.now())
	return s.items[i], nil
}

func (s *Store) RemoveExpense(_ context.Context, owner, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(owner, id)
	if i < 0 {
		return false, nil
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true, nil
}

func (s *Store) GroupSum(_ context.Context, owner string, f core.SummaryFilter, group core.GroupField, sum core.SumField) ([]core.CategoryTotal, error) {
	if group != core.GroupByCategory || sum != core.SumAmount {
		return nil, &unsupportedAggregation{group: group, sum: sum}
	}
	s.mu.RLock()
	totals := map[core.Category]decimal.Decimal{}
	for _, e := range s.items {
		if e.Owner != owner || !f.Matches(e) {
			continue
		}
		totals[e.Category] = totals[e.Category].Add(e.Amount)
	}
	s.mu.RUnlock()

	out := make([]core.CategoryTotal, 0, len(totals))
	for c, total := range totals {
		out = append(out, core.CategoryTotal{Category: c, Total: total})
	}
	core.SortCategoryTotals(out)
	return out, nil
}

func (s *Store) FindBudget(_ context.Context, owner string, month core.MonthKey) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgets[budgetKey{owner, month}]
	if !ok {
		return core.Budget{}, core.ErrNotFound
	}
	return b, nil
}

func (s *Store) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.owners[b.Owner]; !ok {
		return core.Budget{}, core.ErrUnknownOwner
	}
	now := s.now()
	key := budgetKey{b.Owner, b.Month}
	if existing, ok := s.budgets[key]; ok {
		existing.Amount = core.RoundAmount(b.Amount)
		existing.UpdatedAt = now
		s.budgets[key] = existing
		return existing, nil
	}
	b.Amount = core.RoundAmount(b.Amount)
	b.CreatedAt, b.UpdatedAt = now, now
	s.budgets[key] = b
	return b, nil
}

// BudgetCount reports how many budgets are stored for owner.
func (s *Store) BudgetCount(owner string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k := range s.budgets {
		if k.owner == owner {
			n++
		}
	}
	return n
}

func (s *Store) indexOf(owner, id string) int {
	for i, e := range s.items {
		if e.ID == id && e.Owner == owner {
			return i
		}
	}
	return -1
}

type unsupportedAggregation struct {
	group core.GroupField
	sum   core.SumField
}

func (e *unsupportedAggregation) Error() string {
	return "unsupported aggregation: sum " + e.sum.String() + " by " + e.group.String()
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupeSorted(out)
}

func dedupeSorted(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
