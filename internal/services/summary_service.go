package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"expenses/internal/cache"
	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/storage"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// SummaryService aggregates spending per category. Results are cached per
// owner and window; identical concurrent requests share one store query.
type SummaryService struct {
	store storage.Aggregator
	cache cache.Cache[[]core.CategoryTotal] // nil disables caching
	group singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
}

func NewSummaryService(store storage.Aggregator, c cache.Cache[[]core.CategoryTotal]) *SummaryService {
	return &SummaryService{
		store:       store,
		cache:       c,
		generations: make(map[string]uint64),
	}
}

func ownerPrefix(owner string) string {
	return owner + "|"
}

func summaryKey(owner string, f core.SummaryFilter) string {
	return ownerPrefix(owner) + f.Key()
}

func (s *SummaryService) generation(owner string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[owner]
}

// Summarize returns the owner's category totals within f, largest first.
// Categories without spending are omitted.
func (s *SummaryService) Summarize(ctx context.Context, owner string, f core.SummaryFilter) ([]core.CategoryTotal, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}

	key := summaryKey(owner, f)
	if s.cache != nil {
		if totals, ok := s.cache.Get(key); ok {
			applog.FromContext(ctx).WithComponent(applog.ComponentSummary).DebugContext(ctx, "Summary cache hit", applog.FieldOwner, owner, "window", f.Key())
			return cloneTotals(totals), nil
		}
	}

	// The generation in the flight key keeps callers that arrive after an
	// invalidation from joining a query that started before it.
	gen := s.generation(owner)
	flightKey := key + "#" + strconv.FormatUint(gen, 10)

	// Callers share the flight, so one caller going away must not cancel it.
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(flightKey, func() (any, error) {
		totals, err := s.store.GroupSum(flightCtx, owner, f, core.GroupByCategory, core.SumAmount)
		if err != nil {
			return nil, fmt.Errorf("group expenses by category: %w", err)
		}
		core.SortCategoryTotals(totals)
		s.storeIfCurrent(owner, key, gen, totals)
		return totals, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneTotals(v.([]core.CategoryTotal)), nil
}

// storeIfCurrent caches totals unless owner was invalidated since gen was read.
func (s *SummaryService) storeIfCurrent(owner, key string, gen uint64, totals []core.CategoryTotal) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[owner] == gen {
		s.cache.Set(key, totals)
	}
}

// MonthSpending sums every category of the owner within month.
func (s *SummaryService) MonthSpending(ctx context.Context, owner string, month core.MonthKey) (decimal.Decimal, error) {
	r, err := month.Range()
	if err != nil {
		return decimal.Zero, core.Invalid("month", err)
	}
	totals, err := s.Summarize(ctx, owner, core.SummaryFilter{Range: &r})
	if err != nil {
		return decimal.Zero, err
	}
	spent := decimal.Zero
	for _, t := range totals {
		spent = spent.Add(t.Total)
	}
	return spent, nil
}

// InvalidateOwner drops every cached summary of owner.
func (s *SummaryService) InvalidateOwner(owner string) {
	s.mu.Lock()
	s.generations[owner]++
	if s.cache == nil {
		s.mu.Unlock()
		return
	}
	n := s.cache.DeletePrefix(ownerPrefix(owner))
	s.mu.Unlock()

	if n > 0 {
		applog.FromContext(context.Background()).WithComponent(applog.ComponentSummary).Debug("Summary cache invalidated", applog.FieldOwner, owner, "removed", n)
	}
}

// CacheStats reports the summary cache counters. ok is false when caching is off.
func (s *SummaryService) CacheStats() (stats cache.Stats, ok bool) {
	sc, ok := s.cache.(interface{ Stats() cache.Stats })
	if !ok {
		return cache.Stats{}, false
	}
	return sc.Stats(), true
}

func cloneTotals(in []core.CategoryTotal) []core.CategoryTotal {
	out := make([]core.CategoryTotal, len(in))
	copy(out, in)
	return out
}
