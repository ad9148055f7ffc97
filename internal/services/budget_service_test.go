package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"expenses/internal/core"
	"expenses/internal/storage/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type BudgetServiceSuite struct {
	suite.Suite
	ctx     context.Context
	clock   *testClock
	store   *memory.Store
	service *BudgetService
}

func TestBudgetServiceSuite(t *testing.T) {
	suite.Run(t, new(BudgetServiceSuite))
}

// SetupTest runs before each test
func (suite *BudgetServiceSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.clock = &testClock{t: march15}
	suite.store = memory.New([]string{"alice", "bob"})
	suite.service = NewBudgetService(suite.store, NewSummaryService(suite.store, nil), suite.clock)
}

func (suite *BudgetServiceSuite) TestCurrentMonthUsesUTC() {
	suite.clock.set(time.Date(2024, 3, 31, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600)))
	assert.Equal(suite.T(), core.MonthKey("2024-04"), suite.service.CurrentMonth())
}

func (suite *BudgetServiceSuite) TestCurrentWithoutBudgetIsPlaceholder() {
	b, err := suite.service.Current(suite.ctx, "alice")
	require.NoError(suite.T(), err)

	assert.True(suite.T(), b.IsPlaceholder())
	assert.True(suite.T(), b.Amount.IsZero())
	assert.Equal(suite.T(), core.MonthKey("2024-03"), b.Month)
	assert.Zero(suite.T(), suite.store.BudgetCount("alice"), "reading must not persist anything")
}

func (suite *BudgetServiceSuite) TestSetTwiceKeepsOneRow() {
	first, err := suite.service.Set(suite.ctx, "alice", decimal.NewFromInt(300))
	require.NoError(suite.T(), err)
	second, err := suite.service.Set(suite.ctx, "alice", decimal.NewFromInt(500))
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), first.ID, second.ID)
	assert.Equal(suite.T(), 1, suite.store.BudgetCount("alice"))

	current, err := suite.service.Current(suite.ctx, "alice")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), decimal.NewFromInt(500).Equal(current.Amount))
	assert.False(suite.T(), current.IsPlaceholder())
}

func (suite *BudgetServiceSuite) TestSetRoundsToCents() {
	b, err := suite.service.Set(suite.ctx, "alice", decimal.RequireFromString("10.005"))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "10.01", b.Amount.StringFixed(2))
}

func (suite *BudgetServiceSuite) TestSetRejectsBeforeStore() {
	tests := []struct {
		name   string
		owner  string
		amount decimal.Decimal
		field  string
	}{
		{"negative", "alice", decimal.NewFromInt(-1), "amount"},
		{"too large", "alice", decimal.RequireFromString("1000000000000"), "amount"},
		{"empty owner", "", decimal.NewFromInt(1), "owner"},
		{"unknown owner", "mallory", decimal.NewFromInt(1), "owner"},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.service.Set(suite.ctx, tt.owner, tt.amount)
			var ve *core.ValidationError
			require.ErrorAs(suite.T(), err, &ve)
			assert.Equal(suite.T(), tt.field, ve.Field)
		})
	}
	assert.Zero(suite.T(), suite.store.BudgetCount("alice"))
}

func (suite *BudgetServiceSuite) TestMonthRollover() {
	_, err := suite.service.Set(suite.ctx, "alice", decimal.NewFromInt(400))
	require.NoError(suite.T(), err)

	suite.clock.set(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	b, err := suite.service.Current(suite.ctx, "alice")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), b.IsPlaceholder(), "a new month starts without a budget")
	assert.Equal(suite.T(), core.MonthKey("2024-04"), b.Month)
}

func (suite *BudgetServiceSuite) TestConcurrentSetsConverge() {
	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			_, err := suite.service.Set(suite.ctx, "alice", decimal.NewFromInt(n))
			assert.NoError(suite.T(), err)
		}(int64(i))
	}
	wg.Wait()
	assert.Equal(suite.T(), 1, suite.store.BudgetCount("alice"))
}

func (suite *BudgetServiceSuite) TestStatus() {
	for _, e := range []core.Expense{
		{ID: "1", Owner: "alice", Amount: decimal.NewFromInt(60), Description: "Groceries", Category: core.CategoryFood, Date: core.NewDate(2024, 3, 2)},
		{ID: "2", Owner: "alice", Amount: decimal.NewFromInt(70), Description: "February", Category: core.CategoryFood, Date: core.NewDate(2024, 2, 28)},
		{ID: "3", Owner: "bob", Amount: decimal.NewFromInt(500), Description: "Not mine", Category: core.CategoryFood, Date: core.NewDate(2024, 3, 2)},
	} {
		_, err := suite.store.InsertExpense(suite.ctx, e)
		require.NoError(suite.T(), err)
	}

	status, err := suite.service.Status(suite.ctx, "alice")
	require.NoError(suite.T(), err)
	assert.True(suite.T(), status.Exceeded, "no budget yet, any spending exceeds it")

	_, err = suite.service.Set(suite.ctx, "alice", decimal.NewFromInt(100))
	require.NoError(suite.T(), err)

	status, err = suite.service.Status(suite.ctx, "alice")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), core.MonthKey("2024-03"), status.Month)
	assert.Equal(suite.T(), "60", status.Spent.String())
	assert.Equal(suite.T(), "40", status.Remaining.String())
	assert.False(suite.T(), status.Exceeded)
}

func (suite *BudgetServiceSuite) TestStatusWithoutSummaries() {
	service := NewBudgetService(suite.store, nil, suite.clock)
	_, err := service.Status(suite.ctx, "alice")
	assert.Error(suite.T(), err)
}
