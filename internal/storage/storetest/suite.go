// Package storetest holds the behavioural suite every storage.Store backend must pass.
package storetest

import (
	"context"
	"fmt"

	"expenses/internal/core"
	"expenses/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	Alice = "alice"
	Bob   = "bob"
)

// StoreSuite exercises a storage.Store. NewStore must return an empty store.
type StoreSuite struct {
	suite.Suite
	NewStore func() (storage.Store, error)

	store storage.Store
	ctx   context.Context
}

// SetupTest runs before each test
func (suite *StoreSuite) SetupTest() {
	store, err := suite.NewStore()
	require.NoError(suite.T(), err, "failed to create test store")
	suite.store = store
	suite.ctx = context.Background()

	for _, owner := range []string{Alice, Bob} {
		require.NoError(suite.T(), store.CreateOwner(suite.ctx, owner))
	}
}

// TearDownTest runs after each test
func (suite *StoreSuite) TearDownTest() {
	if suite.store != nil {
		suite.store.Close()
	}
}

func (suite *StoreSuite) insert(owner, amount, description string, category core.Category, date core.Date) core.Expense {
	e, err := suite.store.InsertExpense(suite.ctx, core.Expense{
		ID:          uuid.NewString(),
		Owner:       owner,
		Amount:      decimal.RequireFromString(amount),
		Description: description,
		Category:    category,
		Date:        date,
	})
	require.NoError(suite.T(), err, "failed to insert %s", description)
	return e
}

func descriptions(es []core.Expense) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Description
	}
	return out
}

func (suite *StoreSuite) TestOwners() {
	ok, err := suite.store.OwnerExists(suite.ctx, Alice)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)

	ok, err = suite.store.OwnerExists(suite.ctx, "mallory")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)

	// creating twice is harmless
	require.NoError(suite.T(), suite.store.CreateOwner(suite.ctx, Alice))
}

func (suite *StoreSuite) TestInsertAndFind() {
	created := suite.insert(Alice, "12.50", "Lunch", core.CategoryFood, core.NewDate(2024, 3, 1))
	assert.False(suite.T(), created.CreatedAt.IsZero())
	assert.Equal(suite.T(), created.CreatedAt, created.UpdatedAt)

	got, err := suite.store.FindExpense(suite.ctx, Alice, created.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), created.ID, got.ID)
	assert.Equal(suite.T(), "Lunch", got.Description)
	assert.Equal(suite.T(), core.CategoryFood, got.Category)
	assert.Equal(suite.T(), core.NewDate(2024, 3, 1), got.Date)
	assert.True(suite.T(), got.Amount.Equal(decimal.RequireFromString("12.5")), "amount %s", got.Amount)
}

func (suite *StoreSuite) TestFindOtherOwnersExpenseIsNotFound() {
	created := suite.insert(Alice, "1", "Private", core.CategoryOther, core.NewDate(2024, 3, 1))

	_, err := suite.store.FindExpense(suite.ctx, Bob, created.ID)
	assert.ErrorIs(suite.T(), err, core.ErrNotFound)

	_, err = suite.store.FindExpense(suite.ctx, Alice, uuid.NewString())
	assert.ErrorIs(suite.T(), err, core.ErrNotFound)
}

func (suite *StoreSuite) TestInsertUnknownOwner() {
	_, err := suite.store.InsertExpense(suite.ctx, core.Expense{
		ID:          uuid.NewString(),
		Owner:       "mallory",
		Amount:      decimal.NewFromInt(1),
		Description: "x",
		Category:    core.CategoryOther,
		Date:        core.NewDate(2024, 1, 1),
	})
	assert.ErrorIs(suite.T(), err, core.ErrUnknownOwner)
}

func (suite *StoreSuite) TestFindExpensesOrderingAndPaging() {
	suite.insert(Alice, "1", "old", core.CategoryOther, core.NewDate(2024, 1, 1))
	suite.insert(Alice, "1", "tie-first", core.CategoryOther, core.NewDate(2024, 2, 1))
	suite.insert(Alice, "1", "newest", core.CategoryOther, core.NewDate(2024, 3, 1))
	suite.insert(Alice, "1", "tie-second", core.CategoryOther, core.NewDate(2024, 2, 1))
	suite.insert(Bob, "1", "bob's", core.CategoryOther, core.NewDate(2024, 4, 1))

	all, err := suite.store.FindExpenses(suite.ctx, Alice, core.ExpenseFilter{})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"newest", "tie-first", "tie-second", "old"}, descriptions(all))

	page, err := suite.store.FindExpenses(suite.ctx, Alice, core.ExpenseFilter{Limit: 2, Offset: 1})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"tie-first", "tie-second"}, descriptions(page))

	past, err := suite.store.FindExpenses(suite.ctx, Alice, core.ExpenseFilter{Offset: 10})
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), past)
}

func (suite *StoreSuite) TestFindExpensesDefaultLimit() {
	for i := 0; i < core.DefaultLimit+5; i++ {
		suite.insert(Alice, "1", fmt.Sprintf("item %d", i), core.CategoryOther, core.NewDate(2024, 1, 1))
	}
	got, err := suite.store.FindExpenses(suite.ctx, Alice, core.ExpenseFilter{})
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), got, core.DefaultLimit)
}

func (suite *StoreSuite) TestFindExpensesFilters() {
	suite.insert(Alice, "4", "Morning Coffee", core.CategoryFood, core.NewDate(2024, 1, 5))
	suite.insert(Alice, "900", "Rent", core.CategoryHousing, core.NewDate(2024, 1, 1))
	suite.insert(Alice, "3", "100% juice", core.CategoryFood, core.NewDate(2024, 1, 31))
	suite.insert(Alice, "3", "1000 juice", core.CategoryFood, core.NewDate(2024, 2, 1))
	suite.insert(Alice, "5", "Café Crème", core.CategoryFood, core.NewDate(2024, 2, 10))

	start, end := core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31)
	cases := []struct {
		name   string
		filter core.ExpenseFilter
		want   []string
	}{
		{"category", core.ExpenseFilter{Category: core.CategoryHousing}, []string{"Rent"}},
		{"search is case-insensitive", core.ExpenseFilter{Search: "COFFEE"}, []string{"Morning Coffee"}},
		{"search folds non-ASCII case", core.ExpenseFilter{Search: "CAFÉ"}, []string{"Café Crème"}},
		{"search keeps inner spaces", core.ExpenseFilter{Search: "é cr"}, []string{"Café Crème"}},
		{"search treats % literally", core.ExpenseFilter{Search: "0%"}, []string{"100% juice"}},
		{"search treats _ literally", core.ExpenseFilter{Search: "_"}, []string{}},
		{"inclusive range", core.ExpenseFilter{Range: core.NewDateRange(&start, &end)}, []string{"100% juice", "Morning Coffee", "Rent"}},
		{"combined", core.ExpenseFilter{Range: core.NewDateRange(&start, &end), Category: core.CategoryFood, Search: "juice"}, []string{"100% juice"}},
	}
	for _, tc := range cases {
		got, err := suite.store.FindExpenses(suite.ctx, Alice, tc.filter)
		require.NoError(suite.T(), err, tc.name)
		assert.Equal(suite.T(), tc.want, descriptions(got), tc.name)
	}
}

func (suite *StoreSuite) TestFindExpensesHugeLimit() {
	got, err := suite.store.FindExpenses(suite.ctx, Alice, core.ExpenseFilter{Limit: 1 << 40})
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), got)

	suite.insert(Alice, "1", "Bus", core.CategoryTransport, core.NewDate(2024, 1, 2))
	got, err = suite.store.FindExpenses(suite.ctx, Alice, core.ExpenseFilter{Limit: 1 << 40, Offset: 0})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"Bus"}, descriptions(got))
}

func (suite *StoreSuite) TestReplaceExpensePartial() {
	created := suite.insert(Alice, "10", "Taxi", core.CategoryTransport, core.NewDate(2024, 5, 2))

	amount := decimal.RequireFromString("12.345")
	updated, err := suite.store.ReplaceExpense(suite.ctx, Alice, created.ID, core.ExpenseInput{Amount: &amount})
	require.NoError(suite.T(), err)
	assert.True(suite.T(), updated.Amount.Equal(decimal.RequireFromString("12.35")), "amount %s", updated.Amount)
	assert.Equal(suite.T(), "Taxi", updated.Description)
	assert.Equal(suite.T(), core.CategoryTransport, updated.Category)
	assert.Equal(suite.T(), created.Date, updated.Date)
	assert.True(suite.T(), created.CreatedAt.Equal(updated.CreatedAt), "created_at must not change")
	assert.False(suite.T(), updated.UpdatedAt.Before(created.UpdatedAt))

	desc := "  Airport taxi "
	cat := core.CategoryOther
	date := core.NewDate(2024, 5, 3)
	updated, err = suite.store.ReplaceExpense(suite.ctx, Alice, created.ID, core.ExpenseInput{Description: &desc, Category: &cat, Date: &date})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Airport taxi", updated.Description)
	assert.Equal(suite.T(), core.CategoryOther, updated.Category)
	assert.Equal(suite.T(), date, updated.Date)

	reread, err := suite.store.FindExpense(suite.ctx, Alice, created.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), updated.Description, reread.Description)
}

func (suite *StoreSuite) TestReplaceExpenseNotFound() {
	created := suite.insert(Alice, "10", "Taxi", core.CategoryTransport, core.NewDate(2024, 5, 2))
	desc := "hijack"

	_, err := suite.store.ReplaceExpense(suite.ctx, Bob, created.ID, core.ExpenseInput{Description: &desc})
	assert.ErrorIs(suite.T(), err, core.ErrNotFound)

	_, err = suite.store.ReplaceExpense(suite.ctx, Alice, uuid.NewString(), core.ExpenseInput{Description: &desc})
	assert.ErrorIs(suite.T(), err, core.ErrNotFound)

	got, err := suite.store.FindExpense(suite.ctx, Alice, created.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Taxi", got.Description)
}

func (suite *StoreSuite) TestRemoveExpense() {
	created := suite.insert(Alice, "10", "Gym", core.CategoryEntertainment, core.NewDate(2024, 5, 2))

	removed, err := suite.store.RemoveExpense(suite.ctx, Bob, created.ID)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), removed, "other owner must not delete")

	removed, err = suite.store.RemoveExpense(suite.ctx, Alice, created.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), removed)

	removed, err = suite.store.RemoveExpense(suite.ctx, Alice, created.ID)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), removed)

	_, err = suite.store.FindExpense(suite.ctx, Alice, created.ID)
	assert.ErrorIs(suite.T(), err, core.ErrNotFound)
}

func (suite *StoreSuite) TestGroupSum() {
	suite.insert(Alice, "0.10", "a", core.CategoryFood, core.NewDate(2024, 1, 2))
	suite.insert(Alice, "0.20", "b", core.CategoryFood, core.NewDate(2024, 1, 3))
	suite.insert(Alice, "700", "rent", core.CategoryHousing, core.NewDate(2024, 1, 1))
	suite.insert(Alice, "0.30", "bus", core.CategoryTransport, core.NewDate(2024, 2, 1))
	suite.insert(Bob, "9999", "bob", core.CategoryFood, core.NewDate(2024, 1, 2))

	totals, err := suite.store.GroupSum(suite.ctx, Alice, core.SummaryFilter{}, core.GroupByCategory, core.SumAmount)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), totals, 3)
	assert.Equal(suite.T(), core.CategoryHousing, totals[0].Category)
	// equal totals fall back to category name
	assert.Equal(suite.T(), core.CategoryFood, totals[1].Category)
	assert.Equal(suite.T(), core.CategoryTransport, totals[2].Category)
	assert.True(suite.T(), totals[1].Total.Equal(decimal.RequireFromString("0.3")), "exact sum, got %s", totals[1].Total)

	start, end := core.NewDate(2024, 1, 2), core.NewDate(2024, 1, 31)
	totals, err = suite.store.GroupSum(suite.ctx, Alice, core.SummaryFilter{Range: core.NewDateRange(&start, &end)}, core.GroupByCategory, core.SumAmount)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), totals, 1)
	assert.Equal(suite.T(), core.CategoryFood, totals[0].Category)

	empty, err := suite.store.GroupSum(suite.ctx, "nobody", core.SummaryFilter{}, core.GroupByCategory, core.SumAmount)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), empty)
}

func (suite *StoreSuite) TestBudgetUpsert() {
	_, err := suite.store.FindBudget(suite.ctx, Alice, "2024-03")
	assert.ErrorIs(suite.T(), err, core.ErrNotFound)

	first, err := suite.store.UpsertBudget(suite.ctx, core.Budget{ID: uuid.NewString(), Owner: Alice, Month: "2024-03", Amount: decimal.NewFromInt(500)})
	require.NoError(suite.T(), err)
	assert.True(suite.T(), first.Amount.Equal(decimal.NewFromInt(500)))

	second, err := suite.store.UpsertBudget(suite.ctx, core.Budget{ID: uuid.NewString(), Owner: Alice, Month: "2024-03", Amount: decimal.RequireFromString("650.5")})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), first.ID, second.ID, "upsert must keep the existing record")
	assert.True(suite.T(), first.CreatedAt.Equal(second.CreatedAt), "created_at must not change")
	assert.True(suite.T(), second.Amount.Equal(decimal.RequireFromString("650.50")))

	got, err := suite.store.FindBudget(suite.ctx, Alice, "2024-03")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), first.ID, got.ID)
	assert.True(suite.T(), got.Amount.Equal(decimal.RequireFromString("650.5")))

	// other months and owners are independent
	_, err = suite.store.FindBudget(suite.ctx, Alice, "2024-04")
	assert.ErrorIs(suite.T(), err, core.ErrNotFound)
	_, err = suite.store.FindBudget(suite.ctx, Bob, "2024-03")
	assert.ErrorIs(suite.T(), err, core.ErrNotFound)
}

func (suite *StoreSuite) TestBudgetUnknownOwner() {
	_, err := suite.store.UpsertBudget(suite.ctx, core.Budget{ID: uuid.NewString(), Owner: "mallory", Month: "2024-03", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(suite.T(), err, core.ErrUnknownOwner)
}

func (suite *StoreSuite) TestPing() {
	assert.NoError(suite.T(), suite.store.Ping(suite.ctx))
}
