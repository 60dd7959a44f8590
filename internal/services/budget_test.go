package services_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdesk/internal/errs"
	"bizdesk/internal/models"
	"bizdesk/internal/services"
)

func TestEffectiveAmount(t *testing.T) {
	rent := models.Outgoing{DefaultAmount: dec("800")}
	rent.ID = "rent"
	overrides := []models.OutgoingOverride{
		{OutgoingID: "rent", Year: 2026, Month: 3, Amount: dec("650")},
		{OutgoingID: "other", Year: 2026, Month: 4, Amount: dec("1")},
	}

	amount, overridden := services.EffectiveAmount(rent, overrides, 2026, 3)
	assert.True(t, overridden)
	assert.True(t, dec("650").Equal(amount))

	amount, overridden = services.EffectiveAmount(rent, overrides, 2026, 4)
	assert.False(t, overridden)
	assert.True(t, dec("800").Equal(amount))
}

func TestSummarizeSkipsPausedOutgoings(t *testing.T) {
	active := models.Outgoing{Name: "Rent", DefaultAmount: dec("500")}
	active.ID = "a"
	paused := models.Outgoing{Name: "Gym", DefaultAmount: dec("40"), Paused: true}
	paused.ID = "p"
	incomes := []models.BudgetIncome{
		{Year: 2026, Month: 5, Source: "Lessons", Amount: dec("1200")},
		{Year: 2026, Month: 6, Source: "Lessons", Amount: dec("999")},
	}

	sum := services.Summarize(2026, 5, incomes, []models.Outgoing{active, paused}, nil)
	require.Len(t, sum.Outgoings, 1)
	assert.Equal(t, "Rent", sum.Outgoings[0].Outgoing.Name)
	assert.Len(t, sum.Incomes, 1)
	assert.True(t, dec("1200").Equal(sum.TotalIncome))
	assert.True(t, dec("500").Equal(sum.TotalOutgoing))
	assert.True(t, dec("700").Equal(sum.Balance))
}

func TestBudgetOverrideLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rent := &models.Outgoing{Name: "Rent", DefaultAmount: dec("800")}
	require.NoError(t, e.svc.Budget.Outgoings.Create(ctx, e.owner, rent))
	require.NoError(t, e.svc.Budget.Incomes.Create(ctx, e.owner, &models.BudgetIncome{Year: 2026, Month: 3, Source: "Lessons", Amount: dec("2000")}))

	_, err := e.svc.Budget.SetOverride(ctx, e.owner, rent.ID, 2026, 3, dec("700"))
	require.NoError(t, err)
	ov, err := e.svc.Budget.SetOverride(ctx, e.owner, rent.ID, 2026, 3, dec("650"))
	require.NoError(t, err)
	assert.True(t, dec("650").Equal(ov.Amount))

	var count int64
	require.NoError(t, e.db.Model(&models.OutgoingOverride{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "a second override of the same month replaces the first")

	march, err := e.svc.Budget.Monthly(ctx, e.owner, 2026, 3)
	require.NoError(t, err)
	require.Len(t, march.Outgoings, 1)
	assert.True(t, march.Outgoings[0].Overridden)
	assert.True(t, dec("1350").Equal(march.Balance), "balance %s", march.Balance)

	april, err := e.svc.Budget.Monthly(ctx, e.owner, 2026, 4)
	require.NoError(t, err)
	assert.True(t, dec("800").Equal(april.TotalOutgoing))

	year, err := e.svc.Budget.Yearly(ctx, e.owner, 2026)
	require.NoError(t, err)
	require.Len(t, year.Months, 12)
	expected := dec("650").Add(dec("800").Mul(decimal.NewFromInt(11)))
	assert.True(t, expected.Equal(year.TotalOutgoing), "yearly outgoing %s", year.TotalOutgoing)

	require.NoError(t, e.svc.Budget.ClearOverride(ctx, e.owner, rent.ID, 2026, 3))
	assert.ErrorIs(t, e.svc.Budget.ClearOverride(ctx, e.owner, rent.ID, 2026, 3), errs.ErrNotFound)
}

func TestBudgetRejectsInvalidPeriod(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Budget.Monthly(ctx, e.owner, 2026, 13)
	assert.ErrorIs(t, err, errs.ErrValidation)

	err = e.svc.Budget.Incomes.Create(ctx, e.owner, &models.BudgetIncome{Year: 2026, Month: 0, Source: "x", Amount: dec("1")})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestDeleteOutgoingRemovesOverrides(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rent := &models.Outgoing{Name: "Rent", DefaultAmount: dec("800")}
	require.NoError(t, e.svc.Budget.Outgoings.Create(ctx, e.owner, rent))
	_, err := e.svc.Budget.SetOverride(ctx, e.owner, rent.ID, 2026, 1, dec("1"))
	require.NoError(t, err)

	require.NoError(t, e.svc.Budget.DeleteOutgoing(ctx, e.owner, rent.ID))

	var count int64
	require.NoError(t, e.db.Model(&models.OutgoingOverride{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestComputeLiquidity(t *testing.T) {
	bank := models.FinanceAccount{Name: "Bank", Kind: models.AccountKindAsset}
	bank.ID = "bank"
	cash := models.FinanceAccount{Name: "Cash", Kind: models.AccountKindAsset}
	cash.ID = "cash"
	card := models.FinanceAccount{Name: "Card", Kind: models.AccountKindLiability}
	card.ID = "card"
	balances := []models.AccountBalance{
		{AccountID: "bank", Year: 2026, Month: 2, Balance: dec("5000")},
		{AccountID: "card", Year: 2026, Month: 2, Balance: dec("-1200")},
		{AccountID: "cash", Year: 2026, Month: 1, Balance: dec("300")},
	}

	snap := services.ComputeLiquidity(2026, 2, []models.FinanceAccount{bank, cash, card}, balances)
	assert.True(t, dec("5000").Equal(snap.Assets))
	assert.True(t, dec("1200").Equal(snap.Liabilities))
	assert.True(t, dec("3800").Equal(snap.Liquidity))
	assert.Len(t, snap.Accounts, 2, "cash has no balance in february")

	empty := services.ComputeLiquidity(2026, 7, []models.FinanceAccount{bank}, balances)
	assert.True(t, empty.Liquidity.IsZero())
	assert.Empty(t, empty.Accounts)
}

func TestFinanceRecordBalanceAndSeries(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	bank := &models.FinanceAccount{Name: "Bank", Kind: models.AccountKindAsset, Currency: "EUR"}
	require.NoError(t, e.svc.Finance.Accounts.Create(ctx, e.owner, bank))
	loan := &models.FinanceAccount{Name: "Loan", Kind: models.AccountKindLiability, Currency: "EUR"}
	require.NoError(t, e.svc.Finance.Accounts.Create(ctx, e.owner, loan))

	_, err := e.svc.Finance.RecordBalance(ctx, e.owner, bank.ID, 2026, 1, dec("1000"))
	require.NoError(t, err)
	_, err = e.svc.Finance.RecordBalance(ctx, e.owner, bank.ID, 2026, 1, dec("1500"))
	require.NoError(t, err)
	_, err = e.svc.Finance.RecordBalance(ctx, e.owner, loan.ID, 2026, 1, dec("400"))
	require.NoError(t, err)

	snap, err := e.svc.Finance.Liquidity(ctx, e.owner, 2026, 1)
	require.NoError(t, err)
	assert.True(t, dec("1100").Equal(snap.Liquidity), "liquidity %s", snap.Liquidity)

	series, err := e.svc.Finance.LiquiditySeries(ctx, e.owner, 2026)
	require.NoError(t, err)
	require.Len(t, series, 12)
	assert.True(t, series[1].Liquidity.IsZero())

	require.NoError(t, e.svc.Finance.DeleteAccount(ctx, e.owner, bank.ID))
	var balances int64
	require.NoError(t, e.db.Model(&models.AccountBalance{}).Where("account_id = ?", bank.ID).Count(&balances).Error)
	assert.Zero(t, balances)
}

func TestFinanceAccountKindValidated(t *testing.T) {
	e := newEnv(t)
	err := e.svc.Finance.Accounts.Create(context.Background(), e.owner, &models.FinanceAccount{Name: "Odd", Kind: "equity"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}
