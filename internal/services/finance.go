package services

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bizdesk/internal/authz"
	"bizdesk/internal/errs"
	"bizdesk/internal/events"
	"bizdesk/internal/models"
)

// AccountPosition is one account's contribution to a liquidity snapshot.
type AccountPosition struct {
	AccountID string             `json:"accountId"`
	Name      string             `json:"name"`
	Kind      models.AccountKind `json:"kind"`
	Balance   decimal.Decimal    `json:"balance"`
}

type LiquiditySnapshot struct {
	Year        int               `json:"year"`
	Month       int               `json:"month"`
	Assets      decimal.Decimal   `json:"assets"`
	Liabilities decimal.Decimal   `json:"liabilities"`
	Liquidity   decimal.Decimal   `json:"liquidity"`
	Accounts    []AccountPosition `json:"accounts"`
}

// ComputeLiquidity subtracts the absolute liability balances from the asset
// balances recorded for year and month. Accounts without a balance that
// month contribute nothing.
func ComputeLiquidity(year, month int, accounts []models.FinanceAccount, balances []models.AccountBalance) LiquiditySnapshot {
	byAccount := make(map[string]decimal.Decimal, len(balances))
	for _, b := range balances {
		if b.Year == year && b.Month == month {
			byAccount[b.AccountID] = b.Balance
		}
	}

	snap := LiquiditySnapshot{
		Year:        year,
		Month:       month,
		Assets:      decimal.Zero,
		Liabilities: decimal.Zero,
		Accounts:    []AccountPosition{},
	}
	for _, a := range accounts {
		bal, ok := byAccount[a.ID]
		if !ok {
			continue
		}
		switch a.Kind {
		case models.AccountKindAsset:
			snap.Assets = snap.Assets.Add(bal)
		case models.AccountKindLiability:
			snap.Liabilities = snap.Liabilities.Add(bal.Abs())
		default:
			continue
		}
		snap.Accounts = append(snap.Accounts, AccountPosition{AccountID: a.ID, Name: a.Name, Kind: a.Kind, Balance: bal})
	}
	snap.Liquidity = snap.Assets.Sub(snap.Liabilities)
	return snap
}

// FinanceService tracks accounts and their monthly balances.
type FinanceService struct {
	Accounts *ScopedService[models.FinanceAccount, *models.FinanceAccount]
	Balances *ScopedService[models.AccountBalance, *models.AccountBalance]
	db       *gorm.DB
}

func NewFinanceService(db *gorm.DB, policy *authz.Policy, bus *events.EventBus) *FinanceService {
	return &FinanceService{
		Accounts: NewScopedService[models.FinanceAccount](db, policy, bus, models.ModuleFinance).
			WithFilters("name", "kind", "institution", "currency").
			WithBeforeSave(func(_ *gorm.DB, _ string, a *models.FinanceAccount) error {
				if a.Kind != models.AccountKindAsset && a.Kind != models.AccountKindLiability {
					return errs.Validation("kind must be asset or liability")
				}
				return nil
			}),
		Balances: NewScopedService[models.AccountBalance](db, policy, bus, models.ModuleFinance).
			WithFilters("account_id", "year", "month").
			WithBeforeSave(func(tx *gorm.DB, ws string, b *models.AccountBalance) error {
				if err := validPeriod(b.Year, b.Month); err != nil {
					return err
				}
				return requireInWorkspace(tx, &models.FinanceAccount{}, ws, b.AccountID, "account")
			}),
		db: db,
	}
}

// RecordBalance stores the balance of an account for one month, replacing
// an earlier value of the same month.
func (s *FinanceService) RecordBalance(ctx context.Context, scope Scope, accountID string, year, month int, balance decimal.Decimal) (*models.AccountBalance, error) {
	if err := validPeriod(year, month); err != nil {
		return nil, err
	}
	if _, err := s.Balances.Authorize(ctx, scope, models.CapAdd); err != nil {
		return nil, err
	}
	if _, err := s.Accounts.Find(ctx, s.db, scope.WorkspaceID, accountID); err != nil {
		return nil, err
	}

	b := &models.AccountBalance{AccountID: accountID, Year: year, Month: month, Balance: balance}
	b.WorkspaceID = scope.WorkspaceID
	b.CreatedBy = scope.Caller.UserID
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "year"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
	}).Create(b).Error
	if err != nil {
		return nil, errs.Internal("failed to save balance", err)
	}

	var stored models.AccountBalance
	err = s.db.WithContext(ctx).
		Where("workspace_id = ? AND account_id = ? AND year = ? AND month = ?", scope.WorkspaceID, accountID, year, month).
		First(&stored).Error
	if err != nil {
		return nil, errs.FromDB(err, "account balance")
	}
	s.Balances.publish(scope.WorkspaceID, "updated", stored.ID)
	return &stored, nil
}

func (s *FinanceService) Liquidity(ctx context.Context, scope Scope, year, month int) (*LiquiditySnapshot, error) {
	if err := validPeriod(year, month); err != nil {
		return nil, err
	}
	if _, err := s.Accounts.Authorize(ctx, scope, models.CapView); err != nil {
		return nil, err
	}
	accounts, balances, err := s.load(ctx, scope.WorkspaceID, year, month)
	if err != nil {
		return nil, err
	}
	snap := ComputeLiquidity(year, month, accounts, balances)
	return &snap, nil
}

// LiquiditySeries returns one snapshot per month of year.
func (s *FinanceService) LiquiditySeries(ctx context.Context, scope Scope, year int) ([]LiquiditySnapshot, error) {
	if err := validPeriod(year, 1); err != nil {
		return nil, err
	}
	if _, err := s.Accounts.Authorize(ctx, scope, models.CapView); err != nil {
		return nil, err
	}
	accounts, balances, err := s.load(ctx, scope.WorkspaceID, year, 0)
	if err != nil {
		return nil, err
	}
	series := make([]LiquiditySnapshot, 0, 12)
	for m := 1; m <= 12; m++ {
		series = append(series, ComputeLiquidity(year, m, accounts, balances))
	}
	return series, nil
}

func (s *FinanceService) load(ctx context.Context, ws string, year, month int) ([]models.FinanceAccount, []models.AccountBalance, error) {
	var accounts []models.FinanceAccount
	if err := s.db.WithContext(ctx).Where("workspace_id = ?", ws).Order("name").Find(&accounts).Error; err != nil {
		return nil, nil, errs.Internal("failed to load accounts", err)
	}
	q := s.db.WithContext(ctx).Where("workspace_id = ? AND year = ?", ws, year)
	if month > 0 {
		q = q.Where("month = ?", month)
	}
	var balances []models.AccountBalance
	if err := q.Find(&balances).Error; err != nil {
		return nil, nil, errs.Internal("failed to load balances", err)
	}
	return accounts, balances, nil
}

// DeleteAccount removes an account and its recorded balances.
func (s *FinanceService) DeleteAccount(ctx context.Context, scope Scope, id string) error {
	return s.Accounts.DeleteWith(ctx, scope, id, func(tx *gorm.DB, a *models.FinanceAccount) error {
		err := tx.Where("workspace_id = ? AND account_id = ?", scope.WorkspaceID, a.ID).
			Delete(&models.AccountBalance{}).Error
		if err != nil {
			return errs.Internal("failed to delete balances", err)
		}
		return nil
	})
}
