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

// OutgoingAmount is an outgoing with the amount that applies to one month.
type OutgoingAmount struct {
	Outgoing   models.Outgoing `json:"outgoing"`
	Amount     decimal.Decimal `json:"amount"`
	Overridden bool            `json:"overridden"`
}

type MonthlySummary struct {
	Year          int                   `json:"year"`
	Month         int                   `json:"month"`
	Incomes       []models.BudgetIncome `json:"incomes"`
	Outgoings     []OutgoingAmount      `json:"outgoings"`
	TotalIncome   decimal.Decimal       `json:"totalIncome"`
	TotalOutgoing decimal.Decimal       `json:"totalOutgoing"`
	Balance       decimal.Decimal       `json:"balance"`
}

type YearlySummary struct {
	Year          int              `json:"year"`
	Months        []MonthlySummary `json:"months"`
	TotalIncome   decimal.Decimal  `json:"totalIncome"`
	TotalOutgoing decimal.Decimal  `json:"totalOutgoing"`
	Balance       decimal.Decimal  `json:"balance"`
}

// EffectiveAmount is the override for (outgoing, year, month) when one
// exists, otherwise the outgoing's default amount.
func EffectiveAmount(o models.Outgoing, overrides []models.OutgoingOverride, year, month int) (decimal.Decimal, bool) {
	for _, ov := range overrides {
		if ov.OutgoingID == o.ID && ov.Year == year && ov.Month == month {
			return ov.Amount, true
		}
	}
	return o.DefaultAmount, false
}

// Summarize builds the summary of one month. Paused outgoings are left out.
func Summarize(year, month int, incomes []models.BudgetIncome, outgoings []models.Outgoing, overrides []models.OutgoingOverride) MonthlySummary {
	sum := MonthlySummary{
		Year:          year,
		Month:         month,
		Incomes:       []models.BudgetIncome{},
		Outgoings:     []OutgoingAmount{},
		TotalIncome:   decimal.Zero,
		TotalOutgoing: decimal.Zero,
	}
	for _, in := range incomes {
		if in.Year != year || in.Month != month {
			continue
		}
		sum.Incomes = append(sum.Incomes, in)
		sum.TotalIncome = sum.TotalIncome.Add(in.Amount)
	}
	for _, o := range outgoings {
		if o.Paused {
			continue
		}
		amount, overridden := EffectiveAmount(o, overrides, year, month)
		sum.Outgoings = append(sum.Outgoings, OutgoingAmount{Outgoing: o, Amount: amount, Overridden: overridden})
		sum.TotalOutgoing = sum.TotalOutgoing.Add(amount)
	}
	sum.Balance = sum.TotalIncome.Sub(sum.TotalOutgoing)
	return sum
}

// BudgetService manages incomes, recurring outgoings and their monthly overrides.
type BudgetService struct {
	Incomes   *ScopedService[models.BudgetIncome, *models.BudgetIncome]
	Outgoings *ScopedService[models.Outgoing, *models.Outgoing]
	Overrides *ScopedService[models.OutgoingOverride, *models.OutgoingOverride]
	db        *gorm.DB
}

func NewBudgetService(db *gorm.DB, policy *authz.Policy, bus *events.EventBus) *BudgetService {
	return &BudgetService{
		Incomes: NewScopedService[models.BudgetIncome](db, policy, bus, models.ModuleBudget).
			WithFilters("year", "month", "source").
			WithBeforeSave(func(_ *gorm.DB, _ string, in *models.BudgetIncome) error {
				return validPeriod(in.Year, in.Month)
			}),
		Outgoings: NewScopedService[models.Outgoing](db, policy, bus, models.ModuleBudget).
			WithFilters("name", "category", "paused"),
		Overrides: NewScopedService[models.OutgoingOverride](db, policy, bus, models.ModuleBudget).
			WithFilters("outgoing_id", "year", "month").
			WithBeforeSave(func(tx *gorm.DB, ws string, ov *models.OutgoingOverride) error {
				if err := validPeriod(ov.Year, ov.Month); err != nil {
					return err
				}
				return requireInWorkspace(tx, &models.Outgoing{}, ws, ov.OutgoingID, "outgoing")
			}),
		db: db,
	}
}

func validPeriod(year, month int) error {
	if month < 1 || month > 12 {
		return errs.Validation("month must be between 1 and 12")
	}
	if year < 1900 || year > 3000 {
		return errs.Validation("year %d is out of range", year)
	}
	return nil
}

func (s *BudgetService) Monthly(ctx context.Context, scope Scope, year, month int) (*MonthlySummary, error) {
	if err := validPeriod(year, month); err != nil {
		return nil, err
	}
	if _, err := s.Incomes.Authorize(ctx, scope, models.CapView); err != nil {
		return nil, err
	}
	incomes, outgoings, overrides, err := s.load(ctx, scope.WorkspaceID, year, month)
	if err != nil {
		return nil, err
	}
	sum := Summarize(year, month, incomes, outgoings, overrides)
	return &sum, nil
}

// Yearly returns the twelve monthly summaries of year and their totals.
func (s *BudgetService) Yearly(ctx context.Context, scope Scope, year int) (*YearlySummary, error) {
	if err := validPeriod(year, 1); err != nil {
		return nil, err
	}
	if _, err := s.Incomes.Authorize(ctx, scope, models.CapView); err != nil {
		return nil, err
	}
	incomes, outgoings, overrides, err := s.load(ctx, scope.WorkspaceID, year, 0)
	if err != nil {
		return nil, err
	}

	out := &YearlySummary{
		Year:          year,
		Months:        make([]MonthlySummary, 0, 12),
		TotalIncome:   decimal.Zero,
		TotalOutgoing: decimal.Zero,
	}
	for m := 1; m <= 12; m++ {
		sum := Summarize(year, m, incomes, outgoings, overrides)
		out.Months = append(out.Months, sum)
		out.TotalIncome = out.TotalIncome.Add(sum.TotalIncome)
		out.TotalOutgoing = out.TotalOutgoing.Add(sum.TotalOutgoing)
	}
	out.Balance = out.TotalIncome.Sub(out.TotalOutgoing)
	return out, nil
}

// load reads the budget rows of a year, or of one month when month > 0.
func (s *BudgetService) load(ctx context.Context, ws string, year, month int) ([]models.BudgetIncome, []models.Outgoing, []models.OutgoingOverride, error) {
	q := s.db.WithContext(ctx)
	period := func(db *gorm.DB) *gorm.DB {
		db = db.Where("workspace_id = ? AND year = ?", ws, year)
		if month > 0 {
			db = db.Where("month = ?", month)
		}
		return db
	}

	var incomes []models.BudgetIncome
	if err := q.Scopes(period).Order("month, created_at").Find(&incomes).Error; err != nil {
		return nil, nil, nil, errs.Internal("failed to load incomes", err)
	}
	var outgoings []models.Outgoing
	if err := q.Where("workspace_id = ?", ws).Order("name").Find(&outgoings).Error; err != nil {
		return nil, nil, nil, errs.Internal("failed to load outgoings", err)
	}
	var overrides []models.OutgoingOverride
	if err := q.Scopes(period).Find(&overrides).Error; err != nil {
		return nil, nil, nil, errs.Internal("failed to load overrides", err)
	}
	return incomes, outgoings, overrides, nil
}

// SetOverride records the amount of an outgoing for one month, replacing any
// previous override of that month.
func (s *BudgetService) SetOverride(ctx context.Context, scope Scope, outgoingID string, year, month int, amount decimal.Decimal) (*models.OutgoingOverride, error) {
	if err := validPeriod(year, month); err != nil {
		return nil, err
	}
	if _, err := s.Overrides.Authorize(ctx, scope, models.CapAdd); err != nil {
		return nil, err
	}
	if _, err := s.Outgoings.Find(ctx, s.db, scope.WorkspaceID, outgoingID); err != nil {
		return nil, err
	}

	ov := &models.OutgoingOverride{OutgoingID: outgoingID, Year: year, Month: month, Amount: amount}
	ov.WorkspaceID = scope.WorkspaceID
	ov.CreatedBy = scope.Caller.UserID
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outgoing_id"}, {Name: "year"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(ov).Error
	if err != nil {
		return nil, errs.Internal("failed to save override", err)
	}

	var stored models.OutgoingOverride
	err = s.db.WithContext(ctx).
		Where("workspace_id = ? AND outgoing_id = ? AND year = ? AND month = ?", scope.WorkspaceID, outgoingID, year, month).
		First(&stored).Error
	if err != nil {
		return nil, errs.FromDB(err, "outgoing override")
	}
	s.Overrides.publish(scope.WorkspaceID, "updated", stored.ID)
	return &stored, nil
}

// ClearOverride returns the outgoing to its default amount for one month.
func (s *BudgetService) ClearOverride(ctx context.Context, scope Scope, outgoingID string, year, month int) error {
	if _, err := s.Overrides.Authorize(ctx, scope, models.CapDelete); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Where("workspace_id = ? AND outgoing_id = ? AND year = ? AND month = ?", scope.WorkspaceID, outgoingID, year, month).
		Delete(&models.OutgoingOverride{})
	if res.Error != nil {
		return errs.Internal("failed to delete override", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("outgoing override not found")
	}
	s.Overrides.publish(scope.WorkspaceID, "deleted", outgoingID)
	return nil
}

// DeleteOutgoing removes an outgoing together with its overrides.
func (s *BudgetService) DeleteOutgoing(ctx context.Context, scope Scope, id string) error {
	return s.Outgoings.DeleteWith(ctx, scope, id, func(tx *gorm.DB, o *models.Outgoing) error {
		err := tx.Where("workspace_id = ? AND outgoing_id = ?", scope.WorkspaceID, o.ID).
			Delete(&models.OutgoingOverride{}).Error
		if err != nil {
			return errs.Internal("failed to delete overrides", err)
		}
		return nil
	})
}
