package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"bizdesk/internal/api/middleware"
	"bizdesk/internal/services"
)

type BudgetHandler struct {
	budget *services.BudgetService
}

func NewBudgetHandler(budget *services.BudgetService) *BudgetHandler {
	return &BudgetHandler{budget: budget}
}

type AmountRequest struct {
	Amount *decimal.Decimal `json:"amount" validate:"required"`
}

// Monthly summarizes incomes and effective outgoings of one month.
// @Summary Monthly budget
// @Tags budget
// @Produce json
// @Security BearerAuth
// @Param ws path string true "Workspace ID"
// @Param year query int false "Year, defaults to the current one"
// @Param month query int false "Month 1-12, defaults to the current one"
// @Success 200 {object} services.MonthlySummary
// @Router /workspaces/{ws}/budget/monthly [get]
func (h *BudgetHandler) Monthly(c echo.Context) error {
	year, month, err := period(c)
	if err != nil {
		return err
	}
	summary, err := h.budget.Monthly(c.Request().Context(), middleware.Scope(c), year, month)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// @Summary Yearly budget
// @Tags budget
// @Produce json
// @Security BearerAuth
// @Param ws path string true "Workspace ID"
// @Param year query int false "Year"
// @Success 200 {object} services.YearlySummary
// @Router /workspaces/{ws}/budget/yearly [get]
func (h *BudgetHandler) Yearly(c echo.Context) error {
	year, err := intParam(c.QueryParam("year"), "year", time.Now().Year())
	if err != nil {
		return err
	}
	summary, err := h.budget.Yearly(c.Request().Context(), middleware.Scope(c), year)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// SetOverride replaces the amount of an outgoing for one month.
// @Summary Override an outgoing for a month
// @Tags budget
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ws path string true "Workspace ID"
// @Param id path string true "Outgoing ID"
// @Param year path int true "Year"
// @Param month path int true "Month"
// @Param request body AmountRequest true "Amount"
// @Success 200 {object} models.OutgoingOverride
// @Router /workspaces/{ws}/budget/outgoings/{id}/overrides/{year}/{month} [put]
func (h *BudgetHandler) SetOverride(c echo.Context) error {
	year, month, err := period(c)
	if err != nil {
		return err
	}
	var req AmountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	override, err := h.budget.SetOverride(c.Request().Context(), middleware.Scope(c), c.Param("id"), year, month, *req.Amount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, override)
}

func (h *BudgetHandler) ClearOverride(c echo.Context) error {
	year, month, err := period(c)
	if err != nil {
		return err
	}
	if err := h.budget.ClearOverride(c.Request().Context(), middleware.Scope(c), c.Param("id"), year, month); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
