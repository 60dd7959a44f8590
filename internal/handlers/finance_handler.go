package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"bizdesk/internal/api/middleware"
	"bizdesk/internal/services"
)

type FinanceHandler struct {
	finance *services.FinanceService
}

func NewFinanceHandler(finance *services.FinanceService) *FinanceHandler {
	return &FinanceHandler{finance: finance}
}

type BalanceRequest struct {
	Balance *decimal.Decimal `json:"balance" validate:"required"`
}

// RecordBalance stores the balance of an account for one month.
// @Summary Record account balance
// @Tags finance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ws path string true "Workspace ID"
// @Param id path string true "Account ID"
// @Param year path int true "Year"
// @Param month path int true "Month"
// @Param request body BalanceRequest true "Balance"
// @Success 200 {object} models.AccountBalance
// @Router /workspaces/{ws}/finance/accounts/{id}/balances/{year}/{month} [put]
func (h *FinanceHandler) RecordBalance(c echo.Context) error {
	year, month, err := period(c)
	if err != nil {
		return err
	}
	var req BalanceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	balance, err := h.finance.RecordBalance(c.Request().Context(), middleware.Scope(c), c.Param("id"), year, month, *req.Balance)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, balance)
}

// Liquidity returns assets minus liabilities for one month.
// @Summary Liquidity snapshot
// @Tags finance
// @Produce json
// @Security BearerAuth
// @Param ws path string true "Workspace ID"
// @Param year query int false "Year"
// @Param month query int false "Month"
// @Success 200 {object} services.LiquiditySnapshot
// @Router /workspaces/{ws}/finance/liquidity [get]
func (h *FinanceHandler) Liquidity(c echo.Context) error {
	year, month, err := period(c)
	if err != nil {
		return err
	}
	snapshot, err := h.finance.Liquidity(c.Request().Context(), middleware.Scope(c), year, month)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snapshot)
}

func (h *FinanceHandler) LiquiditySeries(c echo.Context) error {
	year, err := intParam(c.QueryParam("year"), "year", time.Now().Year())
	if err != nil {
		return err
	}
	series, err := h.finance.LiquiditySeries(c.Request().Context(), middleware.Scope(c), year)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, series)
}
